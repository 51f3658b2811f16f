// Package migrations embeds the ClickHouse schema of the offer mirror.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
