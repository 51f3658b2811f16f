package main

import (
	"context"

	"github.com/navid-fn/fareradar/cmd/agent/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
