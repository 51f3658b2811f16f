package storage

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/navid-fn/fareradar/internal/models"
	"github.com/navid-fn/fareradar/internal/scraper"
)

// Mirror copies sealed runs into an analytics database. The file store stays
// the source of truth; a mirror failure never fails a run.
type Mirror interface {
	MirrorRun(ctx context.Context, run *models.SearchRun) error
	Close() error
}

// clickhouseMirror implements Mirror using native ClickHouse driver.
type clickhouseMirror struct {
	conn driver.Conn
}

// NewClickHouseMirror parses the DSN, opens a connection and verifies it with
// a ping. Returns an error if the server cannot be reached within 5 seconds.
func NewClickHouseMirror(dsn string) (Mirror, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	return &clickhouseMirror{conn: conn}, nil
}

// MirrorRun inserts the run's offers with one batch insert.
// All rows share the same inserted_at timestamp.
func (m *clickhouseMirror) MirrorRun(ctx context.Context, run *models.SearchRun) error {
	if len(run.Offers) == 0 {
		return nil
	}

	batch, err := m.conn.PrepareBatch(ctx, `
		INSERT INTO offer (
			offer_id, run_id, route_key, source, carrier,
			departure_date, return_date, price, currency,
			stops, duration, retrieved_at, inserted_at
		)
	`)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, o := range run.Offers {
		err := batch.Append(
			scraper.GenerateOfferID(o),
			run.ID,
			string(run.RouteKey()),
			o.Source,
			o.Carrier,
			o.DepartureDate,
			o.ReturnDate,
			o.Price.Amount,
			o.Price.Currency,
			int32(o.Stops),
			o.Duration,
			o.RetrievedAt,
			now,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}

// Close closes the ClickHouse connection.
func (m *clickhouseMirror) Close() error {
	return m.conn.Close()
}
