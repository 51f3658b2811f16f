package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trend is the direction of the minimum price between two consecutive runs.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendFlat       Trend = "flat"
	TrendUnknown    Trend = "unknown"
)

// RunAggregate holds the price statistics of a single run.
// Min, Max and Avg are nil when the run has no priced offers.
type RunAggregate struct {
	RunID      string           `json:"run_id"`
	At         time.Time        `json:"at"`
	Min        *decimal.Decimal `json:"min"`
	Max        *decimal.Decimal `json:"max"`
	Avg        *decimal.Decimal `json:"avg"`
	OfferCount int              `json:"offer_count"`
}

// PriceSeries is derived from the history of one route key. It is never
// authored directly: deriving it again from the same history gives the same value.
type PriceSeries struct {
	Key      RouteKey `json:"key"`
	Currency string   `json:"currency"`

	// Min, Max and Avg describe the latest run.
	Min *decimal.Decimal `json:"min"`
	Max *decimal.Decimal `json:"max"`
	Avg *decimal.Decimal `json:"avg"`

	// PreviousMin is the minimum of the run right before the latest one.
	PreviousMin *decimal.Decimal `json:"previous_min"`

	Trend Trend `json:"trend"`

	// WindowMin and WindowMax span every run in History.
	WindowMin *decimal.Decimal `json:"window_min"`
	WindowMax *decimal.Decimal `json:"window_max"`

	// Runs is the number of runs the series was derived from.
	Runs int `json:"runs"`

	// History holds one aggregate per run, newest first.
	History []RunAggregate `json:"history"`

	// UpdatedFromRun is the id of the latest run included.
	UpdatedFromRun string `json:"updated_from_run"`
}
