package model

import (
	"time"

	"github.com/navid-fn/fareradar/internal/models"
)

// RunSummary is a run without its offers.
type RunSummary struct {
	ID            string    `json:"id"`
	Route         string    `json:"route"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Offers        int       `json:"offers"`
	FailedSources []string  `json:"failed_sources"`
	Cheapest      string    `json:"cheapest,omitempty"`
}

func NewRunSummary(run *models.SearchRun) RunSummary {
	s := RunSummary{
		ID:            run.ID,
		Route:         string(run.RouteKey()),
		StartedAt:     run.StartedAt,
		FinishedAt:    run.FinishedAt,
		Offers:        len(run.Offers),
		FailedSources: run.FailedSources,
	}
	var low *models.Offer
	for i := range run.Offers {
		o := &run.Offers[i]
		if low == nil || (o.Price.Currency == low.Price.Currency && o.Price.Amount.LessThan(low.Price.Amount)) {
			low = o
		}
	}
	if low != nil {
		s.Cheapest = low.Price.String()
	}
	return s
}
