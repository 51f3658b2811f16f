// Package tracker derives price statistics and trends from the run history.
package tracker

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/navid-fn/fareradar/internal/events"
	"github.com/navid-fn/fareradar/internal/models"
)

type HistoryReader interface {
	Query(ctx context.Context, key models.RouteKey, limit int) ([]*models.SearchRun, error)
}

type SeriesStore interface {
	Get(ctx context.Context, key models.RouteKey) (models.PriceSeries, bool, error)
	Put(ctx context.Context, series models.PriceSeries) error
}

type Tracker struct {
	history   HistoryReader
	prices    SeriesStore
	events    events.Sink
	tolerance decimal.Decimal
	window    int
	logger    *logrus.Logger
}

func NewTracker(history HistoryReader, prices SeriesStore, sink events.Sink, tolerance decimal.Decimal, window int, logger *logrus.Logger) *Tracker {
	if window < 2 {
		window = 2
	}
	return &Tracker{
		history:   history,
		prices:    prices,
		events:    sink,
		tolerance: tolerance,
		window:    window,
		logger:    logger,
	}
}

// Update re-derives the series of key from the latest runs and stores it.
func (t *Tracker) Update(ctx context.Context, key models.RouteKey) (models.PriceSeries, error) {
	runs, err := t.history.Query(ctx, key, t.window)
	if err != nil {
		return models.PriceSeries{}, fmt.Errorf("query history: %w", err)
	}

	series := Derive(key, runs, t.tolerance)

	previous, found, err := t.prices.Get(ctx, key)
	if err != nil {
		t.logger.WithError(err).Warn("Failed to read stored price series")
	}

	if err := t.prices.Put(ctx, series); err != nil {
		return series, fmt.Errorf("store price series: %w", err)
	}

	log := t.logger.WithFields(logrus.Fields{
		"route": key,
		"trend": series.Trend,
		"runs":  series.Runs,
	})
	if series.Min != nil {
		log = log.WithField("min", series.Min.String()+" "+series.Currency)
	}
	log.Info("Price series updated")

	if changed(previous, found, series) {
		data := map[string]any{
			"trend":    string(series.Trend),
			"currency": series.Currency,
		}
		if found {
			data["previous_trend"] = string(previous.Trend)
		}
		if series.Min != nil {
			data["min"] = series.Min.String()
		}
		if series.PreviousMin != nil {
			data["previous_min"] = series.PreviousMin.String()
		}
		t.events.Emit(ctx, events.New(events.TrendChanged, string(key), series.UpdatedFromRun, data))
	}

	return series, nil
}

// changed reports whether the trend differs from the stored one. A route's
// first series is announced only once it has a direction.
func changed(previous models.PriceSeries, found bool, current models.PriceSeries) bool {
	if !found {
		return current.Trend != models.TrendUnknown
	}
	return previous.Trend != current.Trend
}
