package tracker

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/navid-fn/fareradar/internal/models"
)

// Derive computes the price series of key from runs, newest first.
// It is a pure function: the same runs always give the same series.
//
// Min, Max and Avg describe the latest run. The trend compares the latest
// run's minimum with the one right before it and is unknown when either run
// has no prices. A difference within tolerance is flat.
func Derive(key models.RouteKey, runs []*models.SearchRun, tolerance decimal.Decimal) models.PriceSeries {
	series := models.PriceSeries{
		Key:     key,
		Trend:   models.TrendUnknown,
		Runs:    len(runs),
		History: []models.RunAggregate{},
	}
	if len(runs) == 0 {
		return series
	}

	series.Currency = seriesCurrency(runs)
	series.UpdatedFromRun = runs[0].ID
	for _, run := range runs {
		series.History = append(series.History, aggregate(run, series.Currency))
	}

	latest := series.History[0]
	series.Min, series.Max, series.Avg = latest.Min, latest.Max, latest.Avg

	if len(series.History) > 1 {
		series.PreviousMin = series.History[1].Min
		series.Trend = compare(series.Min, series.PreviousMin, tolerance)
	}

	for _, agg := range series.History {
		if agg.Min != nil && (series.WindowMin == nil || agg.Min.LessThan(*series.WindowMin)) {
			series.WindowMin = agg.Min
		}
		if agg.Max != nil && (series.WindowMax == nil || agg.Max.GreaterThan(*series.WindowMax)) {
			series.WindowMax = agg.Max
		}
	}
	return series
}

func compare(current, previous *decimal.Decimal, tolerance decimal.Decimal) models.Trend {
	if current == nil || previous == nil {
		return models.TrendUnknown
	}
	diff := current.Sub(*previous)
	switch {
	case diff.Abs().LessThanOrEqual(tolerance):
		return models.TrendFlat
	case diff.IsNegative():
		return models.TrendDecreasing
	default:
		return models.TrendIncreasing
	}
}

// aggregate summarizes the offers of run quoted in currency.
func aggregate(run *models.SearchRun, currency string) models.RunAggregate {
	agg := models.RunAggregate{RunID: run.ID, At: run.StartedAt}

	var low, high, sum decimal.Decimal
	for _, o := range run.Offers {
		if o.Price.Currency != currency || !o.Price.Amount.IsPositive() {
			continue
		}
		p := o.Price.Amount
		if agg.OfferCount == 0 || p.LessThan(low) {
			low = p
		}
		if agg.OfferCount == 0 || p.GreaterThan(high) {
			high = p
		}
		sum = sum.Add(p)
		agg.OfferCount++
	}
	if agg.OfferCount == 0 {
		return agg
	}

	avg := sum.DivRound(decimal.NewFromInt(int64(agg.OfferCount)), 2)
	agg.Min, agg.Max, agg.Avg = &low, &high, &avg
	return agg
}

// seriesCurrency picks the currency most offers of the newest priced run
// are quoted in. Ties go to the alphabetically first code.
func seriesCurrency(runs []*models.SearchRun) string {
	for _, run := range runs {
		counts := make(map[string]int)
		for _, o := range run.Offers {
			if o.Price.Currency != "" {
				counts[o.Price.Currency]++
			}
		}
		if len(counts) == 0 {
			continue
		}

		codes := make([]string, 0, len(counts))
		for c := range counts {
			codes = append(codes, c)
		}
		slices.Sort(codes)

		best := codes[0]
		for _, c := range codes[1:] {
			if counts[c] > counts[best] {
				best = c
			}
		}
		return best
	}
	return ""
}
