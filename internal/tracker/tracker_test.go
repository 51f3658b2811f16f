package tracker

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navid-fn/fareradar/internal/events"
	"github.com/navid-fn/fareradar/internal/models"
	"github.com/navid-fn/fareradar/internal/storage"
)

var (
	criteria = models.SearchCriteria{
		Origin: "IAD", Destination: "IDR",
		DepartureStart: "2026-06-13", DepartureEnd: "2026-06-20",
		ReturnStart: "2026-06-30", ReturnEnd: "2026-07-04",
		Passengers: 1, TravelClass: "economy",
	}
	tolerance = decimal.RequireFromString("0.01")
	day0      = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
)

func run(day int, prices ...string) *models.SearchRun {
	r := models.NewSearchRun(criteria, day0.AddDate(0, 0, day))
	for i, p := range prices {
		r.Offers = append(r.Offers, models.Offer{
			Source:        []string{"a", "b", "c"}[i%3],
			Price:         models.Money{Amount: decimal.RequireFromString(p), Currency: "USD"},
			DepartureDate: "2026-06-13",
		})
	}
	r.Seal(r.StartedAt.Add(time.Minute))
	return r
}

func dec(s string) string { return decimal.RequireFromString(s).String() }

func TestDeriveFirstRunIsUnknown(t *testing.T) {
	s := Derive(criteria.RouteKey(), []*models.SearchRun{run(0, "300", "280")}, tolerance)

	require.NotNil(t, s.Min)
	assert.Equal(t, dec("280"), s.Min.String())
	assert.Equal(t, dec("300"), s.Max.String())
	assert.Equal(t, dec("290"), s.Avg.String())
	assert.Equal(t, models.TrendUnknown, s.Trend)
	assert.Nil(t, s.PreviousMin)
	assert.Equal(t, "USD", s.Currency)
	assert.Equal(t, 1, s.Runs)
}

func TestDeriveIncreasingThenDecreasing(t *testing.T) {
	r1, r2, r3 := run(0, "300", "280"), run(1, "300"), run(2, "250")

	s2 := Derive(criteria.RouteKey(), []*models.SearchRun{r2, r1}, tolerance)
	assert.Equal(t, dec("300"), s2.Min.String())
	assert.Equal(t, dec("280"), s2.PreviousMin.String())
	assert.Equal(t, models.TrendIncreasing, s2.Trend)

	s3 := Derive(criteria.RouteKey(), []*models.SearchRun{r3, r2, r1}, tolerance)
	assert.Equal(t, dec("250"), s3.Min.String())
	assert.Equal(t, models.TrendDecreasing, s3.Trend)
	assert.Equal(t, dec("250"), s3.WindowMin.String())
	assert.Equal(t, dec("300"), s3.WindowMax.String())
	assert.Equal(t, r3.ID, s3.UpdatedFromRun)
	require.Len(t, s3.History, 3)
	assert.Equal(t, r3.ID, s3.History[0].RunID)
}

func TestDeriveFlatWithinTolerance(t *testing.T) {
	s := Derive(criteria.RouteKey(), []*models.SearchRun{run(1, "300.01"), run(0, "300")}, tolerance)
	assert.Equal(t, models.TrendFlat, s.Trend)
}

func TestDeriveUnknownWhenPreviousRunEmpty(t *testing.T) {
	s := Derive(criteria.RouteKey(), []*models.SearchRun{run(1, "300"), run(0)}, tolerance)
	assert.Equal(t, models.TrendUnknown, s.Trend)
	assert.Nil(t, s.PreviousMin)

	s = Derive(criteria.RouteKey(), []*models.SearchRun{run(1), run(0, "300")}, tolerance)
	assert.Equal(t, models.TrendUnknown, s.Trend)
	assert.Nil(t, s.Min)
	assert.Equal(t, dec("300"), s.WindowMin.String())
}

func TestDeriveNoRuns(t *testing.T) {
	s := Derive(criteria.RouteKey(), nil, tolerance)
	assert.Equal(t, models.TrendUnknown, s.Trend)
	assert.Zero(t, s.Runs)
	assert.NotNil(t, s.History)
}

func TestDeriveIgnoresOtherCurrencies(t *testing.T) {
	r := run(0, "300", "280")
	r.Offers = append(r.Offers, models.Offer{
		Source:        "c",
		Price:         models.Money{Amount: decimal.RequireFromString("4000000"), Currency: "IDR"},
		DepartureDate: "2026-06-13",
	})
	s := Derive(criteria.RouteKey(), []*models.SearchRun{r}, tolerance)
	assert.Equal(t, "USD", s.Currency)
	assert.Equal(t, dec("300"), s.Max.String())
	assert.Equal(t, 2, s.History[0].OfferCount)
}

type recordingSink struct {
	events []events.Event
}

func (s *recordingSink) Emit(_ context.Context, e events.Event) { s.events = append(s.events, e) }

func TestUpdatePersistsAndAnnouncesTrendChanges(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	store, err := storage.Open(t.TempDir(), logger)
	require.NoError(t, err)
	sink := &recordingSink{}
	tr := NewTracker(store.History, store.Prices, sink, tolerance, 30, logger)
	ctx := context.Background()
	key := criteria.RouteKey()

	require.NoError(t, store.History.Append(ctx, run(0, "300", "280")))
	s, err := tr.Update(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, models.TrendUnknown, s.Trend)
	assert.Empty(t, sink.events)

	require.NoError(t, store.History.Append(ctx, run(1, "300")))
	s, err = tr.Update(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, models.TrendIncreasing, s.Trend)
	require.Len(t, sink.events, 1)
	assert.Equal(t, events.TrendChanged, sink.events[0].Type)

	require.NoError(t, store.History.Append(ctx, run(2, "250")))
	s, err = tr.Update(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, models.TrendDecreasing, s.Trend)
	assert.Len(t, sink.events, 2)

	stored, ok, err := store.Prices.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.TrendDecreasing, stored.Trend)
	assert.Equal(t, dec("250"), stored.Min.String())

	again, err := tr.Update(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, s.Trend, again.Trend)
	assert.True(t, s.Min.Equal(*again.Min))
	assert.Len(t, sink.events, 2)
}

func TestUpdateAnnouncesEveryTrendTransition(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	store, err := storage.Open(t.TempDir(), logger)
	require.NoError(t, err)
	sink := &recordingSink{}
	tr := NewTracker(store.History, store.Prices, sink, tolerance, 30, logger)
	ctx := context.Background()
	key := criteria.RouteKey()

	steps := []struct {
		price string
		trend models.Trend
	}{
		{"300", models.TrendUnknown},
		{"320", models.TrendIncreasing},
		{"320", models.TrendFlat},
		{"320", models.TrendFlat},
		{"340", models.TrendIncreasing},
	}
	for day, step := range steps {
		require.NoError(t, store.History.Append(ctx, run(day, step.price)))
		s, err := tr.Update(ctx, key)
		require.NoError(t, err)
		require.Equal(t, step.trend, s.Trend, "day %d", day)
	}

	require.Len(t, sink.events, 3)
	var trends []string
	for _, e := range sink.events {
		assert.Equal(t, events.TrendChanged, e.Type)
		trends = append(trends, e.Data["trend"].(string))
	}
	assert.Equal(t, []string{"increasing", "flat", "increasing"}, trends)
	assert.Equal(t, "increasing", sink.events[1].Data["previous_trend"])
}
