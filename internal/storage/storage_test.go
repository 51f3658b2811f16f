package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navid-fn/fareradar/internal/models"
)

var criteria = models.SearchCriteria{
	Origin:         "IAD",
	Destination:    "IDR",
	DepartureStart: "2026-06-13",
	DepartureEnd:   "2026-06-20",
	ReturnStart:    "2026-06-30",
	ReturnEnd:      "2026-07-04",
	Passengers:     1,
	TravelClass:    "economy",
}

func openStore(t *testing.T) *FileStore {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	store, err := Open(t.TempDir(), logger)
	require.NoError(t, err)
	return store
}

func sealedRun(at time.Time, prices ...string) *models.SearchRun {
	run := models.NewSearchRun(criteria, at)
	for _, p := range prices {
		run.Offers = append(run.Offers, models.Offer{
			Source:        "fareapi",
			Price:         models.Money{Amount: decimal.RequireFromString(p), Currency: "USD"},
			DepartureDate: "2026-06-13",
			ReturnDate:    "2026-07-02",
			Carrier:       "United",
			Stops:         1,
		})
	}
	run.Seal(at.Add(time.Minute))
	return run
}

func TestHistoryAppendAndQuery(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.History.Append(ctx, sealedRun(base.AddDate(0, 0, i), "500")))
	}

	runs, err := store.History.Query(ctx, criteria.RouteKey(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt))
	assert.True(t, runs[1].StartedAt.After(runs[2].StartedAt))

	limited, err := store.History.Query(ctx, criteria.RouteKey(), 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
	assert.Equal(t, runs[0].ID, limited[0].ID)

	again, err := store.History.Query(ctx, criteria.RouteKey(), 0)
	require.NoError(t, err)
	assert.Equal(t, runs, again)
}

func TestHistoryRefusesOverwrite(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	run := sealedRun(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC), "500")

	require.NoError(t, store.History.Append(ctx, run))
	err := store.History.Append(ctx, sealedRun(run.StartedAt, "100"))
	require.ErrorIs(t, err, ErrRunExists)

	var pe *PersistenceError
	require.True(t, errors.As(err, &pe))

	stored, err := store.History.Get(ctx, run.RouteKey(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, "500", stored.Offers[0].Price.Amount.String())
}

func TestHistoryEmptyRunIsRecorded(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	run := sealedRun(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	run.FailedSources = []string{"expedia", "google_flights"}

	require.NoError(t, store.History.Append(ctx, run))

	stored, err := store.History.Get(ctx, run.RouteKey(), run.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Offers)
	assert.NotNil(t, stored.Offers)
	assert.Equal(t, []string{"expedia", "google_flights"}, stored.FailedSources)
}

func TestHistoryGetMissingAndInvalid(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	_, err := store.History.Get(ctx, criteria.RouteKey(), "20260101T000000.000000000Z")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.History.Get(ctx, criteria.RouteKey(), "../../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHistoryQueryUnknownRoute(t *testing.T) {
	store := openStore(t)
	runs, err := store.History.Query(context.Background(), "AAA-BBB:x", 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestHistorySkipsCorruptFile(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	run := sealedRun(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC), "500")
	require.NoError(t, store.History.Append(ctx, run))

	dir := filepath.Join(store.Dir, "history", criteria.RouteKey().Slug())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20990101T000000.000000000Z.json"), []byte("{"), 0o644))

	runs, err := store.History.Query(ctx, criteria.RouteKey(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestHistoryRoutes(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	require.NoError(t, store.History.Append(ctx, sealedRun(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC), "500")))

	routes, err := store.History.Routes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.RouteKey{criteria.RouteKey()}, routes)
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.json")
	require.NoError(t, writeFileAtomic(path, []byte("one")))
	require.NoError(t, writeFileAtomic(path, []byte("two")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAnalysisStore(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	first := models.AnalysisRecord{RunID: "20260501T090000.000000000Z", Status: models.AnalysisOK, Recommendation: "Book now", Attempts: 1}
	second := models.AnalysisRecord{RunID: "20260502T090000.000000000Z", Status: models.AnalysisAbsent, Reason: "rate limited", Attempts: 4}
	require.NoError(t, store.Analysis.Append(ctx, first))
	require.NoError(t, store.Analysis.Append(ctx, second))
	assert.ErrorIs(t, store.Analysis.Append(ctx, first), ErrRecordExists)

	got, err := store.Analysis.Get(ctx, first.RunID)
	require.NoError(t, err)
	assert.Equal(t, "Book now", got.Recommendation)

	list, err := store.Analysis.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.RunID, list[0].RunID)
	assert.True(t, list[0].Absent())
}

func TestPriceStore(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	_, ok, err := store.Prices.Get(ctx, criteria.RouteKey())
	require.NoError(t, err)
	assert.False(t, ok)

	low := decimal.RequireFromString("480")
	series := models.PriceSeries{Key: criteria.RouteKey(), Currency: "USD", Min: &low, Trend: models.TrendDecreasing, Runs: 2}
	require.NoError(t, store.Prices.Put(ctx, series))

	got, ok, err := store.Prices.Get(ctx, criteria.RouteKey())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.TrendDecreasing, got.Trend)
	assert.True(t, got.Min.Equal(low))

	all, err := store.Prices.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSnapshotStore(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	ref, err := store.Snapshots.Put(ctx, "United 20 hr $1,234")
	require.NoError(t, err)

	text, err := store.Snapshots.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "United 20 hr $1,234", text)

	_, err = store.Snapshots.Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Snapshots.Delete(ctx, ref))
	_, err = store.Snapshots.Get(ctx, ref)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, store.Snapshots.Delete(ctx, ref), "deleting twice is not an error")
}

func TestWritable(t *testing.T) {
	assert.NoError(t, openStore(t).Writable())
}
