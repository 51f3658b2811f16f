package repository

import (
	"context"

	"github.com/navid-fn/fareradar/internal/models"
	"github.com/navid-fn/fareradar/internal/storage"
)

// FareRepository reads what the agent archived.
type FareRepository interface {
	LatestRuns(ctx context.Context, route models.RouteKey, limit int) ([]*models.SearchRun, error)
	Run(ctx context.Context, route models.RouteKey, id string) (*models.SearchRun, error)
	Routes(ctx context.Context) ([]models.RouteKey, error)
	Series(ctx context.Context, route models.RouteKey) (models.PriceSeries, bool, error)
	AllSeries(ctx context.Context) (map[models.RouteKey]models.PriceSeries, error)
	Analyses(ctx context.Context, limit int) ([]models.AnalysisRecord, error)
	Analysis(ctx context.Context, runID string) (models.AnalysisRecord, error)
}

type fileFareRepository struct {
	store *storage.FileStore
}

func NewFileFareRepository(store *storage.FileStore) FareRepository {
	return &fileFareRepository{store: store}
}

func (r *fileFareRepository) LatestRuns(ctx context.Context, route models.RouteKey, limit int) ([]*models.SearchRun, error) {
	return r.store.History.Query(ctx, route, limit)
}

func (r *fileFareRepository) Run(ctx context.Context, route models.RouteKey, id string) (*models.SearchRun, error) {
	return r.store.History.Get(ctx, route, id)
}

func (r *fileFareRepository) Routes(ctx context.Context) ([]models.RouteKey, error) {
	return r.store.History.Routes(ctx)
}

func (r *fileFareRepository) Series(ctx context.Context, route models.RouteKey) (models.PriceSeries, bool, error) {
	return r.store.Prices.Get(ctx, route)
}

func (r *fileFareRepository) AllSeries(ctx context.Context) (map[models.RouteKey]models.PriceSeries, error) {
	return r.store.Prices.All(ctx)
}

func (r *fileFareRepository) Analyses(ctx context.Context, limit int) ([]models.AnalysisRecord, error) {
	return r.store.Analysis.List(ctx, limit)
}

func (r *fileFareRepository) Analysis(ctx context.Context, runID string) (models.AnalysisRecord, error) {
	return r.store.Analysis.Get(ctx, runID)
}
