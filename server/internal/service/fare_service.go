package service

import (
	"context"
	"errors"

	"github.com/navid-fn/fareradar/internal/models"
	"github.com/navid-fn/fareradar/server/internal/model"
	"github.com/navid-fn/fareradar/server/internal/repository"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// ErrNoRoute is returned when a request names no route and none is configured.
var ErrNoRoute = errors.New("no route given and none configured")

type FareService struct {
	repo         repository.FareRepository
	defaultRoute models.RouteKey
}

func NewFareService(repo repository.FareRepository, defaultRoute models.RouteKey) *FareService {
	return &FareService{
		repo:         repo,
		defaultRoute: defaultRoute,
	}
}

func (fs *FareService) route(requested string) (models.RouteKey, error) {
	if requested != "" {
		return models.RouteKey(requested), nil
	}
	if fs.defaultRoute == "" {
		return "", ErrNoRoute
	}
	return fs.defaultRoute, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

func (fs *FareService) LatestRuns(ctx context.Context, route string, limit int) ([]model.RunSummary, error) {
	key, err := fs.route(route)
	if err != nil {
		return nil, err
	}
	runs, err := fs.repo.LatestRuns(ctx, key, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	out := make([]model.RunSummary, 0, len(runs))
	for _, r := range runs {
		out = append(out, model.NewRunSummary(r))
	}
	return out, nil
}

func (fs *FareService) Run(ctx context.Context, route, id string) (*models.SearchRun, error) {
	key, err := fs.route(route)
	if err != nil {
		return nil, err
	}
	return fs.repo.Run(ctx, key, id)
}

func (fs *FareService) Routes(ctx context.Context) ([]models.RouteKey, error) {
	return fs.repo.Routes(ctx)
}

func (fs *FareService) AllSeries(ctx context.Context) (map[models.RouteKey]models.PriceSeries, error) {
	return fs.repo.AllSeries(ctx)
}

// CurrentSeries returns the series of the route; ok is false when the route
// has no series yet.
func (fs *FareService) CurrentSeries(ctx context.Context, route string) (series models.PriceSeries, ok bool, err error) {
	key, err := fs.route(route)
	if err != nil {
		return models.PriceSeries{}, false, err
	}
	return fs.repo.Series(ctx, key)
}

func (fs *FareService) Analyses(ctx context.Context, limit int) ([]models.AnalysisRecord, error) {
	return fs.repo.Analyses(ctx, clampLimit(limit))
}

func (fs *FareService) Analysis(ctx context.Context, runID string) (models.AnalysisRecord, error) {
	return fs.repo.Analysis(ctx, runID)
}
