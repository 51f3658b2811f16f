package service

import (
	"context"

	"github.com/navid-fn/fareradar/internal/models"
	"github.com/navid-fn/fareradar/server/internal/model"
	"github.com/navid-fn/fareradar/server/internal/repository"
)

type OfferService struct {
	repo         repository.OfferRepository
	defaultRoute models.RouteKey
}

func NewOfferService(repo repository.OfferRepository, defaultRoute models.RouteKey) *OfferService {
	return &OfferService{
		repo:         repo,
		defaultRoute: defaultRoute,
	}
}

func (s *OfferService) SourceCounts(ctx context.Context) ([]model.SourceCount, error) {
	return s.repo.OfferCountGroupBySource(ctx)
}

func (s *OfferService) PriceHistory(ctx context.Context, route string, limit int) ([]model.RunPriceStats, error) {
	key := models.RouteKey(route)
	if key == "" {
		if s.defaultRoute == "" {
			return nil, ErrNoRoute
		}
		key = s.defaultRoute
	}
	return s.repo.RunPriceStats(ctx, string(key), clampLimit(limit))
}
