package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/navid-fn/fareradar/server/internal/model"
)

// OfferRepository reads the ClickHouse offer mirror.
type OfferRepository interface {
	OfferCountGroupBySource(ctx context.Context) ([]model.SourceCount, error)
	RunPriceStats(ctx context.Context, route string, limit int) ([]model.RunPriceStats, error)
}

type gormOfferRepository struct {
	db *gorm.DB
}

func NewGormOfferRepository(db *gorm.DB) OfferRepository {
	return &gormOfferRepository{db: db}
}

func (r *gormOfferRepository) OfferCountGroupBySource(ctx context.Context) ([]model.SourceCount, error) {
	var counts []model.SourceCount
	if err := sourceCountQuery(r.db.WithContext(ctx)).Find(&counts).Error; err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *gormOfferRepository) RunPriceStats(ctx context.Context, route string, limit int) ([]model.RunPriceStats, error) {
	var stats []model.RunPriceStats
	if err := runPriceStatsQuery(r.db.WithContext(ctx), route, limit).Find(&stats).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

func sourceCountQuery(db *gorm.DB) *gorm.DB {
	return db.Model(&model.Offer{}).
		Select("source, count() AS offers").
		Group("source").
		Order("source")
}

// runPriceStatsQuery returns the newest runs of a route first.
func runPriceStatsQuery(db *gorm.DB, route string, limit int) *gorm.DB {
	return db.Model(&model.RunPriceStats{}).
		Where("route_key = ?", route).
		Order("run_id DESC").
		Limit(limit)
}
