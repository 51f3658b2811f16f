package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/navid-fn/fareradar/internal/models"
)

// PriceStore keeps the derived price series of every route in a single file.
// It only caches what the tracker derives from history.
type PriceStore struct {
	path string
	mu   sync.Mutex
}

func (s *PriceStore) load() (map[models.RouteKey]models.PriceSeries, error) {
	all := make(map[models.RouteKey]models.PriceSeries)
	if err := readJSON("load prices", s.path, &all); err != nil {
		if errors.Is(err, ErrNotFound) {
			return all, nil
		}
		return nil, err
	}
	return all, nil
}

func (s *PriceStore) Put(ctx context.Context, series models.PriceSeries) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return err
	}
	all[series.Key] = series
	return writeJSON("put prices", s.path, all)
}

// Get returns the stored series of key; ok is false when none exists yet.
func (s *PriceStore) Get(ctx context.Context, key models.RouteKey) (series models.PriceSeries, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return models.PriceSeries{}, false, err
	}
	series, ok = all[key]
	return series, ok, nil
}

func (s *PriceStore) All(ctx context.Context) (map[models.RouteKey]models.PriceSeries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}
