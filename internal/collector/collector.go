// Package collector fans a search out to every source and merges what comes back.
package collector

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/navid-fn/fareradar/internal/faulttolerance"
	"github.com/navid-fn/fareradar/internal/models"
	"github.com/navid-fn/fareradar/internal/scraper"
)

type Config struct {
	// SourceTimeout bounds one source call. A source still running at the
	// deadline is abandoned and counted as failed.
	SourceTimeout time.Duration

	// Delay is the minimum spacing between two source invocations, Jitter a
	// random extra wait added on top.
	Delay  time.Duration
	Jitter time.Duration

	// Workers is how many sources are called at once.
	Workers int

	// BreakerFailures consecutive failed runs open a source's breaker for
	// BreakerTimeout.
	BreakerFailures int
	BreakerTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		SourceTimeout:   60 * time.Second,
		Delay:           2 * time.Second,
		Jitter:          500 * time.Millisecond,
		Workers:         2,
		BreakerFailures: 3,
		BreakerTimeout:  48 * time.Hour,
	}
}

// Result is the merged outcome of one collection.
type Result struct {
	// Offers are valid, deduplicated and sorted.
	Offers []models.Offer

	// FailedSources is sorted.
	FailedSources []string

	Errors map[string]*scraper.FetchError
}

// Collector is safe to reuse across runs; breaker state carries over.
type Collector struct {
	config  Config
	logger  *logrus.Logger
	limiter *rate.Limiter

	mu       sync.Mutex
	breakers map[string]*faulttolerance.CircuitBreaker
	rng      *rand.Rand
}

func NewCollector(config Config, logger *logrus.Logger) *Collector {
	defaults := DefaultConfig()
	if config.SourceTimeout <= 0 {
		config.SourceTimeout = defaults.SourceTimeout
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.BreakerFailures <= 0 {
		config.BreakerFailures = defaults.BreakerFailures
	}
	if config.BreakerTimeout <= 0 {
		config.BreakerTimeout = defaults.BreakerTimeout
	}

	limit := rate.Inf
	if config.Delay > 0 {
		limit = rate.Every(config.Delay)
	}

	return &Collector{
		config:   config,
		logger:   logger,
		limiter:  rate.NewLimiter(limit, 1),
		breakers: make(map[string]*faulttolerance.CircuitBreaker),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type sourceOutcome struct {
	offers []models.Offer
	err    *scraper.FetchError
}

// Collect calls every source and never fails as a whole: each source that
// errors, times out, panics or returns nothing usable is listed in
// FailedSources and the rest of the run goes on.
func (c *Collector) Collect(ctx context.Context, criteria models.SearchCriteria, sources []scraper.Source) Result {
	outcomes := make([]sourceOutcome, len(sources))

	g := new(errgroup.Group)
	g.SetLimit(c.config.Workers)
	for i, src := range sources {
		g.Go(func() error {
			outcomes[i] = c.collectSource(ctx, criteria, src)
			return nil
		})
	}
	_ = g.Wait()

	result := Result{
		Offers:        []models.Offer{},
		FailedSources: []string{},
		Errors:        make(map[string]*scraper.FetchError),
	}
	seen := make(map[models.OfferKey]struct{})
	for i, out := range outcomes {
		name := sources[i].Name()
		if out.err != nil {
			result.FailedSources = append(result.FailedSources, name)
			result.Errors[name] = out.err
			continue
		}
		for _, o := range out.offers {
			key := o.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			result.Offers = append(result.Offers, o)
		}
	}

	slices.Sort(result.FailedSources)
	slices.SortStableFunc(result.Offers, compareOffers)

	c.logger.WithFields(logrus.Fields{
		"sources": len(sources),
		"failed":  len(result.FailedSources),
		"offers":  len(result.Offers),
	}).Info("Collection finished")

	return result
}

func (c *Collector) collectSource(ctx context.Context, criteria models.SearchCriteria, src scraper.Source) sourceOutcome {
	name := src.Name()
	log := c.logger.WithField("source", name)

	breaker := c.breaker(name)
	if err := breaker.Allow(); err != nil {
		log.Warn("Source skipped, circuit breaker open")
		return sourceOutcome{err: scraper.NewFetchError(name, scraper.KindCircuitOpen, err)}
	}

	if err := c.pace(ctx); err != nil {
		return sourceOutcome{err: scraper.NewFetchError(name, scraper.KindTimeout, err)}
	}

	start := time.Now()
	offers, err := c.callSource(ctx, criteria, src)
	if err == nil {
		offers, err = c.validate(name, offers, log)
	}

	var fetchErr *scraper.FetchError
	if err != nil {
		fetchErr = scraper.NewFetchError(name, scraper.KindTransport, err)
		log.WithError(fetchErr).WithFields(logrus.Fields{
			"kind":     fetchErr.Kind,
			"duration": time.Since(start),
		}).Warn("Source failed")
	} else {
		log.WithFields(logrus.Fields{
			"offers":   len(offers),
			"duration": time.Since(start),
		}).Info("Source finished")
	}

	// A run cancelled from outside says nothing about the source's health.
	if ctx.Err() == nil {
		if fetchErr != nil {
			breaker.Record(fetchErr)
		} else {
			breaker.Record(nil)
		}
	}

	return sourceOutcome{offers: offers, err: fetchErr}
}

// callSource runs Fetch in its own goroutine so that a source ignoring its
// context cannot hold the run past the deadline.
func (c *Collector) callSource(ctx context.Context, criteria models.SearchCriteria, src scraper.Source) (offers []models.Offer, err error) {
	callCtx, cancel := context.WithTimeout(ctx, c.config.SourceTimeout)
	defer cancel()

	done := make(chan sourceOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.WithFields(logrus.Fields{
					"source": src.Name(),
					"panic":  r,
					"stack":  string(debug.Stack()),
				}).Error("Source panicked")
				done <- sourceOutcome{err: &scraper.FetchError{
					Source: src.Name(),
					Kind:   scraper.KindPanic,
					Err:    fmt.Errorf("panic: %v", r),
				}}
			}
		}()
		found, err := src.Fetch(callCtx, criteria)
		if err != nil {
			done <- sourceOutcome{err: scraper.NewFetchError(src.Name(), scraper.KindTransport, err)}
			return
		}
		done <- sourceOutcome{offers: found}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		return out.offers, nil
	case <-callCtx.Done():
		return nil, scraper.NewFetchError(src.Name(), scraper.KindTimeout, callCtx.Err())
	}
}

// validate drops offers that cannot be recorded. A source whose every offer
// was dropped is failed.
func (c *Collector) validate(name string, offers []models.Offer, log *logrus.Entry) ([]models.Offer, error) {
	if len(offers) == 0 {
		return nil, &scraper.FetchError{Source: name, Kind: scraper.KindEmpty, Err: scraper.ErrNoOffers}
	}

	valid := make([]models.Offer, 0, len(offers))
	var reasons []string
	for _, o := range offers {
		o.Source = name
		if err := o.Validate(); err != nil {
			reasons = append(reasons, err.Error())
			continue
		}
		valid = append(valid, o)
	}
	if len(reasons) > 0 {
		log.WithFields(logrus.Fields{
			"dropped": len(reasons),
			"first":   reasons[0],
		}).Warn("Dropped invalid offers")
	}
	if len(valid) == 0 {
		return nil, &scraper.FetchError{
			Source: name,
			Kind:   scraper.KindMalformed,
			Err:    errors.New("no valid offers: " + strings.Join(reasons, "; ")),
		}
	}
	return valid, nil
}

func (c *Collector) pace(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if c.config.Jitter <= 0 {
		return nil
	}

	c.mu.Lock()
	jitter := time.Duration(c.rng.Int63n(int64(c.config.Jitter)))
	c.mu.Unlock()

	timer := time.NewTimer(jitter)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Collector) breaker(name string) *faulttolerance.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	cb, ok := c.breakers[name]
	if !ok {
		cb = faulttolerance.NewCircuitBreaker(faulttolerance.CircuitBreakerConfig{
			MaxFailures: c.config.BreakerFailures,
			Timeout:     c.config.BreakerTimeout,
			Name:        name,
		}, c.logger)
		c.breakers[name] = cb
	}
	return cb
}

// BreakerStates reports the breaker state of every source seen so far.
func (c *Collector) BreakerStates() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	states := make(map[string]string, len(c.breakers))
	for name, cb := range c.breakers {
		states[name] = cb.State().String()
	}
	return states
}

func compareOffers(a, b models.Offer) int {
	if c := strings.Compare(a.DepartureDate, b.DepartureDate); c != 0 {
		return c
	}
	if c := strings.Compare(a.ReturnDate, b.ReturnDate); c != 0 {
		return c
	}
	if c := a.Price.Amount.Cmp(b.Price.Amount); c != 0 {
		return c
	}
	if c := strings.Compare(a.Price.Currency, b.Price.Currency); c != 0 {
		return c
	}
	if c := strings.Compare(a.Source, b.Source); c != 0 {
		return c
	}
	return strings.Compare(a.Carrier, b.Carrier)
}
