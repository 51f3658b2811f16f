// Package pipeline runs one search end to end: collect, archive, track,
// analyze, notify.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/navid-fn/fareradar/internal/collector"
	"github.com/navid-fn/fareradar/internal/events"
	"github.com/navid-fn/fareradar/internal/models"
	"github.com/navid-fn/fareradar/internal/notify"
	"github.com/navid-fn/fareradar/internal/scraper"
	"github.com/navid-fn/fareradar/internal/storage"
)

const defaultWriteTimeout = 30 * time.Second

type Collector interface {
	Collect(ctx context.Context, criteria models.SearchCriteria, sources []scraper.Source) collector.Result
}

type RunWriter interface {
	Append(ctx context.Context, run *models.SearchRun) error
}

type SnapshotWriter interface {
	Put(ctx context.Context, text string) (string, error)
	Delete(ctx context.Context, ref string) error
}

type SeriesUpdater interface {
	Update(ctx context.Context, key models.RouteKey) (models.PriceSeries, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, run *models.SearchRun, series models.PriceSeries) models.AnalysisRecord
}

type AnalysisWriter interface {
	Append(ctx context.Context, record models.AnalysisRecord) error
}

// Deps are the collaborators of a pipeline. Mirror and Notifier are optional.
type Deps struct {
	Collector Collector
	Sources   []scraper.Source
	History   RunWriter
	Snapshots SnapshotWriter
	Tracker   SeriesUpdater
	Analyzer  Analyzer
	Analyses  AnalysisWriter
	Mirror    storage.Mirror
	Notifier  notify.Notifier
	Events    events.Sink
	Logger    *logrus.Logger
}

type Pipeline struct {
	Deps
	criteria     models.SearchCriteria
	writeTimeout time.Duration
	now          func() time.Time
}

func New(criteria models.SearchCriteria, deps Deps) *Pipeline {
	if deps.Events == nil {
		deps.Events = events.Discard{}
	}
	return &Pipeline{
		Deps:         deps,
		criteria:     criteria,
		writeTimeout: defaultWriteTimeout,
		now:          time.Now,
	}
}

// Report summarizes one run.
type Report struct {
	Run      *models.SearchRun
	Series   models.PriceSeries
	Analysis models.AnalysisRecord
	Duration time.Duration
}

// RunOnce executes one pipeline run. It only returns an error when the run
// could not be archived; every later step degrades and is logged instead.
func (p *Pipeline) RunOnce(ctx context.Context) (*Report, error) {
	started := p.now()
	run := models.NewSearchRun(p.criteria, started)
	key := run.RouteKey()
	log := p.Logger.WithFields(logrus.Fields{"run_id": run.ID, "route": key})
	log.Info("Run started")

	result := p.Collector.Collect(ctx, p.criteria, p.Sources)
	run.Offers = result.Offers
	run.FailedSources = result.FailedSources
	if len(result.Errors) > 0 {
		run.SourceErrors = make(map[string]string, len(result.Errors))
		for name, err := range result.Errors {
			run.SourceErrors[name] = err.Error()
		}
	}

	// From here on the run is committed work: shutdown must not cut a write in half.
	persistCtx := context.WithoutCancel(ctx)

	snapshots := p.storeSnapshots(persistCtx, run, log)
	run.Seal(p.now())

	for _, name := range run.FailedSources {
		data := map[string]any{"source": name}
		if fe, ok := result.Errors[name]; ok {
			data["kind"] = string(fe.Kind)
			data["error"] = fe.Error()
		}
		p.Events.Emit(ctx, events.New(events.SourceFailed, string(key), run.ID, data))
	}

	writeCtx, cancel := context.WithTimeout(persistCtx, p.writeTimeout)
	err := p.History.Append(writeCtx, run)
	cancel()
	if err != nil {
		log.WithError(err).Error("Failed to archive run")
		p.dropSnapshots(persistCtx, snapshots, log)
		p.Events.Emit(ctx, events.New(events.PersistenceFailed, string(key), run.ID, map[string]any{
			"error": err.Error(),
		}))
		var pe *storage.PersistenceError
		if !errors.As(err, &pe) {
			err = &storage.PersistenceError{Op: "append run", Path: run.ID, Err: err}
		}
		return nil, fmt.Errorf("archive run %s: %w", run.ID, err)
	}

	report := &Report{Run: run}

	if p.Mirror != nil {
		mirrorCtx, cancel := context.WithTimeout(persistCtx, p.writeTimeout)
		if err := p.Mirror.MirrorRun(mirrorCtx, run); err != nil {
			log.WithError(err).Warn("Failed to mirror run to ClickHouse")
		}
		cancel()
	}

	series, err := p.Tracker.Update(persistCtx, key)
	if err != nil {
		log.WithError(err).Error("Failed to update price series")
	}
	report.Series = series

	record := p.Analyzer.Analyze(ctx, run, series)
	if err := p.Analyses.Append(persistCtx, record); err != nil {
		log.WithError(err).Error("Failed to store analysis record")
	}
	report.Analysis = record
	if record.Absent() {
		p.Events.Emit(ctx, events.New(events.AnalysisAbsent, string(key), run.ID, map[string]any{
			"reason":   record.Reason,
			"attempts": record.Attempts,
		}))
	}

	if p.Notifier != nil {
		notifyCtx, cancel := context.WithTimeout(persistCtx, p.writeTimeout)
		if err := p.Notifier.Notify(notifyCtx, notify.Report{Run: run, Series: series, Analysis: record}); err != nil {
			log.WithError(err).Warn("Failed to send report")
		}
		cancel()
	}

	report.Duration = p.now().Sub(started)
	data := map[string]any{
		"offers":         len(run.Offers),
		"failed_sources": len(run.FailedSources),
		"trend":          string(series.Trend),
		"analysis":       string(record.Status),
	}
	if series.Min != nil {
		data["min"] = series.Min.String()
		data["currency"] = series.Currency
	}
	p.Events.Emit(ctx, events.New(events.RunCompleted, string(key), run.ID, data))

	log.WithFields(logrus.Fields{
		"offers":   len(run.Offers),
		"failed":   run.FailedSources,
		"trend":    series.Trend,
		"analysis": record.Status,
		"duration": report.Duration,
	}).Info("Run completed")

	return report, nil
}

// storeSnapshots keeps the raw text each offer was parsed from. Offers sharing
// a text share one snapshot. A failed snapshot write leaves the reference empty.
// It returns the references written.
func (p *Pipeline) storeSnapshots(ctx context.Context, run *models.SearchRun, log *logrus.Entry) []string {
	if p.Snapshots == nil {
		return nil
	}
	var written []string
	refs := make(map[string]string)
	for i := range run.Offers {
		raw := run.Offers[i].Raw
		if raw == "" {
			continue
		}
		ref, ok := refs[raw]
		if !ok {
			var err error
			ref, err = p.Snapshots.Put(ctx, raw)
			if err != nil {
				log.WithError(err).Warn("Failed to store raw snapshot")
				continue
			}
			refs[raw] = ref
			written = append(written, ref)
		}
		run.Offers[i].SnapshotRef = ref
	}
	return written
}

// dropSnapshots removes the snapshots of a run that was never archived.
func (p *Pipeline) dropSnapshots(ctx context.Context, refs []string, log *logrus.Entry) {
	for _, ref := range refs {
		if err := p.Snapshots.Delete(ctx, ref); err != nil {
			log.WithError(err).WithField("snapshot", ref).Warn("Failed to remove orphaned snapshot")
		}
	}
}
