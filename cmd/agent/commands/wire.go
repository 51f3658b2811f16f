package commands

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/navid-fn/fareradar/configs"
	"github.com/navid-fn/fareradar/internal/analysis"
	"github.com/navid-fn/fareradar/internal/collector"
	"github.com/navid-fn/fareradar/internal/drivers/fareapi"
	"github.com/navid-fn/fareradar/internal/drivers/webpage"
	"github.com/navid-fn/fareradar/internal/events"
	"github.com/navid-fn/fareradar/internal/faulttolerance"
	"github.com/navid-fn/fareradar/internal/notify"
	"github.com/navid-fn/fareradar/internal/pipeline"
	"github.com/navid-fn/fareradar/internal/scraper"
	"github.com/navid-fn/fareradar/internal/storage"
	"github.com/navid-fn/fareradar/internal/tracker"
)

// agent holds the wired pipeline and what has to be closed on exit.
type agent struct {
	config   *configs.AppConfig
	logger   *logrus.Logger
	store    *storage.FileStore
	events   events.Sink
	pipeline *pipeline.Pipeline
	closers  []func() error
}

func (a *agent) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.WithError(err).Warn("Close failed")
		}
	}
}

func loadConfig() (*configs.AppConfig, *logrus.Logger, error) {
	cfg, err := configs.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, configs.NewLogger(cfg.LogLevel), nil
}

// sourceFactories maps a SOURCES entry to the driver that serves it. A new
// driver only needs an entry here.
var sourceFactories = map[string]func(cfg configs.CollectorConfig, logger *logrus.Logger) scraper.Source{
	fareapi.SourceName: func(cfg configs.CollectorConfig, logger *logrus.Logger) scraper.Source {
		return fareapi.NewFareAPISource(cfg.FareAPIURL, logger)
	},
	webpage.GoogleFlightsName: func(_ configs.CollectorConfig, logger *logrus.Logger) scraper.Source {
		return webpage.GoogleFlights(logger)
	},
	webpage.ExpediaName: func(_ configs.CollectorConfig, logger *logrus.Logger) scraper.Source {
		return webpage.Expedia(logger)
	},
}

func buildSources(cfg configs.CollectorConfig, logger *logrus.Logger) ([]scraper.Source, error) {
	sources := make([]scraper.Source, 0, len(cfg.Sources))
	for _, name := range cfg.Sources {
		factory, ok := sourceFactories[name]
		if !ok {
			return nil, fmt.Errorf("unknown source %q", name)
		}
		sources = append(sources, factory(cfg, logger))
	}
	return sources, nil
}

func newAgent(cfg *configs.AppConfig, logger *logrus.Logger) (*agent, error) {
	a := &agent{config: cfg, logger: logger}

	store, err := storage.Open(cfg.DataDir, logger)
	if err != nil {
		return nil, err
	}
	a.store = store

	sinks := events.Multi{events.LogSink{Logger: logger}}
	if cfg.Kafka.Broker != "" {
		kafkaSink := events.NewKafkaSink(events.NewKafkaWriter(cfg.Kafka.Broker, cfg.Kafka.Topic), logger)
		sinks = append(sinks, kafkaSink)
		a.closers = append(a.closers, kafkaSink.Close)
		logger.WithField("topic", cfg.Kafka.Topic).Info("Publishing events to Kafka")
	}
	a.events = sinks

	sources, err := buildSources(cfg.Collector, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	collectorConfig := collector.DefaultConfig()
	collectorConfig.SourceTimeout = cfg.Collector.SourceTimeout
	collectorConfig.Delay = cfg.Collector.Delay
	collectorConfig.Jitter = cfg.Collector.Jitter
	collectorConfig.Workers = cfg.Collector.Workers

	retry := faulttolerance.DefaultRetryConfig("analysis")
	retry.MaxAttempts = cfg.Analysis.MaxAttempts
	grok := analysis.NewGrokClient(cfg.Analysis.APIKey, cfg.Analysis.APIBase, cfg.Analysis.Model, cfg.Analysis.Timeout, logger)

	deps := pipeline.Deps{
		Collector: collector.NewCollector(collectorConfig, logger),
		Sources:   sources,
		History:   store.History,
		Snapshots: store.Snapshots,
		Tracker:   tracker.NewTracker(store.History, store.Prices, sinks, cfg.Tracker.Tolerance, cfg.Tracker.Window, logger),
		Analyzer:  analysis.NewTrigger(grok, retry, grok.Model(), logger),
		Analyses:  store.Analysis,
		Events:    sinks,
		Logger:    logger,
	}

	if cfg.ClickHouse.Enabled {
		mirror, err := storage.NewClickHouseMirror(cfg.ClickHouse.DSN)
		if err != nil {
			logger.WithError(err).Warn("ClickHouse mirror disabled")
		} else {
			deps.Mirror = mirror
			a.closers = append(a.closers, mirror.Close)
		}
	}

	if cfg.SMTP.Enabled() {
		deps.Notifier = notify.NewEmailNotifier(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			To:       cfg.SMTP.To,
		}, logger)
	} else {
		logger.Info("SMTP not configured, email reports disabled")
	}

	a.pipeline = pipeline.New(cfg.Criteria, deps)
	return a, nil
}
