package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/clickhouse"
	"gorm.io/gorm"

	"github.com/navid-fn/fareradar/internal/faulttolerance"
	"github.com/navid-fn/fareradar/internal/storage"
	"github.com/navid-fn/fareradar/server/config"
	"github.com/navid-fn/fareradar/server/internal/handler"
	"github.com/navid-fn/fareradar/server/internal/repository"
	"github.com/navid-fn/fareradar/server/internal/router"
	"github.com/navid-fn/fareradar/server/internal/service"
	"github.com/navid-fn/fareradar/server/internal/stream"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if cfg.DebugMode != "True" {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := storage.Open(cfg.DataDir, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open data directory")
	}

	fareRepo := repository.NewFileFareRepository(store)
	fareService := service.NewFareService(fareRepo, cfg.Route)

	monitor := faulttolerance.NewHealthMonitor(logger, 30*time.Second)
	monitor.AddCheck("data_dir", func(ctx context.Context) error {
		return store.Writable()
	})
	monitor.AddCheck("last_run", fareService.LastRunCheck(service.StaleAfter, time.Now))

	routerConfig := &router.Config{
		FareHandler:   handler.NewFareHandler(fareService),
		HealthHandler: handler.NewHealthHandler(monitor),
	}

	if cfg.ClickHouse.Enabled {
		db, err := gorm.Open(clickhouse.Open(cfg.ClickHouse.DSN), &gorm.Config{})
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to database")
		}
		sqlDB, err := db.DB()
		if err != nil {
			logger.WithError(err).Fatal("Failed to get sql.DB")
		}
		defer sqlDB.Close()

		offerService := service.NewOfferService(repository.NewGormOfferRepository(db), cfg.Route)
		routerConfig.OfferHandler = handler.NewOfferHandler(offerService)
		monitor.AddCheck("clickhouse", func(ctx context.Context) error {
			return sqlDB.PingContext(ctx)
		})
	}

	monitor.Start()
	defer monitor.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumerDone := make(chan struct{})
	if cfg.KafkaBroker != "" {
		hub := stream.NewHub(logger)
		consumer := stream.NewConsumer(stream.NewKafkaReader(cfg.KafkaBroker, cfg.KafkaTopic, cfg.KafkaGroupID), hub, logger)
		routerConfig.StreamHandler = handler.NewStreamHandler(hub)
		go func() {
			defer close(consumerDone)
			if err := consumer.Start(ctx); err != nil {
				logger.WithError(err).Error("Events consumer stopped with error")
			}
		}()
	} else {
		close(consumerDone)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router.NewRouter(routerConfig),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("addr", srv.Addr).Info("API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("API server failed")
		}
	}()

	<-ctx.Done()

	logger.Info("Shutting down API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("API shutdown failed")
	}
	<-consumerDone
}
