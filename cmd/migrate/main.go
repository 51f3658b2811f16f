package main

import (
	"database/sql"

	_ "github.com/ClickHouse/clickhouse-go/v2" // ClickHouse driver
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/navid-fn/fareradar/configs"
	"github.com/navid-fn/fareradar/internal/migrations"
)

func main() {
	cfg, err := configs.LoadMigrate()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}
	logger := configs.NewLogger(cfg.LogLevel)

	db, err := sql.Open("clickhouse", cfg.ClickHouse.DSN)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.WithError(err).Fatal("Failed to ping database")
	}

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("clickhouse"); err != nil {
		logger.WithError(err).Fatal("Goose: failed to set dialect")
	}

	logger.Info("Running database migrations...")
	if err := goose.Up(db, "."); err != nil {
		logger.WithError(err).Fatal("Goose migration failed")
	}

	logger.Info("Migrations completed successfully")
}
