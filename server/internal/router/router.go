package router

import (
	"github.com/gin-gonic/gin"

	"github.com/navid-fn/fareradar/server/internal/handler"
)

type Config struct {
	FareHandler   *handler.FareHandler
	HealthHandler *handler.HealthHandler

	// StreamHandler is nil when no event broker is configured.
	StreamHandler *handler.StreamHandler

	// OfferHandler is nil when the ClickHouse mirror is disabled.
	OfferHandler *handler.OfferHandler
}

func NewRouter(cfg *Config) *gin.Engine {
	router := gin.Default()

	router.GET("/health", cfg.HealthHandler.GetHealth)
	router.GET("/health/live", cfg.HealthHandler.Live)

	api := router.Group("/v1/")
	registerFareRoutes(api, cfg.FareHandler)
	if cfg.OfferHandler != nil {
		registerOfferRoutes(api, cfg.OfferHandler)
	}
	if cfg.StreamHandler != nil {
		api.GET("/events/ws", cfg.StreamHandler.Events)
	}

	return router
}
