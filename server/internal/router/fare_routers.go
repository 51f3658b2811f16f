package router

import (
	"github.com/gin-gonic/gin"

	"github.com/navid-fn/fareradar/server/internal/handler"
)

func registerFareRoutes(router *gin.RouterGroup, fareHandler *handler.FareHandler) {
	router.GET("/routes", fareHandler.ListRoutes)

	runs := router.Group("/runs")
	{
		runs.GET("", fareHandler.ListRuns)
		runs.GET("/:id", fareHandler.GetRun)
	}

	prices := router.Group("/prices")
	{
		prices.GET("", fareHandler.ListPrices)
		prices.GET("/current", fareHandler.CurrentPrice)
	}

	analysis := router.Group("/analysis")
	{
		analysis.GET("", fareHandler.ListAnalysis)
		analysis.GET("/:id", fareHandler.GetAnalysis)
	}
}
