package router

import (
	"github.com/gin-gonic/gin"

	"github.com/navid-fn/fareradar/server/internal/handler"
)

func registerOfferRoutes(router *gin.RouterGroup, offerHandler *handler.OfferHandler) {
	router.GET("/sources", offerHandler.ListSources)
	router.GET("/prices/history", offerHandler.PriceHistory)
}
