package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/navid-fn/fareradar/server/internal/service"
)

type OfferHandler struct {
	offerService *service.OfferService
}

func NewOfferHandler(service *service.OfferService) *OfferHandler {
	return &OfferHandler{
		offerService: service,
	}
}

func (h *OfferHandler) ListSources(c *gin.Context) {
	counts, err := h.offerService.SourceCounts(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *OfferHandler) PriceHistory(c *gin.Context) {
	stats, err := h.offerService.PriceHistory(c.Request.Context(), c.Query("route"), queryLimit(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
