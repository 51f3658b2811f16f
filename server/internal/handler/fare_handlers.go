package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/navid-fn/fareradar/internal/storage"
	"github.com/navid-fn/fareradar/server/internal/service"
)

type FareHandler struct {
	fareService *service.FareService
}

func NewFareHandler(service *service.FareService) *FareHandler {
	return &FareHandler{
		fareService: service,
	}
}

func (h *FareHandler) ListRuns(c *gin.Context) {
	runs, err := h.fareService.LatestRuns(c.Request.Context(), c.Query("route"), queryLimit(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (h *FareHandler) GetRun(c *gin.Context) {
	run, err := h.fareService.Run(c.Request.Context(), c.Query("route"), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *FareHandler) ListRoutes(c *gin.Context) {
	routes, err := h.fareService.Routes(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, routes)
}

func (h *FareHandler) ListPrices(c *gin.Context) {
	series, err := h.fareService.AllSeries(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

func (h *FareHandler) CurrentPrice(c *gin.Context) {
	series, ok, err := h.fareService.CurrentSeries(c.Request.Context(), c.Query("route"))
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no price series for route yet"})
		return
	}
	c.JSON(http.StatusOK, series)
}

func (h *FareHandler) ListAnalysis(c *gin.Context) {
	records, err := h.fareService.Analyses(c.Request.Context(), queryLimit(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *FareHandler) GetAnalysis(c *gin.Context) {
	record, err := h.fareService.Analysis(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		return 0
	}
	return limit
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrNoRoute):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
