package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/petroflow/petroflow/internal/domain/models"
	"github.com/petroflow/petroflow/internal/engine/dca"
	"github.com/petroflow/petroflow/internal/repository/mongodb"
	"github.com/petroflow/petroflow/internal/repository/sheets"
	"github.com/petroflow/petroflow/internal/service/analysis"
	"github.com/petroflow/petroflow/internal/service/batch"
)

// DCAHandler exposes the decline-curve pipeline over HTTP.
type DCAHandler struct {
	analysisSvc *analysis.Service
	batchSvc    *batch.Service
	exporter    sheets.Exporter
	logger      *zap.Logger
}

// NewDCAHandler constructs the HTTP handler adapter. The exporter may be
// nil when spreadsheet export is not configured.
func NewDCAHandler(analysisSvc *analysis.Service, batchSvc *batch.Service, exporter sheets.Exporter, logger *zap.Logger) *DCAHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DCAHandler{analysisSvc: analysisSvc, batchSvc: batchSvc, exporter: exporter, logger: logger}
}

// analyzeRequest is the single-well analysis payload.
type analyzeRequest struct {
	ModelType            string  `json:"model_type" binding:"required"`
	FluidType            string  `json:"fluid_type" binding:"required"`
	ForecastMonths       int     `json:"forecast_months" binding:"required,gt=0"`
	EconomicLimit        float64 `json:"economic_limit" binding:"gte=0"`
	MonteCarloIterations int     `json:"monte_carlo_iterations" binding:"gte=0"`
}

// CreateAnalysis fits, forecasts and persists a new analysis for a well.
func (h *DCAHandler) CreateAnalysis(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.analysisSvc.Analyze(c.Request.Context(), analysis.Request{
		WellID:               c.Param("well_id"),
		ModelType:            req.ModelType,
		FluidType:            req.FluidType,
		ForecastMonths:       req.ForecastMonths,
		EconomicLimit:        req.EconomicLimit,
		MonteCarloIterations: req.MonteCarloIterations,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// ListAnalyses returns the stored analyses of a well, newest first.
func (h *DCAHandler) ListAnalyses(c *gin.Context) {
	analyses, err := h.analysisSvc.ListAnalyses(c.Request.Context(), c.Param("well_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analyses)
}

// GetAnalysis returns one stored analysis.
func (h *DCAHandler) GetAnalysis(c *gin.Context) {
	result, err := h.analysisSvc.GetAnalysis(c.Request.Context(), c.Param("analysis_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// autoFitRequest asks for every model family to be fit and ranked.
type autoFitRequest struct {
	WellID    string `json:"well_id" binding:"required"`
	FluidType string `json:"fluid_type" binding:"required"`
}

// AutoFit fits all six model families and returns them ranked by AIC.
func (h *DCAHandler) AutoFit(c *gin.Context) {
	var req autoFitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ranked, err := h.analysisSvc.AutoFit(c.Request.Context(), req.WellID, req.FluidType)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ranked)
}

// RunBatch applies one configuration to every well of a project. Partial
// failure is a 200: the response carries both successes and errors.
func (h *DCAHandler) RunBatch(c *gin.Context) {
	var req models.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.batchSvc.Run(c.Request.Context(), c.Param("project_id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// monteCarloRequest configures an uncertainty rerun on a stored analysis.
type monteCarloRequest struct {
	Iterations int `json:"iterations" binding:"gte=0"`
}

// RunMonteCarlo recomputes the Monte Carlo block of a stored analysis.
func (h *DCAHandler) RunMonteCarlo(c *gin.Context) {
	var req monteCarloRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.analysisSvc.RunMonteCarlo(c.Request.Context(), c.Param("analysis_id"), req.Iterations)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ExportForecast streams the forecast table as CSV, or appends it to the
// configured spreadsheet when ?target=sheets is given.
func (h *DCAHandler) ExportForecast(c *gin.Context) {
	result, err := h.analysisSvc.GetAnalysis(c.Request.Context(), c.Param("analysis_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	if c.Query("target") == "sheets" {
		if h.exporter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "spreadsheet export is not configured"})
			return
		}
		if err := h.exporter.AppendForecast(c.Request.Context(), result); err != nil {
			h.logger.Error("sheet export failed", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "unable to export to spreadsheet"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"exported": len(result.ForecastPoints)})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=forecast_%s.csv", result.ID))

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"month", "time_months", "rate", "volume", "cumulative"})
	for _, p := range result.ForecastPoints {
		_ = w.Write([]string{
			strconv.Itoa(p.Month),
			strconv.FormatFloat(p.TimeMonths, 'f', 4, 64),
			strconv.FormatFloat(p.Rate, 'f', 4, 64),
			strconv.FormatFloat(p.Volume, 'f', 4, 64),
			strconv.FormatFloat(p.Cumulative, 'f', 4, 64),
		})
	}
	w.Flush()
}

// respondError maps engine and storage failures onto HTTP statuses.
func (h *DCAHandler) respondError(c *gin.Context, err error) {
	var dataErr *dca.DataError
	var fitErr *dca.NonConvergenceError
	var compErr *dca.ComputationError

	switch {
	case errors.Is(err, mongodb.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &dataErr), errors.As(err, &fitErr), errors.As(err, &compErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
