package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	ledgerdomain "github.com/wyfcoding/fractionalfunding/internal/ledger/domain"
	"github.com/wyfcoding/fractionalfunding/internal/scenario/application"
	"github.com/wyfcoding/fractionalfunding/internal/scenario/domain"
	"github.com/wyfcoding/fractionalfunding/pkg/logger"
)

// ScenarioHandler exposes scenario runs over HTTP.
type ScenarioHandler struct {
	scenarios *application.ScenarioService
}

// NewScenarioHandler creates the handler.
func NewScenarioHandler(scenarios *application.ScenarioService) *ScenarioHandler {
	return &ScenarioHandler{scenarios: scenarios}
}

// RegisterRoutes mounts the scenario endpoints.
func (h *ScenarioHandler) RegisterRoutes(router *gin.RouterGroup) {
	runs := router.Group("/scenario-runs")
	{
		runs.POST("", h.CreateRun)
		runs.GET("/:id", h.GetRun)
	}
	router.GET("/spvs/:id/scenario-runs", h.ListRunsBySPV)
	router.GET("/scenario-templates", h.ListTemplates)
}

type createRunRequest struct {
	SPVID    string `json:"spv_id" binding:"required"`
	Template string `json:"template"`

	// Custom parameters, used when no template is named.
	HoldingPeriodDays int    `json:"holding_period_days"`
	ExitMultiplier    string `json:"exit_multiplier"`
	MarketCondition   string `json:"market_condition"`
}

// CreateRun handles POST /scenario-runs. Either a template name or a full
// custom parameter set must be supplied.
func (h *ScenarioHandler) CreateRun(c *gin.Context) {
	var req createRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var (
		run *domain.ScenarioRun
		err error
	)
	if req.Template != "" {
		run, err = h.scenarios.RunTemplate(c.Request.Context(), req.SPVID, req.Template)
	} else {
		multiplier, parseErr := decimal.NewFromString(req.ExitMultiplier)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exit_multiplier"})
			return
		}
		run, err = h.scenarios.RunCustom(c.Request.Context(), req.SPVID, domain.Params{
			HoldingPeriodDays: req.HoldingPeriodDays,
			ExitMultiplier:    multiplier,
			MarketCondition:   domain.MarketCondition(req.MarketCondition),
		})
	}
	if err != nil {
		respondScenarioError(c, err)
		return
	}
	c.JSON(http.StatusCreated, run)
}

// GetRun handles GET /scenario-runs/:id, returning the run with its decoded
// result when completed.
func (h *ScenarioHandler) GetRun(c *gin.Context) {
	run, result, err := h.scenarios.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondScenarioError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run, "result": result})
}

// ListRunsBySPV handles GET /spvs/:id/scenario-runs.
func (h *ScenarioHandler) ListRunsBySPV(c *gin.Context) {
	runs, err := h.scenarios.ListRunsBySPV(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondScenarioError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// ListTemplates handles GET /scenario-templates.
func (h *ScenarioHandler) ListTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"templates": application.Templates})
}

func respondScenarioError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrRunNotFound),
		errors.Is(err, ledgerdomain.ErrSPVNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidParams),
		errors.Is(err, domain.ErrUnknownTemplate):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrEmptySnapshot):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error(c.Request.Context(), "scenario request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
