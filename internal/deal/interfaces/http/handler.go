package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/fractionalfunding/internal/deal/application"
	"github.com/wyfcoding/fractionalfunding/internal/deal/domain"
	"github.com/wyfcoding/fractionalfunding/pkg/logger"
	"github.com/wyfcoding/fractionalfunding/pkg/utils"
)

// DealHandler exposes deal and allocation-plan operations over HTTP.
type DealHandler struct {
	deals *application.DealService
}

// NewDealHandler creates the handler.
func NewDealHandler(deals *application.DealService) *DealHandler {
	return &DealHandler{deals: deals}
}

// RegisterRoutes mounts the deal routes.
func (h *DealHandler) RegisterRoutes(router *gin.RouterGroup) {
	deals := router.Group("/deals")
	{
		deals.POST("", h.CreateDeal)
		deals.GET("", h.ListDeals)
		deals.GET("/:id", h.GetDeal)
		deals.PUT("/:id/allocation-plan", h.SetAllocationPlan)
		deals.POST("/:id/raises", h.RecordChannelRaise)
		deals.POST("/:id/advance", h.Advance)
	}
}

// CreateDealRequest creates a draft deal.
type CreateDealRequest struct {
	Name         string `json:"name" binding:"required"`
	TargetAmount string `json:"target_amount" binding:"required"`
	TotalShares  int64  `json:"total_shares" binding:"required"`
}

// CreateDeal handles POST /deals.
func (h *DealHandler) CreateDeal(c *gin.Context) {
	var req CreateDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	target, err := decimal.NewFromString(req.TargetAmount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid target_amount"})
		return
	}

	deal, err := h.deals.CreateDeal(c.Request.Context(), req.Name, target, req.TotalShares)
	if err != nil {
		respondDealError(c, err)
		return
	}
	c.JSON(http.StatusCreated, deal)
}

// AllocationPlanRequest carries the four channel percentages.
type AllocationPlanRequest struct {
	DirectSalePct int64 `json:"direct_sale_pct"`
	BundlesPct    int64 `json:"bundles_pct"`
	AutoInvestPct int64 `json:"auto_invest_pct"`
	ReservePct    int64 `json:"reserve_pct"`
}

// SetAllocationPlan handles PUT /deals/:id/allocation-plan.
func (h *DealHandler) SetAllocationPlan(c *gin.Context) {
	var req AllocationPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deal, err := h.deals.SetAllocationPlan(c.Request.Context(), c.Param("id"), domain.AllocationPlan{
		DirectSalePct: req.DirectSalePct,
		BundlesPct:    req.BundlesPct,
		AutoInvestPct: req.AutoInvestPct,
		ReservePct:    req.ReservePct,
	})
	if err != nil {
		respondDealError(c, err)
		return
	}
	c.JSON(http.StatusOK, deal)
}

// ChannelRaiseRequest books capital landing in one channel.
type ChannelRaiseRequest struct {
	Channel string `json:"channel" binding:"required"`
	Amount  string `json:"amount" binding:"required"`
}

// RecordChannelRaise handles POST /deals/:id/raises.
func (h *DealHandler) RecordChannelRaise(c *gin.Context) {
	var req ChannelRaiseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	deal, err := h.deals.RecordChannelRaise(c.Request.Context(), c.Param("id"), domain.Channel(req.Channel), amount)
	if err != nil {
		respondDealError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"deal_id":       deal.DealID,
		"raised_amount": deal.RaisedAmount(),
		"channels": gin.H{
			string(domain.ChannelDirectSale): deal.DirectSaleRaised,
			string(domain.ChannelBundles):    deal.BundlesRaised,
			string(domain.ChannelAutoInvest): deal.AutoInvestRaised,
			string(domain.ChannelReserve):    deal.ReserveRaised,
		},
	})
}

// AdvanceRequest moves a deal to the named lifecycle stage.
type AdvanceRequest struct {
	Status int8 `json:"status" binding:"required"`
}

// Advance handles POST /deals/:id/advance.
func (h *DealHandler) Advance(c *gin.Context) {
	var req AdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deal, err := h.deals.Advance(c.Request.Context(), c.Param("id"), domain.DealStatus(req.Status))
	if err != nil {
		respondDealError(c, err)
		return
	}
	c.JSON(http.StatusOK, deal)
}

// GetDeal handles GET /deals/:id.
func (h *DealHandler) GetDeal(c *gin.Context) {
	deal, err := h.deals.GetDeal(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDealError(c, err)
		return
	}
	c.JSON(http.StatusOK, deal)
}

// ListDeals handles GET /deals with pagination.
func (h *DealHandler) ListDeals(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	p := utils.NewPagination(page, pageSize, 0)

	deals, total, err := h.deals.ListDeals(c.Request.Context(), p.Offset(), p.Limit())
	if err != nil {
		respondDealError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"deals":      deals,
		"pagination": utils.NewPagination(page, pageSize, total),
	})
}

func respondDealError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrDealNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidAllocation),
		errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrChannelCapacityExceeded):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error(c.Request.Context(), "deal request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
