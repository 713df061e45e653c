package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/fractionalfunding/internal/copytrade/application"
	"github.com/wyfcoding/fractionalfunding/internal/copytrade/domain"
	"github.com/wyfcoding/fractionalfunding/pkg/logger"
)

// CopyTradeHandler exposes copy followings over HTTP.
type CopyTradeHandler struct {
	copies *application.CopyTradeService
}

// NewCopyTradeHandler creates the handler.
func NewCopyTradeHandler(copies *application.CopyTradeService) *CopyTradeHandler {
	return &CopyTradeHandler{copies: copies}
}

// RegisterRoutes mounts the copy-trade endpoints.
func (h *CopyTradeHandler) RegisterRoutes(router *gin.RouterGroup) {
	followings := router.Group("/copy-followings")
	{
		followings.POST("", h.StartFollowing)
		followings.GET("/:id", h.GetFollowing)
		followings.POST("/:id/stop", h.StopFollowing)
	}
	router.GET("/followers/:id/summary", h.FollowerSummary)
}

type startFollowingRequest struct {
	FollowerID   string `json:"follower_id" binding:"required"`
	TraderID     string `json:"trader_id" binding:"required"`
	CopyType     string `json:"copy_type" binding:"required"`
	TargetDealID string `json:"target_deal_id"`
	CopyAmount   string `json:"copy_amount" binding:"required"`
	StopLossPct  string `json:"stop_loss_pct"`
	AutoReinvest bool   `json:"auto_reinvest"`
}

// StartFollowing handles POST /copy-followings.
func (h *CopyTradeHandler) StartFollowing(c *gin.Context) {
	var req startFollowingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	copyAmount, err := decimal.NewFromString(req.CopyAmount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid copy_amount"})
		return
	}
	stopLoss := decimal.Zero
	if req.StopLossPct != "" {
		stopLoss, err = decimal.NewFromString(req.StopLossPct)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stop_loss_pct"})
			return
		}
	}

	following, err := h.copies.StartFollowing(c.Request.Context(), application.StartFollowingRequest{
		FollowerID:   req.FollowerID,
		TraderID:     req.TraderID,
		CopyType:     domain.CopyType(req.CopyType),
		TargetDealID: req.TargetDealID,
		CopyAmount:   copyAmount,
		StopLossPct:  stopLoss,
		AutoReinvest: req.AutoReinvest,
	})
	if err != nil {
		respondCopyTradeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, following)
}

// StopFollowing handles POST /copy-followings/:id/stop.
func (h *CopyTradeHandler) StopFollowing(c *gin.Context) {
	following, err := h.copies.StopFollowing(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondCopyTradeError(c, err)
		return
	}
	c.JSON(http.StatusOK, following)
}

// GetFollowing handles GET /copy-followings/:id.
func (h *CopyTradeHandler) GetFollowing(c *gin.Context) {
	following, err := h.copies.GetFollowing(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondCopyTradeError(c, err)
		return
	}
	c.JSON(http.StatusOK, following)
}

// FollowerSummary handles GET /followers/:id/summary.
func (h *CopyTradeHandler) FollowerSummary(c *gin.Context) {
	summary, err := h.copies.FollowerSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondCopyTradeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func respondCopyTradeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrFollowingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidCopyType),
		errors.Is(err, domain.ErrSelfCopy):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrFollowingNotActive),
		errors.Is(err, domain.ErrStopLossBreached):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		logger.Error(c.Request.Context(), "copy trade request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
