package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/fractionalfunding/internal/ledger/application"
	"github.com/wyfcoding/fractionalfunding/internal/ledger/domain"
	"github.com/wyfcoding/fractionalfunding/pkg/utils"
)

// LedgerHandler exposes the share ledger over HTTP.
type LedgerHandler struct {
	svc *application.LedgerService
}

// NewLedgerHandler creates the handler.
func NewLedgerHandler(svc *application.LedgerService) *LedgerHandler {
	return &LedgerHandler{svc: svc}
}

// RegisterRoutes mounts the ledger endpoints.
func (h *LedgerHandler) RegisterRoutes(router *gin.RouterGroup) {
	spvs := router.Group("/spvs")
	{
		spvs.GET("", h.ListSPVs)
		spvs.GET("/:id", h.GetSPV)
		spvs.GET("/:id/holdings", h.ListHoldings)
	}
	investments := router.Group("/investments")
	{
		investments.POST("", h.IssueShares)
		investments.GET("/:id", h.GetInvestment)
		investments.POST("/:id/exit", h.ExitInvestment)
	}
	router.GET("/investors/:id/investments", h.ListInvestorPositions)
}

type issueSharesRequest struct {
	RequestID    string `json:"request_id" binding:"required"`
	SPVID        string `json:"spv_id" binding:"required"`
	InvestorID   string `json:"investor_id" binding:"required"`
	Channel      string `json:"channel"`
	Amount       string `json:"amount" binding:"required"`
	AutoReinvest bool   `json:"auto_reinvest"`
}

// IssueShares handles POST /investments.
func (h *LedgerHandler) IssueShares(c *gin.Context) {
	var req issueSharesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	investment, err := h.svc.IssueShares(c.Request.Context(), application.IssueSharesRequest{
		RequestID:    req.RequestID,
		SPVID:        req.SPVID,
		InvestorID:   req.InvestorID,
		Channel:      req.Channel,
		Amount:       amount,
		AutoReinvest: req.AutoReinvest,
	})
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusCreated, investment)
}

type exitInvestmentRequest struct {
	ExitValue string `json:"exit_value" binding:"required"`
}

// ExitInvestment handles POST /investments/:id/exit.
func (h *LedgerHandler) ExitInvestment(c *gin.Context) {
	var req exitInvestmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	exitValue, err := decimal.NewFromString(req.ExitValue)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exit value"})
		return
	}

	investment, err := h.svc.ExitInvestment(c.Request.Context(), c.Param("id"), exitValue)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, investment)
}

// GetSPV handles GET /spvs/:id.
func (h *LedgerHandler) GetSPV(c *gin.Context) {
	spv, err := h.svc.GetSPV(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, spv)
}

// ListSPVs handles GET /spvs.
func (h *LedgerHandler) ListSPVs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	p := utils.NewPagination(page, pageSize, 0)

	spvs, total, err := h.svc.ListSPVs(c.Request.Context(), p.Offset(), p.Limit())
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"spvs":       spvs,
		"pagination": utils.NewPagination(page, pageSize, total),
	})
}

// ListHoldings handles GET /spvs/:id/holdings.
func (h *LedgerHandler) ListHoldings(c *gin.Context) {
	holdings, err := h.svc.ListActiveHoldings(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"holdings": holdings})
}

// GetInvestment handles GET /investments/:id.
func (h *LedgerHandler) GetInvestment(c *gin.Context) {
	investment, err := h.svc.GetInvestment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, investment)
}

// ListInvestorPositions handles GET /investors/:id/investments.
func (h *LedgerHandler) ListInvestorPositions(c *gin.Context) {
	positions, err := h.svc.ListInvestorPositions(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"investments": positions})
}

func respondLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrSPVNotFound), errors.Is(err, domain.ErrInvestmentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrKycNotApproved):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrSubShareAmount):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInsufficientEscrow), errors.Is(err, domain.ErrInvestmentExited):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
