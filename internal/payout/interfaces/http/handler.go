package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	ledgerdomain "github.com/wyfcoding/fractionalfunding/internal/ledger/domain"
	"github.com/wyfcoding/fractionalfunding/internal/payout/application"
	"github.com/wyfcoding/fractionalfunding/internal/payout/domain"
	"github.com/wyfcoding/fractionalfunding/pkg/logger"
)

// Ticker runs one pass over all due schedules, the same path the background
// loop takes.
type Ticker interface {
	Tick(ctx context.Context)
}

// PayoutHandler exposes schedules and distribution runs over HTTP.
type PayoutHandler struct {
	payouts *application.PayoutService
	ticker  Ticker
}

// NewPayoutHandler creates the handler.
func NewPayoutHandler(payouts *application.PayoutService, ticker Ticker) *PayoutHandler {
	return &PayoutHandler{payouts: payouts, ticker: ticker}
}

// RegisterRoutes mounts the payout endpoints.
func (h *PayoutHandler) RegisterRoutes(router *gin.RouterGroup) {
	schedules := router.Group("/payout-schedules")
	{
		schedules.POST("", h.CreateSchedule)
		schedules.GET("/due", h.ListDue)
		schedules.POST("/process-due", h.ProcessDue)
		schedules.GET("/:id", h.GetSchedule)
		schedules.POST("/:id/pause", h.Pause)
		schedules.POST("/:id/resume", h.Resume)
		schedules.POST("/:id/cancel", h.Cancel)
		schedules.POST("/:id/distribute", h.Distribute)
		schedules.GET("/:id/transactions", h.ListTransactions)
	}
	router.GET("/payout-transactions/:id", h.GetTransaction)
	router.GET("/spvs/:id/payout-schedules", h.ListSchedulesBySPV)
}

type createScheduleRequest struct {
	SPVID           string    `json:"spv_id" binding:"required"`
	Frequency       string    `json:"frequency" binding:"required"`
	AmountPerPeriod string    `json:"amount_per_period" binding:"required"`
	FirstDueDate    time.Time `json:"first_due_date" binding:"required"`
}

// CreateSchedule handles POST /payout-schedules.
func (h *PayoutHandler) CreateSchedule(c *gin.Context) {
	var req createScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := decimal.NewFromString(req.AmountPerPeriod)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount_per_period"})
		return
	}

	schedule, err := h.payouts.CreateSchedule(c.Request.Context(), req.SPVID,
		domain.Frequency(req.Frequency), amount, req.FirstDueDate)
	if err != nil {
		respondPayoutError(c, err)
		return
	}
	c.JSON(http.StatusCreated, schedule)
}

// Pause handles POST /payout-schedules/:id/pause.
func (h *PayoutHandler) Pause(c *gin.Context) {
	schedule, err := h.payouts.Pause(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondPayoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// Resume handles POST /payout-schedules/:id/resume.
func (h *PayoutHandler) Resume(c *gin.Context) {
	schedule, err := h.payouts.Resume(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondPayoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// Cancel handles POST /payout-schedules/:id/cancel.
func (h *PayoutHandler) Cancel(c *gin.Context) {
	schedule, err := h.payouts.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondPayoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// Distribute handles POST /payout-schedules/:id/distribute, the manual
// trigger for a due schedule.
func (h *PayoutHandler) Distribute(c *gin.Context) {
	transaction, err := h.payouts.Distribute(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondPayoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, transaction)
}

// GetSchedule handles GET /payout-schedules/:id.
func (h *PayoutHandler) GetSchedule(c *gin.Context) {
	schedule, err := h.payouts.GetSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondPayoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// ProcessDue handles POST /payout-schedules/process-due, an on-demand tick
// over every due schedule.
func (h *PayoutHandler) ProcessDue(c *gin.Context) {
	h.ticker.Tick(c.Request.Context())
	c.JSON(http.StatusAccepted, gin.H{"status": "processed"})
}

// ListDue handles GET /payout-schedules/due?within_days=7. within_hours is
// accepted too for finer windows; the two add up.
func (h *PayoutHandler) ListDue(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("within_days", "0"))
	if err != nil || days < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid within_days"})
		return
	}
	hours, err := strconv.Atoi(c.DefaultQuery("within_hours", "0"))
	if err != nil || hours < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid within_hours"})
		return
	}
	window := time.Duration(days)*24*time.Hour + time.Duration(hours)*time.Hour

	schedules, err := h.payouts.ListDueWithin(c.Request.Context(), window)
	if err != nil {
		respondPayoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": schedules})
}

// ListSchedulesBySPV handles GET /spvs/:id/payout-schedules.
func (h *PayoutHandler) ListSchedulesBySPV(c *gin.Context) {
	schedules, err := h.payouts.ListSchedulesBySPV(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondPayoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": schedules})
}

// GetTransaction handles GET /payout-transactions/:id.
func (h *PayoutHandler) GetTransaction(c *gin.Context) {
	transaction, err := h.payouts.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondPayoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, transaction)
}

// ListTransactions handles GET /payout-schedules/:id/transactions.
func (h *PayoutHandler) ListTransactions(c *gin.Context) {
	transactions, err := h.payouts.ListTransactionsBySchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondPayoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

func respondPayoutError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrScheduleNotFound),
		errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, ledgerdomain.ErrSPVNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidFrequency):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrScheduleNotDue),
		errors.Is(err, domain.ErrInvalidScheduleState):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNoActiveHoldings),
		errors.Is(err, ledgerdomain.ErrInsufficientEscrow):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error(c.Request.Context(), "payout request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
