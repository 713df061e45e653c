// Package consumer wires the replicator to the ledger event topics.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/wyfcoding/fractionalfunding/internal/copytrade/application"
	ledgerdomain "github.com/wyfcoding/fractionalfunding/internal/ledger/domain"
	"github.com/wyfcoding/fractionalfunding/pkg/logger"
)

// IssuedEventHandler consumes ledger.investment.issued.
type IssuedEventHandler struct {
	replicator *application.Replicator
}

// NewIssuedEventHandler creates the handler.
func NewIssuedEventHandler(replicator *application.Replicator) *IssuedEventHandler {
	return &IssuedEventHandler{replicator: replicator}
}

// Handle replays one issuance event through the replicator.
func (h *IssuedEventHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var event ledgerdomain.InvestmentIssuedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to decode issuance event: %w", err)
	}

	logger.Debug(ctx, "issuance event received",
		"event_id", event.EventID,
		"investment_id", event.InvestmentID,
		"investor_id", event.InvestorID,
	)
	return h.replicator.HandleTraderIssuance(ctx, event)
}

// ExitedEventHandler consumes ledger.investment.exited.
type ExitedEventHandler struct {
	replicator *application.Replicator
}

// NewExitedEventHandler creates the handler.
func NewExitedEventHandler(replicator *application.Replicator) *ExitedEventHandler {
	return &ExitedEventHandler{replicator: replicator}
}

// Handle replays one exit event through the replicator.
func (h *ExitedEventHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var event ledgerdomain.InvestmentExitedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to decode exit event: %w", err)
	}

	logger.Debug(ctx, "exit event received",
		"event_id", event.EventID,
		"investment_id", event.InvestmentID,
		"investor_id", event.InvestorID,
	)
	return h.replicator.HandleTraderExit(ctx, event)
}
