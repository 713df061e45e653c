package domain

import (
	"context"
	"time"
)

// Kafka topics emitted by the share ledger.
const (
	TopicInvestmentIssued = "ledger.investment.issued"
	TopicInvestmentExited = "ledger.investment.exited"
)

// InvestmentIssuedEvent announces a completed issuance. Amounts travel as
// strings to keep decimal precision across the wire.
type InvestmentIssuedEvent struct {
	EventID      string    `json:"event_id"`
	InvestmentID string    `json:"investment_id"`
	RequestID    string    `json:"request_id"`
	SPVID        string    `json:"spv_id"`
	DealID       string    `json:"deal_id"`
	InvestorID   string    `json:"investor_id"`
	Channel      string    `json:"channel"`
	Amount       string    `json:"amount"`
	Shares       int64     `json:"shares"`
	Source       string    `json:"source"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// InvestmentExitedEvent announces a position exit with realized proceeds.
type InvestmentExitedEvent struct {
	EventID      string    `json:"event_id"`
	InvestmentID string    `json:"investment_id"`
	SPVID        string    `json:"spv_id"`
	DealID       string    `json:"deal_id"`
	InvestorID   string    `json:"investor_id"`
	Amount       string    `json:"amount"`
	Shares       int64     `json:"shares"`
	ExitValue    string    `json:"exit_value"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// EventPublisher pushes ledger events onto the message bus. Publishing
// happens after the owning transaction commits; downstream consumers
// (copy-trade replication) are eventually consistent.
type EventPublisher interface {
	PublishInvestmentIssued(ctx context.Context, event InvestmentIssuedEvent) error
	PublishInvestmentExited(ctx context.Context, event InvestmentExitedEvent) error
}
