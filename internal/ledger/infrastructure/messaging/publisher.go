// Package messaging publishes ledger events to kafka.
package messaging

import (
	"context"
	"time"

	"github.com/wyfcoding/fractionalfunding/internal/ledger/domain"
	"github.com/wyfcoding/fractionalfunding/pkg/mq"
	"github.com/wyfcoding/fractionalfunding/pkg/utils"
)

// KafkaPublisher implements domain.EventPublisher on top of the shared
// producer. Events are keyed by SPV so per-SPV ordering survives
// partitioning.
type KafkaPublisher struct {
	producer *mq.Producer
}

// NewKafkaPublisher creates the publisher.
func NewKafkaPublisher(producer *mq.Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

// PublishInvestmentIssued emits an issuance event, retrying transient broker
// errors with backoff.
func (p *KafkaPublisher) PublishInvestmentIssued(ctx context.Context, event domain.InvestmentIssuedEvent) error {
	return utils.RetryWithBackoff(3, 100*time.Millisecond, time.Second, func() error {
		return p.producer.Send(ctx, domain.TopicInvestmentIssued, event.SPVID, event)
	})
}

// PublishInvestmentExited emits an exit event.
func (p *KafkaPublisher) PublishInvestmentExited(ctx context.Context, event domain.InvestmentExitedEvent) error {
	return utils.RetryWithBackoff(3, 100*time.Millisecond, time.Second, func() error {
		return p.producer.Send(ctx, domain.TopicInvestmentExited, event.SPVID, event)
	})
}
