// Package wallet dispatches cash credits to the external wallet/payment
// service. Credits are fire-and-forget from the core's point of view: a
// distribution run is complete once its payout transaction is durable,
// independent of downstream delivery.
package wallet

import (
	"context"
	"time"

	"github.com/wyfcoding/fractionalfunding/pkg/mq"
	"github.com/wyfcoding/fractionalfunding/pkg/utils"
)

// TopicCreditRequested carries credit requests to the payment rail.
const TopicCreditRequested = "wallet.credit.requested"

// Credit is one cash credit owed to an investor.
type Credit struct {
	CreditID   string `json:"credit_id"`
	InvestorID string `json:"investor_id"`
	SPVID      string `json:"spv_id"`
	// Reference links the credit back to its payout transaction or
	// reinvestment remainder.
	Reference   string    `json:"reference"`
	Amount      string    `json:"amount"`
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

// Dispatcher hands credits to the payment rail asynchronously.
type Dispatcher interface {
	DispatchCredit(ctx context.Context, credit Credit) error
}

// KafkaDispatcher publishes credits onto the wallet topic.
type KafkaDispatcher struct {
	producer *mq.Producer
}

// NewKafkaDispatcher builds the kafka-backed dispatcher.
func NewKafkaDispatcher(producer *mq.Producer) *KafkaDispatcher {
	return &KafkaDispatcher{producer: producer}
}

// DispatchCredit publishes the credit, retrying transient broker errors.
func (d *KafkaDispatcher) DispatchCredit(ctx context.Context, credit Credit) error {
	return utils.Retry(3, 100*time.Millisecond, func() error {
		return d.producer.Send(ctx, TopicCreditRequested, credit.InvestorID, credit)
	})
}
