// Package mq provides kafka-go producer/consumer wrappers with JSON payloads,
// retries and a dead letter queue.
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/wyfcoding/fractionalfunding/pkg/config"
	"github.com/wyfcoding/fractionalfunding/pkg/logger"
)

// Producer publishes JSON messages to kafka.
type Producer struct {
	writer *kafka.Writer
	config config.KafkaConfig
}

// NewProducer creates a kafka producer.
func NewProducer(cfg config.KafkaConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		AllowAutoTopicCreation: true,
		Compression:            kafka.Gzip,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            cfg.MaxRetries,
		WriteBackoffMin:        time.Duration(cfg.RetryBackoff) * time.Millisecond,
		WriteBackoffMax:        time.Duration(cfg.RetryBackoff*10) * time.Millisecond,
	}

	logger.Info(context.Background(), "kafka producer created", "brokers", cfg.Brokers)
	return &Producer{writer: writer, config: cfg}, nil
}

// Send marshals value as JSON and publishes it to topic under key.
func (p *Producer) Send(ctx context.Context, topic, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logger.Error(ctx, "failed to send kafka message", "topic", topic, "key", key, "error", err)
		return err
	}

	logger.Debug(ctx, "kafka message sent", "topic", topic, "key", key)
	return nil
}

// Close closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Consumer reads messages from a single topic within a consumer group.
type Consumer struct {
	reader *kafka.Reader
	config config.KafkaConfig
}

// NewConsumer creates a kafka consumer for topic.
func NewConsumer(cfg config.KafkaConfig, topic string) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          topic,
		GroupID:        cfg.GroupID,
		SessionTimeout: time.Duration(cfg.SessionTimeout) * time.Second,
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
		MaxBytes:       10e6,
	})

	logger.Info(context.Background(), "kafka consumer created",
		"brokers", cfg.Brokers,
		"topic", topic,
		"group_id", cfg.GroupID,
	)
	return &Consumer{reader: reader, config: cfg}, nil
}

// Handler processes one consumed message. Returning an error does not stop
// the consume loop; the message is handed to the DLQ when one is configured.
type Handler interface {
	Handle(ctx context.Context, msg kafka.Message) error
}

// Run consumes messages until ctx is cancelled, dispatching each to handler.
func (c *Consumer) Run(ctx context.Context, handler Handler, dlq *DeadLetterQueue) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error(ctx, "failed to read kafka message", "error", err)
			continue
		}

		if err := handler.Handle(ctx, msg); err != nil {
			logger.Error(ctx, "message handling failed",
				"topic", msg.Topic,
				"key", string(msg.Key),
				"offset", msg.Offset,
				"error", err,
			)
			if dlq != nil {
				if dlqErr := dlq.Send(ctx, msg, err); dlqErr != nil {
					logger.Error(ctx, "failed to forward message to DLQ", "error", dlqErr)
				}
			}
		}
	}
}

// Close closes the reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DeadLetterQueue republishes failed messages to a dedicated topic.
type DeadLetterQueue struct {
	producer *Producer
	topic    string
}

// NewDeadLetterQueue builds a DLQ on top of producer.
func NewDeadLetterQueue(producer *Producer, topic string) *DeadLetterQueue {
	return &DeadLetterQueue{producer: producer, topic: topic}
}

// Send forwards the original message plus failure metadata to the DLQ topic.
func (dlq *DeadLetterQueue) Send(ctx context.Context, original kafka.Message, cause error) error {
	payload := map[string]interface{}{
		"original_topic":    original.Topic,
		"original_key":      string(original.Key),
		"original_value":    string(original.Value),
		"original_offset":   original.Offset,
		"original_time":     original.Time,
		"failure_error":     cause.Error(),
		"failure_timestamp": time.Now(),
	}

	return dlq.producer.Send(ctx, dlq.topic, string(original.Key), payload)
}
