package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"order-service/internal/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var ErrPublisherClosed = errors.New("event publisher closed")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	writer messageWriter
	closed atomic.Bool
}

// NewPublisher returns a Kafka publisher, or a no-op one when no brokers are
// configured.
func NewPublisher(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		logger.L().Info("kafka brokers not configured, order events disabled")
		return NewNoop()
	}

	return &kafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchSize:    1,
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 5 * time.Second,
		},
	}
}

func (p *kafkaPublisher) Publish(ctx context.Context, evt Event) error {
	if p.closed.Load() {
		return ErrPublisherClosed
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	// Keyed by order so every event of one order lands on one partition.
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(evt.OrderID, 10)),
		Value: data,
		Time:  evt.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(evt.Type)},
		},
	}
	if reqID := logger.RequestIDFrom(ctx); reqID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "request_id", Value: []byte(reqID)})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event: %w", evt.Type, err)
	}

	logger.FromCtx(ctx).Debug("order event published",
		zap.String("event_id", evt.ID),
		zap.String("type", string(evt.Type)),
		zap.Int64("order_id", evt.OrderID),
	)
	return nil
}

func (p *kafkaPublisher) Close() error {
	p.closed.Store(true)
	return p.writer.Close()
}
