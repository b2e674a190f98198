// Package kafka publishes question insight events.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/eshoplite/internal/domain"
)

// messageWriter is the consumer interface over kafka.Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// InsightEvent is the JSON payload written for every stored insight.
type InsightEvent struct {
	EventID        string                 `json:"eventId"`
	EventTimestamp int64                  `json:"eventTimestamp"`
	Insight        domain.QuestionInsight `json:"insight"`
}

// Publisher writes insight events keyed by insight id.
type Publisher struct {
	writer messageWriter
	logger *zap.Logger
	now    func() time.Time
}

// NewPublisher creates a publisher backed by a kafka.Writer.
func NewPublisher(brokers []string, topic string, logger *zap.Logger) *Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    10,
		BatchTimeout: 100 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
	}
	return newPublisher(w, logger)
}

func newPublisher(w messageWriter, logger *zap.Logger) *Publisher {
	return &Publisher{writer: w, logger: logger, now: time.Now}
}

// Publish writes one event for the insight.
func (p *Publisher) Publish(ctx context.Context, in domain.QuestionInsight) error {
	event := InsightEvent{
		EventID:        uuid.NewString(),
		EventTimestamp: p.now().UnixNano(),
		Insight:        in,
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode insight event: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(in.ID, 10)),
		Value: value,
	}); err != nil {
		return fmt.Errorf("publish insight %d: %w", in.ID, err)
	}

	p.logger.Debug("Insight published", zap.Int64("insight_id", in.ID), zap.String("event_id", event.EventID))
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
