// Package events publishes trip domain events to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"ridedispatch/internal/domain"
)

// Publisher delivers committed trip transitions.
type Publisher interface {
	Publish(ctx context.Context, tr domain.Transition) error
	Close() error
}

// KafkaPublisher writes transitions to a Kafka topic keyed by trip ID, so
// one trip's transitions stay ordered within a partition.
type KafkaPublisher struct {
	writer  *kafka.Writer
	timeout time.Duration
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string, timeout time.Duration) *KafkaPublisher {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokers,
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: int(kafka.RequireAll),
		WriteTimeout: timeout,
	})
	return &KafkaPublisher{writer: w, timeout: timeout}
}

// Publish writes one transition.
func (k *KafkaPublisher) Publish(ctx context.Context, tr domain.Transition) error {
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	b, err := json.Marshal(tr)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(tr.TripID),
		Value: b,
		Time:  tr.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("trip.status_changed")},
			{Key: "tenant_id", Value: []byte(tr.TenantID)},
		},
	})
}

// Close flushes pending writes.
func (k *KafkaPublisher) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}

// LogPublisher logs transitions. Used when no brokers are configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, tr domain.Transition) error {
	p.logger.InfoContext(ctx, "trip transition",
		"trip_id", tr.TripID,
		"tenant_id", tr.TenantID,
		"from", tr.FromStatus,
		"to", tr.ToStatus,
		"description", tr.Description,
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = (*LogPublisher)(nil)
)
