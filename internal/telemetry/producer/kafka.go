package producer

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"runtelemetry/internal/telemetry/domain"
)

// KafkaProducer implements Producer using segmentio/kafka-go.
type KafkaProducer struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaProducer creates a Kafka producer that writes reports to the given topic.
// Returns nil when brokers or topic are empty so callers can treat publishing as disabled.
// Call Close when shutting down.
func NewKafkaProducer(brokers []string, topic string) (*KafkaProducer, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaProducer{writer: writer, topic: topic}, nil
}

// Message builds the Kafka message for report: keyed by run id so every report of a run
// lands on the same partition, JSON value.
func Message(report *domain.Report) (kafka.Message, error) {
	if report == nil {
		return kafka.Message{}, errors.New("producer: nil report")
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(report.RunID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}, nil
}

// Decode parses a message value written by Emit.
func Decode(value []byte) (*domain.Report, error) {
	var report domain.Report
	if err := json.Unmarshal(value, &report); err != nil {
		return nil, err
	}
	if report.RunID == "" {
		return nil, errors.New("producer: report without run_id")
	}
	return &report, nil
}

// Emit serializes the report as JSON and writes it to the Kafka topic.
// Uses the request context with a short timeout so slow Kafka does not block callers indefinitely.
func (p *KafkaProducer) Emit(ctx context.Context, report *domain.Report) error {
	if p == nil || p.writer == nil || report == nil {
		return nil
	}
	msg, err := Message(report)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.writer.WriteMessages(writeCtx, msg); err != nil {
		log.Printf("producer: kafka emit failed for run %s: %v", report.RunID, err)
		return err
	}
	return nil
}

// Close closes the Kafka writer. Safe to call multiple times.
func (p *KafkaProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
