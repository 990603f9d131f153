package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/liamashdown/insiderdetector/internal/detector"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSender publishes alerts as JSON to a Kafka topic, keyed by wallet
type KafkaSender struct {
	topic  string
	writer messageWriter
}

// NewKafkaSender creates a new Kafka sender. With no brokers the sender
// reports itself as unconfigured.
func NewKafkaSender(brokers []string, topic string) *KafkaSender {
	s := &KafkaSender{topic: topic}
	if len(brokers) == 0 {
		return s
	}
	s.writer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Gzip,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		BatchTimeout: 50 * time.Millisecond,
	}
	return s
}

func (s *KafkaSender) Name() string { return "kafka" }

func (s *KafkaSender) Configured() bool { return s.writer != nil && s.topic != "" }

func (s *KafkaSender) Help() string { return "Set KAFKA_BROKERS and KAFKA_TOPIC" }

// Send publishes the alert
func (s *KafkaSender) Send(ctx context.Context, alert *detector.Alert) error {
	value, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(alert.Trade.ProxyWallet),
		Value: value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "alert_level", Value: []byte(alert.AlertLevel)},
		},
	}

	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: %w", err)
	}
	return nil
}

// Close flushes and closes the writer
func (s *KafkaSender) Close() error {
	if s.writer != nil {
		return s.writer.Close()
	}
	return nil
}
