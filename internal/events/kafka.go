package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const writeTimeout = 5 * time.Second

// messageWriter is the part of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes events as JSON, keyed by route key.
type KafkaSink struct {
	writer messageWriter
	logger *logrus.Logger
}

// NewKafkaWriter builds the async writer used for pipeline events.
func NewKafkaWriter(broker, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
		Compression:  kafka.Zstd,
	}
}

func NewKafkaSink(writer messageWriter, logger *logrus.Logger) *KafkaSink {
	return &KafkaSink{writer: writer, logger: logger}
}

func (s *KafkaSink) Emit(ctx context.Context, event Event) {
	value, err := json.Marshal(event)
	if err != nil {
		s.logger.WithError(err).WithField("event", event.Type).Error("Failed to encode event")
		return
	}

	// Events describe work that already happened, so they outlive the caller's cancellation.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.RouteKey),
		Value: value,
	}
	if err := s.writer.WriteMessages(writeCtx, msg); err != nil {
		s.logger.WithError(err).WithField("event", event.Type).Error("Failed to send event to Kafka")
	}
}

func (s *KafkaSink) Close() error {
	if err := s.writer.Close(); err != nil {
		s.logger.WithError(err).Error("Error closing Kafka writer")
		return err
	}
	s.logger.Info("Kafka writer closed")
	return nil
}
