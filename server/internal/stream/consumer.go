package stream

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads the events topic and broadcasts every valid event.
type Consumer struct {
	reader messageReader
	hub    *Hub
	logger *logrus.Logger
}

func NewKafkaReader(broker, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{broker},
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

func NewConsumer(reader messageReader, hub *Hub, logger *logrus.Logger) *Consumer {
	return &Consumer{
		reader: reader,
		hub:    hub,
		logger: logger,
	}
}

// Start reads until ctx is cancelled, then closes the reader.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("Starting events consumer")

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			c.logger.WithError(err).Error("Error fetching message")
			continue
		}

		if json.Valid(m.Value) {
			c.hub.Broadcast(m.Value)
		} else {
			c.logger.WithField("offset", m.Offset).Warn("Skipping malformed event")
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.logger.WithError(err).Error("Error committing message")
		}
	}

	c.logger.Info("Shutting down events consumer")
	if err := c.reader.Close(); err != nil {
		c.logger.WithError(err).Error("Error closing reader")
		return err
	}
	return nil
}
