// Package kafka publishes outbox messages to Kafka topics.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/muxdry/storefront-backend/pkg/config"
	"github.com/muxdry/storefront-backend/pkg/logger"
	"github.com/muxdry/storefront-backend/pkg/outbox"
	kafkago "github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type Publisher struct {
	writer  messageWriter
	brokers []string
	timeout time.Duration
}

// NewPublisher builds a topic-less writer; every message names its own topic.
func NewPublisher(ctx context.Context, cfg config.KafkaConfig, logg *logger.Logger) (*Publisher, error) {
	brokers := cleanBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	writer := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
		WriteTimeout:           cfg.WriteTimeout,
		Transport:              &kafkago.Transport{ClientID: cfg.ClientID},
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "brokers", strings.Join(brokers, ",")), "kafka publisher initialized")
	}
	return &Publisher{writer: writer, brokers: brokers, timeout: cfg.WriteTimeout}, nil
}

// Publish writes msg keyed by aggregate id so one order's events stay on one partition.
func (p *Publisher) Publish(ctx context.Context, msg outbox.Message) error {
	if p == nil || p.writer == nil {
		return errors.New("kafka publisher not initialized")
	}
	if strings.TrimSpace(msg.Topic) == "" {
		return outbox.NewNonRetryableError(errors.New("kafka topic is required"))
	}
	headers := make([]kafkago.Header, 0, len(msg.Attributes))
	for k, v := range msg.Attributes {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(v)})
	}
	err := p.writer.WriteMessages(ctx, kafkago.Message{
		Topic:   msg.Topic,
		Key:     []byte(msg.Key),
		Value:   msg.Data,
		Headers: headers,
	})
	if err != nil {
		return fmt.Errorf("kafka write to %s: %w", msg.Topic, err)
	}
	return nil
}

// Ping dials the first reachable broker.
func (p *Publisher) Ping(ctx context.Context) error {
	if p == nil {
		return errors.New("kafka publisher not initialized")
	}
	var errs []error
	for _, broker := range p.brokers {
		conn, err := kafkago.DialContext(ctx, "tcp", broker)
		if err == nil {
			return conn.Close()
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("no kafka broker reachable: %w", errors.Join(errs...))
}

func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func cleanBrokers(in []string) []string {
	out := make([]string, 0, len(in))
	for _, b := range in {
		for _, part := range strings.Split(b, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
