// Package notify publishes domain events (orders, check-ins) to Kafka for
// downstream consumers such as mailers and accounting.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

const (
	TopicOrderConfirmed  = "order.confirmed"
	TopicOrderCancelled  = "order.cancelled"
	TopicTicketCheckedIn = "ticket.checked_in"
)

type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
	Close() error
}

type OrderEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	EventID    int64     `json:"event_id"`
	UserID     int64     `json:"user_id"`
	TotalCents int64     `json:"total_cents"`
	Currency   string    `json:"currency"`
	Tickets    int       `json:"tickets"`
	At         time.Time `json:"at"`
}

type CheckInEvent struct {
	TicketID uuid.UUID `json:"ticket_id"`
	EventID  int64     `json:"event_id"`
	At       time.Time `json:"at"`
}

// envelope wraps every message with its type and a unique ID for
// consumer-side deduplication.
type envelope struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Time    time.Time `json:"time"`
	Payload any       `json:"payload"`
}

type KafkaPublisher struct {
	producer sarama.SyncProducer
	prefix   string
	logger   *slog.Logger
}

func NewKafkaPublisher(brokers []string, prefix string, logger *slog.Logger) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Version = sarama.V2_8_0_0

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("notify.NewKafkaPublisher:%w", err)
	}

	logger.Info("kafka producer connected", "brokers", brokers)

	return NewKafkaPublisherWithProducer(producer, prefix, logger), nil
}

func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, prefix string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, prefix: prefix, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic, key string, payload any) error {
	const op = "notify.KafkaPublisher.Publish"

	data, err := marshal(topic, payload)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic(topic),
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	p.logger.Debug("kafka message sent", "topic", msg.Topic, "partition", partition, "offset", offset)

	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

func (p *KafkaPublisher) topic(name string) string {
	if p.prefix == "" {
		return name
	}
	return p.prefix + "." + name
}

// LogPublisher stands in for Kafka when no brokers are configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, topic, key string, payload any) error {
	data, err := marshal(topic, payload)
	if err != nil {
		return fmt.Errorf("notify.LogPublisher.Publish:%w", err)
	}
	p.logger.Debug("domain event", "topic", topic, "key", key, "payload", string(data))
	return nil
}

func (p *LogPublisher) Close() error { return nil }

func marshal(topic string, payload any) ([]byte, error) {
	return json.Marshal(envelope{
		ID:      uuid.NewString(),
		Type:    topic,
		Time:    time.Now().UTC(),
		Payload: payload,
	})
}
