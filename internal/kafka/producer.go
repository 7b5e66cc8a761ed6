package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ms-restaurant/internal/config"
	"ms-restaurant/internal/logger"
	"ms-restaurant/internal/models"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer messageWriter
	topics config.TopicConfig
	log    *logger.Logger
}

func NewProducer(brokers []string, topics config.TopicConfig, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Producer{writer: writer, topics: topics, log: log}
}

// NewDisabledProducer logs events instead of sending them.
func NewDisabledProducer(topics config.TopicConfig, log *logger.Logger) *Producer {
	return &Producer{topics: topics, log: log}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte) error {
	if p.writer == nil {
		p.log.Debug("KAFKA", fmt.Sprintf("Kafka disabled, dropping %s event for %s", topic, key))
		return nil
	}
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	p.log.LogKafka("PUBLISH", topic, key)
	return nil
}

func (p *Producer) publishJSON(ctx context.Context, topic, key string, event interface{}) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}
	return p.Publish(ctx, topic, key, value)
}

func (p *Producer) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	return p.publishJSON(ctx, p.topics.OrderCreated, order.ID, newOrderEvent(EventOrderCreated, order, ""))
}

func (p *Producer) PublishOrderStatusChanged(ctx context.Context, order *models.Order, from models.OrderStatus) error {
	return p.publishJSON(ctx, p.topics.OrderStatusChanged, order.ID, newOrderEvent(EventOrderStatusChanged, order, from))
}

func (p *Producer) PublishOrderPaid(ctx context.Context, order *models.Order) error {
	return p.publishJSON(ctx, p.topics.OrderPaid, order.ID, newOrderEvent(EventOrderPaid, order, ""))
}

func (p *Producer) PublishPaymentCreated(ctx context.Context, payment *models.Payment) error {
	return p.publishJSON(ctx, p.topics.PaymentCreated, payment.ID, newPaymentEvent(payment))
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
