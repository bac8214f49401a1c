package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/IBM/sarama"

	"gccpay-gateway/internal/models"
)

// OrderConsumer ingests order.created events published by the shop
// platform so the gateway has the order on hand before checkout starts.
type OrderConsumer struct {
	consumer sarama.ConsumerGroup
	topics   []string
}

func NewOrderConsumer(brokers []string, groupID string) (*OrderConsumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Consumer.Offsets.Initial = sarama.OffsetNewest

	consumer, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &OrderConsumer{
		consumer: consumer,
		topics:   []string{"order-created"},
	}, nil
}

func (c *OrderConsumer) ConsumeOrders(ctx context.Context, handler func(*models.Order) error) error {
	consumerHandler := &orderConsumerHandler{handler: handler}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := c.consumer.Consume(ctx, c.topics, consumerHandler); err != nil {
				log.Printf("Error consuming messages: %v", err)
				return err
			}
		}
	}
}

func (c *OrderConsumer) Close() error {
	return c.consumer.Close()
}

type orderConsumerHandler struct {
	handler func(*models.Order) error
}

func (h *orderConsumerHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *orderConsumerHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *orderConsumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		var order models.Order
		if err := json.Unmarshal(message.Value, &order); err != nil {
			log.Printf("Failed to unmarshal order message: %v", err)
			continue
		}

		if err := h.handler(&order); err != nil {
			log.Printf("Failed to handle order event: %v", err)
			continue
		}

		session.MarkMessage(message, "")
	}

	return nil
}
