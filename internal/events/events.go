// Package events fans business events out over redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	TypeSaleCompleted   = "sale.completed"
	TypeReturnProcessed = "return.processed"
	TypeAlertRaised     = "alert.raised"

	AllChannel = "pos:events:all"
)

type Event struct {
	EventType   string    `json:"event_type"`
	EntityID    string    `json:"entity_id"`
	CashierID   string    `json:"cashier_id,omitempty"`
	TotalAmount string    `json:"total_amount,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Data        any       `json:"data,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func Channel(eventType string) string {
	return fmt.Sprintf("pos:events:%s", eventType)
}

// Publish sends the event to its typed channel and to the catch-all channel.
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.client.Publish(ctx, Channel(event.EventType), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	if err := p.client.Publish(ctx, AllChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to all channel: %w", err)
	}
	return nil
}
