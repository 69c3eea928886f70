package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
)

func TestRedisPublisherFansOutToTypedAndAllChannels(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, Channel(TypeSaleCompleted), AllChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	pub := NewRedisPublisher(client)
	if err := pub.Publish(ctx, Event{EventType: TypeSaleCompleted, EntityID: "sale-1", TotalAmount: "104"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	seen := map[string]Event{}
	for len(seen) < 2 {
		msg, err := sub.ReceiveTimeout(ctx, 2*time.Second)
		if err != nil {
			t.Fatalf("receive: %v", err)
		}
		m, ok := msg.(*redis.Message)
		if !ok {
			continue
		}
		var evt Event
		if err := json.Unmarshal([]byte(m.Payload), &evt); err != nil {
			t.Fatalf("decode: %v", err)
		}
		seen[m.Channel] = evt
	}

	typed := seen["pos:events:sale.completed"]
	if typed.EntityID != "sale-1" || typed.Timestamp.IsZero() {
		t.Fatalf("unexpected typed event %+v", typed)
	}
	if seen[AllChannel].TotalAmount != "104" {
		t.Fatalf("unexpected all-channel event %+v", seen[AllChannel])
	}
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = Noop{}
	if err := p.Publish(context.Background(), Event{EventType: TypeAlertRaised}); err != nil {
		t.Fatalf("noop publish: %v", err)
	}
}
