package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/songgift/checkout/internal/kafka"
	"github.com/songgift/checkout/internal/orders"
	"github.com/songgift/checkout/internal/redisx"
)

type OrderStore interface {
	GetByID(ctx context.Context, id string) (*orders.Order, error)
}

// Notifier consumes order lifecycle events and delivers the signed
// fulfillment webhooks: order_initiated at creation, order.paid after the
// payment reconciles. Returning an error leaves the message uncommitted so
// the group redelivers it; the paid transition itself is never at risk here.
type Notifier struct {
	Orders      OrderStore
	Redis       *redis.Client
	Sink        *Client
	ServiceName string
}

func (n *Notifier) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	return n.handle(ctx, m, orders.EventOrderCreated, BuildOrderInitiated)
}

func (n *Notifier) HandleOrderPaid(ctx context.Context, m kafkago.Message) error {
	return n.handle(ctx, m, orders.EventOrderPaid, BuildOrderPaid)
}

// orderRef picks the order id out of either payload type.
type orderRef struct {
	OrderID string `json:"order_id"`
}

func (n *Notifier) handle(ctx context.Context, m kafkago.Message, eventType string, build func(*orders.Order) *OrderWebhook) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		log.Printf("notifier: drop undecodable message: %v", err)
		return nil
	}
	if env.EventType != eventType {
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, "notifier", env.EventID)
	if seen, _ := redisx.Exists(ctx, n.Redis, dkey); seen {
		return nil
	}

	ref, err := kafkax.UnwrapPayload[orderRef](env.Payload)
	if err != nil || ref.OrderID == "" {
		log.Printf("notifier: drop event %s without order id: %v", env.EventID, err)
		return nil
	}

	ord, err := n.Orders.GetByID(ctx, ref.OrderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", ref.OrderID, err)
	}

	payload := build(ord)
	if err := n.Sink.Deliver(ctx, payload); err != nil {
		// Degraded delivery: log with identifiers and let the consumer
		// group retry later.
		log.Printf("notifier: %s delivery for order %s (tracking %s) failed: %v",
			payload.Event, ord.ID, ord.TrackingID, err)
		return err
	}

	_ = n.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	log.Printf("notifier: %s for order %s (tracking %s) delivered to fulfillment",
		payload.Event, ord.ID, ord.TrackingID)
	return nil
}
