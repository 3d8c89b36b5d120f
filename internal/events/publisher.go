package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

const inventoryQueue = "inventory_events"

const (
	TypePurchased = "sweet.purchased"
	TypeRestocked = "sweet.restocked"
)

// InventoryEvent records a stock mutation that already happened.
type InventoryEvent struct {
	Type      string    `json:"type"`
	SweetID   string    `json:"sweet_id"`
	Quantity  int64     `json:"quantity"`
	Remaining int64     `json:"remaining"`
	ActorID   string    `json:"actor_id,omitempty"`
	At        time.Time `json:"at"`
}

type Publisher interface {
	PublishInventory(ev InventoryEvent) error
	Close() error
}

// Nop discards events. Used when no broker is configured.
type Nop struct{}

func (Nop) PublishInventory(InventoryEvent) error { return nil }
func (Nop) Close() error                          { return nil }

// AMQPPublisher publishes inventory events to a durable queue.
type AMQPPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	if _, err := ch.QueueDeclare(inventoryQueue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare %s: %w", inventoryQueue, err)
	}

	return &AMQPPublisher{conn: conn, channel: ch}, nil
}

func (p *AMQPPublisher) PublishInventory(ev InventoryEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal inventory event: %w", err)
	}

	err = p.channel.Publish("", inventoryQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.At,
	})
	if err != nil {
		return fmt.Errorf("publish inventory event: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	var firstErr error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			firstErr = err
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Consume delivers inventory events to handler until the channel closes.
// Messages are acked on a nil handler error and requeued otherwise.
func (p *AMQPPublisher) Consume(handler func(ev InventoryEvent) error) error {
	msgs, err := p.channel.Consume(inventoryQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", inventoryQueue, err)
	}

	go func() {
		for msg := range msgs {
			var ev InventoryEvent
			if err := json.Unmarshal(msg.Body, &ev); err != nil {
				_ = msg.Nack(false, false)
				continue
			}
			if err := handler(ev); err != nil {
				_ = msg.Nack(false, true)
				continue
			}
			_ = msg.Ack(false)
		}
	}()

	return nil
}
