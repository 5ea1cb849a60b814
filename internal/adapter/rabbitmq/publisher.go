package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/YelzhanWeb/kds/internal/domain"
	"github.com/YelzhanWeb/kds/internal/interfaces"
)

const (
	KindOrdersArrived    = "orders_arrived"
	KindTransitionFailed = "transition_failed"
	KindStaleChanged     = "stale_changed"
)

// NotificationMessage is what device agents (buzzers, tablets) receive on the fanout.
type NotificationMessage struct {
	Kind       string          `json:"kind"`
	ID         string          `json:"id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type ArrivalPayload struct {
	Count    int     `json:"count"`
	OrderIDs []int64 `json:"order_ids"`
}

type FailurePayload struct {
	OrderID int64  `json:"order_id"`
	From    string `json:"from"`
	Target  string `json:"target"`
	Reason  string `json:"reason"`
}

type StalePayload struct {
	Raised              bool      `json:"raised"`
	LastSuccess         time.Time `json:"last_success"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
}

type Publisher struct {
	conn     Connection
	exchange string
}

var _ interfaces.Notifier = (*Publisher)(nil)

func NewPublisher(conn Connection, exchange string) *Publisher {
	return &Publisher{conn: conn, exchange: exchange}
}

func (p *Publisher) OrdersArrived(ctx context.Context, n domain.ArrivalNotification) error {
	return p.publish(ctx, KindOrdersArrived, n.ID, n.CreatedAt, ArrivalPayload{Count: n.Count, OrderIDs: n.OrderIDs})
}

func (p *Publisher) TransitionFailed(ctx context.Context, n domain.FailureNotice) error {
	return p.publish(ctx, KindTransitionFailed, n.ID, n.OccurredAt, FailurePayload{
		OrderID: n.OrderID,
		From:    string(n.From),
		Target:  string(n.Target),
		Reason:  n.Reason,
	})
}

func (p *Publisher) StaleChanged(ctx context.Context, a domain.StaleAlarm) error {
	return p.publish(ctx, KindStaleChanged, "", a.OccurredAt, StalePayload{
		Raised:              a.Raised,
		LastSuccess:         a.LastSuccess,
		ConsecutiveFailures: a.ConsecutiveFailures,
	})
}

func (p *Publisher) publish(ctx context.Context, kind, id string, at time.Time, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	body, err := json.Marshal(NotificationMessage{Kind: kind, ID: id, OccurredAt: at, Payload: raw})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(p.exchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	err = ch.PublishWithContext(ctx, p.exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Type:        kind,
		MessageId:   id,
		Timestamp:   at,
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}
