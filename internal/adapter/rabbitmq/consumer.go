package rabbitmq

import (
	"context"
	"fmt"

	"github.com/YelzhanWeb/kds/internal/adapter/logger"
	"github.com/YelzhanWeb/kds/internal/adapter/push"
	"github.com/YelzhanWeb/kds/internal/interfaces"
)

// Consumer is the push transport over a fanout exchange. Each instance binds its own
// exclusive queue, so frames published while it is disconnected are not replayed.
type Consumer struct {
	conn     Connection
	exchange string
	logger   logger.Logger
}

var _ interfaces.EventStream = (*Consumer)(nil)

func NewConsumer(conn Connection, exchange string, logger logger.Logger) *Consumer {
	return &Consumer{conn: conn, exchange: exchange, logger: logger}
}

func (c *Consumer) Name() string { return "amqp" }

func (c *Consumer) Stream(ctx context.Context, handle interfaces.PushHandler) error {
	return Listen(ctx, c.conn, c.exchange, c.logger, func(ctx context.Context, body []byte) {
		evt, err := push.Decode(body)
		if err != nil {
			c.logger.Debug("push_frame_skipped", "Skipping push frame", "", map[string]interface{}{"error": err.Error()})
			return
		}
		handle(ctx, evt)
	})
}

// Listen binds an exclusive auto-delete queue to a fanout exchange and hands every body to
// fn until ctx is cancelled or the channel drops.
func Listen(ctx context.Context, conn Connection, exchange string, logger logger.Logger, fn func(ctx context.Context, body []byte)) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	closeChan := ch.NotifyClose()

	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	logger.Info("amqp_listening", "Listening on exchange", "", map[string]interface{}{
		"exchange": exchange,
		"queue":    q.Name,
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-closeChan:
			if err != nil {
				return fmt.Errorf("channel closed: %w", err)
			}
			return fmt.Errorf("channel closed gracefully")

		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("messages channel closed")
			}
			fn(ctx, msg.Body)
		}
	}
}
