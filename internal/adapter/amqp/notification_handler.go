// Package amqp turns messages from the notifications fanout into console output for
// device agents and operators tailing the kitchen.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/YelzhanWeb/kds/internal/adapter/logger"
	"github.com/YelzhanWeb/kds/internal/adapter/rabbitmq"
)

type NotificationHandler struct {
	logger logger.Logger
	out    io.Writer
}

func NewNotificationHandler(logger logger.Logger, out io.Writer) *NotificationHandler {
	return &NotificationHandler{
		logger: logger,
		out:    out,
	}
}

// Handle matches the rabbitmq.Listen callback. Malformed messages are logged and skipped.
func (h *NotificationHandler) Handle(ctx context.Context, body []byte) {
	if err := h.HandleNotification(ctx, body); err != nil {
		h.logger.Error("message_parse_failed", "Failed to parse notification", "", nil, err)
	}
}

func (h *NotificationHandler) HandleNotification(ctx context.Context, body []byte) error {
	var msg rabbitmq.NotificationMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return err
	}

	line, err := describe(msg)
	if err != nil {
		return fmt.Errorf("%s payload: %w", msg.Kind, err)
	}

	h.logger.Debug("notification_received", line, msg.ID, map[string]interface{}{
		"kind": msg.Kind,
	})

	_, err = fmt.Fprintf(h.out, "[%s] %s\n", msg.OccurredAt.Format("15:04:05"), line)
	return err
}

func describe(msg rabbitmq.NotificationMessage) (string, error) {
	switch msg.Kind {
	case rabbitmq.KindOrdersArrived:
		var p rabbitmq.ArrivalPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return "", err
		}
		ids := make([]string, 0, len(p.OrderIDs))
		for _, id := range p.OrderIDs {
			ids = append(ids, fmt.Sprintf("#%d", id))
		}
		return fmt.Sprintf("%d new order(s): %s", p.Count, strings.Join(ids, ", ")), nil

	case rabbitmq.KindTransitionFailed:
		var p rabbitmq.FailurePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return "", err
		}
		return fmt.Sprintf("Order #%d could not move from '%s' to '%s': %s", p.OrderID, p.From, p.Target, p.Reason), nil

	case rabbitmq.KindStaleChanged:
		var p rabbitmq.StalePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return "", err
		}
		if p.Raised {
			return fmt.Sprintf("Board is stale: %d failed pull(s) since %s", p.ConsecutiveFailures, p.LastSuccess.Format("15:04:05")), nil
		}
		return "Board is fresh again", nil

	default:
		return fmt.Sprintf("Unknown notification kind %q", msg.Kind), nil
	}
}
