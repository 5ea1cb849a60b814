// Package notifier dispatches kitchen notifications to every configured sink.
package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/YelzhanWeb/kds/internal/adapter/logger"
	"github.com/YelzhanWeb/kds/internal/domain"
	"github.com/YelzhanWeb/kds/internal/interfaces"
)

// Log writes notifications to the structured log.
type Log struct {
	logger logger.Logger
}

var _ interfaces.Notifier = (*Log)(nil)

func NewLog(logger logger.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) OrdersArrived(ctx context.Context, n domain.ArrivalNotification) error {
	l.logger.Info("notify_orders_arrived", fmt.Sprintf("%d new order(s) for the kitchen", n.Count), n.ID, map[string]interface{}{
		"order_ids": n.OrderIDs,
	})
	return nil
}

func (l *Log) TransitionFailed(ctx context.Context, n domain.FailureNotice) error {
	l.logger.Warn("notify_transition_failed", fmt.Sprintf("Order %d could not move to %s", n.OrderID, n.Target), n.ID, map[string]interface{}{
		"order_id": n.OrderID,
		"status":   n.From,
		"reason":   n.Reason,
	})
	return nil
}

func (l *Log) StaleChanged(ctx context.Context, a domain.StaleAlarm) error {
	if a.Raised {
		l.logger.Warn("notify_board_stale", "Kitchen board is stale", "", map[string]interface{}{
			"last_success":         a.LastSuccess,
			"consecutive_failures": a.ConsecutiveFailures,
		})
		return nil
	}
	l.logger.Info("notify_board_fresh", "Kitchen board is current again", "", nil)
	return nil
}

// Multi calls every sink in order. One failing sink does not stop the others.
type Multi []interfaces.Notifier

var _ interfaces.Notifier = Multi(nil)

func (m Multi) OrdersArrived(ctx context.Context, n domain.ArrivalNotification) error {
	return m.each(func(x interfaces.Notifier) error { return x.OrdersArrived(ctx, n) })
}

func (m Multi) TransitionFailed(ctx context.Context, n domain.FailureNotice) error {
	return m.each(func(x interfaces.Notifier) error { return x.TransitionFailed(ctx, n) })
}

func (m Multi) StaleChanged(ctx context.Context, a domain.StaleAlarm) error {
	return m.each(func(x interfaces.Notifier) error { return x.StaleChanged(ctx, a) })
}

func (m Multi) each(fn func(interfaces.Notifier) error) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := fn(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
