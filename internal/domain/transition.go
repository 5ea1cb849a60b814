package domain

import (
	"fmt"
	"time"
)

// Transition is an operator status change carrying the prior status, so it can be
// applied optimistically and later either confirmed or reverted.
type Transition struct {
	OrderID     int64
	From        Status
	To          Status
	RequestedAt time.Time
}

// NewTransition validates the edge against the current status.
func NewTransition(order KitchenOrder, target Status, at time.Time) (Transition, error) {
	if !order.Status.CanTransitionTo(target) {
		return Transition{}, fmt.Errorf("order %d: %s -> %s: %w", order.ID, order.Status, target, ErrInvalidTransition)
	}
	return Transition{OrderID: order.ID, From: order.Status, To: target, RequestedAt: at}, nil
}

// Apply sets the target status if the order is still in the prior status.
func (t Transition) Apply(o *KitchenOrder) bool {
	if o.ID != t.OrderID || o.Status != t.From {
		return false
	}
	o.Status = t.To
	return true
}

// Revert restores the prior status if the order still shows the target.
func (t Transition) Revert(o *KitchenOrder) bool {
	if o.ID != t.OrderID || o.Status != t.To {
		return false
	}
	o.Status = t.From
	return true
}
