// Package transition drives operator status changes with optimistic apply and rollback.
package transition

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/YelzhanWeb/kds/internal/domain"
)

// WorkingSet is the part of the reconciler the machine writes through.
type WorkingSet interface {
	Order(id int64) (domain.KitchenOrder, bool)
	InFlight(orderID int64) bool
	Overlay(t domain.Transition)
	Restore(t domain.Transition)
	Settle(t domain.Transition, at time.Time)
}

type Machine struct {
	set WorkingSet
	now func() time.Time
}

func New(set WorkingSet, now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{set: set, now: now}
}

// Begin validates the request and applies it to the working set. The caller issues the
// backend update and reports the outcome through Complete.
func (m *Machine) Begin(orderID int64, target domain.Status) (domain.Transition, error) {
	order, ok := m.set.Order(orderID)
	if !ok {
		return domain.Transition{}, fmt.Errorf("order %d: %w", orderID, domain.ErrOrderNotFound)
	}
	if m.set.InFlight(orderID) {
		return domain.Transition{}, fmt.Errorf("order %d: %w", orderID, domain.ErrTransitionInFlight)
	}

	t, err := domain.NewTransition(order, target, m.now())
	if err != nil {
		return domain.Transition{}, err
	}

	m.set.Overlay(t)
	return t, nil
}

// Complete confirms the transition or rolls it back. A failed backend call yields exactly
// one failure notice and an error wrapping ErrTransitionRejected.
func (m *Machine) Complete(t domain.Transition, backendErr error) (*domain.FailureNotice, error) {
	now := m.now()
	if backendErr == nil {
		m.set.Settle(t, now)
		return nil, nil
	}

	m.set.Restore(t)

	notice := &domain.FailureNotice{
		ID:         uuid.NewString(),
		OrderID:    t.OrderID,
		From:       t.From,
		Target:     t.To,
		Reason:     backendErr.Error(),
		OccurredAt: now,
	}

	if errors.Is(backendErr, domain.ErrTransitionRejected) {
		return notice, backendErr
	}
	return notice, fmt.Errorf("order %d: %w: %w", t.OrderID, domain.ErrTransitionRejected, backendErr)
}
