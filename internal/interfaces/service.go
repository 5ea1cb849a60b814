package interfaces

import (
	"context"
	"time"

	"github.com/YelzhanWeb/kds/internal/domain"
)

// KitchenService is the single entry point for operator actions on the working set.
type KitchenService interface {
	RequestTransition(ctx context.Context, orderID int64, target domain.Status) error
	ApplyPatch(ctx context.Context, patch domain.DetailPatch) error
	Board() *Board
}

// BoardProvider is the read side of the kitchen loop.
type BoardProvider interface {
	Board() *Board
}

// OrderService is used by the HTTP view for operator commands.
type OrderService interface {
	ChangeStatus(ctx context.Context, orderID int64, target domain.Status) error
	UpdateLineItem(ctx context.Context, patch domain.DetailPatch) (*domain.LineItem, error)
}

// TrackingService projects the board for display.
type TrackingService interface {
	ActiveOrders(ctx context.Context) (*BoardView, error)
	Health(ctx context.Context) HealthView
}

// Board is an immutable snapshot published by the kitchen loop after every change.
type Board struct {
	Orders              []domain.KitchenOrder
	Active              []domain.KitchenOrder
	Pending             map[int64]domain.Status
	LastPullAt          time.Time
	ConsecutiveFailures int
	Stale               bool
	Version             uint64
}

type BoardView struct {
	Orders      []OrderView
	GeneratedAt time.Time
	Stale       bool
}

type OrderView struct {
	Order      domain.KitchenOrder
	Elapsed    string
	Tier       domain.Tier
	NextStatus *domain.Status
	Pending    bool
}

type HealthView struct {
	Healthy             bool
	Stale               bool
	LastPullAt          time.Time
	ConsecutiveFailures int
	ActiveOrders        int
}
