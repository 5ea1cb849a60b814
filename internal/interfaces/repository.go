package interfaces

import (
	"context"

	"github.com/YelzhanWeb/kds/internal/domain"
)

// OrderSource is the pull channel: a full snapshot of orders the kitchen should see.
type OrderSource interface {
	FetchKitchenOrders(ctx context.Context) ([]domain.KitchenOrder, error)
}

// OrderStatusUpdater issues the backend status change for an operator transition.
type OrderStatusUpdater interface {
	UpdateOrderStatus(ctx context.Context, orderID int64, status domain.Status) error
}

// LineItemUpdater forwards kitchen routing edits (priority, station, estimate) to the backend.
type LineItemUpdater interface {
	UpdateLineItem(ctx context.Context, patch domain.DetailPatch) (*domain.LineItem, error)
}
