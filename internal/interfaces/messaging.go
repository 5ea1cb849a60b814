package interfaces

import (
	"context"

	"github.com/YelzhanWeb/kds/internal/domain"
)

// PushEvent is one decoded frame of the real-time channel. Exactly one of Order or Patch is set.
type PushEvent struct {
	Order *domain.KitchenOrder
	Patch *domain.DetailPatch
}

// PushHandler receives decoded push frames in arrival order.
type PushHandler func(ctx context.Context, evt PushEvent)

// EventStream is the push channel. Stream blocks while the connection is up and returns
// when it drops or ctx is cancelled; the caller owns reconnection.
type EventStream interface {
	Stream(ctx context.Context, handle PushHandler) error
	Name() string
}

// Notifier dispatches the side effects triggered by the core: audible/haptic alerts,
// banners and failure notices. Implementations must not block for long.
type Notifier interface {
	OrdersArrived(ctx context.Context, n domain.ArrivalNotification) error
	TransitionFailed(ctx context.Context, n domain.FailureNotice) error
	StaleChanged(ctx context.Context, a domain.StaleAlarm) error
}
