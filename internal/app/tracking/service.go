package tracking

import (
	"context"
	"time"

	"github.com/YelzhanWeb/kds/internal/adapter/logger"
	"github.com/YelzhanWeb/kds/internal/domain"
	"github.com/YelzhanWeb/kds/internal/interfaces"
)

type Service struct {
	boards interfaces.BoardProvider
	logger logger.Logger
	now    func() time.Time
}

func NewService(boards interfaces.BoardProvider, logger logger.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		boards: boards,
		logger: logger,
		now:    now,
	}
}

// ActiveOrders projects the current board for display. Elapsed time is recomputed on
// every call.
func (s *Service) ActiveOrders(ctx context.Context) (*interfaces.BoardView, error) {
	b := s.boards.Board()
	now := s.now()

	view := &interfaces.BoardView{
		Orders:      make([]interfaces.OrderView, 0, len(b.Active)),
		GeneratedAt: now,
		Stale:       b.Stale,
	}

	for _, o := range b.Active {
		elapsed, tier := domain.Elapsed(o.CreatedAt, now)
		ov := interfaces.OrderView{
			Order:   o,
			Elapsed: elapsed,
			Tier:    tier,
		}
		if next, ok := o.Status.Next(); ok {
			ov.NextStatus = &next
		}
		if _, pending := b.Pending[o.ID]; pending {
			ov.Pending = true
		}
		view.Orders = append(view.Orders, ov)
	}

	return view, nil
}

func (s *Service) Health(ctx context.Context) interfaces.HealthView {
	b := s.boards.Board()
	return interfaces.HealthView{
		Healthy:             !b.Stale,
		Stale:               b.Stale,
		LastPullAt:          b.LastPullAt,
		ConsecutiveFailures: b.ConsecutiveFailures,
		ActiveOrders:        len(b.Active),
	}
}
