// Package kitchen runs the single event loop that owns the working set.
package kitchen

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/YelzhanWeb/kds/internal/adapter/logger"
	"github.com/YelzhanWeb/kds/internal/app/ingest"
	"github.com/YelzhanWeb/kds/internal/app/notify"
	"github.com/YelzhanWeb/kds/internal/app/reconcile"
	"github.com/YelzhanWeb/kds/internal/app/transition"
	"github.com/YelzhanWeb/kds/internal/domain"
	"github.com/YelzhanWeb/kds/internal/interfaces"
)

type Options struct {
	MaxStaleness time.Duration
	Now          func() time.Time
}

type transitionRequest struct {
	orderID int64
	target  domain.Status
	reply   chan error
}

type transitionResult struct {
	transition domain.Transition
	err        error
	reply      chan error
}

type patchRequest struct {
	patch domain.DetailPatch
	reply chan error
}

// Service serializes gateway events, operator commands and backend results onto one
// goroutine. Readers only ever see immutable Board snapshots.
type Service struct {
	updater  interfaces.OrderStatusUpdater
	notifier interfaces.Notifier
	metrics  interfaces.Metrics
	logger   logger.Logger
	opts     Options

	rec      *reconcile.Reconciler
	machine  *transition.Machine
	detector *notify.Detector

	inbox   chan any
	results chan transitionResult
	done    chan struct{}
	started atomic.Bool

	board atomic.Pointer[interfaces.Board]

	// loop-owned
	lastSuccess time.Time
	lastPullAt  time.Time
	failures    int
	stale       bool
	version     uint64
}

var _ interfaces.KitchenService = (*Service)(nil)

func NewService(
	updater interfaces.OrderStatusUpdater,
	notifier interfaces.Notifier,
	metrics interfaces.Metrics,
	logger logger.Logger,
	opts Options,
) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxStaleness <= 0 {
		opts.MaxStaleness = 30 * time.Second
	}
	if metrics == nil {
		metrics = interfaces.NopMetrics{}
	}

	rec := reconcile.New()
	s := &Service{
		updater:  updater,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		opts:     opts,
		rec:      rec,
		machine:  transition.New(rec, opts.Now),
		detector: notify.NewDetector(opts.Now),
		inbox:    make(chan any),
		results:  make(chan transitionResult),
		done:     make(chan struct{}),
	}
	s.board.Store(&interfaces.Board{Pending: map[int64]domain.Status{}})
	return s
}

// Board returns the latest published snapshot. Callers must not modify it.
func (s *Service) Board() *interfaces.Board {
	return s.board.Load()
}

// Run consumes events until ctx is cancelled or the channel closes. In-flight backend
// calls are not cancelled; their results are dropped once Run has returned.
func (s *Service) Run(ctx context.Context, events <-chan ingest.Event) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("kitchen service already running")
	}
	defer close(s.done)

	s.lastSuccess = s.opts.Now()

	check := time.NewTicker(staleCheckInterval(s.opts.MaxStaleness))
	defer check.Stop()

	s.logger.Info("kitchen_started", "Kitchen loop started", "", map[string]interface{}{
		"max_staleness": s.opts.MaxStaleness.String(),
	})

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("kitchen_stopped", "Kitchen loop stopped", "", nil)
			return nil

		case evt, ok := <-events:
			if !ok {
				s.logger.Info("kitchen_stopped", "Event channel closed", "", nil)
				return nil
			}
			s.handleEvent(ctx, evt)

		case msg := <-s.inbox:
			switch req := msg.(type) {
			case transitionRequest:
				s.beginTransition(ctx, req)
			case patchRequest:
				s.applyPatch(req)
			}

		case res := <-s.results:
			s.completeTransition(ctx, res)

		case <-check.C:
			s.checkStale(ctx, s.opts.Now())
		}
	}
}

// RequestTransition applies the change optimistically and waits for the backend verdict.
func (s *Service) RequestTransition(ctx context.Context, orderID int64, target domain.Status) error {
	reply := make(chan error, 1)
	if err := s.send(ctx, transitionRequest{orderID: orderID, target: target, reply: reply}); err != nil {
		return err
	}
	return s.wait(ctx, reply)
}

// ApplyPatch feeds a locally-originated detail patch through the same path as push patches.
func (s *Service) ApplyPatch(ctx context.Context, patch domain.DetailPatch) error {
	reply := make(chan error, 1)
	if err := s.send(ctx, patchRequest{patch: patch, reply: reply}); err != nil {
		return err
	}
	return s.wait(ctx, reply)
}

func (s *Service) send(ctx context.Context, msg any) error {
	select {
	case s.inbox <- msg:
		return nil
	case <-s.done:
		return domain.ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) wait(ctx context.Context, reply <-chan error) error {
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return domain.ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) handleEvent(ctx context.Context, evt ingest.Event) {
	switch e := evt.(type) {
	case ingest.PullSucceeded:
		s.rec.IngestPull(e.Orders, e.RequestedAt)
		s.lastSuccess = e.CompletedAt
		s.lastPullAt = e.CompletedAt
		s.failures = 0
		s.metrics.PullCompleted(true, len(e.Orders))
		s.logger.Debug("pull_ingested", "Pull snapshot ingested", "", map[string]interface{}{
			"orders": len(e.Orders),
		})
		if s.stale {
			s.setStale(ctx, false, e.CompletedAt)
		}

	case ingest.PullFailed:
		s.failures++
		s.metrics.PullCompleted(false, 0)
		s.logger.Warn("pull_failed", "Pull failed, retrying on next tick", "", map[string]interface{}{
			"consecutive_failures": s.failures,
			"error":                e.Err.Error(),
		})
		s.checkStale(ctx, e.At)

	case ingest.OrderArrived:
		s.metrics.PushReceived("new_order")
		s.rec.IngestNewOrder(e.Order, e.ReceivedAt)

	case ingest.PatchArrived:
		s.metrics.PushReceived("detail_patch")
		s.ingestPatch(e.Patch, e.ReceivedAt)
	}

	s.observe(ctx)
	s.publish()
}

func (s *Service) ingestPatch(patch domain.DetailPatch, at time.Time) bool {
	if s.rec.IngestPatch(patch, at) {
		return true
	}
	s.metrics.OrphanPatch()
	s.logger.Debug("patch_dropped", "Detail patch dropped", "", map[string]interface{}{
		"line_item_id": patch.LineItemID,
		"reason":       domain.ErrOrphanPatch.Error(),
	})
	return false
}

func (s *Service) applyPatch(req patchRequest) {
	if req.patch.Empty() {
		req.reply <- fmt.Errorf("line item %d: %w", req.patch.LineItemID, domain.ErrInvalidPatch)
		return
	}
	s.ingestPatch(req.patch, s.opts.Now())
	s.publish()
	req.reply <- nil
}

func (s *Service) beginTransition(ctx context.Context, req transitionRequest) {
	t, err := s.machine.Begin(req.orderID, req.target)
	if err != nil {
		s.logger.Debug("transition_refused", "Status transition refused", "", map[string]interface{}{
			"order_id": req.orderID,
			"target":   req.target,
			"error":    err.Error(),
		})
		req.reply <- err
		return
	}

	s.logger.Info("transition_started", fmt.Sprintf("Order %d: %s -> %s", t.OrderID, t.From, t.To), "", map[string]interface{}{
		"order_id": t.OrderID,
	})
	s.publish()

	callCtx := context.WithoutCancel(ctx)
	go func() {
		err := s.updater.UpdateOrderStatus(callCtx, t.OrderID, t.To)
		select {
		case s.results <- transitionResult{transition: t, err: err, reply: req.reply}:
		case <-s.done:
		}
	}()
}

func (s *Service) completeTransition(ctx context.Context, res transitionResult) {
	notice, err := s.machine.Complete(res.transition, res.err)
	s.metrics.TransitionCompleted(string(res.transition.To), err == nil)

	if notice != nil {
		s.logger.Error("transition_rolled_back", fmt.Sprintf("Order %d reverted to %s", notice.OrderID, notice.From), "", map[string]interface{}{
			"order_id": notice.OrderID,
			"target":   notice.Target,
		}, err)
		if nerr := s.notifier.TransitionFailed(ctx, *notice); nerr != nil {
			s.logger.Error("notify_failed", "Failed to dispatch failure notice", "", nil, nerr)
		}
	} else {
		s.logger.Info("transition_confirmed", fmt.Sprintf("Order %d is %s", res.transition.OrderID, res.transition.To), "", nil)
	}

	s.observe(ctx)
	s.publish()
	res.reply <- err
}

func (s *Service) observe(ctx context.Context) {
	// nothing to compare against until the first snapshot lands
	if !s.rec.HasPull() {
		return
	}

	n, ok := s.detector.Observe(s.rec.Active(), s.rec.Orders())
	if !ok {
		return
	}

	s.metrics.ArrivalNotified(n.Count)
	s.logger.Info("orders_arrived", fmt.Sprintf("%d new order(s)", n.Count), "", map[string]interface{}{
		"order_ids": n.OrderIDs,
	})
	if err := s.notifier.OrdersArrived(ctx, n); err != nil {
		s.logger.Error("notify_failed", "Failed to dispatch arrival notification", "", nil, err)
	}
}

func (s *Service) checkStale(ctx context.Context, now time.Time) {
	if s.stale {
		return
	}
	if now.Sub(s.lastSuccess) < s.opts.MaxStaleness {
		return
	}
	s.setStale(ctx, true, now)
	s.publish()
}

func (s *Service) setStale(ctx context.Context, raised bool, at time.Time) {
	s.stale = raised

	alarm := domain.StaleAlarm{
		Raised:              raised,
		LastSuccess:         s.lastSuccess,
		ConsecutiveFailures: s.failures,
		OccurredAt:          at,
	}

	if raised {
		s.logger.Warn("board_stale", "No successful pull within the staleness limit", "", map[string]interface{}{
			"last_success":         s.lastSuccess,
			"consecutive_failures": s.failures,
		})
	} else {
		s.logger.Info("board_fresh", "Pull recovered", "", nil)
	}

	if err := s.notifier.StaleChanged(ctx, alarm); err != nil {
		s.logger.Error("notify_failed", "Failed to dispatch stale alarm", "", nil, err)
	}
}

func (s *Service) publish() {
	s.version++
	b := &interfaces.Board{
		Orders:              s.rec.Orders(),
		Active:              s.rec.Active(),
		Pending:             s.rec.Pending(),
		LastPullAt:          s.lastPullAt,
		ConsecutiveFailures: s.failures,
		Stale:               s.stale,
		Version:             s.version,
	}
	s.board.Store(b)
	s.metrics.BoardChanged(len(b.Active), b.Stale)
}

func staleCheckInterval(maxStaleness time.Duration) time.Duration {
	d := maxStaleness / 4
	if d < 100*time.Millisecond {
		d = 100 * time.Millisecond
	}
	return d
}

// SnapshotBoard reconciles a single pull without running the loop.
func SnapshotBoard(orders []domain.KitchenOrder, at time.Time) *interfaces.Board {
	rec := reconcile.New()
	rec.IngestPull(orders, at)
	return &interfaces.Board{
		Orders:     rec.Orders(),
		Active:     rec.Active(),
		Pending:    rec.Pending(),
		LastPullAt: at,
		Version:    1,
	}
}
