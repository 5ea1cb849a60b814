package kitchen

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/kds/internal/adapter/logger"
	"github.com/YelzhanWeb/kds/internal/app/ingest"
	"github.com/YelzhanWeb/kds/internal/domain"
	"github.com/YelzhanWeb/kds/internal/interfaces"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeUpdater struct {
	mu    sync.Mutex
	err   error
	calls []domain.Status
}

func (f *fakeUpdater) UpdateOrderStatus(ctx context.Context, orderID int64, status domain.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, status)
	return f.err
}

type recordingNotifier struct {
	mu       sync.Mutex
	arrivals []domain.ArrivalNotification
	failures []domain.FailureNotice
	alarms   []domain.StaleAlarm
}

func (n *recordingNotifier) OrdersArrived(ctx context.Context, a domain.ArrivalNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.arrivals = append(n.arrivals, a)
	return nil
}

func (n *recordingNotifier) TransitionFailed(ctx context.Context, f domain.FailureNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, f)
	return nil
}

func (n *recordingNotifier) StaleChanged(ctx context.Context, a domain.StaleAlarm) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alarms = append(n.alarms, a)
	return nil
}

func (n *recordingNotifier) counts() (int, int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.arrivals), len(n.failures), len(n.alarms)
}

type harness struct {
	svc      *Service
	events   chan ingest.Event
	updater  *fakeUpdater
	notifier *recordingNotifier
	cancel   context.CancelFunc
	done     chan error
}

func start(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		events:   make(chan ingest.Event),
		updater:  &fakeUpdater{},
		notifier: &recordingNotifier{},
		done:     make(chan error, 1),
	}
	h.svc = NewService(h.updater, h.notifier, nil, logger.Nop(), opts)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.svc.Run(ctx, h.events) }()

	t.Cleanup(func() {
		cancel()
		<-h.done
	})
	return h
}

func (h *harness) pull(at time.Time, orders ...domain.KitchenOrder) {
	h.events <- ingest.PullSucceeded{Orders: orders, RequestedAt: at, CompletedAt: at}
}

// sync waits until the loop has processed everything sent before it.
func (h *harness) sync(t *testing.T) {
	t.Helper()
	err := h.svc.ApplyPatch(context.Background(), domain.DetailPatch{LineItemID: -1})
	require.True(t, errors.Is(err, domain.ErrInvalidPatch))
}

func received(id int64) domain.KitchenOrder {
	return domain.KitchenOrder{ID: id, CreatedAt: t0, Status: domain.StatusReceived}
}

func boardIDs(b *interfaces.Board) []int64 {
	var out []int64
	for _, o := range b.Active {
		out = append(out, o.ID)
	}
	return out
}

func TestServiceArrivalNotification(t *testing.T) {
	h := start(t, Options{})

	h.pull(t0, received(1))
	h.pull(t0.Add(3*time.Second), received(1), received(2))
	h.pull(t0.Add(6*time.Second), received(1), received(2))
	h.sync(t)

	arrivals, _, _ := h.notifier.counts()
	require.Equal(t, 1, arrivals)
	assert.Equal(t, []int64{2}, h.notifier.arrivals[0].OrderIDs)
	assert.Equal(t, []int64{1, 2}, boardIDs(h.svc.Board()))
}

func TestServicePushBeforeFirstPullDoesNotNotify(t *testing.T) {
	h := start(t, Options{})

	h.events <- ingest.OrderArrived{Order: received(5), ReceivedAt: t0}
	h.pull(t0.Add(time.Second), received(1), received(2), received(3))
	h.sync(t)

	arrivals, _, _ := h.notifier.counts()
	assert.Zero(t, arrivals)
	assert.Equal(t, []int64{1, 2, 3}, boardIDs(h.svc.Board()))
}

func TestServiceTransitionRollback(t *testing.T) {
	h := start(t, Options{})
	h.updater.err = errors.New("backend returned 409")

	h.pull(t0, received(1))
	err := h.svc.RequestTransition(context.Background(), 1, domain.StatusInPreparation)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTransitionRejected))

	b := h.svc.Board()
	require.Len(t, b.Active, 1)
	assert.Equal(t, domain.StatusReceived, b.Active[0].Status)
	assert.Empty(t, b.Pending)

	_, failures, _ := h.notifier.counts()
	assert.Equal(t, 1, failures)
}

func TestServiceTransitionConfirmed(t *testing.T) {
	h := start(t, Options{})

	h.pull(t0, received(1))
	require.NoError(t, h.svc.RequestTransition(context.Background(), 1, domain.StatusInPreparation))
	require.NoError(t, h.svc.RequestTransition(context.Background(), 1, domain.StatusDelivered))

	assert.Empty(t, h.svc.Board().Active)
	assert.Equal(t, []domain.Status{domain.StatusInPreparation, domain.StatusDelivered}, h.updater.calls)
}

func TestServiceInvalidTransitionSkipsBackend(t *testing.T) {
	h := start(t, Options{})

	h.pull(t0, received(1))
	err := h.svc.RequestTransition(context.Background(), 1, domain.StatusDelivered)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
	assert.Empty(t, h.updater.calls)
}

func TestServiceStaleAlarm(t *testing.T) {
	clock := t0
	var mu sync.Mutex
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}
	h := start(t, Options{MaxStaleness: 10 * time.Second, Now: now})

	h.pull(t0, received(1))
	h.events <- ingest.PullFailed{Err: domain.ErrTransport, At: t0.Add(3 * time.Second)}
	h.sync(t)
	assert.False(t, h.svc.Board().Stale)

	h.events <- ingest.PullFailed{Err: domain.ErrTransport, At: t0.Add(12 * time.Second)}
	h.events <- ingest.PullFailed{Err: domain.ErrTransport, At: t0.Add(15 * time.Second)}
	h.sync(t)

	b := h.svc.Board()
	assert.True(t, b.Stale)
	assert.Equal(t, 3, b.ConsecutiveFailures)

	_, _, alarms := h.notifier.counts()
	require.Equal(t, 1, alarms, "raised once")
	assert.True(t, h.notifier.alarms[0].Raised)

	h.pull(t0.Add(18*time.Second), received(1))
	h.sync(t)

	b = h.svc.Board()
	assert.False(t, b.Stale)
	assert.Zero(t, b.ConsecutiveFailures)
	_, _, alarms = h.notifier.counts()
	require.Equal(t, 2, alarms)
	assert.False(t, h.notifier.alarms[1].Raised)
}

func TestServiceStaleWithoutPullResult(t *testing.T) {
	h := start(t, Options{MaxStaleness: 150 * time.Millisecond})

	// a hung pull produces neither success nor failure
	require.Eventually(t, func() bool {
		return h.svc.Board().Stale
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(300 * time.Millisecond)
	_, _, alarms := h.notifier.counts()
	require.Equal(t, 1, alarms, "raised once")
	assert.True(t, h.notifier.alarms[0].Raised)
	assert.Zero(t, h.svc.Board().ConsecutiveFailures)

	h.pull(time.Now(), received(1))
	h.sync(t)

	assert.False(t, h.svc.Board().Stale)
	_, _, alarms = h.notifier.counts()
	assert.Equal(t, 2, alarms)
}

func TestServicePatches(t *testing.T) {
	h := start(t, Options{})
	urgent := domain.PriorityUrgent

	order := received(1)
	order.Items = []domain.LineItem{{ID: 10, Priority: domain.PriorityNormal}}
	h.pull(t0, order)

	h.events <- ingest.PatchArrived{Patch: domain.DetailPatch{LineItemID: 99, Priority: &urgent}, ReceivedAt: t0}
	require.NoError(t, h.svc.ApplyPatch(context.Background(), domain.DetailPatch{LineItemID: 10, Priority: &urgent}))

	b := h.svc.Board()
	require.Len(t, b.Orders, 1)
	assert.Equal(t, domain.PriorityUrgent, b.Orders[0].Items[0].Priority)
}

func TestServiceStopped(t *testing.T) {
	h := start(t, Options{})
	h.cancel()
	require.NoError(t, <-h.done)
	h.done <- nil

	err := h.svc.RequestTransition(context.Background(), 1, domain.StatusInPreparation)
	assert.True(t, errors.Is(err, domain.ErrStopped))
}

func TestSnapshotBoard(t *testing.T) {
	delivered := received(2)
	delivered.Status = domain.StatusDelivered

	b := SnapshotBoard([]domain.KitchenOrder{received(1), delivered}, t0)

	assert.Len(t, b.Orders, 2)
	assert.Equal(t, []int64{1}, boardIDs(b))
	assert.Equal(t, t0, b.LastPullAt)
}
