package reconcile

import (
	"time"

	"github.com/YelzhanWeb/kds/internal/domain"
)

type pushedOrder struct {
	order      domain.KitchenOrder
	receivedAt time.Time
}

type bufferedPatch struct {
	patch      domain.DetailPatch
	receivedAt time.Time
}

type overlay struct {
	transition  domain.Transition
	confirmed   bool
	confirmedAt time.Time
}

// Reconciler owns the working set. It is not safe for concurrent use; the kitchen
// loop is its only caller.
type Reconciler struct {
	pull            []domain.KitchenOrder
	pullRequestedAt time.Time
	hasPull         bool

	// most recently arrived first
	pushed []pushedOrder

	// one merged patch per line item, in first-arrival order; receivedAt is the latest arrival
	patches []bufferedPatch

	// per order, in request order; a confirmed step can be followed by the next one
	// before any pull has caught up
	overlays map[int64][]*overlay

	orders []domain.KitchenOrder
	index  map[int64]int
}

func New() *Reconciler {
	return &Reconciler{
		overlays: make(map[int64][]*overlay),
		index:    make(map[int64]int),
	}
}

// IngestPull replaces the pull snapshot. requestedAt is when the pull was issued: pushed
// orders and detail patches that arrived before it are now covered by the snapshot, either
// as members (pull wins) or by omission (the backend purged them), and are dropped.
func (r *Reconciler) IngestPull(orders []domain.KitchenOrder, requestedAt time.Time) {
	r.pull = append(r.pull[:0:0], orders...)
	r.pullRequestedAt = requestedAt
	r.hasPull = true

	inPull := make(map[int64]struct{}, len(orders))
	for _, o := range orders {
		inPull[o.ID] = struct{}{}
	}

	kept := r.pushed[:0]
	for _, p := range r.pushed {
		if _, ok := inPull[p.order.ID]; ok {
			continue
		}
		if p.receivedAt.Before(requestedAt) {
			continue
		}
		kept = append(kept, p)
	}
	r.pushed = kept

	patches := r.patches[:0]
	for _, p := range r.patches {
		if !p.receivedAt.Before(requestedAt) {
			patches = append(patches, p)
		}
	}
	r.patches = patches

	for id, stack := range r.overlays {
		kept := stack[:0]
		for _, ov := range stack {
			if ov.confirmed && ov.confirmedAt.Before(requestedAt) {
				continue
			}
			kept = append(kept, ov)
		}
		r.setOverlays(id, kept)
	}

	r.rebuild()
}

// IngestNewOrder records a push-delivered order. It is ignored when the current pull
// snapshot already has the id.
func (r *Reconciler) IngestNewOrder(order domain.KitchenOrder, receivedAt time.Time) {
	for _, o := range r.pull {
		if o.ID == order.ID {
			return
		}
	}

	kept := r.pushed[:0]
	for _, p := range r.pushed {
		if p.order.ID != order.ID {
			kept = append(kept, p)
		}
	}
	r.pushed = append([]pushedOrder{{order: order.Clone(), receivedAt: receivedAt}}, kept...)

	r.rebuild()
}

// IngestPatch buffers a detail patch until a pull issued after receivedAt replaces it, and
// reports whether it landed on a known line item. Orphan patches are dropped immediately.
func (r *Reconciler) IngestPatch(p domain.DetailPatch, receivedAt time.Time) bool {
	merged := false
	for i := range r.patches {
		if r.patches[i].patch.LineItemID == p.LineItemID {
			r.patches[i].patch = r.patches[i].patch.Merge(p)
			if receivedAt.After(r.patches[i].receivedAt) {
				r.patches[i].receivedAt = receivedAt
			}
			merged = true
			break
		}
	}
	if !merged {
		r.patches = append(r.patches, bufferedPatch{patch: p, receivedAt: receivedAt})
	}

	return r.rebuild()[p.LineItemID]
}

// Overlay applies an optimistic status change.
func (r *Reconciler) Overlay(t domain.Transition) {
	r.overlays[t.OrderID] = append(r.overlays[t.OrderID], &overlay{transition: t})
	r.rebuild()
}

// Restore removes the optimistic change so the order shows its authoritative status again.
func (r *Reconciler) Restore(t domain.Transition) {
	stack := r.overlays[t.OrderID]
	kept := stack[:0]
	for _, ov := range stack {
		if ov.transition != t {
			kept = append(kept, ov)
		}
	}
	r.setOverlays(t.OrderID, kept)
	r.rebuild()
}

// Settle marks the change as accepted by the backend. The overlay stays until a pull
// issued after at reflects it.
func (r *Reconciler) Settle(t domain.Transition, at time.Time) {
	for _, ov := range r.overlays[t.OrderID] {
		if ov.transition == t {
			ov.confirmed = true
			ov.confirmedAt = at
		}
	}
	r.rebuild()
}

// Pending reports the in-flight (unconfirmed) targets keyed by order id.
func (r *Reconciler) Pending() map[int64]domain.Status {
	out := make(map[int64]domain.Status)
	for id, stack := range r.overlays {
		for _, ov := range stack {
			if !ov.confirmed {
				out[id] = ov.transition.To
			}
		}
	}
	return out
}

// InFlight reports whether an unconfirmed transition exists for the order.
func (r *Reconciler) InFlight(orderID int64) bool {
	for _, ov := range r.overlays[orderID] {
		if !ov.confirmed {
			return true
		}
	}
	return false
}

func (r *Reconciler) Order(id int64) (domain.KitchenOrder, bool) {
	i, ok := r.index[id]
	if !ok {
		return domain.KitchenOrder{}, false
	}
	return r.orders[i].Clone(), true
}

// Orders returns a copy of the full working set, terminal orders included.
func (r *Reconciler) Orders() []domain.KitchenOrder {
	out := make([]domain.KitchenOrder, len(r.orders))
	for i, o := range r.orders {
		out[i] = o.Clone()
	}
	return out
}

// Active is the operator projection: non-terminal orders in working set order.
func (r *Reconciler) Active() []domain.KitchenOrder {
	return domain.ActiveOnly(r.Orders())
}

func (r *Reconciler) HasPull() bool {
	return r.hasPull
}

func (r *Reconciler) setOverlays(orderID int64, stack []*overlay) {
	if len(stack) == 0 {
		delete(r.overlays, orderID)
		return
	}
	r.overlays[orderID] = stack
}

func (r *Reconciler) rebuild() map[int64]bool {
	pushed := make([]domain.KitchenOrder, len(r.pushed))
	for i, p := range r.pushed {
		pushed[i] = p.order
	}

	patches := make([]domain.DetailPatch, len(r.patches))
	for i, p := range r.patches {
		patches[i] = p.patch
	}

	res := Reconcile(r.pull, pushed, patches)

	kept := r.patches[:0]
	for _, p := range r.patches {
		if res.Matched[p.patch.LineItemID] {
			kept = append(kept, p)
		}
	}
	r.patches = kept

	r.orders = res.Orders
	r.index = make(map[int64]int, len(r.orders))
	for i := range r.orders {
		r.index[r.orders[i].ID] = i
	}

	for id, stack := range r.overlays {
		i, ok := r.index[id]
		if !ok {
			continue
		}
		for _, ov := range stack {
			ov.transition.Apply(&r.orders[i])
		}
	}

	return res.Matched
}
