// Package reconcile merges the pull snapshot and push events into one de-duplicated
// working set keyed by order id.
package reconcile

import (
	"github.com/YelzhanWeb/kds/internal/domain"
)

// Result is the outcome of one merge pass.
type Result struct {
	Orders []domain.KitchenOrder
	// Matched holds the line item ids whose patch found a live target.
	Matched map[int64]bool
}

// Reconcile builds the working set from the latest pull snapshot, the push-origin orders
// (most recently arrived first) and the buffered detail patches.
//
// Pull is authoritative for membership and order-level fields: a pushed order whose id is
// in the pull snapshot is ignored. Pushed orders absent from pull are prepended. Patches
// overlay the first matching line item of a non-terminal order; anything else is left out
// of Matched so the caller can discard it. Output never holds two orders with the same id.
func Reconcile(pull, pushed []domain.KitchenOrder, patches []domain.DetailPatch) Result {
	inPull := make(map[int64]struct{}, len(pull))
	for _, o := range pull {
		inPull[o.ID] = struct{}{}
	}

	seen := make(map[int64]struct{}, len(pull)+len(pushed))
	orders := make([]domain.KitchenOrder, 0, len(pull)+len(pushed))

	for _, o := range pushed {
		if _, ok := inPull[o.ID]; ok {
			continue
		}
		if _, dup := seen[o.ID]; dup {
			continue
		}
		seen[o.ID] = struct{}{}
		orders = append(orders, o.Clone())
	}

	for _, o := range pull {
		if _, dup := seen[o.ID]; dup {
			continue
		}
		seen[o.ID] = struct{}{}
		orders = append(orders, o.Clone())
	}

	type slot struct{ order, item int }
	items := make(map[int64]slot)
	for oi := range orders {
		if !orders[oi].Active() {
			continue
		}
		for ii := range orders[oi].Items {
			id := orders[oi].Items[ii].ID
			if _, taken := items[id]; !taken {
				items[id] = slot{oi, ii}
			}
		}
	}

	matched := make(map[int64]bool)
	for _, p := range patches {
		s, ok := items[p.LineItemID]
		if !ok {
			continue
		}
		p.Apply(&orders[s.order].Items[s.item])
		matched[p.LineItemID] = true
	}

	return Result{Orders: orders, Matched: matched}
}
