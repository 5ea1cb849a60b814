// Package notify decides when a batch of new orders deserves an arrival alert.
package notify

import (
	"time"

	"github.com/google/uuid"

	"github.com/YelzhanWeb/kds/internal/domain"
)

// Detector remembers the previous active count and every order id seen this session.
type Detector struct {
	prevCount int
	seen      map[int64]struct{}
	now       func() time.Time
}

func NewDetector(now func() time.Time) *Detector {
	if now == nil {
		now = time.Now
	}
	return &Detector{seen: make(map[int64]struct{}), now: now}
}

// Observe inspects a new snapshot. It fires when the active count grew past a non-zero
// previous count and at least one order never seen before is in received state.
// all is the full working set; seen ids that left it are forgotten.
func (d *Detector) Observe(active, all []domain.KitchenOrder) (domain.ArrivalNotification, bool) {
	var fresh []int64
	freshReceived := false
	for _, o := range active {
		if _, ok := d.seen[o.ID]; ok {
			continue
		}
		fresh = append(fresh, o.ID)
		if o.Status == domain.StatusReceived {
			freshReceived = true
		}
	}

	prev := d.prevCount
	d.prevCount = len(active)

	present := make(map[int64]struct{}, len(all)+len(active))
	for _, o := range all {
		present[o.ID] = struct{}{}
	}
	for _, o := range active {
		present[o.ID] = struct{}{}
	}
	for id := range d.seen {
		if _, ok := present[id]; !ok {
			delete(d.seen, id)
		}
	}
	for id := range present {
		d.seen[id] = struct{}{}
	}

	if len(active) <= prev || prev == 0 || !freshReceived {
		return domain.ArrivalNotification{}, false
	}

	return domain.ArrivalNotification{
		ID:        uuid.NewString(),
		Count:     len(active) - prev,
		OrderIDs:  fresh,
		CreatedAt: d.now(),
	}, true
}

// Count is the active count remembered from the last snapshot.
func (d *Detector) Count() int {
	return d.prevCount
}
