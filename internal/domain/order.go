package domain

import (
	"time"
)

// KitchenOrder represents an in-flight order as shown on the kitchen display
type KitchenOrder struct {
	ID          int64
	CreatedAt   time.Time
	Service     ServiceContext
	Status      Status
	Items       []LineItem
	GuestCount  int
	TotalAmount float64
	WaiterName  string
}

// ServiceContext describes where the order is served
type ServiceContext struct {
	Kind        ServiceKind
	TableNumber *int
}

// LineItem represents one product entry within an order
type LineItem struct {
	ID               int64
	ProductID        int64
	ProductName      string
	Quantity         int
	UnitPrice        float64
	Notes            string
	Priority         Priority
	Station          string
	EstimatedMinutes int
	Modifiers        []Modifier
}

type Modifier struct {
	Name     string
	Quantity int
}

// DetailPatch is a partial update for a single line item. Nil fields are left untouched.
type DetailPatch struct {
	LineItemID       int64
	Priority         *Priority
	Station          *string
	EstimatedMinutes *int
}

// Clone returns a deep copy so callers can mutate line items freely.
func (o KitchenOrder) Clone() KitchenOrder {
	c := o
	if o.Service.TableNumber != nil {
		n := *o.Service.TableNumber
		c.Service.TableNumber = &n
	}
	if o.Items != nil {
		c.Items = make([]LineItem, len(o.Items))
		for i, item := range o.Items {
			c.Items[i] = item
			if item.Modifiers != nil {
				c.Items[i].Modifiers = append([]Modifier(nil), item.Modifiers...)
			}
		}
	}
	return c
}

// Active reports whether the order still belongs on the kitchen display
func (o KitchenOrder) Active() bool {
	return !o.Status.IsTerminal()
}

// Item returns the index of the line item with the given id, or -1.
func (o KitchenOrder) Item(lineItemID int64) int {
	for i := range o.Items {
		if o.Items[i].ID == lineItemID {
			return i
		}
	}
	return -1
}

// Apply overlays the patch onto the line item. Applying the same patch twice is a no-op.
func (p DetailPatch) Apply(item *LineItem) {
	if p.Priority != nil {
		item.Priority = *p.Priority
	}
	if p.Station != nil {
		item.Station = *p.Station
	}
	if p.EstimatedMinutes != nil {
		item.EstimatedMinutes = *p.EstimatedMinutes
	}
}

// Merge folds a later patch for the same line item into p.
func (p DetailPatch) Merge(later DetailPatch) DetailPatch {
	out := p
	if later.Priority != nil {
		out.Priority = later.Priority
	}
	if later.Station != nil {
		out.Station = later.Station
	}
	if later.EstimatedMinutes != nil {
		out.EstimatedMinutes = later.EstimatedMinutes
	}
	return out
}

// Empty reports whether the patch carries no mutable field.
func (p DetailPatch) Empty() bool {
	return p.Priority == nil && p.Station == nil && p.EstimatedMinutes == nil
}

// ActiveOnly filters out terminal orders, preserving order.
func ActiveOnly(orders []KitchenOrder) []KitchenOrder {
	out := make([]KitchenOrder, 0, len(orders))
	for _, o := range orders {
		if o.Active() {
			out = append(out, o)
		}
	}
	return out
}
