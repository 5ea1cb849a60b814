package ingest

import (
	"time"

	"github.com/YelzhanWeb/kds/internal/domain"
)

// Event is one message on the gateway channel.
type Event interface {
	isEvent()
}

type PullSucceeded struct {
	Orders      []domain.KitchenOrder
	RequestedAt time.Time
	CompletedAt time.Time
}

type PullFailed struct {
	Err         error
	RequestedAt time.Time
	At          time.Time
}

type OrderArrived struct {
	Order      domain.KitchenOrder
	ReceivedAt time.Time
}

type PatchArrived struct {
	Patch      domain.DetailPatch
	ReceivedAt time.Time
}

func (PullSucceeded) isEvent() {}
func (PullFailed) isEvent()    {}
func (OrderArrived) isEvent()  {}
func (PatchArrived) isEvent()  {}
