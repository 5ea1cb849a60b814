// Package push decodes real-time frames shared by every push transport.
package push

import (
	"encoding/json"
	"fmt"

	"github.com/YelzhanWeb/kds/internal/adapter/backend"
	"github.com/YelzhanWeb/kds/internal/interfaces"
)

const (
	EventNewOrder    = "new_order"
	EventDetailPatch = "detail_patch"
)

// the backend's socket event names
var aliases = map[string]string{
	"nueva-orden-cocina":     EventNewOrder,
	"actualizar-detalle-kds": EventDetailPatch,
}

type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ErrUnknownEvent is returned for well-formed frames this core does not consume.
type ErrUnknownEvent struct {
	Event string
}

func (e ErrUnknownEvent) Error() string {
	return fmt.Sprintf("unknown push event %q", e.Event)
}

// Decode turns one frame into a push event.
func Decode(raw []byte) (interfaces.PushEvent, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return interfaces.PushEvent{}, fmt.Errorf("failed to decode push frame: %w", err)
	}

	name := f.Event
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}

	switch name {
	case EventNewOrder:
		o, err := backend.DecodeOrder(f.Data)
		if err != nil {
			return interfaces.PushEvent{}, err
		}
		return interfaces.PushEvent{Order: &o}, nil

	case EventDetailPatch:
		p, err := backend.DecodeDetail(f.Data)
		if err != nil {
			return interfaces.PushEvent{}, err
		}
		return interfaces.PushEvent{Patch: &p}, nil

	default:
		return interfaces.PushEvent{}, ErrUnknownEvent{Event: f.Event}
	}
}
