package domain

type Status string

const (
	StatusReceived      Status = "received"
	StatusInPreparation Status = "in_preparation"
	StatusDelivered     Status = "delivered"
	StatusCancelled     Status = "cancelled"
)

// validTransitions lists the legal targets for every status.
// Terminal statuses have no outgoing edges.
var validTransitions = map[Status][]Status{
	StatusReceived:      {StatusInPreparation, StatusCancelled},
	StatusInPreparation: {StatusDelivered, StatusCancelled},
	StatusDelivered:     {},
	StatusCancelled:     {},
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

// IsTerminal reports whether no further transitions are accepted from s.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo checks if the status can move to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Next returns the single forward step from s, if any.
func (s Status) Next() (Status, bool) {
	switch s {
	case StatusReceived:
		return StatusInPreparation, true
	case StatusInPreparation:
		return StatusDelivered, true
	default:
		return "", false
	}
}

// Rank orders statuses along the forward path. Cancelled ranks with the terminals.
func (s Status) Rank() int {
	switch s {
	case StatusReceived:
		return 0
	case StatusInPreparation:
		return 1
	case StatusDelivered, StatusCancelled:
		return 2
	default:
		return -1
	}
}

type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	return p == PriorityNormal || p == PriorityHigh || p == PriorityUrgent
}

type ServiceKind string

const (
	ServiceTable    ServiceKind = "table"
	ServiceDelivery ServiceKind = "delivery"
	ServiceTakeaway ServiceKind = "takeaway"
	ServiceCounter  ServiceKind = "counter"
)
