package domain

import "time"

// ArrivalNotification announces a batch of newly-appeared orders in received state.
// Audible alert, haptic pulse and banner are dispatched by notifiers.
type ArrivalNotification struct {
	ID        string
	Count     int
	OrderIDs  []int64
	CreatedAt time.Time
}

// FailureNotice is produced when the backend refuses a status change that was applied optimistically.
type FailureNotice struct {
	ID         string
	OrderID    int64
	From       Status
	Target     Status
	Reason     string
	OccurredAt time.Time
}

// StaleAlarm is raised when pulls keep failing and cleared on the next successful pull.
type StaleAlarm struct {
	Raised              bool
	LastSuccess         time.Time
	ConsecutiveFailures int
	OccurredAt          time.Time
}
