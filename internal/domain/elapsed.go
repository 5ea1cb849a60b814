package domain

import (
	"fmt"
	"time"
)

// Tier is the escalation bucket used to flag aging orders.
type Tier string

const (
	TierNormal   Tier = "normal"
	TierCaution  Tier = "caution"
	TierWarning  Tier = "warning"
	TierCritical Tier = "critical"
)

// Elapsed turns an order timestamp into a short display string and its escalation tier.
// Clock skew that puts createdAt in the future counts as zero.
func Elapsed(createdAt, now time.Time) (string, Tier) {
	d := now.Sub(createdAt)
	if d < 0 {
		d = 0
	}
	return FormatElapsed(d), TierFor(d)
}

func FormatElapsed(d time.Duration) string {
	secs := int64(d / time.Second)
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm", secs/60)
	default:
		return fmt.Sprintf("%dh", secs/3600)
	}
}

// TierFor buckets by whole minutes: <5 normal, <15 caution, <30 warning, else critical.
func TierFor(d time.Duration) Tier {
	minutes := int64(d / time.Minute)
	switch {
	case minutes < 5:
		return TierNormal
	case minutes < 15:
		return TierCaution
	case minutes < 30:
		return TierWarning
	default:
		return TierCritical
	}
}
