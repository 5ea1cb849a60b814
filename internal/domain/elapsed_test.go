package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestElapsed(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		age      time.Duration
		wantText string
		wantTier Tier
	}{
		{"justCreated", 0, "0s", TierNormal},
		{"seconds", 42 * time.Second, "42s", TierNormal},
		{"underFive", 4*time.Minute + 59*time.Second, "4m", TierNormal},
		{"five", 5 * time.Minute, "5m", TierCaution},
		{"fourteen", 14*time.Minute + 59*time.Second, "14m", TierCaution},
		{"fifteen", 15 * time.Minute, "15m", TierWarning},
		{"twentyNine", 29*time.Minute + 59*time.Second, "29m", TierWarning},
		{"thirty", 30 * time.Minute, "30m", TierCritical},
		{"hours", 2*time.Hour + 10*time.Minute, "2h", TierCritical},
		{"futureTimestamp", -3 * time.Minute, "0s", TierNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, tier := Elapsed(now.Add(-tt.age), now)
			assert.Equal(t, tt.wantText, text)
			assert.Equal(t, tt.wantTier, tier)
		})
	}
}

func TestElapsedIsDeterministic(t *testing.T) {
	created := time.Date(2026, 3, 1, 11, 40, 0, 0, time.UTC)
	now := created.Add(20 * time.Minute)

	t1, tier1 := Elapsed(created, now)
	t2, tier2 := Elapsed(created, now)
	assert.Equal(t, t1, t2)
	assert.Equal(t, tier1, tier2)
}
