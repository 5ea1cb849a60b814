package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/kds/internal/adapter/logger"
	"github.com/YelzhanWeb/kds/internal/domain"
	"github.com/YelzhanWeb/kds/internal/interfaces"
)

type staticBoard struct {
	board *interfaces.Board
}

func (s staticBoard) Board() *interfaces.Board { return s.board }

func TestActiveOrders(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	board := &interfaces.Board{
		Active: []domain.KitchenOrder{
			{ID: 1, CreatedAt: now.Add(-40 * time.Second), Status: domain.StatusReceived},
			{ID: 2, CreatedAt: now.Add(-7 * time.Minute), Status: domain.StatusInPreparation},
			{ID: 3, CreatedAt: now.Add(-2 * time.Hour), Status: domain.StatusInPreparation},
		},
		Pending: map[int64]domain.Status{2: domain.StatusInPreparation},
	}

	svc := NewService(staticBoard{board}, logger.Nop(), func() time.Time { return now })
	view, err := svc.ActiveOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, view.Orders, 3)

	assert.Equal(t, "40s", view.Orders[0].Elapsed)
	assert.Equal(t, domain.TierNormal, view.Orders[0].Tier)
	require.NotNil(t, view.Orders[0].NextStatus)
	assert.Equal(t, domain.StatusInPreparation, *view.Orders[0].NextStatus)
	assert.False(t, view.Orders[0].Pending)

	assert.Equal(t, "7m", view.Orders[1].Elapsed)
	assert.Equal(t, domain.TierCaution, view.Orders[1].Tier)
	assert.True(t, view.Orders[1].Pending)

	assert.Equal(t, "2h", view.Orders[2].Elapsed)
	assert.Equal(t, domain.TierCritical, view.Orders[2].Tier)
	assert.Equal(t, now, view.GeneratedAt)
}

func TestHealth(t *testing.T) {
	last := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	board := &interfaces.Board{
		Active:              []domain.KitchenOrder{{ID: 1}},
		Stale:               true,
		ConsecutiveFailures: 11,
		LastPullAt:          last,
	}

	h := NewService(staticBoard{board}, logger.Nop(), nil).Health(context.Background())

	assert.False(t, h.Healthy)
	assert.True(t, h.Stale)
	assert.Equal(t, 11, h.ConsecutiveFailures)
	assert.Equal(t, 1, h.ActiveOrders)
	assert.Equal(t, last, h.LastPullAt)
}
