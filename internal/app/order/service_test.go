package order

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/kds/internal/adapter/logger"
	"github.com/YelzhanWeb/kds/internal/domain"
	"github.com/YelzhanWeb/kds/internal/interfaces"
)

type fakeKitchen struct {
	transitions []domain.Status
	patches     []domain.DetailPatch
	err         error
}

func (f *fakeKitchen) RequestTransition(ctx context.Context, orderID int64, target domain.Status) error {
	f.transitions = append(f.transitions, target)
	return f.err
}

func (f *fakeKitchen) ApplyPatch(ctx context.Context, patch domain.DetailPatch) error {
	f.patches = append(f.patches, patch)
	return nil
}

func (f *fakeKitchen) Board() *interfaces.Board { return &interfaces.Board{} }

type fakeItems struct {
	err   error
	calls int
}

func (f *fakeItems) UpdateLineItem(ctx context.Context, patch domain.DetailPatch) (*domain.LineItem, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	item := &domain.LineItem{ID: patch.LineItemID}
	patch.Apply(item)
	return item, nil
}

func TestChangeStatus(t *testing.T) {
	k := &fakeKitchen{}
	svc := NewService(k, &fakeItems{}, logger.Nop())

	require.NoError(t, svc.ChangeStatus(context.Background(), 1, domain.StatusInPreparation))
	assert.Equal(t, []domain.Status{domain.StatusInPreparation}, k.transitions)

	err := svc.ChangeStatus(context.Background(), 1, domain.Status("ready"))
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
	assert.Len(t, k.transitions, 1)
}

func TestUpdateLineItem(t *testing.T) {
	k := &fakeKitchen{}
	items := &fakeItems{}
	svc := NewService(k, items, logger.Nop())

	station := "grill"
	item, err := svc.UpdateLineItem(context.Background(), domain.DetailPatch{LineItemID: 4, Station: &station})
	require.NoError(t, err)
	assert.Equal(t, "grill", item.Station)
	assert.Len(t, k.patches, 1)
}

func TestUpdateLineItemValidation(t *testing.T) {
	bogus := domain.Priority("asap")
	negative := -3

	tests := []struct {
		name  string
		patch domain.DetailPatch
	}{
		{"no id", domain.DetailPatch{}},
		{"empty", domain.DetailPatch{LineItemID: 1}},
		{"bad priority", domain.DetailPatch{LineItemID: 1, Priority: &bogus}},
		{"negative estimate", domain.DetailPatch{LineItemID: 1, EstimatedMinutes: &negative}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := &fakeItems{}
			_, err := NewService(&fakeKitchen{}, items, logger.Nop()).UpdateLineItem(context.Background(), tt.patch)
			assert.True(t, errors.Is(err, domain.ErrInvalidPatch))
			assert.Zero(t, items.calls)
		})
	}
}

func TestUpdateLineItemBackendFailure(t *testing.T) {
	k := &fakeKitchen{}
	items := &fakeItems{err: domain.ErrTransport}
	minutes := 5

	_, err := NewService(k, items, logger.Nop()).UpdateLineItem(context.Background(), domain.DetailPatch{LineItemID: 2, EstimatedMinutes: &minutes})
	assert.True(t, errors.Is(err, domain.ErrTransport))
	assert.Empty(t, k.patches)
}
