package order

import (
	"context"
	"fmt"

	"github.com/YelzhanWeb/kds/internal/adapter/logger"
	"github.com/YelzhanWeb/kds/internal/domain"
	"github.com/YelzhanWeb/kds/internal/interfaces"
)

// Service is the operator command entry point behind the HTTP view.
type Service struct {
	kitchen interfaces.KitchenService
	items   interfaces.LineItemUpdater
	logger  logger.Logger
}

func NewService(kitchen interfaces.KitchenService, items interfaces.LineItemUpdater, logger logger.Logger) *Service {
	return &Service{
		kitchen: kitchen,
		items:   items,
		logger:  logger,
	}
}

func (s *Service) ChangeStatus(ctx context.Context, orderID int64, target domain.Status) error {
	if !target.Valid() {
		return fmt.Errorf("unknown status %q: %w", target, domain.ErrInvalidTransition)
	}
	return s.kitchen.RequestTransition(ctx, orderID, target)
}

// UpdateLineItem forwards a routing edit to the backend and reflects it on the board
// without waiting for the push echo.
func (s *Service) UpdateLineItem(ctx context.Context, patch domain.DetailPatch) (*domain.LineItem, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	item, err := s.items.UpdateLineItem(ctx, patch)
	if err != nil {
		s.logger.Error("line_item_update_failed", "Backend refused line item update", "", map[string]interface{}{
			"line_item_id": patch.LineItemID,
		}, err)
		return nil, err
	}

	if err := s.kitchen.ApplyPatch(ctx, patch); err != nil {
		s.logger.Warn("line_item_local_apply_failed", "Line item updated but board not refreshed", "", map[string]interface{}{
			"line_item_id": patch.LineItemID,
			"error":        err.Error(),
		})
	}

	s.logger.Debug("line_item_updated", fmt.Sprintf("Line item %d updated", patch.LineItemID), "", nil)
	return item, nil
}

func validatePatch(p domain.DetailPatch) error {
	switch {
	case p.LineItemID <= 0:
		return fmt.Errorf("line item id %d: %w", p.LineItemID, domain.ErrInvalidPatch)
	case p.Empty():
		return fmt.Errorf("line item %d: no fields to update: %w", p.LineItemID, domain.ErrInvalidPatch)
	case p.Priority != nil && !p.Priority.Valid():
		return fmt.Errorf("line item %d: priority %q: %w", p.LineItemID, *p.Priority, domain.ErrInvalidPatch)
	case p.EstimatedMinutes != nil && *p.EstimatedMinutes < 0:
		return fmt.Errorf("line item %d: negative estimate: %w", p.LineItemID, domain.ErrInvalidPatch)
	}
	return nil
}
