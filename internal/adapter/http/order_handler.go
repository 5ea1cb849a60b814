package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/YelzhanWeb/kds/internal/adapter/logger"
	"github.com/YelzhanWeb/kds/internal/domain"
	"github.com/YelzhanWeb/kds/internal/interfaces"
)

type OrderHandler struct {
	service  interfaces.OrderService
	logger   logger.Logger
	validate *validator.Validate
}

func NewOrderHandler(service interfaces.OrderService, logger logger.Logger) *OrderHandler {
	return &OrderHandler{
		service:  service,
		logger:   logger,
		validate: validator.New(),
	}
}

type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=received in_preparation delivered cancelled"`
}

type ChangeStatusResponse struct {
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
}

type UpdateLineItemRequest struct {
	Priority         *string `json:"priority,omitempty" validate:"omitempty,oneof=normal high urgent"`
	Station          *string `json:"station,omitempty" validate:"omitempty,max=64"`
	EstimatedMinutes *int    `json:"estimated_minutes,omitempty" validate:"omitempty,gte=0,lte=600"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind,omitempty"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ChangeStatus handles POST /kds/orders/{id}/status.
func (h *OrderHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r)
	if err != nil {
		respondError(w, "Invalid order id", http.StatusBadRequest, nil)
		return
	}

	var req ChangeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if errs := h.validationErrors(req); len(errs) > 0 {
		respondError(w, "Validation failed", http.StatusBadRequest, errs)
		return
	}

	target := domain.Status(req.Status)
	if err := h.service.ChangeStatus(r.Context(), orderID, target); err != nil {
		h.logger.Error("status_change_failed", "Status change failed", RequestID(r), map[string]interface{}{
			"order_id": orderID,
			"target":   target,
		}, err)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ChangeStatusResponse{OrderID: orderID, Status: string(target)})
}

// UpdateLineItem handles PATCH /kds/items/{id}.
func (h *OrderHandler) UpdateLineItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r)
	if err != nil {
		respondError(w, "Invalid line item id", http.StatusBadRequest, nil)
		return
	}

	var req UpdateLineItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if errs := h.validationErrors(req); len(errs) > 0 {
		respondError(w, "Validation failed", http.StatusBadRequest, errs)
		return
	}

	patch := domain.DetailPatch{
		LineItemID:       itemID,
		Station:          req.Station,
		EstimatedMinutes: req.EstimatedMinutes,
	}
	if req.Priority != nil {
		p := domain.Priority(*req.Priority)
		patch.Priority = &p
	}

	item, err := h.service.UpdateLineItem(r.Context(), patch)
	if err != nil {
		h.logger.Error("line_item_update_failed", "Line item update failed", RequestID(r), map[string]interface{}{
			"line_item_id": itemID,
		}, err)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toLineItemView(*item))
}

func (h *OrderHandler) validationErrors(v interface{}) []ValidationError {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []ValidationError{{Field: "body", Message: err.Error()}}
	}

	out := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		msg := "failed " + fe.Tag()
		if fe.Param() != "" {
			msg += " " + fe.Param()
		}
		out = append(out, ValidationError{Field: toSnake(fe.Field()), Message: msg})
	}
	return out
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func toSnake(s string) string {
	var b strings.Builder
	for i, c := range s {
		if c >= 'A' && c <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			c += 'a' - 'A'
		}
		b.WriteRune(c)
	}
	return b.String()
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, message string, statusCode int, validationErrors []ValidationError) {
	respondJSON(w, statusCode, ErrorResponse{
		Error:  message,
		Errors: validationErrors,
	})
}

func respondDomainError(w http.ResponseWriter, err error) {
	respondJSON(w, domain.HTTPStatus(err), ErrorResponse{
		Error: err.Error(),
		Kind:  domain.Kind(err),
	})
}
