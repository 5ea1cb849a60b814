package http

import (
	"net/http"
	"time"

	"github.com/YelzhanWeb/kds/internal/adapter/logger"
	"github.com/YelzhanWeb/kds/internal/domain"
	"github.com/YelzhanWeb/kds/internal/interfaces"
)

type TrackingHandler struct {
	service interfaces.TrackingService
	logger  logger.Logger
}

func NewTrackingHandler(service interfaces.TrackingService, logger logger.Logger) *TrackingHandler {
	return &TrackingHandler{
		service: service,
		logger:  logger,
	}
}

type BoardResponse struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Stale       bool                `json:"stale"`
	Orders      []OrderViewResponse `json:"orders"`
}

type OrderViewResponse struct {
	ID          int64              `json:"id"`
	CreatedAt   time.Time          `json:"created_at"`
	Service     string             `json:"service"`
	TableNumber *int               `json:"table_number,omitempty"`
	Status      string             `json:"status"`
	NextStatus  *string            `json:"next_status,omitempty"`
	Pending     bool               `json:"pending"`
	Elapsed     string             `json:"elapsed"`
	Tier        string             `json:"tier"`
	GuestCount  int                `json:"guest_count"`
	TotalAmount float64            `json:"total_amount"`
	WaiterName  string             `json:"waiter_name,omitempty"`
	Items       []LineItemResponse `json:"items"`
}

type LineItemResponse struct {
	ID               int64              `json:"id"`
	ProductName      string             `json:"product_name"`
	Quantity         int                `json:"quantity"`
	UnitPrice        float64            `json:"unit_price"`
	Notes            string             `json:"notes,omitempty"`
	Priority         string             `json:"priority"`
	Station          string             `json:"station,omitempty"`
	EstimatedMinutes int                `json:"estimated_minutes,omitempty"`
	Modifiers        []ModifierResponse `json:"modifiers,omitempty"`
}

type ModifierResponse struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type HealthResponse struct {
	Status              string     `json:"status"`
	Stale               bool       `json:"stale"`
	LastPullAt          *time.Time `json:"last_pull_at,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	ActiveOrders        int        `json:"active_orders"`
}

// Orders handles GET /kds/orders.
func (h *TrackingHandler) Orders(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.ActiveOrders(r.Context())
	if err != nil {
		h.logger.Error("board_failed", "Failed to project board", RequestID(r), nil, err)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, NewBoardResponse(view))
}

func NewBoardResponse(view *interfaces.BoardView) BoardResponse {
	resp := BoardResponse{
		GeneratedAt: view.GeneratedAt,
		Stale:       view.Stale,
		Orders:      make([]OrderViewResponse, 0, len(view.Orders)),
	}
	for _, ov := range view.Orders {
		resp.Orders = append(resp.Orders, toOrderView(ov))
	}
	return resp
}

// Health handles GET /kds/health. A stale board answers 503 so probes notice.
func (h *TrackingHandler) Health(w http.ResponseWriter, r *http.Request) {
	hv := h.service.Health(r.Context())

	resp := HealthResponse{
		Status:              "ok",
		Stale:               hv.Stale,
		ConsecutiveFailures: hv.ConsecutiveFailures,
		ActiveOrders:        hv.ActiveOrders,
	}
	if !hv.LastPullAt.IsZero() {
		t := hv.LastPullAt
		resp.LastPullAt = &t
	}

	status := http.StatusOK
	if !hv.Healthy {
		resp.Status = "stale"
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, resp)
}

func toOrderView(ov interfaces.OrderView) OrderViewResponse {
	o := ov.Order
	resp := OrderViewResponse{
		ID:          o.ID,
		CreatedAt:   o.CreatedAt,
		Service:     string(o.Service.Kind),
		TableNumber: o.Service.TableNumber,
		Status:      string(o.Status),
		Pending:     ov.Pending,
		Elapsed:     ov.Elapsed,
		Tier:        string(ov.Tier),
		GuestCount:  o.GuestCount,
		TotalAmount: o.TotalAmount,
		WaiterName:  o.WaiterName,
		Items:       make([]LineItemResponse, 0, len(o.Items)),
	}
	if ov.NextStatus != nil {
		next := string(*ov.NextStatus)
		resp.NextStatus = &next
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, toLineItemView(item))
	}
	return resp
}

func toLineItemView(item domain.LineItem) LineItemResponse {
	resp := LineItemResponse{
		ID:               item.ID,
		ProductName:      item.ProductName,
		Quantity:         item.Quantity,
		UnitPrice:        item.UnitPrice,
		Notes:            item.Notes,
		Priority:         string(item.Priority),
		Station:          item.Station,
		EstimatedMinutes: item.EstimatedMinutes,
	}
	for _, m := range item.Modifiers {
		resp.Modifiers = append(resp.Modifiers, ModifierResponse{Name: m.Name, Quantity: m.Quantity})
	}
	return resp
}
