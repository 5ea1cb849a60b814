package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/kds/internal/adapter/logger"
	"github.com/YelzhanWeb/kds/internal/domain"
	"github.com/YelzhanWeb/kds/internal/interfaces"
)

type fakeOrders struct {
	changeErr  error
	changed    []domain.Status
	changedIDs []int64
	patches    []domain.DetailPatch
	item       *domain.LineItem
	updateErr  error
}

func (f *fakeOrders) ChangeStatus(_ context.Context, orderID int64, target domain.Status) error {
	f.changedIDs = append(f.changedIDs, orderID)
	f.changed = append(f.changed, target)
	return f.changeErr
}

func (f *fakeOrders) UpdateLineItem(_ context.Context, patch domain.DetailPatch) (*domain.LineItem, error) {
	f.patches = append(f.patches, patch)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.item, nil
}

type fakeTracking struct {
	view   *interfaces.BoardView
	health interfaces.HealthView
}

func (f *fakeTracking) ActiveOrders(context.Context) (*interfaces.BoardView, error) {
	return f.view, nil
}

func (f *fakeTracking) Health(context.Context) interfaces.HealthView {
	return f.health
}

type recordingObserver struct {
	routes   []string
	statuses []string
}

func (o *recordingObserver) ObserveHTTP(_, route, status string, _ float64) {
	o.routes = append(o.routes, route)
	o.statuses = append(o.statuses, status)
}

func newTestRouter(orders *fakeOrders, tracking *fakeTracking, obs RequestObserver) http.Handler {
	log := logger.Nop()
	return NewRouter(RouterDeps{
		Orders:   NewOrderHandler(orders, log),
		Tracking: NewTrackingHandler(tracking, log),
		Observer: obs,
		Logger:   log,
	})
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestChangeStatus(t *testing.T) {
	orders := &fakeOrders{}
	h := newTestRouter(orders, &fakeTracking{}, nil)

	rec := do(t, h, http.MethodPost, "/kds/orders/42/status", `{"status":"in_preparation"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{42}, orders.changedIDs)
	assert.Equal(t, []domain.Status{domain.StatusInPreparation}, orders.changed)

	var resp ChangeStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(42), resp.OrderID)
	assert.Equal(t, "in_preparation", resp.Status)
}

func TestChangeStatusValidation(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   string
		code   int
	}{
		{"bad id", "/kds/orders/abc/status", `{"status":"delivered"}`, http.StatusBadRequest},
		{"zero id", "/kds/orders/0/status", `{"status":"delivered"}`, http.StatusBadRequest},
		{"bad json", "/kds/orders/1/status", `{`, http.StatusBadRequest},
		{"missing status", "/kds/orders/1/status", `{}`, http.StatusBadRequest},
		{"unknown status", "/kds/orders/1/status", `{"status":"listo"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := &fakeOrders{}
			h := newTestRouter(orders, &fakeTracking{}, nil)

			rec := do(t, h, http.MethodPost, tt.target, tt.body)

			assert.Equal(t, tt.code, rec.Code)
			assert.Empty(t, orders.changed)
		})
	}
}

func TestChangeStatusMapsDomainErrors(t *testing.T) {
	tests := []struct {
		err  error
		code int
		kind string
	}{
		{domain.ErrInvalidTransition, http.StatusUnprocessableEntity, "invalid_transition"},
		{domain.ErrTransitionInFlight, http.StatusConflict, "transition_in_flight"},
		{domain.ErrOrderNotFound, http.StatusNotFound, "not_found"},
		{domain.ErrTransitionRejected, http.StatusBadGateway, "transition_rejected"},
		{domain.ErrStopped, http.StatusServiceUnavailable, "stopped"},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			h := newTestRouter(&fakeOrders{changeErr: tt.err}, &fakeTracking{}, nil)

			rec := do(t, h, http.MethodPost, "/kds/orders/7/status", `{"status":"delivered"}`)

			assert.Equal(t, tt.code, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.kind, resp.Kind)
		})
	}
}

func TestUpdateLineItem(t *testing.T) {
	orders := &fakeOrders{item: &domain.LineItem{
		ID:               9,
		ProductName:      "Lomo saltado",
		Quantity:         2,
		Priority:         domain.PriorityUrgent,
		Station:          "grill",
		EstimatedMinutes: 12,
	}}
	h := newTestRouter(orders, &fakeTracking{}, nil)

	rec := do(t, h, http.MethodPatch, "/kds/items/9", `{"priority":"urgent","station":"grill","estimated_minutes":12}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, orders.patches, 1)
	p := orders.patches[0]
	assert.Equal(t, int64(9), p.LineItemID)
	require.NotNil(t, p.Priority)
	assert.Equal(t, domain.PriorityUrgent, *p.Priority)
	require.NotNil(t, p.Station)
	assert.Equal(t, "grill", *p.Station)
	require.NotNil(t, p.EstimatedMinutes)
	assert.Equal(t, 12, *p.EstimatedMinutes)

	var resp LineItemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "urgent", resp.Priority)
	assert.Equal(t, "Lomo saltado", resp.ProductName)
}

func TestUpdateLineItemValidation(t *testing.T) {
	orders := &fakeOrders{}
	h := newTestRouter(orders, &fakeTracking{}, nil)

	rec := do(t, h, http.MethodPatch, "/kds/items/9", `{"priority":"asap","estimated_minutes":-1}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, orders.patches)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	fields := make([]string, 0, len(resp.Errors))
	for _, e := range resp.Errors {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"priority", "estimated_minutes"}, fields)
}

func TestUpdateLineItemBackendError(t *testing.T) {
	h := newTestRouter(&fakeOrders{updateErr: domain.ErrOrderNotFound}, &fakeTracking{}, nil)

	rec := do(t, h, http.MethodPatch, "/kds/items/9", `{"station":"bar"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrders(t *testing.T) {
	table := 4
	next := domain.StatusInPreparation
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tracking := &fakeTracking{view: &interfaces.BoardView{
		GeneratedAt: now,
		Orders: []interfaces.OrderView{{
			Order: domain.KitchenOrder{
				ID:        1,
				CreatedAt: now.Add(-3 * time.Minute),
				Service:   domain.ServiceContext{Kind: domain.ServiceTable, TableNumber: &table},
				Status:    domain.StatusReceived,
				Items: []domain.LineItem{{
					ID: 10, ProductName: "Ceviche", Quantity: 1, Priority: domain.PriorityNormal,
					Modifiers: []domain.Modifier{{Name: "sin cebolla", Quantity: 1}},
				}},
			},
			Elapsed:    "3m",
			Tier:       domain.TierNormal,
			NextStatus: &next,
		}},
	}}
	h := newTestRouter(&fakeOrders{}, tracking, nil)

	rec := do(t, h, http.MethodGet, "/kds/orders", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp BoardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Orders, 1)
	o := resp.Orders[0]
	assert.Equal(t, int64(1), o.ID)
	assert.Equal(t, "table", o.Service)
	require.NotNil(t, o.TableNumber)
	assert.Equal(t, 4, *o.TableNumber)
	require.NotNil(t, o.NextStatus)
	assert.Equal(t, "in_preparation", *o.NextStatus)
	assert.Equal(t, "3m", o.Elapsed)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "sin cebolla", o.Items[0].Modifiers[0].Name)
}

func TestHealth(t *testing.T) {
	h := newTestRouter(&fakeOrders{}, &fakeTracking{health: interfaces.HealthView{Healthy: true, ActiveOrders: 3}}, nil)
	rec := do(t, h, http.MethodGet, "/kds/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	h = newTestRouter(&fakeOrders{}, &fakeTracking{health: interfaces.HealthView{Stale: true, ConsecutiveFailures: 5}}, nil)
	rec = do(t, h, http.MethodGet, "/kds/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "stale", resp.Status)
	assert.Equal(t, 5, resp.ConsecutiveFailures)
}

func TestMiddlewareRequestIDAndObserver(t *testing.T) {
	obs := &recordingObserver{}
	h := newTestRouter(&fakeOrders{}, &fakeTracking{health: interfaces.HealthView{Healthy: true}}, obs)

	rec := do(t, h, http.MethodGet, "/kds/health", "")
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/kds/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))

	do(t, h, http.MethodGet, "/nope", "")

	assert.Equal(t, []string{"GET /kds/health", "GET /kds/health", "unmatched"}, obs.routes)
	assert.Equal(t, []string{"200", "200", "404"}, obs.statuses)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := do(t, h, http.MethodGet, "/", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
