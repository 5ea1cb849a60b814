package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/YelzhanWeb/kds/internal/domain"
)

// Order is a kitchen order as the POS backend serializes it.
type Order struct {
	ID          int64      `json:"id_venta"`
	Fecha       *time.Time `json:"fecha,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	TableID     *int64     `json:"id_mesa,omitempty"`
	TableNumber *int       `json:"mesa_numero,omitempty"`
	ServiceType string     `json:"tipo_servicio,omitempty"`
	Estado      string     `json:"estado"`
	Total       Number     `json:"total,omitempty"`
	Guests      Number     `json:"comensales,omitempty"`
	Waiter      string     `json:"mesero_nombre,omitempty"`
	Products    []LineItem `json:"productos"`
}

type LineItem struct {
	ID               int64      `json:"id_detalle"`
	ProductID        int64      `json:"id_producto"`
	ProductName      string     `json:"nombre_producto"`
	Quantity         Number     `json:"cantidad"`
	UnitPrice        Number     `json:"precio_unitario"`
	Notes            *string    `json:"observaciones,omitempty"`
	Priority         *string    `json:"prioridad,omitempty"`
	Station          *string    `json:"estacion_cocina,omitempty"`
	EstimatedMinutes *Number    `json:"tiempo_estimado,omitempty"`
	Modifiers        []Modifier `json:"modificadores,omitempty"`
}

type Modifier struct {
	Name     string `json:"nombre_modificador"`
	Quantity Number `json:"cantidad"`
}

// DetailUpdate is the PATCH body for a line item and the payload of a detail patch event.
type DetailUpdate struct {
	ID               int64   `json:"id_detalle,omitempty"`
	Priority         *string `json:"prioridad,omitempty"`
	Station          *string `json:"estacion_cocina,omitempty"`
	EstimatedMinutes *Number `json:"tiempo_estimado,omitempty"`
}

// Number accepts JSON numbers, numeric strings (Postgres NUMERIC) and null.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %s: %w", b, err)
	}
	*n = Number(f)
	return nil
}

var statusFromWire = map[string]domain.Status{
	"recibido":          domain.StatusReceived,
	"en_preparacion":    domain.StatusInPreparation,
	"listo_para_servir": domain.StatusInPreparation,
	"entregado":         domain.StatusDelivered,
	"cancelado":         domain.StatusCancelled,
}

var statusToWire = map[domain.Status]string{
	domain.StatusReceived:      "recibido",
	domain.StatusInPreparation: "en_preparacion",
	domain.StatusDelivered:     "entregado",
	domain.StatusCancelled:     "cancelado",
}

var priorityFromWire = map[string]domain.Priority{
	"normal":  domain.PriorityNormal,
	"alta":    domain.PriorityHigh,
	"high":    domain.PriorityHigh,
	"urgente": domain.PriorityUrgent,
	"urgent":  domain.PriorityUrgent,
}

var priorityToWire = map[domain.Priority]string{
	domain.PriorityNormal: "normal",
	domain.PriorityHigh:   "alta",
	domain.PriorityUrgent: "urgente",
}

func ParseStatus(s string) (domain.Status, error) {
	st, ok := statusFromWire[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return st, nil
}

func FormatStatus(s domain.Status) (string, error) {
	w, ok := statusToWire[s]
	if !ok {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return w, nil
}

func parsePriority(s *string) domain.Priority {
	if s == nil {
		return domain.PriorityNormal
	}
	if p, ok := priorityFromWire[strings.ToLower(strings.TrimSpace(*s))]; ok {
		return p
	}
	return domain.PriorityNormal
}

func parseServiceKind(s string) domain.ServiceKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mesa", "table":
		return domain.ServiceTable
	case "delivery", "domicilio":
		return domain.ServiceDelivery
	case "para llevar", "para_llevar", "takeaway":
		return domain.ServiceTakeaway
	default:
		return domain.ServiceCounter
	}
}

// ToDomain converts a wire order. Unknown statuses are rejected; missing timestamps are not.
func (o Order) ToDomain() (domain.KitchenOrder, error) {
	status, err := ParseStatus(o.Estado)
	if err != nil {
		return domain.KitchenOrder{}, fmt.Errorf("order %d: %w", o.ID, err)
	}

	var created time.Time
	switch {
	case o.Fecha != nil:
		created = *o.Fecha
	case o.Timestamp != nil:
		created = *o.Timestamp
	}

	kind := parseServiceKind(o.ServiceType)
	if o.ServiceType == "" && o.TableNumber != nil {
		kind = domain.ServiceTable
	}

	out := domain.KitchenOrder{
		ID:          o.ID,
		CreatedAt:   created,
		Service:     domain.ServiceContext{Kind: kind},
		Status:      status,
		GuestCount:  int(o.Guests),
		TotalAmount: float64(o.Total),
		WaiterName:  o.Waiter,
	}
	if kind == domain.ServiceTable && o.TableNumber != nil {
		n := *o.TableNumber
		out.Service.TableNumber = &n
	}

	out.Items = make([]domain.LineItem, 0, len(o.Products))
	for _, p := range o.Products {
		out.Items = append(out.Items, p.ToDomain())
	}
	return out, nil
}

func (l LineItem) ToDomain() domain.LineItem {
	item := domain.LineItem{
		ID:          l.ID,
		ProductID:   l.ProductID,
		ProductName: l.ProductName,
		Quantity:    int(l.Quantity),
		UnitPrice:   float64(l.UnitPrice),
		Priority:    parsePriority(l.Priority),
	}
	if l.Notes != nil {
		item.Notes = *l.Notes
	}
	if l.Station != nil {
		item.Station = *l.Station
	}
	if l.EstimatedMinutes != nil {
		item.EstimatedMinutes = int(*l.EstimatedMinutes)
	}
	for _, m := range l.Modifiers {
		item.Modifiers = append(item.Modifiers, domain.Modifier{Name: m.Name, Quantity: int(m.Quantity)})
	}
	return item
}

// ToDomain keeps only the fields present on the wire.
func (d DetailUpdate) ToDomain() (domain.DetailPatch, error) {
	if d.ID <= 0 {
		return domain.DetailPatch{}, fmt.Errorf("missing id_detalle: %w", domain.ErrInvalidPatch)
	}
	p := domain.DetailPatch{LineItemID: d.ID}
	if d.Priority != nil {
		pr := parsePriority(d.Priority)
		p.Priority = &pr
	}
	if d.Station != nil {
		st := *d.Station
		p.Station = &st
	}
	if d.EstimatedMinutes != nil {
		m := int(*d.EstimatedMinutes)
		p.EstimatedMinutes = &m
	}
	return p, nil
}

func DetailUpdateFrom(p domain.DetailPatch) DetailUpdate {
	d := DetailUpdate{}
	if p.Priority != nil {
		w := priorityToWire[*p.Priority]
		d.Priority = &w
	}
	if p.Station != nil {
		st := *p.Station
		d.Station = &st
	}
	if p.EstimatedMinutes != nil {
		m := Number(*p.EstimatedMinutes)
		d.EstimatedMinutes = &m
	}
	return d
}

// DecodeOrder parses one wire order.
func DecodeOrder(raw json.RawMessage) (domain.KitchenOrder, error) {
	var o Order
	if err := json.Unmarshal(raw, &o); err != nil {
		return domain.KitchenOrder{}, fmt.Errorf("failed to decode order: %w", err)
	}
	return o.ToDomain()
}

// DecodeDetail parses one detail patch payload.
func DecodeDetail(raw json.RawMessage) (domain.DetailPatch, error) {
	var d DetailUpdate
	if err := json.Unmarshal(raw, &d); err != nil {
		return domain.DetailPatch{}, fmt.Errorf("failed to decode detail patch: %w", err)
	}
	return d.ToDomain()
}
