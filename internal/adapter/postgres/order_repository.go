package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/YelzhanWeb/kds/internal/adapter/backend"
	"github.com/YelzhanWeb/kds/internal/adapter/logger"
	"github.com/YelzhanWeb/kds/internal/domain"
	"github.com/YelzhanWeb/kds/internal/interfaces"
)

// backend statuses that still belong on the kitchen board
var kitchenStatuses = []string{"recibido", "en_preparacion", "listo_para_servir"}

const ordersQuery = `
	SELECT v.id_venta, v.fecha, v.mesa_numero, v.tipo_servicio, v.estado, v.total::float8
	FROM ventas v
	WHERE v.id_restaurante = $1
	  AND v.estado = ANY($2)
	ORDER BY v.fecha ASC, v.id_venta ASC
`

const itemsQuery = `
	SELECT dv.id_detalle, dv.id_venta, dv.id_producto, p.nombre, dv.cantidad,
	       dv.precio_unitario::float8, dv.observaciones, dv.prioridad,
	       dv.estacion_cocina, dv.tiempo_estimado
	FROM detalle_ventas dv
	JOIN productos p ON p.id_producto = dv.id_producto
	WHERE dv.id_venta = ANY($1)
	ORDER BY dv.id_venta, dv.id_detalle
`

// OrderRepository reads the kitchen snapshot straight from the POS database. It is an
// alternative pull source; writes always go through the REST backend.
type OrderRepository struct {
	db           DB
	restaurantID int
	logger       logger.Logger
}

var _ interfaces.OrderSource = (*OrderRepository)(nil)

func NewOrderRepository(db DB, restaurantID int, logger logger.Logger) *OrderRepository {
	return &OrderRepository{db: db, restaurantID: restaurantID, logger: logger}
}

func (r *OrderRepository) FetchKitchenOrders(ctx context.Context) ([]domain.KitchenOrder, error) {
	rows, err := r.db.Query(ctx, ordersQuery, r.restaurantID, kitchenStatuses)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query orders: %w", domain.ErrTransport, err)
	}

	var orders []domain.KitchenOrder
	index := make(map[int64]int)
	var ids []int64

	for rows.Next() {
		var (
			id          int64
			fecha       time.Time
			tableNumber *int
			serviceType *string
			estado      string
			total       *float64
		)
		if err := rows.Scan(&id, &fecha, &tableNumber, &serviceType, &estado, &total); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: failed to scan order: %w", domain.ErrTransport, err)
		}

		wire := backend.Order{ID: id, Fecha: &fecha, TableNumber: tableNumber, Estado: estado}
		if serviceType != nil {
			wire.ServiceType = *serviceType
		}
		if total != nil {
			wire.Total = backend.Number(*total)
		}

		o, err := wire.ToDomain()
		if err != nil {
			r.logger.Warn("order_decode_failed", "Skipping kitchen order row", "", map[string]interface{}{"error": err.Error()})
			continue
		}

		index[o.ID] = len(orders)
		ids = append(ids, o.ID)
		orders = append(orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read orders: %w", domain.ErrTransport, err)
	}

	if len(ids) == 0 {
		return orders, nil
	}

	if err := r.attachItems(ctx, ids, orders, index); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) attachItems(ctx context.Context, ids []int64, orders []domain.KitchenOrder, index map[int64]int) error {
	rows, err := r.db.Query(ctx, itemsQuery, ids)
	if err != nil {
		return fmt.Errorf("%w: failed to query line items: %w", domain.ErrTransport, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item      backend.LineItem
			orderID   int64
			quantity  int
			unitPrice float64
			estimated *int
		)
		if err := rows.Scan(&item.ID, &orderID, &item.ProductID, &item.ProductName, &quantity,
			&unitPrice, &item.Notes, &item.Priority, &item.Station, &estimated); err != nil {
			return fmt.Errorf("%w: failed to scan line item: %w", domain.ErrTransport, err)
		}
		item.Quantity = backend.Number(quantity)
		item.UnitPrice = backend.Number(unitPrice)
		if estimated != nil {
			n := backend.Number(*estimated)
			item.EstimatedMinutes = &n
		}

		i, ok := index[orderID]
		if !ok {
			continue
		}
		orders[i].Items = append(orders[i].Items, item.ToDomain())
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: failed to read line items: %w", domain.ErrTransport, err)
	}
	return nil
}
