package backend

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/kds/internal/domain"
)

func TestParseStatus(t *testing.T) {
	tests := map[string]domain.Status{
		"recibido":          domain.StatusReceived,
		"en_preparacion":    domain.StatusInPreparation,
		"listo_para_servir": domain.StatusInPreparation,
		"ENTREGADO":         domain.StatusDelivered,
		"cancelado":         domain.StatusCancelled,
	}
	for in, want := range tests {
		got, err := ParseStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseStatus("pendiente_aprobacion")
	assert.Error(t, err)
}

func TestServiceKind(t *testing.T) {
	assert.Equal(t, domain.ServiceTable, parseServiceKind("Mesa"))
	assert.Equal(t, domain.ServiceDelivery, parseServiceKind("Delivery"))
	assert.Equal(t, domain.ServiceTakeaway, parseServiceKind("Para Llevar"))
	assert.Equal(t, domain.ServiceCounter, parseServiceKind(""))
}

func TestDecodeOrderPushShape(t *testing.T) {
	// push events carry timestamp instead of fecha and no tipo_servicio
	raw := json.RawMessage(`{"id_venta":55,"id_mesa":2,"mesa_numero":3,"timestamp":"2026-03-01T12:00:00Z","estado":"recibido",
		"productos":[{"id_producto":1,"nombre_producto":"Salteña","cantidad":"3","precio_unitario":8}]}`)

	o, err := DecodeOrder(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(55), o.ID)
	assert.False(t, o.CreatedAt.IsZero())
	assert.Equal(t, domain.ServiceTable, o.Service.Kind)
	require.NotNil(t, o.Service.TableNumber)
	assert.Equal(t, 3, *o.Service.TableNumber)
	assert.Equal(t, 3, o.Items[0].Quantity)
}

func TestDecodeDetail(t *testing.T) {
	p, err := DecodeDetail(json.RawMessage(`{"id_detalle":99,"id_venta":4,"prioridad":"urgente"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(99), p.LineItemID)
	require.NotNil(t, p.Priority)
	assert.Equal(t, domain.PriorityUrgent, *p.Priority)
	assert.Nil(t, p.Station)
	assert.Nil(t, p.EstimatedMinutes)

	_, err = DecodeDetail(json.RawMessage(`{"prioridad":"alta"}`))
	assert.ErrorIs(t, err, domain.ErrInvalidPatch)
}
