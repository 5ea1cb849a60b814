package push

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/kds/internal/domain"
)

func TestDecodeNewOrder(t *testing.T) {
	for _, name := range []string{"new_order", "nueva-orden-cocina"} {
		evt, err := Decode([]byte(`{"event":"` + name + `","data":{"id_venta":7,"estado":"recibido","timestamp":"2026-03-01T12:00:00Z","productos":[]}}`))
		require.NoError(t, err, name)
		require.NotNil(t, evt.Order, name)
		assert.Nil(t, evt.Patch)
		assert.Equal(t, int64(7), evt.Order.ID)
		assert.Equal(t, domain.StatusReceived, evt.Order.Status)
	}
}

func TestDecodeDetailPatch(t *testing.T) {
	for _, name := range []string{"detail_patch", "actualizar-detalle-kds"} {
		evt, err := Decode([]byte(`{"event":"` + name + `","data":{"id_detalle":99,"prioridad":"urgente"}}`))
		require.NoError(t, err, name)
		require.NotNil(t, evt.Patch, name)
		assert.Equal(t, int64(99), evt.Patch.LineItemID)
		assert.Equal(t, domain.PriorityUrgent, *evt.Patch.Priority)
	}
}

func TestDecodeRejects(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"event":"mesa-liberada","data":{}}`))
	var unknown ErrUnknownEvent
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "mesa-liberada", unknown.Event)

	_, err = Decode([]byte(`{"event":"new_order","data":{"id_venta":1,"estado":"??"}}`))
	assert.Error(t, err)
}
