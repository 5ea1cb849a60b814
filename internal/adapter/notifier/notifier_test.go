package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/kds/internal/adapter/logger"
	"github.com/YelzhanWeb/kds/internal/domain"
)

type countingNotifier struct {
	err   error
	calls int
}

func (c *countingNotifier) OrdersArrived(context.Context, domain.ArrivalNotification) error {
	c.calls++
	return c.err
}

func (c *countingNotifier) TransitionFailed(context.Context, domain.FailureNotice) error {
	c.calls++
	return c.err
}

func (c *countingNotifier) StaleChanged(context.Context, domain.StaleAlarm) error {
	c.calls++
	return c.err
}

func TestMultiContinuesPastFailures(t *testing.T) {
	failing := &countingNotifier{err: errors.New("broker down")}
	ok := &countingNotifier{}

	err := Multi{failing, nil, ok}.OrdersArrived(context.Background(), domain.ArrivalNotification{Count: 1})

	assert.ErrorContains(t, err, "broker down")
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, ok.calls)

	assert.NoError(t, Multi{ok}.StaleChanged(context.Background(), domain.StaleAlarm{}))
	assert.NoError(t, Multi{ok}.TransitionFailed(context.Background(), domain.FailureNotice{}))
	assert.Equal(t, 3, ok.calls)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLog(logger.NewWithWriter("kds", logger.LevelInfo, &buf))

	require.NoError(t, n.OrdersArrived(context.Background(), domain.ArrivalNotification{ID: "abc", Count: 2, OrderIDs: []int64{1, 2}}))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "notify_orders_arrived", entry["action"])
	assert.Equal(t, "abc", entry["request_id"])
}
