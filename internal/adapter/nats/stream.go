// Package nats is the push transport over a NATS subject.
package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/YelzhanWeb/kds/internal/adapter/logger"
	"github.com/YelzhanWeb/kds/internal/adapter/push"
	"github.com/YelzhanWeb/kds/internal/interfaces"
)

type Stream struct {
	url     string
	subject string
	logger  logger.Logger
}

var _ interfaces.EventStream = (*Stream)(nil)

func NewStream(url, subject string, logger logger.Logger) *Stream {
	return &Stream{url: url, subject: subject, logger: logger}
}

func (s *Stream) Name() string { return "nats" }

// Stream subscribes and hands frames over in arrival order until the connection closes
// or ctx is cancelled. Reconnects are left to the gateway so no replay is assumed.
func (s *Stream) Stream(ctx context.Context, handle interfaces.PushHandler) error {
	closed := make(chan error, 1)
	conn, err := nats.Connect(s.url,
		nats.Name("kds"),
		nats.NoReconnect(),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			select {
			case closed <- err:
			default:
			}
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			select {
			case closed <- nil:
			default:
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer conn.Close()

	msgs := make(chan *nats.Msg, 256)
	sub, err := conn.ChanSubscribe(s.subject, msgs)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.subject, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	s.logger.Info("push_connected", "NATS push stream connected", "", map[string]interface{}{
		"url":     s.url,
		"subject": s.subject,
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-closed:
			if err == nil {
				err = errors.New("connection closed")
			}
			return fmt.Errorf("nats: %w", err)

		case msg := <-msgs:
			evt, err := push.Decode(msg.Data)
			if err != nil {
				s.logger.Debug("push_frame_skipped", "Skipping push frame", "", map[string]interface{}{"error": err.Error()})
				continue
			}
			handle(ctx, evt)
		}
	}
}
