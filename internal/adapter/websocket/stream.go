// Package websocket is the push transport over a persistent websocket connection.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/YelzhanWeb/kds/internal/adapter/logger"
	"github.com/YelzhanWeb/kds/internal/adapter/push"
	"github.com/YelzhanWeb/kds/internal/interfaces"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	writeWait  = 10 * time.Second
)

type Stream struct {
	url    string
	header http.Header
	dialer *websocket.Dialer
	logger logger.Logger
}

var _ interfaces.EventStream = (*Stream)(nil)

func NewStream(url, token string, logger logger.Logger) *Stream {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return &Stream{
		url:    url,
		header: header,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger: logger,
	}
}

func (s *Stream) Name() string { return "websocket" }

// Stream reads frames until the connection drops or ctx is cancelled.
func (s *Stream) Stream(ctx context.Context, handle interfaces.PushHandler) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, s.header)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", s.url, err)
	}
	defer conn.Close()

	s.logger.Info("push_connected", "Websocket push stream connected", "", map[string]interface{}{"url": s.url})

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// unblocks ReadMessage on shutdown and keeps the connection alive
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				_ = conn.Close()
				return
			case <-stop:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errors.New("websocket closed by server")
			}
			return fmt.Errorf("websocket read: %w", err)
		}

		evt, err := push.Decode(msg)
		if err != nil {
			s.logger.Debug("push_frame_skipped", "Skipping push frame", "", map[string]interface{}{"error": err.Error()})
			continue
		}
		handle(ctx, evt)
	}
}
