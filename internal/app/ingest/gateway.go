// Package ingest runs the pull and push producers and funnels their output into one channel.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/YelzhanWeb/kds/internal/adapter/logger"
	"github.com/YelzhanWeb/kds/internal/domain"
	"github.com/YelzhanWeb/kds/internal/interfaces"
)

type Options struct {
	PullInterval   time.Duration
	PullTimeout    time.Duration
	ReconnectDelay time.Duration
	Buffer         int
	Now            func() time.Time
}

type Gateway struct {
	source interfaces.OrderSource
	stream interfaces.EventStream
	opts   Options
	log    logger.Logger
	events chan Event
}

// NewGateway wires the producers. stream may be nil, in which case pull is the only source.
func NewGateway(source interfaces.OrderSource, stream interfaces.EventStream, opts Options, log logger.Logger) *Gateway {
	if opts.PullInterval <= 0 {
		opts.PullInterval = 3 * time.Second
	}
	if opts.PullTimeout <= 0 {
		opts.PullTimeout = 10 * time.Second
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 5 * time.Second
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Gateway{
		source: source,
		stream: stream,
		opts:   opts,
		log:    log,
		events: make(chan Event, opts.Buffer),
	}
}

// Events is closed once Run returns.
func (g *Gateway) Events() <-chan Event {
	return g.events
}

// Run blocks until ctx is cancelled. Neither producer gives up on transport errors.
func (g *Gateway) Run(ctx context.Context) error {
	defer close(g.events)

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return g.pullLoop(ctx)
	})

	if g.stream != nil {
		eg.Go(func() error {
			return g.pushLoop(ctx)
		})
	}

	err := eg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (g *Gateway) pullLoop(ctx context.Context) error {
	ticker := time.NewTicker(g.opts.PullInterval)
	defer ticker.Stop()

	for {
		g.pullOnce(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (g *Gateway) pullOnce(ctx context.Context) {
	requestedAt := g.opts.Now()

	pullCtx, cancel := context.WithTimeout(ctx, g.opts.PullTimeout)
	orders, err := g.source.FetchKitchenOrders(pullCtx)
	cancel()
	if ctx.Err() != nil {
		return
	}

	if err != nil {
		g.log.Debug("pull_failed", "Kitchen order pull failed", "", map[string]interface{}{
			"requested_at": requestedAt,
			"error":        err.Error(),
		})
		if !errors.Is(err, domain.ErrTransport) {
			err = fmt.Errorf("%w: %w", domain.ErrTransport, err)
		}
		g.emit(ctx, PullFailed{Err: err, RequestedAt: requestedAt, At: g.opts.Now()})
		return
	}

	g.emit(ctx, PullSucceeded{Orders: orders, RequestedAt: requestedAt, CompletedAt: g.opts.Now()})
}

func (g *Gateway) pushLoop(ctx context.Context) error {
	limiter := rate.NewLimiter(rate.Every(g.opts.ReconnectDelay), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return ctx.Err()
		}

		g.log.Info("push_connecting", "Connecting push stream", "", map[string]interface{}{
			"transport": g.stream.Name(),
		})

		err := g.stream.Stream(ctx, g.handlePush)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// disconnects are expected; the next pull resynchronizes
		g.log.Warn("push_disconnected", "Push stream disconnected, reconnecting", "", map[string]interface{}{
			"transport": g.stream.Name(),
			"error":     errorString(err),
			"retry_in":  g.opts.ReconnectDelay.String(),
		})
	}
}

func (g *Gateway) handlePush(ctx context.Context, evt interfaces.PushEvent) {
	now := g.opts.Now()
	switch {
	case evt.Order != nil:
		g.emit(ctx, OrderArrived{Order: evt.Order.Clone(), ReceivedAt: now})
	case evt.Patch != nil:
		g.emit(ctx, PatchArrived{Patch: *evt.Patch, ReceivedAt: now})
	}
}

func (g *Gateway) emit(ctx context.Context, evt Event) {
	select {
	case g.events <- evt:
	case <-ctx.Done():
	}
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
