package http

import (
	"net/http"

	"github.com/YelzhanWeb/kds/internal/adapter/logger"
)

type RouterDeps struct {
	Orders   *OrderHandler
	Tracking *TrackingHandler
	Events   http.Handler
	Metrics  http.Handler
	Observer RequestObserver
	Logger   logger.Logger
}

func NewRouter(d RouterDeps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /kds/orders", d.Tracking.Orders)
	mux.HandleFunc("GET /kds/health", d.Tracking.Health)
	mux.HandleFunc("POST /kds/orders/{id}/status", d.Orders.ChangeStatus)
	mux.HandleFunc("PATCH /kds/items/{id}", d.Orders.UpdateLineItem)

	if d.Events != nil {
		mux.Handle("GET /kds/events", d.Events)
	}
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics)
	}

	var h http.Handler = mux
	h = LoggingMiddleware(d.Logger, d.Observer)(h)
	h = RequestIDMiddleware(h)
	h = RecoveryMiddleware(d.Logger)(h)
	return h
}
