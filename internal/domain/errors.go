package domain

import (
	"context"
	"errors"
	"net/http"
)

var (
	ErrTransport          = errors.New("transport error")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrTransitionRejected = errors.New("status transition rejected by backend")
	ErrTransitionInFlight = errors.New("status transition already in flight")
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrphanPatch        = errors.New("detail patch for unknown line item")
	ErrInvalidPatch       = errors.New("invalid detail patch")
	ErrStopped            = errors.New("kitchen service stopped")
)

func Kind(err error) string {
	switch {
	case err == nil:
		return ""

	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"

	case errors.Is(err, ErrTransitionInFlight):
		return "transition_in_flight"

	case errors.Is(err, ErrTransitionRejected):
		return "transition_rejected"

	case errors.Is(err, ErrOrderNotFound):
		return "not_found"

	case errors.Is(err, ErrInvalidPatch):
		return "invalid_patch"

	case errors.Is(err, ErrOrphanPatch):
		return "orphan_patch"

	case errors.Is(err, ErrTransport):
		return "transport"

	case errors.Is(err, ErrStopped):
		return "stopped"

	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"

	case errors.Is(err, context.Canceled):
		return "canceled"

	default:
		return "internal"
	}
}

func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrInvalidPatch):
		return http.StatusUnprocessableEntity

	case errors.Is(err, ErrTransitionInFlight):
		return http.StatusConflict

	case errors.Is(err, ErrOrderNotFound):
		return http.StatusNotFound

	case errors.Is(err, ErrTransitionRejected),
		errors.Is(err, ErrTransport):
		return http.StatusBadGateway

	case errors.Is(err, ErrStopped):
		return http.StatusServiceUnavailable

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.Is(err, context.Canceled):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}
