// Package backend talks to the POS REST backend: the kitchen pull endpoint and the
// status and line-item update endpoints.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/YelzhanWeb/kds/internal/adapter/logger"
	"github.com/YelzhanWeb/kds/internal/domain"
	"github.com/YelzhanWeb/kds/internal/interfaces"
)

type Client struct {
	baseURL      string
	restaurantID int
	token        string
	http         *http.Client
	logger       logger.Logger
}

var (
	_ interfaces.OrderSource        = (*Client)(nil)
	_ interfaces.OrderStatusUpdater = (*Client)(nil)
	_ interfaces.LineItemUpdater    = (*Client)(nil)
)

func NewClient(baseURL string, restaurantID int, token string, timeout time.Duration, logger logger.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		restaurantID: restaurantID,
		token:        token,
		http:         &http.Client{Timeout: timeout},
		logger:       logger,
	}
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Detalle json.RawMessage `json:"detalle"`
	Message string          `json:"message"`
}

func (c *Client) FetchKitchenOrders(ctx context.Context) ([]domain.KitchenOrder, error) {
	var env envelope
	if err := c.do(ctx, http.MethodGet, c.url("/ventas/cocina", true), nil, &env); err != nil {
		return nil, err
	}

	var wire []json.RawMessage
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &wire); err != nil {
			return nil, fmt.Errorf("%w: failed to decode kitchen orders: %w", domain.ErrTransport, err)
		}
	}

	orders := make([]domain.KitchenOrder, 0, len(wire))
	for _, raw := range wire {
		o, err := DecodeOrder(raw)
		if err != nil {
			// one bad row should not blank the whole board
			c.logger.Warn("order_decode_failed", "Skipping undecodable kitchen order", "", map[string]interface{}{
				"error": err.Error(),
			})
			continue
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, orderID int64, status domain.Status) error {
	estado, err := FormatStatus(status)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidTransition, err)
	}

	path := "/ventas/" + strconv.FormatInt(orderID, 10) + "/estado"
	body := map[string]string{"estado": estado}

	err = c.do(ctx, http.MethodPatch, c.url(path, true), body, nil)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code < 500 {
			return fmt.Errorf("%w: %s", domain.ErrTransitionRejected, se.Error())
		}
		return err
	}
	return nil
}

func (c *Client) UpdateLineItem(ctx context.Context, patch domain.DetailPatch) (*domain.LineItem, error) {
	path := "/detalle-ventas/" + strconv.FormatInt(patch.LineItemID, 10)

	var env envelope
	if err := c.do(ctx, http.MethodPatch, c.url(path, false), DetailUpdateFrom(patch), &env); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return nil, fmt.Errorf("line item %d: %w", patch.LineItemID, domain.ErrOrderNotFound)
		}
		return nil, err
	}

	raw := env.Detalle
	if len(raw) == 0 {
		raw = env.Data
	}

	item := &domain.LineItem{ID: patch.LineItemID}
	if len(raw) > 0 && string(raw) != "null" {
		var wire LineItem
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, fmt.Errorf("%w: failed to decode line item: %w", domain.ErrTransport, err)
		}
		decoded := wire.ToDomain()
		item = &decoded
	} else {
		patch.Apply(item)
	}
	return item, nil
}

func (c *Client) url(path string, scoped bool) string {
	u := c.baseURL + path
	if scoped {
		u += "?" + url.Values{"id_restaurante": {strconv.Itoa(c.restaurantID)}}.Encode()
	}
	return u
}

type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	if e.message == "" {
		return fmt.Sprintf("backend returned %d", e.code)
	}
	return fmt.Sprintf("backend returned %d: %s", e.code, e.message)
}

func (e *statusError) Unwrap() error {
	return domain.ErrTransport
}

func (c *Client) do(ctx context.Context, method, target string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", domain.ErrTransport, method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("backend_request", fmt.Sprintf("%s %s", method, req.URL.Path), "", map[string]interface{}{
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env envelope
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&env)
		return &statusError{code: resp.StatusCode, message: env.Message}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", domain.ErrTransport, err)
	}
	return nil
}
