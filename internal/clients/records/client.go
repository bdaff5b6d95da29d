// Package records talks to the hotel backend that owns bookings and loyalty
// balances.
package records

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avstrong/bookingdesk/internal/apperror"
	"github.com/avstrong/bookingdesk/internal/booking"
	"github.com/avstrong/bookingdesk/internal/logger"
	"github.com/avstrong/bookingdesk/internal/loyalty"
)

const maxErrorBody = 4 << 10

type Conf struct {
	L       *logger.Logger
	BaseURL string
	Token   string
	Timeout time.Duration
}

type Client struct {
	l       *logger.Logger
	baseURL string
	token   string
	http    *http.Client
}

func New(conf Conf) *Client {
	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second //nolint:gomnd
	}

	return &Client{
		l:       conf.L,
		baseURL: strings.TrimRight(conf.BaseURL, "/"),
		token:   conf.Token,
		http:    &http.Client{Timeout: timeout}, //nolint:exhaustruct
	}
}

func (c *Client) GetBooking(ctx context.Context, id string) (*booking.Booking, error) {
	var b booking.Booking

	if err := c.do(ctx, http.MethodGet, "/bookings/"+url.PathEscape(id), nil, &b); err != nil {
		return nil, err
	}

	return &b, nil
}

func (c *Client) GetLoyalty(ctx context.Context, customerID string) (*loyalty.Record, error) {
	var rec loyalty.Record

	if err := c.do(ctx, http.MethodGet, "/customers/"+url.PathEscape(customerID)+"/loyalty", nil, &rec); err != nil {
		return nil, err
	}

	return &rec, nil
}

func (c *Client) UpdateStatus(ctx context.Context, id string, change booking.StatusChange) error {
	return c.do(ctx, http.MethodPatch, "/bookings/"+url.PathEscape(id)+"/status", change, nil)
}

func (c *Client) CreateInvoice(ctx context.Context, id string, invoice booking.InvoiceRequest) error {
	return c.do(ctx, http.MethodPost, "/bookings/"+url.PathEscape(id)+"/invoices", invoice, nil)
}

func (c *Client) Reschedule(ctx context.Context, id string, req booking.RescheduleRequest) error {
	return c.do(ctx, http.MethodPut, "/bookings/"+url.PathEscape(id)+"/dates", req, nil)
}

func (c *Client) AdjustPoints(ctx context.Context, customerID string, adj loyalty.Adjustment) error {
	return c.do(ctx, http.MethodPost, "/customers/"+url.PathEscape(customerID)+"/loyalty/adjustments", adj, nil)
}

// do sends one request. Nothing is retried: a failed call surfaces as a
// RemoteFailure and the caller decides whether to trigger it again.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	op := method + " " + path

	var body io.Reader

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", op, err)
		}

		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request %s: %w", op, err)
	}

	req.Header.Set("Accept", "application/json")

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	if key, ok := booking.IdempotencyKeyFromContext(ctx); ok && method != http.MethodGet {
		req.Header.Set("Idempotency-Key", key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperror.Remote(op, 0, err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.l.LogErrorf("Could not close response body of %s: %v", op, err)
		}
	}()

	if resp.StatusCode == http.StatusNotFound {
		return apperror.Remote(op, resp.StatusCode, apperror.ErrNotFound)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		c.l.LogErrorf("Owner of record answered %s with %d: %s", op, resp.StatusCode, msg)

		return apperror.Remote(op, resp.StatusCode, remoteMessage(msg))
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperror.Remote(op, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}

	return nil
}

// remoteMessage prefers the "message" or "error" field of a JSON error body.
func remoteMessage(body []byte) error {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}

	if err := json.Unmarshal(body, &parsed); err == nil {
		switch {
		case parsed.Message != "":
			return errors.New(parsed.Message) //nolint:goerr113
		case parsed.Error != "":
			return errors.New(parsed.Error) //nolint:goerr113
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		text = "empty response"
	}

	return errors.New(text) //nolint:goerr113
}
