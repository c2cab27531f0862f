// Package api реализует HTTP-взаимодействие с удалённым API магазина.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Error is a server-rejected request: the API answered with a non-success
// status. The message comes from the response body when the server sent one.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// Client инкапсулирует запросы к удалённому API с опциональной bearer-авторизацией.
type Client struct {
	origin     string
	httpClient *http.Client
}

func NewClient(origin string, timeout time.Duration) *Client {
	return &Client{
		origin: strings.TrimRight(origin, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Do выполняет запрос и декодирует JSON-ответ в out (если out != nil).
// Транспортные ошибки и отказы сервера возвращаются как обычные ошибки,
// различать их вызывающий код не обязан.
func (c *Client) Do(ctx context.Context, method, path, token string, body, out any) error {
	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.origin+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	requestsInFlight.Inc()
	start := time.Now()

	resp, err := c.httpClient.Do(req)

	requestsInFlight.Dec()
	requestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	if err != nil {
		requestsTotal.WithLabelValues(method, outcomeTransport).Inc()
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		requestsTotal.WithLabelValues(method, outcomeRejected).Inc()
		return &Error{Status: resp.StatusCode, Message: decodeMessage(resp)}
	}

	requestsTotal.WithLabelValues(method, outcomeOK).Inc()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func decodeMessage(resp *http.Response) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return resp.Status
}
