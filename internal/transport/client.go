// internal/transport/client.go
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"delivery-pipeline/internal/common/httpclient"
	"delivery-pipeline/internal/common/logger"
	"delivery-pipeline/internal/common/metrics"
)

// Outcome reports whether a delivery attempt landed and the last HTTP
// status observed. A zero StatusCode means no response was received.
type Outcome struct {
	OK         bool `json:"ok"`
	StatusCode int  `json:"httpStatus"`
}

// Client delivers notification payloads to the configured endpoint.
// POST with a JSON body is attempted first; when the endpoint does not
// accept it the payload is retried as a GET with flattened query
// parameters. Send never returns an error for delivery failures.
type Client struct {
	http      *httpclient.Client
	authToken string
	logger    logger.Logger
}

func NewClient(timeout time.Duration, authToken string, log logger.Logger) *Client {
	return &Client{
		http:      httpclient.New(timeout),
		authToken: authToken,
		logger:    log,
	}
}

func (c *Client) Send(ctx context.Context, endpoint string, payload map[string]interface{}) Outcome {
	outcome := c.post(ctx, endpoint, payload)
	if outcome.OK {
		return outcome
	}

	c.logger.Warn("POST delivery failed, retrying as GET", map[string]interface{}{
		"endpoint":   endpoint,
		"httpStatus": outcome.StatusCode,
	})
	return c.get(ctx, endpoint, payload)
}

func (c *Client) post(ctx context.Context, endpoint string, payload map[string]interface{}) Outcome {
	body, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("failed to encode payload", map[string]interface{}{"error": err.Error()})
		metrics.TransportAttempts.WithLabelValues("post", "error").Inc()
		return Outcome{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		metrics.TransportAttempts.WithLabelValues("post", "error").Inc()
		return Outcome{}
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	return c.do(req, "post")
}

func (c *Client) get(ctx context.Context, endpoint string, payload map[string]interface{}) Outcome {
	target, err := url.Parse(endpoint)
	if err != nil {
		metrics.TransportAttempts.WithLabelValues("get", "error").Inc()
		return Outcome{}
	}

	query := target.Query()
	for key, value := range FlattenParams(payload) {
		query.Set(key, value)
	}
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		metrics.TransportAttempts.WithLabelValues("get", "error").Inc()
		return Outcome{}
	}
	c.authorize(req)

	return c.do(req, "get")
}

func (c *Client) do(req *http.Request, method string) Outcome {
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("delivery request failed", map[string]interface{}{
			"method": method,
			"error":  err.Error(),
		})
		metrics.TransportAttempts.WithLabelValues(method, "error").Inc()
		return Outcome{}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if ok {
		metrics.TransportAttempts.WithLabelValues(method, "success").Inc()
	} else {
		metrics.TransportAttempts.WithLabelValues(method, "rejected").Inc()
	}
	return Outcome{OK: ok, StatusCode: resp.StatusCode}
}

func (c *Client) authorize(req *http.Request) {
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
}

// FlattenParams renders a payload as single-level query parameters.
// Scalars become their string form; nested maps and arrays are carried
// as compact JSON so no structure is lost on the wire.
func FlattenParams(payload map[string]interface{}) map[string]string {
	params := make(map[string]string, len(payload))
	for key, value := range payload {
		switch v := value.(type) {
		case nil:
			params[key] = ""
		case string:
			params[key] = v
		case bool:
			params[key] = fmt.Sprintf("%t", v)
		case float64:
			params[key] = formatNumber(v)
		case int:
			params[key] = fmt.Sprintf("%d", v)
		case int64:
			params[key] = fmt.Sprintf("%d", v)
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				params[key] = fmt.Sprintf("%v", v)
				continue
			}
			params[key] = string(encoded)
		}
	}
	return params
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
