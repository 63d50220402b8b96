package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const HeaderCorrelationID = "X-Correlation-Id"

// maxErrorBody caps how much of a failed response is read for its message.
const maxErrorBody = 4 << 10

type ctxKey struct{}

// WithCorrelationID attaches id to ctx; requests made with ctx carry it.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func CorrelationID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok {
		return v
	}
	return ""
}

// Client talks JSON over HTTP to the restaurant service.
type Client struct {
	http   *http.Client
	logger *zap.Logger

	mu      sync.RWMutex
	baseURL *url.URL
}

func New(baseURL string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	c := &Client{
		http:   &http.Client{Timeout: timeout},
		logger: logger.Named("client"),
	}
	if err := c.SetBaseURL(baseURL); err != nil {
		return nil, err
	}
	return c, nil
}

// SetBaseURL points the client at a new service instance.
func (c *Client) SetBaseURL(baseURL string) error {
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid service base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid service base url %q: scheme and host required", baseURL)
	}

	c.mu.Lock()
	c.baseURL = u
	c.mu.Unlock()
	return nil
}

func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL.String()
}

// resolve appends path to the base URL, keeping any path prefix the base
// carries (http://host/api + /menu/ is http://host/api/menu/).
func (c *Client) resolve(path string) string {
	c.mu.RLock()
	u := *c.baseURL
	c.mu.RUnlock()

	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// do sends in as the JSON body (when non-nil) and decodes a 2xx response
// into out (when non-nil). Every failure comes back as *models.ServiceError.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return serviceError(op, 0, "", fmt.Errorf("failed to encode request: %w", err))
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), body)
	if err != nil {
		return serviceError(op, 0, "", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	cid := CorrelationID(ctx)
	if cid == "" {
		cid = uuid.NewString()
	}
	req.Header.Set(HeaderCorrelationID, cid)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("Service request failed",
			zap.String("op", op),
			zap.String("correlation_id", cid),
			zap.Error(err))
		return serviceError(op, 0, "", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Service request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
		zap.String("correlation_id", cid))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return serviceError(op, resp.StatusCode, errorMessage(raw), nil)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return serviceError(op, resp.StatusCode, "", fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// errorMessage extracts a readable message from an error body. FastAPI
// sends {"detail": "..."} or {"detail": [{"msg": "..."}]}.
func errorMessage(raw []byte) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Detail) > 0 {
		var s string
		if json.Unmarshal(env.Detail, &s) == nil {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if json.Unmarshal(env.Detail, &items) == nil && len(items) > 0 {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
		return string(env.Detail)
	}
	return strings.TrimSpace(string(raw))
}
