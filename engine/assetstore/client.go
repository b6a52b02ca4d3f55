package assetstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Carmen-Shannon/deskvrm/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Client is a Store that talks to a Server.
type Client struct {
	baseURL string
	http    *http.Client
	tracer  trace.Tracer
}

var _ Store = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient creates a Client for the server at addr. A bare host:port is given an http scheme.
//
// Parameters:
//   - addr: the server address or base URL
//   - opts: optional client options
//
// Returns:
//   - *Client: the client
func NewClient(addr string, opts ...ClientOption) *Client {
	addr = common.Coalesce(strings.TrimSpace(addr), DefaultAddr)
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	c := &Client{
		baseURL: strings.TrimRight(addr, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns the server's model names. A response that is not OK yields an empty list.
func (c *Client) List(ctx context.Context) ([]string, error) {
	ctx, span := c.tracer.Start(ctx, "assetstore.Client.List", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	resp, err := c.do(ctx, http.MethodGet, "/vrm", nil)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return []string{}, nil
	}
	var body listResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		failSpan(span, err)
		return nil, fmt.Errorf("decode model list: %w", err)
	}
	if body.Models == nil {
		body.Models = []string{}
	}
	return body.Models, nil
}

// Read fetches a model. A response that is not OK yields ErrNotFound.
func (c *Client) Read(ctx context.Context, name string) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "assetstore.Client.Read", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("model.name", name))

	base, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodGet, "/vrm/"+url.PathEscape(base), nil)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, base)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		failSpan(span, err)
		return nil, fmt.Errorf("read model %s: %w", base, err)
	}
	return data, nil
}

// Write uploads a model.
func (c *Client) Write(ctx context.Context, name string, data []byte) error {
	ctx, span := c.tracer.Start(ctx, "assetstore.Client.Write", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("model.name", name), attribute.Int("model.size", len(data)))

	base, err := CleanName(name)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPost, "/vrm/"+url.PathEscape(base), bytes.NewReader(data))
	if err != nil {
		failSpan(span, err)
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("write model %s: server returned %s", base, resp.Status)
		failSpan(span, err)
		return err
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}
