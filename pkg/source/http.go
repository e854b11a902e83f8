package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/localix/preloadd/internal/logger"
	"github.com/localix/preloadd/internal/telemetry"
)

const (
	// DefaultHTTPTimeout bounds a single request, including reading the body.
	DefaultHTTPTimeout = 10 * time.Second

	// DefaultMaxConcurrent caps in-flight requests to the backend.
	DefaultMaxConcurrent = 10

	// maxBodySize guards against runaway responses (50 MiB).
	maxBodySize = 50 << 20
)

// Route maps a resource key to an endpoint.
type Route struct {
	// Path is resolved against the base URL, e.g. "/productos/productos/".
	Path string

	// Params are default query parameters. Per-call params override them.
	Params Params

	// ItemsField names the field holding the collection when the endpoint
	// wraps it in an object. Empty means auto-detect.
	ItemsField string
}

// HTTPConfig configures the HTTP fetcher.
type HTTPConfig struct {
	// BaseURL is the API root, e.g. "https://shop.example.com/api".
	BaseURL string

	// Token is sent as "Authorization: Bearer <token>" when non-empty.
	Token string

	// Timeout bounds each request. Zero means DefaultHTTPTimeout.
	Timeout time.Duration

	// MaxConcurrent caps in-flight requests. Zero means DefaultMaxConcurrent.
	MaxConcurrent int

	// Routes maps resource keys to endpoints.
	Routes map[string]Route

	// Client overrides the HTTP client (tests).
	Client *http.Client
}

// HTTP fetches resources from a REST backend.
type HTTP struct {
	baseURL *url.URL
	token   string
	client  *http.Client
	sem     *semaphore.Weighted
	routes  map[string]Route
}

// NewHTTP creates an HTTP fetcher.
func NewHTTP(cfg HTTPConfig) (*HTTP, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL scheme %q", base.Scheme)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	maxConc := cfg.MaxConcurrent
	if maxConc <= 0 {
		maxConc = DefaultMaxConcurrent
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxConnsPerHost:     maxConc,
				MaxIdleConnsPerHost: maxConc,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	routes := make(map[string]Route, len(cfg.Routes))
	for k, r := range cfg.Routes {
		r.Params = r.Params.Clone()
		routes[k] = r
	}

	return &HTTP{
		baseURL: base,
		token:   cfg.Token,
		client:  client,
		sem:     semaphore.NewWeighted(int64(maxConc)),
		routes:  routes,
	}, nil
}

// Fetch implements Fetcher.
func (h *HTTP) Fetch(ctx context.Context, key string, params Params) (Records, error) {
	route, ok := h.routes[key]
	if !ok {
		return Records{}, fmt.Errorf("no HTTP route for resource %q", key)
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return Records{}, err
	}
	defer h.sem.Release(1)

	ctx, span := telemetry.StartSourceSpan(ctx, telemetry.SpanSourceHTTP, key,
		telemetry.SourceType(string(TypeHTTP)))
	defer span.End()

	target := h.url(route, params)
	op := "GET " + route.Path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Records{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Records{}, ctxErr
		}
		telemetry.RecordError(ctx, err)
		return Records{}, &TransportError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	telemetry.SetAttributes(ctx, telemetry.HTTPStatus(resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Records{}, ctxErr
		}
		return Records{}, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		terr := &TransportError{Op: op, StatusCode: resp.StatusCode}
		if detail := errorDetail(body); detail != "" {
			terr.Err = errors.New(detail)
		}
		logger.DebugCtx(ctx, "Backend returned error status",
			logger.KeyResource, key,
			logger.KeyURL, route.Path,
			logger.KeyHTTPStatus, resp.StatusCode)
		return Records{}, terr
	}

	records, err := Normalize(body, route.ItemsField)
	if err != nil {
		return Records{}, err
	}
	telemetry.SetAttributes(ctx, telemetry.Items(records.Len()))
	return records, nil
}

func (h *HTTP) url(route Route, params Params) string {
	u := *h.baseURL
	u.Path = h.baseURL.Path + "/" + strings.TrimPrefix(route.Path, "/")

	q := url.Values{}
	for k, v := range route.Params {
		q.Set(k, v)
	}
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// errorDetail extracts a human message from a REST error body such as
// {"detail": "..."} or {"error": "..."}.
func errorDetail(body []byte) string {
	var doc map[string]any
	if json.Unmarshal(body, &doc) != nil {
		return ""
	}
	for _, field := range []string{"detail", "error", "message"} {
		if s, ok := doc[field].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// Ensure HTTP implements Fetcher.
var _ Fetcher = (*HTTP)(nil)
