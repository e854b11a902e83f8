package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localix/preloadd/pkg/api/auth"
	"github.com/localix/preloadd/pkg/api/handlers"
	"github.com/localix/preloadd/pkg/cache"
	"github.com/localix/preloadd/pkg/fetch"
	"github.com/localix/preloadd/pkg/preload"
	"github.com/localix/preloadd/pkg/source"
)

const testSecret = "test-secret-key-must-be-32-chars!"

// gatedFetcher returns one item per key. Keys with a gate block until it is
// closed or the fetch is cancelled.
type gatedFetcher struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
}

func (f *gatedFetcher) Fetch(ctx context.Context, key string, _ source.Params) (source.Records, error) {
	f.mu.Lock()
	gate := f.gates[key]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return source.Records{}, ctx.Err()
		}
	}
	return source.Records{Items: []map[string]any{{"key": key}}, Count: 1}, nil
}

func (f *gatedFetcher) block(key string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[key] = ch
	return ch
}

type testEnv struct {
	scheduler *preload.Scheduler
	fetcher   *gatedFetcher
	handler   http.Handler
}

func newTestEnv(t *testing.T, jwtService *auth.JWTService) *testEnv {
	t.Helper()

	coord := fetch.NewCoordinator(cache.New[source.Records](10))
	s := preload.NewScheduler(coord, preload.SchedulerConfig{RefreshInterval: time.Minute})
	f := &gatedFetcher{gates: make(map[string]chan struct{})}

	require.NoError(t, s.Register(preload.Resource{Key: "products", Priority: fetch.PriorityMedium, Fetcher: f}))
	require.NoError(t, s.Register(preload.Resource{Key: "categories", Priority: fetch.PriorityHigh, Fetcher: f}))

	t.Cleanup(func() {
		s.Shutdown()
		coord.Wait()
	})
	return &testEnv{scheduler: s, fetcher: f, handler: NewRouter(s, jwtService)}
}

func (e *testEnv) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	return w
}

func (e *testEnv) preloadAndWait(t *testing.T) {
	t.Helper()
	_, err := e.scheduler.PreloadAll(context.Background(), nil)
	require.NoError(t, err)
	e.scheduler.Coordinator().Wait()
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v), w.Body.String())
	return v
}

func TestRouter_Health(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
}

func TestRouter_ListResources(t *testing.T) {
	env := newTestEnv(t, nil)
	env.preloadAndWait(t)

	w := env.do(t, http.MethodGet, "/api/v1/resources", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	list := decode[[]handlers.ResourceSummary](t, w)
	require.Len(t, list, 2)
	assert.Equal(t, "categories", list[0].Key)
	assert.Equal(t, fetch.PriorityHigh, list[0].Priority)
	assert.Equal(t, "products", list[1].Key)
	for _, r := range list {
		assert.Equal(t, fetch.StatusSuccess, r.Status)
		assert.Equal(t, 1, r.Items)
		assert.False(t, r.IsStale)
		assert.NotNil(t, r.LastUpdated)
	}
}

func TestRouter_GetResource(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/api/v1/resources/orders", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, handlers.ContentTypeProblemJSON, w.Header().Get("Content-Type"))

	w = env.do(t, http.MethodGet, "/api/v1/resources/products", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	idle := decode[preload.PreloadedData](t, w)
	assert.Equal(t, fetch.StatusIdle, idle.Status)
	assert.Nil(t, idle.Data)
	assert.False(t, idle.IsStale)

	env.preloadAndWait(t)

	w = env.do(t, http.MethodGet, "/api/v1/resources/products", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	loaded := decode[preload.PreloadedData](t, w)
	assert.Equal(t, fetch.StatusSuccess, loaded.Status)
	require.NotNil(t, loaded.Data)
	assert.Equal(t, "products", loaded.Data.Items[0]["key"])
}

func TestRouter_RefreshResource(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/v1/resources/products/refresh", "", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"products"}, decode[handlers.RefreshResponse](t, w).Requested)

	w = env.do(t, http.MethodPost, "/api/v1/resources/orders/refresh", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	env.scheduler.Coordinator().Wait()
	w = env.do(t, http.MethodPost, "/api/v1/resources/all/refresh", "", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"categories", "products"}, decode[handlers.RefreshResponse](t, w).Requested)
}

func TestRouter_CancelFetch(t *testing.T) {
	env := newTestEnv(t, nil)
	env.fetcher.block("products")

	w := env.do(t, http.MethodDelete, "/api/v1/resources/products/fetch", "", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	_, err := env.scheduler.ForceRefresh(context.Background(), "products")
	require.NoError(t, err)

	w = env.do(t, http.MethodDelete, "/api/v1/resources/products/fetch", "", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, fetch.StatusIdle, env.scheduler.GetPreloadedData("products").Status)

	w = env.do(t, http.MethodDelete, "/api/v1/resources/orders/fetch", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_Preload(t *testing.T) {
	env := newTestEnv(t, nil)
	gate := env.fetcher.block("products")

	w := env.do(t, http.MethodPost, "/api/v1/preload", `{"priority":"low"}`, "")
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"categories", "products"}, decode[handlers.RefreshResponse](t, w).Requested)

	// products is still loading
	w = env.do(t, http.MethodPost, "/api/v1/preload", "", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	close(gate)
	env.scheduler.Coordinator().Wait()

	w = env.do(t, http.MethodPost, "/api/v1/preload", `{"priority":"urgent"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/preload", `{"unknown":true}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Config(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/api/v1/config", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	cfg := decode[handlers.ConfigResponse](t, w)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "1m0s", cfg.RefreshInterval)

	w = env.do(t, http.MethodPatch, "/api/v1/config",
		`{"refresh_interval":"90s","cooldown":"0s","priorities":{"products":"critical"}}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cfg = decode[handlers.ConfigResponse](t, w)
	assert.Equal(t, "1m30s", cfg.RefreshInterval)
	assert.Equal(t, "0s", cfg.Cooldown)
	assert.Equal(t, fetch.PriorityCritical, cfg.Priorities["products"])
	assert.Equal(t, 90*time.Second, env.scheduler.Config().RefreshInterval)
	assert.Equal(t, "products", env.scheduler.Snapshot()[0].Key)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"bad duration", `{"initial_delay":"soon"}`, http.StatusUnprocessableEntity},
		{"bad priority", `{"priorities":{"products":"urgent"}}`, http.StatusUnprocessableEntity},
		{"unknown resource", `{"priorities":{"orders":"high"}}`, http.StatusUnprocessableEntity},
		{"zero interval", `{"refresh_interval":"0s"}`, http.StatusUnprocessableEntity},
		{"unknown field", `{"interval":"1m"}`, http.StatusBadRequest},
		{"malformed", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPatch, "/api/v1/config", tt.body, "")
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}
	assert.Equal(t, 90*time.Second, env.scheduler.Config().RefreshInterval)
}

func TestRouter_Cache(t *testing.T) {
	env := newTestEnv(t, nil)
	env.preloadAndWait(t)

	w := env.do(t, http.MethodGet, "/api/v1/cache", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[handlers.CacheStatsResponse](t, w)
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, 10, stats.Capacity)
	assert.Equal(t, []string{"categories", "products"}, stats.Keys)

	w = env.do(t, http.MethodPost, "/api/v1/cache/purge", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[handlers.PurgeResponse](t, w).Purged)

	w = env.do(t, http.MethodDelete, "/api/v1/cache", "", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, env.scheduler.Coordinator().Store().Len())

	// States keep their data after the cache is cleared.
	assert.Equal(t, fetch.StatusSuccess, env.scheduler.GetPreloadedData("products").Status)
}

func TestRouter_Auth(t *testing.T) {
	svc, err := auth.NewJWTService(testSecret, time.Minute)
	require.NoError(t, err)
	env := newTestEnv(t, svc)

	viewer, _, err := svc.GenerateToken("dashboard", auth.RoleViewer)
	require.NoError(t, err)
	admin, _, err := svc.GenerateToken("ops", auth.RoleAdmin)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/v1/resources", "", "").Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/resources", "", viewer).Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodPost, "/api/v1/preload", "", viewer).Code)
	assert.Equal(t, http.StatusAccepted, env.do(t, http.MethodPost, "/api/v1/preload", "", admin).Code)
}

func TestRouter_NilScheduler(t *testing.T) {
	h := NewRouter(nil, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/resources", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func readEvent(t *testing.T, r *bufio.Reader) preload.PreloadedData {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			var d preload.PreloadedData
			require.NoError(t, json.Unmarshal([]byte(data), &d))
			return d
		}
	}
}

func TestRouter_Events(t *testing.T) {
	env := newTestEnv(t, nil)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/resources/products/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	first := readEvent(t, reader)
	assert.Equal(t, "products", first.Key)
	assert.Equal(t, fetch.StatusIdle, first.Status)

	_, err = env.scheduler.ForceRefresh(context.Background(), "products")
	require.NoError(t, err)

	// Loading may be coalesced away; the stream must end on success.
	for {
		ev := readEvent(t, reader)
		require.Equal(t, "products", ev.Key)
		if ev.Status == fetch.StatusSuccess {
			require.NotNil(t, ev.Data)
			break
		}
		require.Equal(t, fetch.StatusLoading, ev.Status)
	}
}

func TestRouter_EventsUnknownResource(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodGet, "/api/v1/resources/orders/events", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewServer_ShortSecret(t *testing.T) {
	_, err := NewServer(APIConfig{JWT: JWTConfig{Secret: "short"}}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrInvalidSecretLength))
}

func TestServer_StartStop(t *testing.T) {
	srv, err := NewServer(APIConfig{Port: freePort(t)}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmtURL(srv.Port(), "/health"))
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
