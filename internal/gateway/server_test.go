package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"shareit/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backendCall struct {
	Method string
	Path   string
	User   string
	Body   string
}

func newTestGateway(t *testing.T, cfg config.GatewayConfig) (*httptest.Server, *atomic.Int64, *backendCall) {
	t.Helper()

	var calls atomic.Int64
	last := &backendCall{}
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		body, _ := io.ReadAll(r.Body)
		last.Method = r.Method
		last.Path = r.URL.Path
		last.User = r.Header.Get(headerUserID)
		last.Body = string(body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(backend.Close)

	logger := zerolog.New(io.Discard)
	client := NewServerClient(backend.URL, 5*time.Second)
	gw := NewGateway(cfg, client, &logger)
	gw.now = func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) }

	ts := httptest.NewServer(gw.Handler())
	t.Cleanup(ts.Close)
	return ts, &calls, last
}

func doGatewayRequest(t *testing.T, method, url, user string, payload any) *http.Response {
	t.Helper()

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if user != "" {
		req.Header.Set(headerUserID, user)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestGatewayForwardsValidRequests(t *testing.T) {
	ts, calls, last := newTestGateway(t, config.GatewayConfig{})

	resp := doGatewayRequest(t, http.MethodPost, ts.URL+"/users", "", map[string]string{
		"name": "Alice", "email": "alice@example.com",
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, "/users", last.Path)
	assert.Contains(t, last.Body, "alice@example.com")
}

func TestGatewayPreservesUserHeader(t *testing.T) {
	ts, _, last := newTestGateway(t, config.GatewayConfig{})

	resp := doGatewayRequest(t, http.MethodGet, ts.URL+"/items", "7", nil)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "7", last.User)
}

func TestGatewayRejectsInvalidRequests(t *testing.T) {
	ts, calls, _ := newTestGateway(t, config.GatewayConfig{})

	tests := []struct {
		name    string
		method  string
		path    string
		user    string
		payload any
	}{
		{"blank user name", http.MethodPost, "/users", "", map[string]string{"name": " ", "email": "a@b.com"}},
		{"malformed email", http.MethodPost, "/users", "", map[string]string{"name": "Alice", "email": "nope"}},
		{"patch malformed email", http.MethodPatch, "/users/1", "", map[string]string{"email": "nope"}},
		{"missing user header", http.MethodPost, "/items", "", map[string]any{"name": "Drill", "description": "d", "available": true}},
		{"blank item name", http.MethodPost, "/items", "1", map[string]any{"name": "", "description": "d", "available": true}},
		{"blank description", http.MethodPost, "/items", "1", map[string]any{"name": "Drill", "description": " ", "available": true}},
		{"missing available", http.MethodPost, "/items", "1", map[string]any{"name": "Drill", "description": "d"}},
		{"blank comment", http.MethodPost, "/items/1/comment", "1", map[string]string{"text": " "}},
		{"blank request description", http.MethodPost, "/requests", "1", map[string]string{"description": ""}},
		{"bad approved flag", http.MethodPatch, "/bookings/1?approved=maybe", "1", nil},
		{"negative from", http.MethodGet, "/bookings?from=-1", "1", nil},
		{"zero size", http.MethodGet, "/requests/all?size=0", "1", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doGatewayRequest(t, tt.method, ts.URL+tt.path, tt.user, tt.payload)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}

	assert.Equal(t, int64(0), calls.Load())
}

func TestGatewayBookingTimeValidation(t *testing.T) {
	ts, calls, _ := newTestGateway(t, config.GatewayConfig{})

	past := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	resp := doGatewayRequest(t, http.MethodPost, ts.URL+"/bookings", "1", map[string]any{
		"itemId": 1, "start": past, "end": past.Add(time.Hour),
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	start := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	resp = doGatewayRequest(t, http.MethodPost, ts.URL+"/bookings", "1", map[string]any{
		"itemId": 1, "start": start, "end": start,
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doGatewayRequest(t, http.MethodPost, ts.URL+"/bookings", "1", map[string]any{
		"itemId": 1, "start": start, "end": start.Add(time.Hour),
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1), calls.Load())
}

func TestGatewayRateLimit(t *testing.T) {
	ts, _, _ := newTestGateway(t, config.GatewayConfig{RPS: 1, Burst: 2})

	statuses := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		resp := doGatewayRequest(t, http.MethodGet, ts.URL+"/users", "", nil)
		statuses = append(statuses, resp.StatusCode)
		resp.Body.Close()
	}

	assert.Equal(t, http.StatusOK, statuses[0])
	assert.Equal(t, http.StatusOK, statuses[1])
	assert.Contains(t, statuses, http.StatusTooManyRequests)
}

func TestGatewaySearchCaching(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer redisClient.Close()

	var calls atomic.Int64
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer backend.Close()

	logger := zerolog.New(io.Discard)
	client := NewServerClient(backend.URL, 5*time.Second)
	client.UseRedisCache(redisClient, time.Minute)
	gw := NewGateway(config.GatewayConfig{}, client, &logger)

	ts := httptest.NewServer(gw.Handler())
	defer ts.Close()

	for i := 0; i < 3; i++ {
		resp := doGatewayRequest(t, http.MethodGet, ts.URL+"/items/search?text=drill", "1", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	assert.Equal(t, int64(1), calls.Load())
}
