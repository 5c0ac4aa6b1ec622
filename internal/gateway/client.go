package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// ServerClient forwards validated requests to the main server and optionally
// caches idempotent GET responses in Redis.
type ServerClient struct {
	baseURL    string
	httpClient *http.Client

	redis    *redis.Client
	cacheTTL time.Duration
}

type serverResponse struct {
	Status int
	Body   []byte
}

func NewServerClient(baseURL string, timeout time.Duration) *ServerClient {
	return &ServerClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// UseRedisCache configures optional Redis caching for GET endpoints.
func (c *ServerClient) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// Forward replays the request against the server, preserving the path, the
// query string, the identity header and the body.
func (c *ServerClient) Forward(ctx context.Context, method, pathAndQuery, userHeader string, body []byte) (*serverResponse, error) {
	endpoint := c.baseURL + pathAndQuery

	cacheKey := ""
	if method == http.MethodGet && c.cacheable(pathAndQuery) {
		cacheKey = fmt.Sprintf("gw:%s:%s", userHeader, pathAndQuery)
		if cached := c.readCache(ctx, cacheKey); cached != nil {
			return &serverResponse{Status: http.StatusOK, Body: cached}, nil
		}
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if userHeader != "" {
		req.Header.Set("X-Sharer-User-Id", userHeader)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read server response: %w", err)
	}

	if cacheKey != "" && resp.StatusCode == http.StatusOK {
		c.writeCache(ctx, cacheKey, data)
	}

	return &serverResponse{Status: resp.StatusCode, Body: data}, nil
}

// cacheable limits caching to the search endpoint; everything else reflects
// per-user state that must stay fresh.
func (c *ServerClient) cacheable(pathAndQuery string) bool {
	return len(pathAndQuery) >= len("/items/search") && pathAndQuery[:len("/items/search")] == "/items/search"
}

func (c *ServerClient) readCache(ctx context.Context, key string) []byte {
	if c.redis == nil || c.cacheTTL <= 0 {
		return nil
	}
	val, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	return val
}

func (c *ServerClient) writeCache(ctx context.Context, key string, data []byte) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}
