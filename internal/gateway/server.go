package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"shareit/internal/config"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const headerUserID = "X-Sharer-User-Id"

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Gateway validates incoming requests and forwards the well-formed ones to
// the main server. Requests that fail validation never leave the gateway.
type Gateway struct {
	cfg      config.GatewayConfig
	client   *ServerClient
	logger   *zerolog.Logger
	server   *http.Server
	limiters sync.Map // map[string]*rate.Limiter
	now      func() time.Time
}

func NewGateway(cfg config.GatewayConfig, client *ServerClient, logger *zerolog.Logger) *Gateway {
	gw := &Gateway{
		cfg:    cfg,
		client: client,
		logger: logger,
		now:    time.Now,
	}

	gw.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return gw
}

func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /users", g.validated(g.validateUserCreate, false))
	mux.HandleFunc("PATCH /users/{id}", g.validated(g.validateUserPatch, false))
	mux.HandleFunc("GET /users", g.validated(nil, false))
	mux.HandleFunc("GET /users/{id}", g.validated(nil, false))
	mux.HandleFunc("DELETE /users/{id}", g.validated(nil, false))

	mux.HandleFunc("POST /items", g.validated(g.validateItemCreate, true))
	mux.HandleFunc("PATCH /items/{id}", g.validated(nil, true))
	mux.HandleFunc("GET /items", g.validated(g.validatePagination, true))
	mux.HandleFunc("GET /items/search", g.validated(g.validatePagination, true))
	mux.HandleFunc("GET /items/{id}", g.validated(nil, true))
	mux.HandleFunc("POST /items/{id}/comment", g.validated(g.validateComment, true))

	mux.HandleFunc("POST /bookings", g.validated(g.validateBookingCreate, true))
	mux.HandleFunc("PATCH /bookings/{id}", g.validated(g.validateApproved, true))
	mux.HandleFunc("GET /bookings", g.validated(g.validatePagination, true))
	mux.HandleFunc("GET /bookings/owner", g.validated(g.validatePagination, true))
	mux.HandleFunc("GET /bookings/{id}", g.validated(nil, true))

	mux.HandleFunc("POST /requests", g.validated(g.validateRequestCreate, true))
	mux.HandleFunc("GET /requests", g.validated(nil, true))
	mux.HandleFunc("GET /requests/all", g.validated(g.validatePagination, true))
	mux.HandleFunc("GET /requests/{id}", g.validated(nil, true))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return g.rateLimit(mux)
}

func (g *Gateway) Start() error {
	if g.server == nil {
		return fmt.Errorf("gateway server is not initialized")
	}
	g.logger.Info().Str("addr", g.server.Addr).Msg("gateway listening")
	if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	return g.server.Shutdown(ctx)
}

type validator func(r *http.Request, body []byte) error

// validated reads the body once, runs the validator and forwards on success.
func (g *Gateway) validated(validate validator, requireUser bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userHeader := strings.TrimSpace(r.Header.Get(headerUserID))
		if requireUser {
			if userHeader == "" {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("%s header is required", headerUserID))
				return
			}
			if _, err := strconv.ParseInt(userHeader, 10, 64); err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s header: %s", headerUserID, userHeader))
				return
			}
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read request body")
			return
		}

		if validate != nil {
			if err := validate(r, body); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}

		pathAndQuery := r.URL.Path
		if r.URL.RawQuery != "" {
			pathAndQuery += "?" + r.URL.RawQuery
		}

		resp, err := g.client.Forward(r.Context(), r.Method, pathAndQuery, userHeader, body)
		if err != nil {
			g.logger.Error().Err(err).Str("path", r.URL.Path).Msg("forward error")
			writeError(w, http.StatusBadGateway, "server unavailable")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.Status)
		_, _ = w.Write(resp.Body)
	}
}

func (g *Gateway) validateUserCreate(r *http.Request, body []byte) error {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("name must not be blank")
	}
	return validateEmail(req.Email)
}

func (g *Gateway) validateUserPatch(r *http.Request, body []byte) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	if strings.TrimSpace(req.Email) != "" {
		return validateEmail(req.Email)
	}
	return nil
}

func (g *Gateway) validateItemCreate(r *http.Request, body []byte) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Available   *bool  `json:"available"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("item name must not be blank")
	}
	if strings.TrimSpace(req.Description) == "" {
		return fmt.Errorf("item description must not be blank")
	}
	if req.Available == nil {
		return fmt.Errorf("available is required")
	}
	return nil
}

func (g *Gateway) validateComment(r *http.Request, body []byte) error {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return fmt.Errorf("comment text must not be blank")
	}
	return nil
}

func (g *Gateway) validateBookingCreate(r *http.Request, body []byte) error {
	var req struct {
		ItemID int64      `json:"itemId"`
		Start  *time.Time `json:"start"`
		End    *time.Time `json:"end"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	if req.ItemID <= 0 {
		return fmt.Errorf("itemId is required")
	}
	if req.Start == nil || req.End == nil {
		return fmt.Errorf("start and end are required")
	}
	if !req.Start.Before(*req.End) {
		return fmt.Errorf("wrong booking time: start must precede end")
	}
	if req.Start.Before(g.now()) {
		return fmt.Errorf("booking cannot start in the past")
	}
	return nil
}

func (g *Gateway) validateApproved(r *http.Request, body []byte) error {
	raw := strings.TrimSpace(r.URL.Query().Get("approved"))
	if _, err := strconv.ParseBool(raw); err != nil {
		return fmt.Errorf("approved must be true or false")
	}
	return nil
}

func (g *Gateway) validateRequestCreate(r *http.Request, body []byte) error {
	var req struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	if strings.TrimSpace(req.Description) == "" {
		return fmt.Errorf("request description must not be blank")
	}
	return nil
}

func (g *Gateway) validatePagination(r *http.Request, body []byte) error {
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		from, err := strconv.Atoi(raw)
		if err != nil || from < 0 {
			return fmt.Errorf("from must not be negative")
		}
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("size")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 {
			return fmt.Errorf("size must be positive")
		}
	}
	return nil
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email must not be blank")
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("malformed email: %s", email)
	}
	return nil
}

// rateLimit throttles per caller with a token bucket. Callers are keyed by
// the identity header, falling back to the client address.
func (g *Gateway) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.cfg.RPS <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		if !g.getLimiter(g.clientKey(r)).Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gateway) clientKey(r *http.Request) string {
	if userHeader := strings.TrimSpace(r.Header.Get(headerUserID)); userHeader != "" {
		return userHeader
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

func (g *Gateway) getLimiter(key string) *rate.Limiter {
	if v, ok := g.limiters.Load(key); ok {
		if lim, ok := v.(*rate.Limiter); ok {
			return lim
		}
	}

	burst := g.cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(g.cfg.RPS), burst)
	actual, loaded := g.limiters.LoadOrStore(key, lim)
	if loaded {
		if actualLim, ok := actual.(*rate.Limiter); ok {
			return actualLim
		}
	}
	return lim
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
