package api

import (
	"net"
	"net/http"
	"strings"
	"time"

	"shareit/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func (s *HTTPServer) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)

		logger := s.logger.With().Str("request_id", requestID).Logger()
		ctx := logger.WithContext(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(r.Method + " " + r.URL.Path)
		zerolog.Ctx(r.Context()).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// rateLimitMiddleware keys requests by acting user, falling back to the
// client address for anonymous endpoints. Limiter errors fail open.
func (s *HTTPServer) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil || s.rate.Requests <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		key := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if key == "" {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil || host == "" {
				host = "unknown"
			}
			key = host
		}

		window := time.Duration(s.rate.Window) * time.Second
		allowed, err := s.limiter.Allow(r.Context(), key, s.rate.Requests, window)
		if err != nil {
			s.logger.Error().Err(err).Msg("rate limiter error")
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}
