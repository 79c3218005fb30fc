package server

import (
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.public("health", s.healthHandler))
	mux.HandleFunc("GET /stats", s.public("stats", s.statsHandler))

	mux.HandleFunc("POST /tailor", s.protected("tailor", s.tailorHandler))
	mux.HandleFunc("POST /extract", s.protected("extract", s.extractHandler))
	mux.HandleFunc("POST /score", s.protected("score", s.scoreHandler))

	mux.HandleFunc("GET /history", s.protected("history", s.historyListHandler))
	mux.HandleFunc("GET /history/summary", s.protected("history_summary", s.historySummaryHandler))
	mux.HandleFunc("GET /history/{id}", s.protected("history_run", s.historyGetHandler))

	return mux
}

// public wraps an unauthenticated route
func (s *Server) public(route string, h http.HandlerFunc) http.HandlerFunc {
	return s.requestIDMiddleware(s.observeMiddleware(route, h))
}

// protected wraps a route with rate limiting, authentication and the body limit
func (s *Server) protected(route string, h http.HandlerFunc) http.HandlerFunc {
	return s.public(route,
		s.rateLimitMiddleware()(
			s.authMiddleware(s.requestSizeLimitMiddleware()(h)),
		),
	)
}

// requestIDMiddleware echoes the client's request ID or assigns one
func (s *Server) requestIDMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next(w, r)
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for _, c := range id {
		if c > unicode.MaxASCII || !unicode.IsPrint(c) || c == ' ' {
			return false
		}
	}
	return true
}

// observeMiddleware records request count and latency per route
func (s *Server) observeMiddleware(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next(wrapper, r)

		s.metrics.RecordRequest(r.Context(), route, wrapper.statusCode, time.Since(start))
		s.logger.Debug("Request served",
			"route", route,
			"method", r.Method,
			"status", wrapper.statusCode,
			"duration", time.Since(start),
			"request_id", w.Header().Get(requestIDHeader))
	}
}

// authMiddleware provides API key authentication
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Skip authentication if no API keys are configured
		if len(s.apiKeys) == 0 {
			next(w, r)
			return
		}

		apiKey := requestAPIKey(r)
		if apiKey == "" {
			s.logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			writeErrorResponse(w, r, "X-API-Key header or Authorization Bearer token required", "MISSING_API_KEY", http.StatusUnauthorized)
			return
		}

		if !s.apiKeys[apiKey] {
			s.logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r),
				"api_key_prefix", maskAPIKey(apiKey))
			writeErrorResponse(w, r, "Invalid API key", "INVALID_API_KEY", http.StatusUnauthorized)
			return
		}

		s.logger.Debug("API authentication successful",
			"endpoint", r.URL.Path,
			"api_key_prefix", maskAPIKey(apiKey))

		next(w, r)
	}
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.cfg.MaxBodyBytes > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
			}
			next(w, r)
		}
	}
}

// requestAPIKey reads X-API-Key, falling back to a Bearer token
func requestAPIKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return after
	}
	return ""
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
