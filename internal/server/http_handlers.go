package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"atstailor/internal/errors"
	"atstailor/internal/types"
)

var validate = validator.New()

const healthCheckTimeout = 2 * time.Second

// healthHandler reports liveness and the state of the run history database
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"service": "atstailor",
		"version": s.version,
	}

	status := http.StatusOK
	if store := s.svc.History(); store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			s.logger.LogError(err, "Health check failed")
			response["status"] = "degraded"
			response["history"] = map[string]any{"available": false, "error": err.Error()}
			status = http.StatusServiceUnavailable
		} else {
			response["history"] = map[string]any{"available": true}
		}
	}

	writeJSON(w, status, response)
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service":        "atstailor",
		"version":        s.version,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
		"server": map[string]any{
			"max_body_bytes": s.cfg.MaxBodyBytes,
			"auth_enabled":   len(s.apiKeys) > 0,
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	if s.cacheStats != nil {
		response["cache"] = s.cacheStats()
	}

	if store := s.svc.History(); store != nil {
		if sum, err := store.Summary(r.Context()); err == nil {
			response["history"] = sum
		} else {
			s.logger.LogError(err, "Failed to summarize history for stats")
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// parseJSONRequest decodes and validates the JSON request body into v
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "content-type must be application/json", err)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return errors.NewValidationError("REQUEST_TOO_LARGE",
				fmt.Sprintf("request body too large (limit is %d bytes)", maxBytesErr.Limit), err)
		}
		return errors.NewIOError(errors.ErrCodeInvalidRequest, "failed to read request body", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "failed to parse JSON", err)
	}
	if err := validate.Struct(v); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidInput, validationMessage(err), err)
	}
	return nil
}

// validationMessage names the first failing field
func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		if fe.Tag() == "required" {
			return fmt.Sprintf("%s is required", fe.Field())
		}
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
	return "invalid request"
}

// writeAppError maps err onto an HTTP status and writes it
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.LogError(err, "Request failed", "endpoint", r.URL.Path)
	}

	message := err.Error()
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		message = appErr.Message
	}
	writeErrorResponse(w, r, message, errors.CodeOf(err), status)
}

// statusFor returns the HTTP status of an application error
func statusFor(err error) int {
	code := errors.CodeOf(err)
	switch {
	case code == "REQUEST_TOO_LARGE":
		return http.StatusRequestEntityTooLarge
	case code == errors.ErrCodeNotFound || code == errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	}

	switch errors.TypeOf(err) {
	case errors.ErrorTypeValidation:
		return http.StatusBadRequest
	case errors.ErrorTypeStorage, errors.ErrorTypeQueue, errors.ErrorTypeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, r *http.Request, message, code string, statusCode int) {
	writeJSON(w, statusCode, types.ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: r.Header.Get(requestIDHeader),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) // headers are already sent
}
