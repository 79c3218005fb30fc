package server

import (
	"net/http"
	"slices"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"atstailor/internal/common"
	"atstailor/internal/errors"
	"atstailor/internal/formatters"
	"atstailor/internal/history"
	"atstailor/internal/types"
)

// tailorHandler tailors a résumé. ?format=text|markdown|resume renders the
// result instead of returning JSON.
func (s *Server) tailorHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer("atstailor.api").Start(r.Context(), "api.tailor")
	defer span.End()

	format := r.URL.Query().Get("format")
	if format != "" && format != "json" {
		if !slices.Contains(formatters.GlobalRegistry.GetSupportedFormats(), format) {
			writeErrorResponse(w, r, "unsupported format: "+format, errors.ErrCodeInvalidFormat, http.StatusBadRequest)
			return
		}
	}

	var req types.TailorRequest
	if err := parseJSONRequest(r, &req); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "validation"))
		s.writeAppError(w, r, err)
		return
	}
	if req.Options != nil {
		if err := req.Options.Validate(); err != nil {
			span.RecordError(err)
			s.writeAppError(w, r, errors.NewValidationError(errors.ErrCodeInvalidInput, "invalid options: "+err.Error(), err))
			return
		}
	}

	span.SetAttributes(
		attribute.Int("request.resume_length", len(req.ResumeText)),
		attribute.Int("request.job_length", len(req.JobDescription)),
	)

	out, err := s.svc.Tailor(ctx, history.SourceHTTP, "", req.ResumeText, req.JobDescription, req.Options)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errors.CodeOf(err))
		s.writeAppError(w, r, err)
		return
	}

	span.SetAttributes(
		attribute.Int("tailor.match_score", out.Result.MatchScore),
		attribute.Int("tailor.original_score", out.Result.OriginalScore),
	)
	if out.RunID != "" {
		w.Header().Set("X-Run-ID", out.RunID)
	}

	if format == "" || format == "json" {
		writeJSON(w, http.StatusOK, out)
		return
	}
	s.writeFormatted(w, r, out, format)
}

// extractHandler returns the tiered keyword set of a job description
func (s *Server) extractHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer("atstailor.api").Start(r.Context(), "api.extract")
	defer span.End()

	var req types.ExtractRequest
	if err := parseJSONRequest(r, &req); err != nil {
		span.RecordError(err)
		s.writeAppError(w, r, err)
		return
	}

	set, err := s.svc.Extract(ctx, req.JobDescription, req.MaxKeywords)
	if err != nil {
		span.RecordError(err)
		s.writeAppError(w, r, err)
		return
	}
	span.SetAttributes(attribute.Int("keywords.count", set.Len()))

	writeJSON(w, http.StatusOK, types.ExtractOutput{Keywords: set})
}

// scoreHandler scores a résumé against a job description without changing it
func (s *Server) scoreHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer("atstailor.api").Start(r.Context(), "api.score")
	defer span.End()

	var req types.ScoreRequest
	if err := parseJSONRequest(r, &req); err != nil {
		span.RecordError(err)
		s.writeAppError(w, r, err)
		return
	}

	out, err := s.svc.Score(ctx, req.ResumeText, req.JobDescription, req.MaxKeywords)
	if err != nil {
		span.RecordError(err)
		s.writeAppError(w, r, err)
		return
	}
	span.SetAttributes(attribute.Int("score.percent", out.Score.Percent))

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) historyListHandler(w http.ResponseWriter, r *http.Request) {
	store := s.historyStore(w, r)
	if store == nil {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeErrorResponse(w, r, "limit must be a non-negative integer", errors.ErrCodeInvalidRequest, http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := store.List(r.Context(), limit)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) historySummaryHandler(w http.ResponseWriter, r *http.Request) {
	store := s.historyStore(w, r)
	if store == nil {
		return
	}
	sum, err := store.Summary(r.Context())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) historyGetHandler(w http.ResponseWriter, r *http.Request) {
	store := s.historyStore(w, r)
	if store == nil {
		return
	}
	run, err := store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// historyStore returns the run store or answers 503 when history is disabled
func (s *Server) historyStore(w http.ResponseWriter, r *http.Request) *history.Store {
	store := s.svc.History()
	if store == nil {
		writeErrorResponse(w, r, "run history is disabled", "HISTORY_DISABLED", http.StatusServiceUnavailable)
	}
	return store
}

// writeFormatted renders data with a registered formatter
func (s *Server) writeFormatted(w http.ResponseWriter, r *http.Request, data any, format string) {
	body, err := formatters.GlobalRegistry.Format(data, format)
	if err != nil {
		s.writeAppError(w, r, errors.NewValidationError(errors.ErrCodeInvalidFormat, "failed to format output", err))
		return
	}
	w.Header().Set("Content-Type", common.ContentType(format))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		s.logger.LogError(err, "Failed to write response")
	}
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWrapper) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWrapper) Write(b []byte) (int, error) {
	rw.written = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWrapper) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
