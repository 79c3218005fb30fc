package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atstailor/internal/cache"
	"atstailor/internal/config"
	"atstailor/internal/history"
	"atstailor/internal/keywords"
	"atstailor/internal/service"
	"atstailor/internal/tailor"
	"atstailor/internal/types"
)

const jobText = "We are hiring a Senior Backend Engineer. You will build services in Python and Go on AWS. " +
	"Python is our main language; AWS Lambda and Kubernetes power our platform."

const resumeText = `Jane Doe

EXPERIENCE
Acme Corp | Senior Engineer | Jan 2021 - Present
- Built internal dashboards for sales reporting.
- Designed the event ingestion layer
- Migrated billing jobs to a new scheduler.

SKILLS
SQL
`

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		Host:         "localhost",
		Port:         "0",
		MaxBodyBytes: 1 << 20,
	}
}

func newTestServer(t *testing.T, cfg config.ServerConfig, withHistory bool) *Server {
	t.Helper()
	engine := tailor.NewEngine(tailor.NewStaticExtractor(keywords.NewExtractor(nil, keywords.DefaultOptions())), nil)
	svc := service.NewService(engine, tailor.DefaultOptions(), nil)
	if withHistory {
		store, err := history.Open(filepath.Join(t.TempDir(), "runs.db"))
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		svc.WithHistory(store)
	}
	s := NewServer(cfg, Options{
		Version:    "test",
		Service:    svc,
		CacheStats: func() cache.Stats { return cache.Stats{Hits: 3} },
	})
	t.Cleanup(s.cleanupRateLimiter)
	return s
}

func postJSON(t *testing.T, h http.Handler, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(data)))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.ErrorResponse {
	t.Helper()
	var resp types.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestTailorEndpoint(t *testing.T) {
	s := newTestServer(t, testServerConfig(), true)
	h := s.Handler()

	rec := postJSON(t, h, "/tailor", types.TailorRequest{ResumeText: resumeText, JobDescription: jobText})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	assert.NotEmpty(t, rec.Header().Get("X-Run-ID"))

	var out types.TailorOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotNil(t, out.Result)
	assert.GreaterOrEqual(t, out.Result.MatchScore, out.Result.OriginalScore)
	assert.Contains(t, out.Result.TailoredResumeText, "Jane Doe")
	assert.Equal(t, rec.Header().Get("X-Run-ID"), out.RunID)
}

func TestTailorEndpointResumeFormat(t *testing.T) {
	s := newTestServer(t, testServerConfig(), false)
	rec := postJSON(t, s.Handler(), "/tailor?format=resume", types.TailorRequest{ResumeText: resumeText, JobDescription: jobText})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Jane Doe"))
}

func TestTailorEndpointErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
	}{
		{"missing resume", "/tailor", types.TailorRequest{JobDescription: jobText}, http.StatusBadRequest, "INVALID_INPUT"},
		{"blank resume", "/tailor", types.TailorRequest{ResumeText: "   ", JobDescription: jobText}, http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown format", "/tailor?format=pdf", types.TailorRequest{ResumeText: resumeText, JobDescription: jobText}, http.StatusBadRequest, "INVALID_FORMAT"},
		{"bad options", "/tailor", map[string]any{
			"resumeText": resumeText, "jobDescription": jobText,
			"options": map[string]any{"maxKeywords": -1},
		}, http.StatusBadRequest, ""},
	}

	s := newTestServer(t, testServerConfig(), false)
	h := s.Handler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h, tt.path, tt.body, requestIDHeader, "req-123")
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			resp := decodeError(t, rec)
			assert.Equal(t, "req-123", resp.RequestID)
			if tt.code != "" {
				assert.Equal(t, tt.code, resp.Code)
			}
		})
	}
}

func TestContentTypeRequired(t *testing.T) {
	s := newTestServer(t, testServerConfig(), false)
	req := httptest.NewRequest(http.MethodPost, "/extract", strings.NewReader(`{"jobDescription":"go"}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeError(t, rec).Code)
}

func TestBodyTooLarge(t *testing.T) {
	cfg := testServerConfig()
	cfg.MaxBodyBytes = 64
	s := newTestServer(t, cfg, false)
	rec := postJSON(t, s.Handler(), "/tailor", types.TailorRequest{ResumeText: resumeText, JobDescription: jobText})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestExtractAndScoreEndpoints(t *testing.T) {
	s := newTestServer(t, testServerConfig(), false)
	h := s.Handler()

	rec := postJSON(t, h, "/extract", types.ExtractRequest{JobDescription: jobText, MaxKeywords: 5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ex types.ExtractOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ex))
	assert.LessOrEqual(t, ex.Keywords.Len(), 5)
	assert.Positive(t, ex.Keywords.Len())

	rec = postJSON(t, h, "/score", types.ScoreRequest{ResumeText: resumeText, JobDescription: jobText})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sc types.ScoreOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sc))
	assert.Equal(t, sc.Keywords.Len(), sc.Score.Total)
	assert.GreaterOrEqual(t, sc.Score.Percent, 0)
	assert.LessOrEqual(t, sc.Score.Percent, 100)

	rec = postJSON(t, h, "/extract", types.ExtractRequest{JobDescription: jobText, MaxKeywords: 500})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	cfg := testServerConfig()
	cfg.APIKeys = []string{"secret-key-123"}
	s := newTestServer(t, cfg, false)
	h := s.Handler()
	body := types.ExtractRequest{JobDescription: jobText}

	rec := postJSON(t, h, "/extract", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "MISSING_API_KEY", decodeError(t, rec).Code)

	rec = postJSON(t, h, "/extract", body, "X-API-Key", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(t, h, "/extract", body, "X-API-Key", "secret-key-123")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, h, "/extract", body, "Authorization", "Bearer secret-key-123")
	assert.Equal(t, http.StatusOK, rec.Code)

	// health stays public
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	hrec := httptest.NewRecorder()
	h.ServeHTTP(hrec, req)
	assert.Equal(t, http.StatusOK, hrec.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := testServerConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 2, ByIP: true}
	s := newTestServer(t, cfg, false)
	h := s.Handler()
	body := types.ExtractRequest{JobDescription: jobText}

	for range 2 {
		rec := postJSON(t, h, "/extract", body)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := postJSON(t, h, "/extract", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMITED", decodeError(t, rec).Code)

	// another client has its own bucket
	rec = postJSON(t, h, "/extract", body, "X-Forwarded-For", "10.0.0.9")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHistoryEndpoints(t *testing.T) {
	s := newTestServer(t, testServerConfig(), true)
	h := s.Handler()

	rec := postJSON(t, h, "/tailor", types.TailorRequest{ResumeText: resumeText, JobDescription: jobText})
	require.Equal(t, http.StatusOK, rec.Code)
	runID := rec.Header().Get("X-Run-ID")

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec = get("/history?limit=10")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []history.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
	assert.Equal(t, history.SourceHTTP, runs[0].Source)

	rec = get("/history/" + runID)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get("/history/does-not-exist")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)

	rec = get("/history/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	var sum history.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, 1, sum.Runs)

	rec = get("/history?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryDisabled(t *testing.T) {
	s := newTestServer(t, testServerConfig(), false)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthAndStats(t *testing.T) {
	s := newTestServer(t, testServerConfig(), true)
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "test", health["version"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Contains(t, stats, "cache")
	assert.Contains(t, stats, "history")
	assert.Equal(t, map[string]any{"enabled": false}, stats["rate_limiting"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequestIDPassthrough(t *testing.T) {
	assert.True(t, validRequestID("abc-123"))
	assert.False(t, validRequestID(""))
	assert.False(t, validRequestID("has space"))
	assert.False(t, validRequestID(strings.Repeat("x", 129)))
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "127.0.0.1:1234", "203.0.113.5"},
		{"bad forwarded falls back", map[string]string{"X-Forwarded-For": "garbage"}, "127.0.0.1:1234", "127.0.0.1"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "127.0.0.1:1234", "198.51.100.7"},
		{"remote addr", nil, "192.0.2.1:5555", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "abcdefgh****", maskAPIKey("abcdefghijkl"))
}

func TestConfigureTLS(t *testing.T) {
	cfg := testServerConfig()
	cfg.TLS.Mode = "bogus"
	s := newTestServer(t, cfg, false)
	assert.Error(t, s.configureTLS(&http.Server{}))

	cfg.TLS = config.TLSConfig{Mode: "server"}
	s = newTestServer(t, cfg, false)
	assert.ErrorContains(t, s.configureTLS(&http.Server{}), "certificate and key are required")

	cfg.TLS = config.TLSConfig{Mode: "disabled"}
	s = newTestServer(t, cfg, false)
	srv := &http.Server{}
	require.NoError(t, s.configureTLS(srv))
	assert.Nil(t, srv.TLSConfig)
}
