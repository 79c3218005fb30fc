package server

import (
	"time"

	"atstailor/internal/cache"
	"atstailor/internal/config"
	"atstailor/internal/errors"
	"atstailor/internal/observability"
	"atstailor/internal/service"
)

// Server serves the tailoring operations over HTTP
type Server struct {
	cfg     config.ServerConfig
	version string

	svc        *service.Service
	cacheStats func() cache.Stats

	om      *observability.ObservabilityManager
	metrics *observability.Metrics

	// API Authentication
	apiKeys map[string]bool

	// Rate limiting, nil when disabled
	RateLimiter *RateLimiter

	logger  *errors.Logger
	started time.Time
}

// Options holds the collaborators of a Server
// (keeps NewServer's parameter list short)
type Options struct {
	Version       string
	Service       *service.Service
	Observability *observability.ObservabilityManager
	// CacheStats reports the extraction cache on /stats; optional
	CacheStats func() cache.Stats
	Logger     *errors.Logger
}

// NewServer creates a new Server instance
func NewServer(cfg config.ServerConfig, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = errors.Discard()
	}

	// Convert API keys slice to map for O(1) lookup
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstCapacity, logger)
	}

	return &Server{
		cfg:         cfg,
		version:     opts.Version,
		svc:         opts.Service,
		cacheStats:  opts.CacheStats,
		om:          opts.Observability,
		metrics:     opts.Observability.Metrics(),
		apiKeys:     apiKeyMap,
		RateLimiter: rateLimiter,
		logger:      logger,
		started:     time.Now(),
	}
}
