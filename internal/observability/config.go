package observability

import (
	"time"

	"atstailor/internal/config"
)

// ObservabilityConfig holds configuration for observability
type ObservabilityConfig struct {
	ServiceName        string
	ServiceVersion     string
	ServiceInstance    string
	Enabled            bool
	TracingEnabled     bool
	MetricsEnabled     bool
	ConsoleOutput      bool
	PrettyPrint        bool
	SampleRate         float64
	CollectionInterval time.Duration
	Prometheus         PrometheusConfig
	OTLP               config.OTLPConfig
}

// GetObservabilityConfig creates observability config from provided config
func GetObservabilityConfig(cfg *config.Config, version string) ObservabilityConfig {
	if cfg == nil {
		// Fallback to defaults if config not available
		return ObservabilityConfig{
			ServiceName:        "atstailor",
			ServiceVersion:     version,
			TracingEnabled:     true,
			MetricsEnabled:     true,
			SampleRate:         1.0,
			CollectionInterval: 15 * time.Second,
			Prometheus:         GetPrometheusConfig(nil),
		}
	}

	obsConfig := cfg.Observability

	// Use app version if service version not specified
	serviceVersion := obsConfig.ServiceVersion
	if serviceVersion == "" {
		serviceVersion = version
	}

	sampleRate := obsConfig.SampleRate
	if obsConfig.Tracing.SampleRate > 0 {
		sampleRate = obsConfig.Tracing.SampleRate
	}

	interval := obsConfig.Metrics.CollectionInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}

	return ObservabilityConfig{
		ServiceName:        obsConfig.ServiceName,
		ServiceVersion:     serviceVersion,
		ServiceInstance:    obsConfig.ServiceInstance,
		Enabled:            obsConfig.Enabled,
		TracingEnabled:     obsConfig.Tracing.Enabled,
		MetricsEnabled:     obsConfig.Metrics.Enabled,
		ConsoleOutput:      obsConfig.Console.Enabled,
		PrettyPrint:        obsConfig.Console.PrettyPrint,
		SampleRate:         sampleRate,
		CollectionInterval: interval,
		Prometheus:         GetPrometheusConfig(cfg),
		OTLP:               obsConfig.OTLP,
	}
}
