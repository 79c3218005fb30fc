package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	c.applyServerAPIKeyFallbacks()
	c.applyTLSDefaults()
	c.applyCacheFallbacks()
	c.applyObservabilityDefaults()
}

// applyServerAPIKeyFallbacks normalizes API keys and falls back to the environment
func (c *Config) applyServerAPIKeyFallbacks() {
	c.Server.APIKeys = splitList(strings.Join(c.Server.APIKeys, ","))
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("ATSTAILOR_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitList(apiKeysEnv)
		}
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// applyTLSDefaults applies default TLS configuration values
func (c *Config) applyTLSDefaults() {
	if c.Server.TLS.Mode == "" {
		c.Server.TLS.Mode = "disabled"
	}
	if c.Server.TLS.Mode == "mutual" && c.Server.TLS.ClientAuthPolicy == "" {
		c.Server.TLS.ClientAuthPolicy = "require"
	}
	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}
}

// applyCacheFallbacks honours the conventional REDIS_URL when none is configured
func (c *Config) applyCacheFallbacks() {
	if c.Cache.RedisURL == "" {
		c.Cache.RedisURL = os.Getenv("REDIS_URL")
	}
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// sensitiveEnv reports whether an environment variable should be masked in logs
func sensitiveEnv(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range []string{"key", "secret", "password", "token", "url"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"ATSTAILOR_APP_LOGLEVEL",
		"ATSTAILOR_TAILOR_MAXKEYWORDS",
		"ATSTAILOR_DICTIONARY_PATH",
		"ATSTAILOR_CACHE_REDISURL",
		"ATSTAILOR_STORAGE_ENDPOINT",
		"ATSTAILOR_STORAGE_ACCESSKEYID",
		"ATSTAILOR_QUEUE_URL",
		"ATSTAILOR_SERVER_PORT",
		"ATSTAILOR_SERVER_HOST",
		"ATSTAILOR_SERVER_APIKEYS",
		"ATSTAILOR_VAULT_ENABLED",
		"REDIS_URL",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if sensitiveEnv(envVar) {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] Max Keywords: %d, Target Score: %d, Max Passes: %d",
		c.Tailor.MaxKeywords, c.Tailor.TargetScore, c.Tailor.MaxPasses)
	if c.Dictionary.Path != "" {
		log.Printf("[CONFIG] Dictionary: %s (watch=%t)", c.Dictionary.Path, c.Dictionary.Watch)
	} else {
		log.Println("[CONFIG] Dictionary: built-in")
	}
	log.Printf("[CONFIG] Cache Enabled: %t, Redis: %t", c.Cache.Enabled, c.Cache.RedisURL != "")
	log.Printf("[CONFIG] History Enabled: %t", c.History.Enabled)
	log.Printf("[CONFIG] Server Host: %s", c.Server.Host)
	log.Printf("[CONFIG] Server Port: %s", c.Server.Port)
	if len(c.Server.APIKeys) > 0 {
		log.Printf("[CONFIG] API Keys: ***CONFIGURED*** (%d)", len(c.Server.APIKeys))
	} else {
		log.Println("[CONFIG] API Keys: ***NOT SET***")
	}
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] TLS Mode: %s", c.Server.TLS.Mode)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}
