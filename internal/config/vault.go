package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/vault/api"

	"atstailor/internal/errors"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets holds the KVv2 paths of each secret. Empty paths are skipped.
type VaultSecrets struct {
	APIKeys  string `mapstructure:"apiKeys"`  // "keys": comma-separated
	TLSCerts string `mapstructure:"tlsCerts"` // "cert", "key", "ca": PEM content
	Redis    string `mapstructure:"redis"`    // "password"
	Storage  string `mapstructure:"storage"`  // "access_key_id", "secret_access_key", "endpoint"
	Queue    string `mapstructure:"queue"`    // "url"
}

// SecretReader returns the data map of a KVv2 secret.
type SecretReader interface {
	ReadSecret(path string) (map[string]any, error)
}

// VaultClient reads KVv2 secrets.
type VaultClient struct {
	logical *api.Logical
	logger  *errors.Logger
}

// NewVaultClient connects to Vault and checks that it answers.
func NewVaultClient(cfg VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if logger == nil {
		logger = errors.Discard()
	}

	apiCfg := api.DefaultConfig()
	if cfg.Address != "" {
		apiCfg.Address = cfg.Address
	}
	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to create vault client", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	token, err := vaultToken(cfg)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeInvalidConfig, "failed to connect to vault", err).
			WithContext("address", apiCfg.Address)
	}
	logger.Info("Connected to Vault",
		"address", apiCfg.Address,
		"namespace", cfg.Namespace,
		"version", health.Version,
		"sealed", health.Sealed)

	return &VaultClient{logical: client.Logical(), logger: logger}, nil
}

// vaultToken prefers the inline token over the token file.
func vaultToken(cfg VaultConfig) (string, error) {
	token := cfg.Token
	if token == "" && cfg.TokenFile != "" {
		data, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			return "", errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to read vault token file", err).
				WithContext("file", cfg.TokenFile)
		}
		token = strings.TrimSpace(string(data))
	}
	if token == "" {
		return "", errors.NewConfigError(errors.ErrCodeMissingAPIKey, "vault token is required when vault is enabled", nil)
	}
	return token, nil
}

// ReadSecret reads the latest version of the secret at path.
func (vc *VaultClient) ReadSecret(path string) (map[string]any, error) {
	vc.logger.Debug("Reading secret from Vault", "path", path)
	secret, err := vc.logical.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return kvData(path, secret)
}

func kvData(path string, secret *api.Secret) (map[string]any, error) {
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at %s", path)
	}
	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not a KVv2 secret", path)
	}
	return data, nil
}

// ApplyVaultSecrets overrides configured credentials with the secrets stored
// in Vault. It does nothing when Vault is disabled.
func ApplyVaultSecrets(cfg *Config, logger *errors.Logger) error {
	if logger == nil {
		logger = errors.Discard()
	}
	if !cfg.Vault.Enabled {
		logger.Debug("Vault integration disabled, skipping secret loading")
		return nil
	}

	client, err := NewVaultClient(cfg.Vault, logger)
	if err != nil {
		return err
	}
	return applySecrets(cfg, client, logger)
}

// secretBinding maps one Vault secret onto the config.
type secretBinding struct {
	name  string
	path  string
	apply func(cfg *Config, data map[string]any) error
}

func secretBindings(s VaultSecrets) []secretBinding {
	return []secretBinding{
		{name: "api_keys", path: s.APIKeys, apply: applyAPIKeys},
		{name: "tls", path: s.TLSCerts, apply: applyTLSContent},
		{name: "redis", path: s.Redis, apply: applyRedisPassword},
		{name: "storage", path: s.Storage, apply: applyStorageCredentials},
		{name: "queue", path: s.Queue, apply: applyQueueURL},
	}
}

func applySecrets(cfg *Config, reader SecretReader, logger *errors.Logger) error {
	loaded := 0
	for _, b := range secretBindings(cfg.Vault.Secrets) {
		if b.path == "" {
			continue
		}
		data, err := reader.ReadSecret(b.path)
		if err == nil {
			err = b.apply(cfg, data)
		}
		if err != nil {
			return errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to load "+b.name+" secret from vault", err).
				WithContext("path", b.path)
		}
		loaded++
		logger.Debug("Secret loaded from Vault", "secret", b.name, "path", b.path)
	}
	logger.Info("Applied secrets from Vault", "count", loaded)
	return nil
}

func requiredString(data map[string]any, key string) (string, error) {
	raw, ok := data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("key %q is not a string", key)
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("key %q is empty", key)
	}
	return s, nil
}

// setIfPresent copies a non-empty string field into target.
func setIfPresent(data map[string]any, key string, target *string) bool {
	if s, ok := data[key].(string); ok && s != "" {
		*target = s
		return true
	}
	return false
}

func applyAPIKeys(cfg *Config, data map[string]any) error {
	raw, err := requiredString(data, "keys")
	if err != nil {
		return err
	}
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return fmt.Errorf("key %q holds no API keys", "keys")
	}
	cfg.Server.APIKeys = keys
	return nil
}

func applyTLSContent(cfg *Config, data map[string]any) error {
	tls := &cfg.Server.TLS
	n := 0
	for key, target := range map[string]*string{"cert": &tls.CertContent, "key": &tls.KeyContent, "ca": &tls.CAContent} {
		if setIfPresent(data, key, target) {
			n++
		}
	}
	if n == 0 {
		return fmt.Errorf("secret has none of cert, key or ca")
	}
	return nil
}

func applyRedisPassword(cfg *Config, data map[string]any) error {
	password, err := requiredString(data, "password")
	if err != nil {
		return err
	}
	cfg.Cache.RedisPassword = password
	return nil
}

// applyStorageCredentials keeps configured values for fields the secret omits.
func applyStorageCredentials(cfg *Config, data map[string]any) error {
	setIfPresent(data, "access_key_id", &cfg.Storage.AccessKeyID)
	setIfPresent(data, "secret_access_key", &cfg.Storage.SecretAccessKey)
	setIfPresent(data, "endpoint", &cfg.Storage.Endpoint)
	if (cfg.Storage.AccessKeyID == "") != (cfg.Storage.SecretAccessKey == "") {
		return fmt.Errorf("access_key_id and secret_access_key must be set together")
	}
	return nil
}

func applyQueueURL(cfg *Config, data map[string]any) error {
	url, err := requiredString(data, "url")
	if err != nil {
		return err
	}
	cfg.Queue.URL = url
	return nil
}
