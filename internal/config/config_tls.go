package config

import "fmt"

// pemSource names one piece of TLS material that may come from a file or
// from inline content, but not both.
type pemSource struct {
	name    string
	file    string
	content string
}

func (s pemSource) present() bool { return s.file != "" || s.content != "" }

func (s pemSource) check() error {
	if s.file != "" && s.content != "" {
		return fmt.Errorf("cannot specify both %sFile and %sContent - choose one", s.name, s.name)
	}
	return nil
}

func (t TLSConfig) sources() (cert, key, ca pemSource) {
	return pemSource{"cert", t.CertFile, t.CertContent},
		pemSource{"key", t.KeyFile, t.KeyContent},
		pemSource{"ca", t.CAFile, t.CAContent}
}

// ValidateTLSConfig validates the TLS configuration
func (c *Config) ValidateTLSConfig() error {
	tls := c.Server.TLS
	if err := validateTLSMode(tls); err != nil {
		return err
	}
	return validateTLSVersion(tls.MinVersion)
}

func validateTLSMode(tls TLSConfig) error {
	cert, key, ca := tls.sources()

	switch tls.Mode {
	case "disabled", "":
		return nil
	case "server", "mutual":
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", tls.Mode)
	}

	if !cert.present() || !key.present() {
		return fmt.Errorf("TLS certificate and key are required for %s mode (provide either files or content)", tls.Mode)
	}
	for _, s := range []pemSource{cert, key} {
		if err := s.check(); err != nil {
			return err
		}
	}
	if tls.Mode == "server" {
		return nil
	}

	if !ca.present() {
		return fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
	}
	if err := ca.check(); err != nil {
		return err
	}
	return validateClientAuthPolicy(tls.ClientAuthPolicy)
}

func validateClientAuthPolicy(policy string) error {
	switch policy {
	case "require", "request", "verify", "":
		return nil
	default:
		return fmt.Errorf("invalid clientAuthPolicy: %s (must be 'require', 'request', or 'verify')", policy)
	}
}

func validateTLSVersion(version string) error {
	switch version {
	case "", "1.2", "1.3":
		return nil
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", version)
	}
}
