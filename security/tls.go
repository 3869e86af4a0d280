package security

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// TLSConfig holds the TLS settings of a client transport.
type TLSConfig struct {
	// SkipVerify disables server certificate verification. It cannot be
	// combined with CAFile or ServerName, which only matter when verifying.
	SkipVerify bool `yaml:"skip_verify" mapstructure:"skip_verify"`

	// CAFile is a PEM bundle trusted instead of the system roots.
	CAFile string `yaml:"ca_file" mapstructure:"ca_file"`

	// CertFile and KeyFile are the client certificate pair for mTLS.
	CertFile string `yaml:"cert_file" mapstructure:"cert_file"`
	KeyFile  string `yaml:"key_file" mapstructure:"key_file"`

	// ServerName overrides the name used to verify the server certificate.
	ServerName string `yaml:"server_name" mapstructure:"server_name"`

	// MinVersion is "1.2" or "1.3". Defaults to "1.2".
	MinVersion string `yaml:"min_version" mapstructure:"min_version"`
}

var tlsVersions = map[string]uint16{
	"1.2": tls.VersionTLS12,
	"1.3": tls.VersionTLS13,
}

// IsEnabled reports whether any TLS setting is configured.
func (c *TLSConfig) IsEnabled() bool {
	return c != nil && *c != TLSConfig{}
}

// Validate reports every inconsistency in the settings at once.
func (c *TLSConfig) Validate() error {
	if c == nil {
		return nil
	}
	var errs []error
	if (c.CertFile == "") != (c.KeyFile == "") {
		errs = append(errs, errors.New("cert_file and key_file must be set together"))
	}
	if c.SkipVerify && c.CAFile != "" {
		errs = append(errs, errors.New("skip_verify cannot be combined with ca_file"))
	}
	if c.SkipVerify && c.ServerName != "" {
		errs = append(errs, errors.New("skip_verify cannot be combined with server_name"))
	}
	if _, ok := tlsVersions[c.MinVersion]; c.MinVersion != "" && !ok {
		errs = append(errs, fmt.Errorf("min_version must be 1.2 or 1.3 (got: %s)", c.MinVersion))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("security/tls: %w", err)
	}
	return nil
}

// Build returns the *tls.Config for an HTTP transport, or nil when nothing
// is configured so the transport keeps its defaults.
func (c *TLSConfig) Build() (*tls.Config, error) {
	if !c.IsEnabled() {
		return nil, nil
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	cfg := &tls.Config{
		InsecureSkipVerify: c.SkipVerify, //nolint:gosec // opt-in via skip_verify
		ServerName:         c.ServerName,
		MinVersion:         tls.VersionTLS12,
	}
	if v, ok := tlsVersions[c.MinVersion]; ok {
		cfg.MinVersion = v
	}
	if c.CAFile != "" {
		pool, err := readPool(c.CAFile)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}
	if c.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("security/tls: client certificate %s: %w", c.CertFile, err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

func readPool(path string) (*x509.CertPool, error) {
	pemData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("security/tls: ca_file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pemData) {
		return nil, fmt.Errorf("security/tls: ca_file %s holds no PEM certificate", path)
	}
	return pool, nil
}
