// Package security builds the TLS settings of an API client's transport
// from configuration: server verification, custom CA bundles, client
// certificates for mTLS and the minimum protocol version.
//
//	cfg := security.TLSConfig{
//	    CAFile:     "/path/to/ca.pem",
//	    MinVersion: "1.3",
//	}
//
//	tlsConfig, err := cfg.Build()
package security
