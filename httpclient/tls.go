package httpclient

import "github.com/kbukum/apikit/security"

// TLSConfig is an alias for the shared security TLS configuration.
type TLSConfig = security.TLSConfig
