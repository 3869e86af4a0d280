// Package tlstest issues short-lived certificates from a throwaway authority
// and starts HTTPS servers that present them. Every file lives under
// t.TempDir().
//
//	ca := tlstest.NewCA(t)
//	srv := ca.NewServer(t, handler)
//	cfg := security.TLSConfig{CAFile: ca.File}
package tlstest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// CA is a self-signed certificate authority.
type CA struct {
	// File is the PEM file of the authority certificate.
	File string
	Pool *x509.CertPool

	cert   *x509.Certificate
	key    *ecdsa.PrivateKey
	dir    string
	serial atomic.Int64
}

// Pair is a certificate signed by a CA, on disk and loaded.
type Pair struct {
	CertFile string
	KeyFile  string
	TLS      tls.Certificate
}

// NewCA creates an authority valid for one day.
func NewCA(t testing.TB) *CA {
	t.Helper()
	key := newKey(t)
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "apikit test authority"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("tlstest: create authority: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("tlstest: parse authority: %v", err)
	}

	ca := &CA{cert: cert, key: key, dir: t.TempDir(), Pool: x509.NewCertPool()}
	ca.serial.Store(1)
	ca.Pool.AddCert(cert)
	ca.File = filepath.Join(ca.dir, "ca.pem")
	writePEM(t, ca.File, "CERTIFICATE", der)
	return ca
}

// Issue signs a certificate for name, usable by servers and clients. Hosts
// that parse as IPs go into the IP SANs, the rest into the DNS SANs.
func (ca *CA) Issue(t testing.TB, name string, hosts ...string) Pair {
	t.Helper()
	key := newKey(t)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(ca.serial.Add(1)),
		Subject:      pkix.Name{CommonName: name},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			tmpl.IPAddresses = append(tmpl.IPAddresses, ip)
		} else {
			tmpl.DNSNames = append(tmpl.DNSNames, h)
		}
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, ca.cert, &key.PublicKey, ca.key)
	if err != nil {
		t.Fatalf("tlstest: sign %s: %v", name, err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("tlstest: marshal key for %s: %v", name, err)
	}

	p := Pair{
		CertFile: filepath.Join(ca.dir, name+".pem"),
		KeyFile:  filepath.Join(ca.dir, name+"-key.pem"),
	}
	writePEM(t, p.CertFile, "CERTIFICATE", der)
	writePEM(t, p.KeyFile, "EC PRIVATE KEY", keyDER)
	p.TLS, err = tls.LoadX509KeyPair(p.CertFile, p.KeyFile)
	if err != nil {
		t.Fatalf("tlstest: load %s: %v", name, err)
	}
	return p
}

// NewServer starts an HTTPS server with a certificate for localhost and the
// loopback addresses. It is closed when the test ends.
func (ca *CA) NewServer(t testing.TB, h http.Handler) *httptest.Server {
	t.Helper()
	return ca.start(t, h, tls.NoClientCert)
}

// NewMutualServer is NewServer that also requires a client certificate
// signed by ca.
func (ca *CA) NewMutualServer(t testing.TB, h http.Handler) *httptest.Server {
	t.Helper()
	return ca.start(t, h, tls.RequireAndVerifyClientCert)
}

func (ca *CA) start(t testing.TB, h http.Handler, auth tls.ClientAuthType) *httptest.Server {
	server := ca.Issue(t, "server", "localhost", "127.0.0.1", "::1")
	srv := httptest.NewUnstartedServer(h)
	srv.TLS = &tls.Config{
		Certificates: []tls.Certificate{server.TLS},
		ClientAuth:   auth,
		ClientCAs:    ca.Pool,
		MinVersion:   tls.VersionTLS12,
	}
	srv.StartTLS()
	t.Cleanup(srv.Close)
	return srv
}

// CorruptPEM writes a file with PEM armor around bytes that do not decode.
func CorruptPEM(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corrupt.pem")
	data := []byte("-----BEGIN CERTIFICATE-----\n!!!!\n-----END CERTIFICATE-----\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("tlstest: write corrupt PEM: %v", err)
	}
	return path
}

func newKey(t testing.TB) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("tlstest: generate key: %v", err)
	}
	return key
}

func writePEM(t testing.TB, path, blockType string, der []byte) {
	t.Helper()
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("tlstest: write %s: %v", path, err)
	}
}
