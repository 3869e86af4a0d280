package httpclient

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/apikit/logger"
)

func TestBearerAuth(t *testing.T) {
	auth := BearerAuth("my-token")
	req, _ := http.NewRequest("GET", "http://example.com", nil)
	auth.apply(req)
	if got := req.Header.Get("Authorization"); got != "Bearer my-token" {
		t.Errorf("got %q, want %q", got, "Bearer my-token")
	}
}

func TestBasicAuth(t *testing.T) {
	auth := BasicAuth("user", "pass")
	req, _ := http.NewRequest("GET", "http://example.com", nil)
	auth.apply(req)
	u, p, ok := req.BasicAuth()
	if !ok || u != "user" || p != "pass" {
		t.Errorf("basic auth not set correctly: user=%q pass=%q ok=%v", u, p, ok)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	req, _ := http.NewRequest("GET", "http://example.com/path", nil)
	APIKeyAuth("secret-key").apply(req)
	if got := req.Header.Get("X-API-Key"); got != "secret-key" {
		t.Errorf("header: got %q, want %q", got, "secret-key")
	}

	req, _ = http.NewRequest("GET", "http://example.com/path?a=1", nil)
	APIKeyAuthQuery("secret-key", "api_key").apply(req)
	if got := req.URL.Query().Get("api_key"); got != "secret-key" {
		t.Errorf("query: got %q, want %q", got, "secret-key")
	}
	if got := req.URL.Query().Get("a"); got != "1" {
		t.Errorf("existing query lost: a=%q", got)
	}
}

func TestAPIKeyAuthQuery_KeepsOrder(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", "key=k"},
		{"appended last", "z=1&a=2", "z=1&a=2&key=k"},
		{"replaced in place", "z=1&key=old&a=2", "z=1&key=k&a=2"},
		{"duplicates dropped", "key=1&z=1&key=2", "key=k&z=1"},
		{"escaped value", "q=a+b", "q=a+b&key=k"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "http://example.com/path", nil)
			req.URL.RawQuery = tc.raw
			APIKeyAuthQuery("k", "key").apply(req)
			if req.URL.RawQuery != tc.want {
				t.Errorf("query = %q, want %q", req.URL.RawQuery, tc.want)
			}
		})
	}
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func TestAuthAdapter_QueryKeyAfterCallerItems(t *testing.T) {
	var seen string
	c, err := New(Config{Name: "test"},
		WithLogger(logger.Nop()),
		WithTransport(doerFunc(func(req *http.Request) (*http.Response, error) {
			seen = req.URL.RawQuery
			return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Header: http.Header{}}, nil
		})),
		WithAdapters(NewAuthAdapter(APIKeyAuthQuery("k", "key"), nil)),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	base, _ := url.Parse("https://api.example.com")
	req := Basic(base, "items", WithQueryParam("z", "1"), WithQueryParam("a", "2"))
	if _, err := Send[Empty](context.Background(), c, req); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if seen != "z=1&a=2&key=k" {
		t.Errorf("query = %q, want z=1&a=2&key=k", seen)
	}
}

func TestCustomAuth(t *testing.T) {
	auth := CustomAuth(func(req *http.Request) {
		req.Header.Set("X-Custom", "value")
	})
	req, _ := http.NewRequest("GET", "http://example.com", nil)
	auth.apply(req)
	if got := req.Header.Get("X-Custom"); got != "value" {
		t.Errorf("got %q, want %q", got, "value")
	}
}

func TestNilAuth(t *testing.T) {
	var auth *AuthConfig
	req, _ := http.NewRequest("GET", "http://example.com", nil)
	auth.apply(req)
	if req.Header.Get("Authorization") != "" {
		t.Error("nil auth should not set Authorization header")
	}
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: gojwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	got, ok := tokenExpiry(signedToken(t, exp))
	if !ok || !got.Equal(exp) {
		t.Errorf("tokenExpiry = %v, %v; want %v", got, ok, exp)
	}
	if _, ok := tokenExpiry("opaque-token"); ok {
		t.Error("opaque tokens have no expiry")
	}
	if _, ok := tokenExpiry("a.b.c"); ok {
		t.Error("malformed JWTs have no expiry")
	}
}

func TestAuthAdapter_WarnsOnExpiredToken(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "warn", Format: "json"}, "test", &buf)

	expired := signedToken(t, time.Now().Add(-time.Minute))
	a := NewAuthAdapter(BearerAuth(expired), log)
	req, _ := http.NewRequest("GET", "http://example.com/me", nil)
	a.BeforeSend(req)

	if got := req.Header.Get("Authorization"); got != "Bearer "+expired {
		t.Errorf("Authorization = %q", got)
	}
	if !strings.Contains(buf.String(), "bearer token has expired") {
		t.Errorf("expected an expiry warning, got %q", buf.String())
	}

	buf.Reset()
	fresh := NewAuthAdapter(BearerAuth(signedToken(t, time.Now().Add(time.Hour))), log)
	fresh.BeforeSend(req)
	if buf.Len() != 0 {
		t.Errorf("unexpected log for a valid token: %q", buf.String())
	}
}

func TestAuthAdapter_LogsRejectedCredentials(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "warn", Format: "json"}, "test", &buf)
	a := NewAuthAdapter(BearerAuth("opaque"), log)
	req, _ := http.NewRequest("GET", "http://example.com/me", nil)

	a.OnError(req, NewServerError(500, nil))
	if buf.Len() != 0 {
		t.Errorf("only expired credentials are logged, got %q", buf.String())
	}
	a.OnError(req, NewExpiredCredentialError(nil))
	if !strings.Contains(buf.String(), "credentials rejected") {
		t.Errorf("expected a rejection warning, got %q", buf.String())
	}
}
