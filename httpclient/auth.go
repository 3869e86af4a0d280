package httpclient

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/apikit/logger"
)

// AuthType identifies the authentication method.
type AuthType int

const (
	// AuthNone disables authentication.
	AuthNone AuthType = iota
	// AuthBearer uses Bearer token authentication.
	AuthBearer
	// AuthBasic uses HTTP Basic authentication.
	AuthBasic
	// AuthAPIKey uses API key authentication (header or query parameter).
	AuthAPIKey
	// AuthCustom uses a custom authentication function.
	AuthCustom
)

// AuthConfig configures request authentication.
type AuthConfig struct {
	Type     AuthType
	Token    string
	Username string
	Password string
	Key      string
	// In is "header" (default) or "query" for AuthAPIKey.
	In string
	// Name is the header or query parameter name for AuthAPIKey. Defaults to "X-API-Key".
	Name  string
	Apply func(*http.Request)
}

// BearerAuth creates a bearer token auth config.
func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{Type: AuthBearer, Token: token}
}

// BasicAuth creates a basic auth config.
func BasicAuth(username, password string) *AuthConfig {
	return &AuthConfig{Type: AuthBasic, Username: username, Password: password}
}

// APIKeyAuth creates an API key auth config sent via header.
func APIKeyAuth(key string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "header", Name: "X-API-Key"}
}

// APIKeyAuthQuery creates an API key auth config sent via query parameter.
func APIKeyAuthQuery(key, paramName string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "query", Name: paramName}
}

// CustomAuth creates a custom auth config with a request modifier function.
func CustomAuth(fn func(*http.Request)) *AuthConfig {
	return &AuthConfig{Type: AuthCustom, Apply: fn}
}

func (a *AuthConfig) apply(req *http.Request) {
	if a == nil {
		return
	}
	switch a.Type {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+a.Token)
	case AuthBasic:
		req.SetBasicAuth(a.Username, a.Password)
	case AuthAPIKey:
		name := a.Name
		if name == "" {
			name = "X-API-Key"
		}
		if a.In == "query" {
			req.URL.RawQuery = setQueryParam(req.URL.RawQuery, name, a.Key)
		} else {
			req.Header.Set(name, a.Key)
		}
	case AuthCustom:
		if a.Apply != nil {
			a.Apply(req)
		}
	}
}

// setQueryParam sets name to value in raw without reordering the other
// items. An existing name is replaced where it first appears and later
// duplicates are dropped; otherwise the item is appended.
func setQueryParam(raw, name, value string) string {
	item := url.QueryEscape(name) + "=" + url.QueryEscape(value)
	if raw == "" {
		return item
	}

	parts := strings.Split(raw, "&")
	out := parts[:0]
	replaced := false
	for _, p := range parts {
		key, _, _ := strings.Cut(p, "=")
		if k, err := url.QueryUnescape(key); err == nil && k == name {
			if !replaced {
				out = append(out, item)
				replaced = true
			}
			continue
		}
		out = append(out, p)
	}
	if !replaced {
		out = append(out, item)
	}
	return strings.Join(out, "&")
}

// AuthAdapter applies credentials to every outgoing request.
//
// For bearer tokens that are JWTs it reads the exp claim without verifying
// the signature and logs a warning when the token has already expired. The
// request is still sent; the server decides.
type AuthAdapter struct {
	NopAdapter
	auth *AuthConfig
	log  *logger.Logger
	now  func() time.Time
}

// NewAuthAdapter creates an adapter for auth. A nil log discards warnings.
func NewAuthAdapter(auth *AuthConfig, log *logger.Logger) *AuthAdapter {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthAdapter{auth: auth, log: log, now: time.Now}
}

// BeforeSend sets the credentials on req.
func (a *AuthAdapter) BeforeSend(req *http.Request) {
	a.auth.apply(req)
	if a.auth == nil || a.auth.Type != AuthBearer {
		return
	}
	if exp, ok := tokenExpiry(a.auth.Token); ok && !a.now().Before(exp) {
		a.log.Warn("bearer token has expired", logger.Fields(
			logger.FieldURL, req.URL.String(),
			"expired_at", exp.UTC().Format(time.RFC3339),
		))
	}
}

// OnError logs rejected credentials.
func (a *AuthAdapter) OnError(req *http.Request, err *Error) {
	if err == nil || err.Kind != KindExpiredCredential || req == nil {
		return
	}
	a.log.Warn("credentials rejected by server", logger.Fields(logger.FieldURL, req.URL.String()))
}

// tokenExpiry returns the exp claim of a JWT. ok is false for opaque tokens
// and tokens without exp.
func tokenExpiry(token string) (time.Time, bool) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}
	claims := gojwt.MapClaims{}
	if _, _, err := gojwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
