package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/bjaus/nest"
	"github.com/bjaus/nest/docs"
)

const unauthorizedMessage = "Please provide correct `token` parameter"

var apiInfo = docs.Info{
	Title:       "Example API",
	Description: "Simple API to demonstration",
	Contact:     &docs.Contact{Name: "Stanislav Panferov", URL: "http://panferov.me"},
	License:     &docs.License{Name: "MIT"},
}

var (
	errInvalidJWT     = nest.Fail("invalid_token", "a valid bearer token is required").WithStatus(http.StatusUnauthorized)
	errInvalidSession = nest.Fail("invalid_session", "a verified session cookie is required").WithStatus(http.StatusUnauthorized)
)

const sessionCookie = "session"

// newAPI declares the example tree:
//
//	GET /api/v1/admin/server_status?token=...  token-protected status check
//	GET /api/v1/session                        session cookie check
//	GET /api/v1/me                             bearer-token claims (jwt_secret only)
//	GET /api/v1/api-docs                       OpenAPI document and viewer
func newAPI(cfg *Config, opts ...nest.Option) (*nest.App, error) {
	opts = append([]nest.Option{
		nest.WithPrefix("api"),
		nest.WithVersions(nest.VersionPath, "v1"),
		nest.WithFormatter(unauthorizedFormatter),
	}, opts...)
	api := nest.New(opts...)

	if cfg.RateLimit.Rate > 0 {
		api.Before(nest.RateLimit(nest.RateLimitConfig{
			Rate:  cfg.RateLimit.Rate,
			Burst: cfg.RateLimit.Burst,
		}))
	}

	api.Mount(docs.Namespace("api-docs", apiInfo, docs.WithTag("admin", "Administrative endpoints")))

	auth := nest.TokenAuthConfig{Secret: cfg.Auth.Token}
	if cfg.Auth.TokenHash != "" {
		auth = nest.TokenAuthConfig{Hash: []byte(cfg.Auth.TokenHash)}
	}

	signer := cookieSigner(cfg.Cookie.Secret)
	api.Namespace("admin").
		Describe("Administrative endpoints").
		Params(nest.NewSchema().Req("token", nest.String(), nest.Doc("admin access token"))).
		After(nest.TokenAuth(auth)).
		Get("server_status", func(c *nest.Context) (any, error) {
			c.SetCookie(signer.sign(&http.Cookie{Name: sessionCookie, Value: "verified", Path: "/", HttpOnly: true}))
			return "Everything is OK", nil
		}, nest.WithSummary("Report server status"))

	api.Namespace("session").
		Before(requireSession(signer)).
		Get("", func(*nest.Context) (any, error) {
			return "Session is verified", nil
		}, nest.WithSummary("Check the session cookie set by server_status"), nest.WithTags("admin"))

	if cfg.Auth.JWTSecret != "" {
		api.Namespace("me").
			Before(nest.JWTAuth(nest.JWTConfig{Secret: []byte(cfg.Auth.JWTSecret), Err: errInvalidJWT})).
			Get("", func(c *nest.Context) (any, error) {
				claims, ok := nest.Claims(c)
				if !ok {
					return nil, errors.New("claims missing after authentication")
				}
				return map[string]any(claims), nil
			}, nest.WithSummary("Show the caller's token claims"), nest.WithTags("auth"))
	}

	return api.Build()
}

// unauthorizedFormatter answers failed token checks with a plain-text 401.
func unauthorizedFormatter(_ *nest.Context, err nest.TypedError) (*nest.Response, bool) {
	if !errors.Is(err, nest.ErrUnauthorized) {
		return nil, false
	}
	return nest.Text(http.StatusUnauthorized, unauthorizedMessage), true
}

// requireSession rejects requests without a session cookie signed by signer.
func requireSession(signer cookieSigner) nest.Hook {
	return func(c *nest.Context) error {
		ck, ok := c.Cookie(sessionCookie)
		if !ok {
			return errInvalidSession
		}
		if value, valid := signer.verify(ck); !valid || value != "verified" {
			return errInvalidSession
		}
		return nil
	}
}

// cookieSigner appends an HMAC-SHA256 signature to cookie values.
type cookieSigner []byte

func (s cookieSigner) sign(ck *http.Cookie) *http.Cookie {
	ck.Value = ck.Value + "." + s.mac(ck.Name, ck.Value)
	return ck
}

// verify returns the unsigned value of a cookie produced by sign.
func (s cookieSigner) verify(ck *http.Cookie) (string, bool) {
	value, sig, ok := strings.Cut(ck.Value, ".")
	if !ok {
		return "", false
	}
	return value, hmac.Equal([]byte(sig), []byte(s.mac(ck.Name, value)))
}

func (s cookieSigner) mac(name, value string) string {
	h := hmac.New(sha256.New, s)
	h.Write([]byte(name + "=" + value))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
