package nest_test

import (
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/nest"
)

func tokenAPI(cfg nest.TokenAuthConfig) *nest.API {
	api := nest.New()
	api.Namespace("admin").
		Params(nest.NewSchema().Opt("token", nest.String()).Opt("key", nest.String())).
		After(nest.TokenAuth(cfg)).
		Get("status", ok)
	return api
}

func TestTokenAuth(t *testing.T) {
	t.Parallel()

	hash, err := nest.HashToken("password1")
	require.NoError(t, err)

	errForbidden := nest.Fail("forbidden", "go away").WithStatus(http.StatusForbidden)

	tests := map[string]struct {
		cfg        nest.TokenAuthConfig
		query      url.Values
		wantStatus int
	}{
		"secret match": {
			cfg:        nest.TokenAuthConfig{Secret: "password1"},
			query:      url.Values{"token": {"password1"}},
			wantStatus: http.StatusOK,
		},
		"secret mismatch": {
			cfg:        nest.TokenAuthConfig{Secret: "password1"},
			query:      url.Values{"token": {"password2"}},
			wantStatus: http.StatusUnauthorized,
		},
		"missing token": {
			cfg:        nest.TokenAuthConfig{Secret: "password1"},
			wantStatus: http.StatusUnauthorized,
		},
		"empty secret rejects everything": {
			cfg:        nest.TokenAuthConfig{},
			query:      url.Values{"token": {"anything"}},
			wantStatus: http.StatusUnauthorized,
		},
		"hash match": {
			cfg:        nest.TokenAuthConfig{Hash: hash},
			query:      url.Values{"token": {"password1"}},
			wantStatus: http.StatusOK,
		},
		"hash mismatch": {
			cfg:        nest.TokenAuthConfig{Hash: hash},
			query:      url.Values{"token": {"nope"}},
			wantStatus: http.StatusUnauthorized,
		},
		"custom param": {
			cfg:        nest.TokenAuthConfig{Param: "key", Secret: "s3cret"},
			query:      url.Values{"key": {"s3cret"}},
			wantStatus: http.StatusOK,
		},
		"custom error": {
			cfg:        nest.TokenAuthConfig{Secret: "password1", Err: errForbidden},
			query:      url.Values{"token": {"wrong"}},
			wantStatus: http.StatusForbidden,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			app := build(t, tokenAPI(tt.cfg))

			resp := app.Dispatch(t.Context(), get("/admin/status", tt.query))

			assert.Equal(t, tt.wantStatus, resp.Status)
		})
	}
}

func TestTokenAuth_errorMatchesSentinel(t *testing.T) {
	t.Parallel()

	var matched bool
	api := nest.New(nest.WithFormatter(func(_ *nest.Context, err nest.TypedError) (*nest.Response, bool) {
		matched = errors.Is(err, nest.ErrUnauthorized)
		return nil, false
	}))
	api.Params(nest.NewSchema().Opt("token", nest.String())).
		After(nest.TokenAuth(nest.TokenAuthConfig{Secret: "x"})).
		Get("x", ok)
	app := build(t, api)

	app.Dispatch(t.Context(), get("/x", nil))

	assert.True(t, matched)
}

func TestTokenAuth_beforeValidationIsInternal(t *testing.T) {
	t.Parallel()

	api := nest.New()
	api.Before(nest.TokenAuth(nest.TokenAuthConfig{Secret: "x"})).Get("x", ok)
	app := build(t, api)

	resp := app.Dispatch(t.Context(), get("/x", url.Values{"token": {"x"}}))

	assert.Equal(t, http.StatusInternalServerError, resp.Status)
}
