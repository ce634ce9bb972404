package nest_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/nest"
)

func TestProblem(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err        nest.TypedError
		wantStatus int
		wantTitle  string
		wantDetail string
		wantCode   string
		wantErrors int
	}{
		"validation": {
			err:        &nest.ValidationError{Field: "token", Reason: "is required"},
			wantStatus: http.StatusBadRequest,
			wantTitle:  "Bad Request",
			wantDetail: "token is required",
			wantErrors: 1,
		},
		"aggregate validation": {
			err: nest.ValidationErrors{
				{Field: "a", Reason: "is required"},
				{Field: "b", Reason: "is required"},
			},
			wantStatus: http.StatusBadRequest,
			wantTitle:  "Bad Request",
			wantDetail: "a is required; b is required",
			wantErrors: 2,
		},
		"not found": {
			err:        &nest.RoutingError{Reason: nest.RouteNotFound, Method: "GET", Path: "/x"},
			wantStatus: http.StatusNotFound,
			wantTitle:  "Not Found",
			wantDetail: "no route for GET /x",
			wantCode:   "not_found",
		},
		"method not allowed": {
			err:        &nest.RoutingError{Reason: nest.RouteMethodNotAllowed, Method: "PUT", Path: "/x"},
			wantStatus: http.StatusMethodNotAllowed,
			wantTitle:  "Method Not Allowed",
			wantDetail: "method PUT not allowed for /x",
			wantCode:   "method_not_allowed",
		},
		"application": {
			err:        nest.Fail("out_of_stock", "item is out of stock").WithStatus(http.StatusConflict),
			wantStatus: http.StatusConflict,
			wantTitle:  "Conflict",
			wantDetail: "item is out of stock",
			wantCode:   "out_of_stock",
		},
		"application without status": {
			err:        nest.Fail("broken", "it broke"),
			wantStatus: http.StatusInternalServerError,
			wantTitle:  "Internal Server Error",
			wantDetail: "it broke",
			wantCode:   "broken",
		},
		"internal hides cause": {
			err:        &nest.InternalError{Err: errors.New("db password is hunter2")},
			wantStatus: http.StatusInternalServerError,
			wantTitle:  "Internal Server Error",
		},
		"canceled": {
			err:        &nest.InternalError{Err: context.Canceled},
			wantStatus: http.StatusServiceUnavailable,
			wantTitle:  "Service Unavailable",
			wantDetail: "request canceled",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			pd := nest.Problem(tt.err, "/x")

			assert.Equal(t, "about:blank", pd.Type)
			assert.Equal(t, "/x", pd.Instance)
			assert.Equal(t, tt.wantStatus, pd.Status)
			assert.Equal(t, tt.wantTitle, pd.Title)
			assert.Equal(t, tt.wantDetail, pd.Detail)
			assert.Equal(t, tt.wantCode, pd.Code)
			assert.Len(t, pd.Errors, tt.wantErrors)
		})
	}
}

func TestDefaultFormatter(t *testing.T) {
	t.Parallel()

	t.Run("problem body", func(t *testing.T) {
		t.Parallel()

		err := nest.Fail("quota", "quota exceeded").
			WithStatus(http.StatusTooManyRequests).
			WithPayload(map[string]int{"limit": 10})

		resp, claimed := nest.DefaultFormatter(nil, err)

		require.True(t, claimed)
		assert.Equal(t, http.StatusTooManyRequests, resp.Status)
		assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
		assert.JSONEq(t, `{
			"type": "about:blank",
			"title": "Too Many Requests",
			"status": 429,
			"detail": "quota exceeded",
			"code": "quota",
			"payload": {"limit": 10}
		}`, string(resp.Body))
	})

	t.Run("allow header", func(t *testing.T) {
		t.Parallel()

		resp, _ := nest.DefaultFormatter(nil, &nest.RoutingError{
			Reason:  nest.RouteMethodNotAllowed,
			Allowed: []string{"GET", "POST"},
		})

		assert.Equal(t, "GET, POST", resp.Header.Get("Allow"))
	})

	t.Run("application headers", func(t *testing.T) {
		t.Parallel()

		err := &nest.ApplicationError{
			Code:   "rate_limited",
			Status: http.StatusTooManyRequests,
			Header: http.Header{"Retry-After": {"3"}},
		}

		resp, _ := nest.DefaultFormatter(nil, err)

		assert.Equal(t, "3", resp.Header.Get("Retry-After"))
		assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
	})

	t.Run("validation errors list", func(t *testing.T) {
		t.Parallel()

		resp, _ := nest.DefaultFormatter(nil, &nest.ValidationError{Field: "id", Reason: "must be an integer", Value: "abc"})

		var pd nest.ProblemDetail
		require.NoError(t, json.Unmarshal(resp.Body, &pd))
		require.Len(t, pd.Errors, 1)
		assert.Equal(t, "abc", pd.Errors[0].Value)
	})
}

func TestFormatter_nilResponseDeclines(t *testing.T) {
	t.Parallel()

	api := nest.New(nest.WithFormatter(func(*nest.Context, nest.TypedError) (*nest.Response, bool) {
		return nil, true
	}))
	app := build(t, api)

	resp := app.Dispatch(t.Context(), get("/nowhere", nil))

	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
}

func TestFormatter_zeroStatusUsesErrorStatus(t *testing.T) {
	t.Parallel()

	api := nest.New(nest.WithFormatter(func(*nest.Context, nest.TypedError) (*nest.Response, bool) {
		return &nest.Response{Body: []byte("gone")}, true
	}))
	app := build(t, api)

	resp := app.Dispatch(t.Context(), get("/nowhere", nil))

	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "gone", string(resp.Body))
}

func TestFormatter_seesValidatedParams(t *testing.T) {
	t.Parallel()

	var seen string
	api := nest.New(nest.WithFormatter(func(c *nest.Context, _ nest.TypedError) (*nest.Response, bool) {
		seen = c.Params().String("lang")
		return nil, false
	}))
	api.Params(nest.NewSchema().Opt("lang", nest.String(), nest.Default("en"))).
		Get("x", func(*nest.Context) (any, error) {
			return nil, nest.Error(http.StatusTeapot, "short and stout")
		})
	app := build(t, api)

	resp := app.Dispatch(t.Context(), get("/x", nil))

	assert.Equal(t, http.StatusTeapot, resp.Status)
	assert.Equal(t, "en", seen)
}
