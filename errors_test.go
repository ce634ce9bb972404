package nest_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bjaus/nest"
)

func TestErrorStatus(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err  error
		want int
	}{
		"validation":         {err: &nest.ValidationError{Field: "a", Reason: "is required"}, want: http.StatusBadRequest},
		"validation list":    {err: nest.ValidationErrors{{Field: "a"}}, want: http.StatusBadRequest},
		"not found":          {err: &nest.RoutingError{Reason: nest.RouteNotFound}, want: http.StatusNotFound},
		"unknown version":    {err: &nest.RoutingError{Reason: nest.RouteUnknownVersion}, want: http.StatusNotFound},
		"method not allowed": {err: &nest.RoutingError{Reason: nest.RouteMethodNotAllowed}, want: http.StatusMethodNotAllowed},
		"application":        {err: nest.Error(http.StatusConflict, "taken"), want: http.StatusConflict},
		"application unset":  {err: nest.Fail("boom", "boom"), want: http.StatusInternalServerError},
		"internal":           {err: &nest.InternalError{Err: errors.New("x")}, want: http.StatusInternalServerError},
		"canceled":           {err: &nest.InternalError{Err: context.Canceled}, want: http.StatusServiceUnavailable},
		"deadline":           {err: &nest.InternalError{Err: context.DeadlineExceeded}, want: http.StatusServiceUnavailable},
		"wrapped":            {err: fmt.Errorf("ctx: %w", nest.Error(http.StatusTeapot, "tea")), want: http.StatusTeapot},
		"plain":              {err: errors.New("plain"), want: http.StatusInternalServerError},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, nest.ErrorStatus(tt.err))
		})
	}
}

func TestAsTypedError(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err  error
		want nest.Kind
	}{
		"validation":  {err: &nest.ValidationError{}, want: nest.KindValidation},
		"routing":     {err: &nest.RoutingError{}, want: nest.KindRouting},
		"application": {err: fmt.Errorf("wrap: %w", nest.Fail("x", "y")), want: nest.KindApplication},
		"untyped":     {err: errors.New("plain"), want: nest.KindInternal},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, nest.AsTypedError(tt.err).Kind())
		})
	}

	assert.Nil(t, nest.AsTypedError(nil))
}

func TestApplicationError(t *testing.T) {
	t.Parallel()

	cause := errors.New("db down")
	base := nest.Fail("unavailable", "try later")
	err := base.WithStatus(http.StatusServiceUnavailable).WithPayload(map[string]int{"retry": 5}).Wrap(cause)

	assert.Equal(t, "try later: db down", err.Error())
	assert.Equal(t, http.StatusServiceUnavailable, err.StatusCode())
	assert.ErrorIs(t, err, base, "matches by code")
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, nest.Fail("other", "try later"))
	assert.Zero(t, base.Status, "copies leave the original untouched")

	assert.Equal(t, "not_found", nest.Error(http.StatusNotFound, "gone").(*nest.ApplicationError).Code)
	assert.Equal(t, "code", nest.Fail("code", "").Error())
}

func TestRoutingError_Error(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err  *nest.RoutingError
		want string
	}{
		"not found":          {err: &nest.RoutingError{Reason: nest.RouteNotFound, Method: "GET", Path: "/x"}, want: "no route for GET /x"},
		"missing version":    {err: &nest.RoutingError{Reason: nest.RouteUnknownVersion}, want: "missing api version"},
		"unknown version":    {err: &nest.RoutingError{Reason: nest.RouteUnknownVersion, Version: "v9"}, want: `unknown api version "v9"`},
		"method not allowed": {err: &nest.RoutingError{Reason: nest.RouteMethodNotAllowed, Method: "POST", Path: "/x"}, want: "method POST not allowed for /x"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "validation", nest.KindValidation.String())
	assert.Equal(t, "routing", nest.KindRouting.String())
	assert.Equal(t, "application", nest.KindApplication.String())
	assert.Equal(t, "internal", nest.KindInternal.String())
}
