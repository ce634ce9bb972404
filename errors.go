package nest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors returned (joined and wrapped) by Build.
var (
	ErrPrefixCollision   = errors.New("prefix collision")
	ErrRouteCollision    = errors.New("route collision")
	ErrInvalidSchema     = errors.New("invalid schema")
	ErrInvalidVersioning = errors.New("invalid versioning")
	ErrInvalidEndpoint   = errors.New("invalid endpoint")
	ErrInvalidNamespace  = errors.New("invalid namespace")
)

// Kind discriminates the variants of TypedError.
type Kind uint8

// TypedError kinds.
const (
	KindValidation Kind = iota + 1
	KindRouting
	KindApplication
	KindInternal
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRouting:
		return "routing"
	case KindApplication:
		return "application"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// TypedError is a request failure whose kind can be inspected by formatters.
// The set of implementations is closed: *ValidationError, ValidationErrors,
// *RoutingError, *ApplicationError and *InternalError. Application-defined
// failures use *ApplicationError with their own Code and Payload.
type TypedError interface {
	error
	Kind() Kind
	typedError()
}

// StatusCoder is implemented by errors or responses that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// ValidationError describes a single parameter validation failure.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
	Value  any    `json:"value,omitempty"`
}

// Error returns the field and reason, e.g. "token is required".
func (e *ValidationError) Error() string { return e.Field + " " + e.Reason }

// Kind returns KindValidation.
func (e *ValidationError) Kind() Kind { return KindValidation }

// StatusCode returns http.StatusBadRequest.
func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }

func (*ValidationError) typedError() {}

// ValidationErrors is every failure found when validating with
// AggregateErrors.
type ValidationErrors []*ValidationError

// Error joins the individual failures.
func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return strings.Join(msgs, "; ")
}

// Kind returns KindValidation.
func (e ValidationErrors) Kind() Kind { return KindValidation }

// StatusCode returns http.StatusBadRequest.
func (e ValidationErrors) StatusCode() int { return http.StatusBadRequest }

func (ValidationErrors) typedError() {}

// RoutingReason says why a request could not be routed.
type RoutingReason uint8

// Routing failure reasons.
const (
	RouteNotFound RoutingReason = iota + 1
	RouteUnknownVersion
	RouteMethodNotAllowed
)

// String returns the reason name.
func (r RoutingReason) String() string {
	switch r {
	case RouteNotFound:
		return "not found"
	case RouteUnknownVersion:
		return "unknown version"
	case RouteMethodNotAllowed:
		return "method not allowed"
	default:
		return "unknown"
	}
}

// RoutingError reports that no endpoint matched the request.
type RoutingError struct {
	Reason  RoutingReason
	Method  string
	Path    string
	Version string
	// Allowed lists the methods registered for the path when Reason is
	// RouteMethodNotAllowed.
	Allowed []string
}

// Error describes the routing failure.
func (e *RoutingError) Error() string {
	switch e.Reason {
	case RouteUnknownVersion:
		if e.Version == "" {
			return "missing api version"
		}
		return fmt.Sprintf("unknown api version %q", e.Version)
	case RouteMethodNotAllowed:
		return fmt.Sprintf("method %s not allowed for %s", e.Method, e.Path)
	default:
		return fmt.Sprintf("no route for %s %s", e.Method, e.Path)
	}
}

// Kind returns KindRouting.
func (e *RoutingError) Kind() Kind { return KindRouting }

// StatusCode maps the reason to an HTTP status.
func (e *RoutingError) StatusCode() int {
	if e.Reason == RouteMethodNotAllowed {
		return http.StatusMethodNotAllowed
	}
	return http.StatusNotFound
}

func (*RoutingError) typedError() {}

// ApplicationError is a domain failure raised by a hook or handler. Two
// application errors are equal under errors.Is when their codes match.
type ApplicationError struct {
	Code    string
	Status  int
	Message string
	Payload any
	// Header is copied onto the rendered error response.
	Header http.Header
	Err    error
}

// Fail returns an application error with the given code and message.
func Fail(code, message string) *ApplicationError {
	return &ApplicationError{Code: code, Message: message}
}

// Error returns an error with the given HTTP status code and message. The
// code is derived from the status text, e.g. "not_found".
func Error(status int, message string) error {
	return &ApplicationError{Code: statusCode(status), Status: status, Message: message}
}

// Errorf returns a formatted error with the given HTTP status code.
func Errorf(status int, format string, args ...any) error {
	return &ApplicationError{Code: statusCode(status), Status: status, Message: fmt.Sprintf(format, args...)}
}

func statusCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "error"
	}
	return strings.ReplaceAll(strings.ToLower(text), " ", "_")
}

// WithStatus returns a copy of e with the HTTP status set.
func (e *ApplicationError) WithStatus(status int) *ApplicationError {
	cp := *e
	cp.Status = status
	return &cp
}

// WithPayload returns a copy of e carrying payload.
func (e *ApplicationError) WithPayload(payload any) *ApplicationError {
	cp := *e
	cp.Payload = payload
	return &cp
}

// Wrap returns a copy of e with err as its cause.
func (e *ApplicationError) Wrap(err error) *ApplicationError {
	cp := *e
	cp.Err = err
	return &cp
}

// Error returns the message (or code), followed by the cause if any.
func (e *ApplicationError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the cause.
func (e *ApplicationError) Unwrap() error { return e.Err }

// Is matches another *ApplicationError with the same code.
func (e *ApplicationError) Is(target error) bool {
	var t *ApplicationError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code != "" && e.Code == t.Code
}

// Kind returns KindApplication.
func (e *ApplicationError) Kind() Kind { return KindApplication }

// StatusCode returns Status, or http.StatusInternalServerError if unset.
func (e *ApplicationError) StatusCode() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

func (*ApplicationError) typedError() {}

// InternalError wraps an untyped error, a recovered panic, or a cancelled
// request context.
type InternalError struct {
	Err error
}

// Error returns the wrapped error's message.
func (e *InternalError) Error() string {
	if e.Err == nil {
		return "internal error"
	}
	return "internal error: " + e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *InternalError) Unwrap() error { return e.Err }

// Kind returns KindInternal.
func (e *InternalError) Kind() Kind { return KindInternal }

// Canceled reports whether the request context was cancelled or timed out.
func (e *InternalError) Canceled() bool {
	return errors.Is(e.Err, context.Canceled) || errors.Is(e.Err, context.DeadlineExceeded)
}

// StatusCode returns 503 for cancelled requests and 500 otherwise.
func (e *InternalError) StatusCode() int {
	if e.Canceled() {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (*InternalError) typedError() {}

// AsTypedError returns the TypedError in err's chain. Errors without one
// are wrapped in an *InternalError. It returns nil for a nil err.
func AsTypedError(err error) TypedError {
	if err == nil {
		return nil
	}
	var te TypedError
	if errors.As(err, &te) {
		return te
	}
	return &InternalError{Err: err}
}

// ErrorStatus extracts the HTTP status code from an error. Returns
// http.StatusInternalServerError if the error does not implement StatusCoder.
func ErrorStatus(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}
