package errx

import (
	"errors"
	"fmt"
)

// Error is the error value every package in the service returns. Code is
// the registry-qualified code ("CAMPAIGN_NOT_FOUND"); Details is rendered
// to API clients and log lines as-is.
type Error struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Type       Type           `json:"type"`
	HTTPStatus int            `json:"http_status"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same code, so errors.Is works against
// a freshly built sentinel such as ErrRegistry.New(CodeX).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithDetail sets one detail and returns e for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any, 1)
	}
	e.Details[key] = value
	return e
}

func (e *Error) WithDetails(details map[string]any) *Error {
	for k, v := range details {
		e.WithDetail(k, v)
	}
	return e
}

// Wrap gives a foreign error a Type and message. A wrapped *Error keeps its
// code, status and details.
func Wrap(err error, message string, t Type) *Error {
	if err == nil {
		return nil
	}
	out := &Error{
		Code:       string(t),
		Message:    message,
		Type:       t,
		HTTPStatus: t.HTTPStatus(),
		Err:        err,
	}
	var inner *Error
	if errors.As(err, &inner) {
		out.Code = inner.Code
		out.HTTPStatus = inner.HTTPStatus
		out.Details = inner.Details
	}
	return out
}

// As is errors.As, re-exported so handlers only import errx.
func As(err error, target any) bool {
	return errors.As(err, target)
}
