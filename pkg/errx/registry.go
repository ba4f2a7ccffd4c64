package errx

import (
	"errors"
	"fmt"
	"sync"
)

// ErrorCode is a code registered once at package init and shared by every
// error built from it.
type ErrorCode struct {
	Code       string
	Type       Type
	HTTPStatus int
	Message    string
}

// Registry namespaces the codes of one package under a prefix.
type Registry struct {
	prefix string
	mu     sync.RWMutex
	codes  map[string]*ErrorCode
}

func NewRegistry(prefix string) *Registry {
	return &Registry{prefix: prefix, codes: make(map[string]*ErrorCode)}
}

// Register adds code to the registry. Registering the same code twice is a
// programming error and panics.
func (r *Registry) Register(code string, t Type, httpStatus int, message string) *ErrorCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.codes[code]; dup {
		panic(fmt.Sprintf("errx: code %s registered twice in %s", code, r.prefix))
	}
	if httpStatus == 0 {
		httpStatus = t.HTTPStatus()
	}
	ec := &ErrorCode{
		Code:       r.prefix + "_" + code,
		Type:       t,
		HTTPStatus: httpStatus,
		Message:    message,
	}
	r.codes[code] = ec
	return ec
}

// Get looks a code up by its unprefixed name.
func (r *Registry) Get(code string) (*ErrorCode, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ec, ok := r.codes[code]
	return ec, ok
}

func (r *Registry) New(code *ErrorCode) *Error {
	return r.NewWithCause(code, nil)
}

// NewWithMessage replaces the registered message, typically with a
// validation reason.
func (r *Registry) NewWithMessage(code *ErrorCode, message string) *Error {
	e := r.NewWithCause(code, nil)
	e.Message = message
	return e
}

func (r *Registry) NewWithCause(code *ErrorCode, cause error) *Error {
	return &Error{
		Code:       code.Code,
		Message:    code.Message,
		Type:       code.Type,
		HTTPStatus: code.HTTPStatus,
		Err:        cause,
	}
}

// IsCode reports whether any *Error in err's chain carries code. Causes
// nested inside an *Error are searched as well.
func IsCode(err error, code *ErrorCode) bool {
	if code == nil {
		return false
	}
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code.Code {
			return true
		}
		err = e.Err
	}
	return false
}

// TypeOf returns the Type of the outermost *Error in err's chain, or
// TypeInternal when there is none.
func TypeOf(err error) Type {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return TypeInternal
}
