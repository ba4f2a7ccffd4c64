package errx

import "net/http"

// Type groups error codes by how callers should react to them.
type Type string

const (
	TypeInternal   Type = "INTERNAL"
	TypeValidation Type = "VALIDATION"
	TypeNotFound   Type = "NOT_FOUND"
	TypeConflict   Type = "CONFLICT"
	// TypeBusiness is a well-formed request the current state cannot honour.
	TypeBusiness Type = "BUSINESS"
	// TypeExternal is a failure in a provider: SMTP, SES, Redis or Postgres.
	TypeExternal Type = "EXTERNAL"
)

var typeStatus = map[Type]int{
	TypeInternal:   http.StatusInternalServerError,
	TypeValidation: http.StatusBadRequest,
	TypeNotFound:   http.StatusNotFound,
	TypeConflict:   http.StatusConflict,
	TypeBusiness:   http.StatusUnprocessableEntity,
	TypeExternal:   http.StatusBadGateway,
}

func (t Type) String() string {
	return string(t)
}

// HTTPStatus is the status a handler answers with when a code does not
// carry its own. Unknown types map to 500.
func (t Type) HTTPStatus() int {
	if s, ok := typeStatus[t]; ok {
		return s
	}
	return http.StatusInternalServerError
}
