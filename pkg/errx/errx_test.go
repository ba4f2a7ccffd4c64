package errx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_PrefixesCodes(t *testing.T) {
	reg := NewRegistry("CAMPAIGN")
	code := reg.Register("NOT_FOUND", TypeNotFound, http.StatusNotFound, "Campaign not found")

	assert.Equal(t, "CAMPAIGN_NOT_FOUND", code.Code)
	got, ok := reg.Get("NOT_FOUND")
	require.True(t, ok)
	assert.Same(t, code, got)
}

func TestError_MessageIncludesCause(t *testing.T) {
	reg := NewRegistry("DELIVERY")
	code := reg.Register("FAILED", TypeExternal, http.StatusBadGateway, "Delivery failed")

	err := reg.NewWithCause(code, errors.New("connection reset")).WithDetail("to", "asha@example.edu")

	assert.Equal(t, "[DELIVERY_FAILED] Delivery failed: connection reset", err.Error())
	assert.Equal(t, "asha@example.edu", err.Details["to"])
	assert.Equal(t, http.StatusBadGateway, err.HTTPStatus)
}

func TestIsCode_WalksNestedCauses(t *testing.T) {
	reg := NewRegistry("NOTIFICATION")
	inner := reg.Register("CHANNEL", TypeBusiness, http.StatusUnprocessableEntity, "Channel not supported")
	outer := reg.Register("DELIVERY", TypeExternal, http.StatusBadGateway, "Delivery failed")
	other := reg.Register("OTHER", TypeInternal, http.StatusInternalServerError, "Other")

	err := fmt.Errorf("job 7: %w", reg.NewWithCause(outer, reg.New(inner)))

	assert.True(t, IsCode(err, outer))
	assert.True(t, IsCode(err, inner))
	assert.False(t, IsCode(err, other))
	assert.False(t, IsCode(nil, outer))
	assert.False(t, IsCode(errors.New("plain"), outer))
}

func TestTypeOf(t *testing.T) {
	reg := NewRegistry("X")
	code := reg.Register("CONFLICT", TypeConflict, http.StatusConflict, "Conflict")

	assert.Equal(t, TypeConflict, TypeOf(fmt.Errorf("wrapped: %w", reg.New(code))))
	assert.Equal(t, TypeInternal, TypeOf(errors.New("plain")))
}

func TestRegister_DuplicatePanics(t *testing.T) {
	reg := NewRegistry("TEMPLATE")
	reg.Register("NOT_FOUND", TypeNotFound, http.StatusNotFound, "Template not found")

	assert.Panics(t, func() {
		reg.Register("NOT_FOUND", TypeNotFound, http.StatusNotFound, "Template not found")
	})
}

func TestRegister_ZeroStatusFallsBackToType(t *testing.T) {
	reg := NewRegistry("SETTINGS")
	code := reg.Register("UNAVAILABLE", TypeExternal, 0, "Settings store unavailable")

	assert.Equal(t, http.StatusBadGateway, code.HTTPStatus)
}

func TestErrorsIs_MatchesByCode(t *testing.T) {
	reg := NewRegistry("CAMPAIGN")
	notFound := reg.Register("NOT_FOUND", TypeNotFound, http.StatusNotFound, "Campaign not found")
	sending := reg.Register("ALREADY_SENDING", TypeConflict, http.StatusConflict, "Campaign is already sending")

	err := fmt.Errorf("send c1: %w", reg.New(notFound).WithDetail("campaign_id", "c1"))

	assert.True(t, errors.Is(err, reg.New(notFound)))
	assert.False(t, errors.Is(err, reg.New(sending)))
}

func TestWrap(t *testing.T) {
	reg := NewRegistry("AUDIT")
	code := reg.Register("STORE", TypeExternal, http.StatusServiceUnavailable, "Audit store unavailable")

	wrapped := Wrap(reg.New(code).WithDetail("action", "EMAIL_SENT"), "Internal Server Error", TypeInternal)
	assert.Equal(t, "AUDIT_STORE", wrapped.Code)
	assert.Equal(t, http.StatusServiceUnavailable, wrapped.HTTPStatus)
	assert.Equal(t, "EMAIL_SENT", wrapped.Details["action"])

	plain := Wrap(errors.New("boom"), "Internal Server Error", TypeInternal)
	assert.Equal(t, "INTERNAL", plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.HTTPStatus)

	assert.Nil(t, Wrap(nil, "unused", TypeInternal))
}
