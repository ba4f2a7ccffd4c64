package notifx

import (
	"context"
	"errors"

	"github.com/Abraxas-365/placement/pkg/errx"
)

var notifxErrors = errx.NewRegistry("NOTIFX")

var (
	ErrSendFailed     = notifxErrors.Register("SEND_FAILED", errx.TypeExternal, 500, "Failed to send email")
	ErrRejected       = notifxErrors.Register("REJECTED", errx.TypeExternal, 502, "Email rejected by provider")
	ErrInvalidMessage = notifxErrors.Register("INVALID_MESSAGE", errx.TypeValidation, 400, "Invalid email message")
	ErrBuildMessage   = notifxErrors.Register("BUILD_MESSAGE", errx.TypeInternal, 500, "Failed to build MIME message")
	ErrVerifyFailed   = notifxErrors.Register("VERIFY_FAILED", errx.TypeExternal, 502, "Email transport verification failed")
	ErrNoProvider     = notifxErrors.Register("NO_PROVIDER", errx.TypeInternal, 500, "No email provider configured")
)

// Rejected wraps a provider error that retrying cannot fix, such as an
// unknown mailbox or a blocked sender.
func Rejected(cause error) *errx.Error {
	return notifxErrors.NewWithCause(ErrRejected, cause)
}

// IsTransient reports whether a send error is worth retrying.
func IsTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled):
		return false
	case errx.IsCode(err, ErrRejected), errx.IsCode(err, ErrInvalidMessage), errx.IsCode(err, ErrBuildMessage):
		return false
	default:
		return true
	}
}
