package jobx

import (
	"errors"

	"github.com/Abraxas-365/placement/pkg/errx"
)

var jobxErrors = errx.NewRegistry("JOBX")

var (
	ErrJobNotFound     = jobxErrors.Register("JOB_NOT_FOUND", errx.TypeNotFound, 404, "Job not found")
	ErrEnqueueFailed   = jobxErrors.Register("ENQUEUE_FAILED", errx.TypeExternal, 500, "Failed to enqueue job")
	ErrDequeueFailed   = jobxErrors.Register("DEQUEUE_FAILED", errx.TypeExternal, 500, "Failed to dequeue job")
	ErrNoHandler       = jobxErrors.Register("NO_HANDLER", errx.TypeValidation, 400, "No handler registered for job type")
	ErrInvalidJob      = jobxErrors.Register("INVALID_JOB", errx.TypeValidation, 400, "Invalid job definition")
	ErrInvalidPayload  = jobxErrors.Register("INVALID_PAYLOAD", errx.TypeValidation, 400, "Job payload could not be decoded")
	ErrHandlerPanic    = jobxErrors.Register("HANDLER_PANIC", errx.TypeInternal, 500, "Job handler panicked")
	ErrAlreadyRunning  = jobxErrors.Register("ALREADY_RUNNING", errx.TypeConflict, 409, "Worker is already running")
	ErrShutdownTimeout = jobxErrors.Register("SHUTDOWN_TIMEOUT", errx.TypeInternal, 500, "Graceful shutdown timed out")
)

// permanentError marks a handler failure that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the worker fails the job without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
