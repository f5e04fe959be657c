package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain taxonomy. All four are terminal and user-visible: the caller must
// correct its input or the chat state before retrying.
var (
	ErrNotFound         = fmt.Errorf("not found")
	ErrForbidden        = fmt.Errorf("forbidden")
	ErrInvalidOperation = fmt.Errorf("invalid operation")
	ErrBadRequest       = fmt.Errorf("bad request")

	// ErrInternal hides repository and infrastructure failures from clients.
	// The wrapped cause is logged server-side only.
	ErrInternal = fmt.Errorf("internal error")

	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")
)

// Internal wraps an infrastructure failure so it maps to ErrInternal while
// keeping the cause available for logs via errors.Unwrap.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInternal, err)
}

// HTTPStatus maps a domain error to its HTTP status code.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidOperation), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ClientMessage is the error string sent over the wire. Internal causes are
// collapsed to a generic message.
func ClientMessage(err error) string {
	for _, domainErr := range []error{ErrNotFound, ErrForbidden, ErrInvalidOperation, ErrBadRequest} {
		if errors.Is(err, domainErr) {
			return err.Error()
		}
	}
	return ErrInternal.Error()
}
