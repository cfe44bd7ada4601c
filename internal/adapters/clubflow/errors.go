package clubflow

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("clubflow session is no longer valid")
	ErrUnavailable        = errors.New("clubflow is unavailable")
	ErrForbidden          = errors.New("clubflow denied access to this resource")
	ErrNotFound           = errors.New("clubflow resource not found")
)

// APIError carries the status and detail of a failed ClubFlow response.
type APIError struct {
	Status int
	Detail string
	kind   error
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("clubflow returned %d", e.Status)
	}
	return fmt.Sprintf("clubflow returned %d: %s", e.Status, e.Detail)
}

// Unwrap exposes the sentinel matching the status, if any.
func (e *APIError) Unwrap() error { return e.kind }

func newAPIError(status int, detail string, credentials bool) *APIError {
	e := &APIError{Status: status, Detail: detail}
	switch {
	case credentials && (status == http.StatusBadRequest || status == http.StatusUnauthorized):
		e.kind = ErrInvalidCredentials
	case status == http.StatusUnauthorized:
		e.kind = ErrUnauthorized
	case status == http.StatusForbidden:
		e.kind = ErrForbidden
	case status == http.StatusNotFound:
		e.kind = ErrNotFound
	case status >= 500:
		e.kind = ErrUnavailable
	}
	return e
}
