package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSessionInit        = errors.New("browser session could not be started")
	ErrSessionUnavailable = errors.New("no active browser session, please start a session")
	ErrInvalidProductURL  = errors.New("invalid product url")
	ErrNoReviewsFound     = errors.New("no reviews found")
	ErrModelUnavailable   = errors.New("classifier model unavailable")
	ErrUnknownLabel       = errors.New("unknown classifier label")
	ErrBusy               = errors.New("an analysis is already running")
	ErrReportNotFound     = errors.New("report not found")
)

// ErrSessionLost is reported when a previously active session fails its liveness check.
// It matches ErrSessionUnavailable so callers can treat both the same way.
var ErrSessionLost = fmt.Errorf("browser session lost: %w", ErrSessionUnavailable)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
