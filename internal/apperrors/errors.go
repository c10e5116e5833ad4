package apperrors

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidInput marks a request the caller can fix (empty or oversized text).
	ErrInvalidInput = errors.New("invalid input")
	// ErrModelNotFound means no model version matched a resolve request.
	ErrModelNotFound = errors.New("model not found")
	// ErrModelUnavailable is the server-side condition surfaced when no usable
	// model version exists for a prediction.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrModelLoad means a model artifact is missing or corrupt. Fatal for that
	// version only, never for the serving process.
	ErrModelLoad = errors.New("model load failed")
	// ErrJobConflict means a retraining job is already running for the model.
	ErrJobConflict = errors.New("retraining job already in progress")
	// ErrAuthorization means the caller's role does not permit the operation.
	ErrAuthorization = errors.New("not authorized")
	// ErrJobNotFound means no retraining job matched the given id.
	ErrJobNotFound = errors.New("job not found")
	// ErrDatasetNotFound means the referenced training dataset does not exist.
	ErrDatasetNotFound = errors.New("dataset not found")
)

// RateLimitedError is returned when an account's hourly quota is exhausted.
// RetryAfter tells the caller how long to back off.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %ds", int(e.RetryAfter.Seconds()))
}

// IsRateLimited reports whether err is a quota rejection and returns the
// backoff duration when it is.
func IsRateLimited(err error) (time.Duration, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	return 0, false
}
