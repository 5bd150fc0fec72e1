package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/pitchside/internal/adapters/journal"
	"github.com/okian/pitchside/internal/adapters/mq/queue"
	"github.com/okian/pitchside/internal/domain/profile"
	"github.com/okian/pitchside/internal/domain/referee"
	"github.com/okian/pitchside/internal/scheduler"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
	ErrNotReady     = errors.New("no frame committed yet")
)

// statusFor maps a request outcome to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, queue.ErrFull):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, scheduler.ErrStopped), errors.Is(err, ErrNotReady):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, profile.ErrUnknownProfile), errors.Is(err, journal.ErrUnknownMatch):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, journal.ErrDisabled):
		return http.StatusNotFound, "journal_disabled"
	case errors.Is(err, referee.ErrMatchInProgress):
		return http.StatusConflict, "match_in_progress"
	case errors.Is(err, profile.ErrInvalidProfile):
		return http.StatusUnprocessableEntity, "invalid_profile"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func fail(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}
