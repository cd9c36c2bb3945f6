package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound       = errors.New("requested resource not found")
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrForbidden      = errors.New("forbidden access")
	ErrBadRequest     = errors.New("bad request")
	ErrConflict       = errors.New("resource conflict")
	ErrInternalServer = errors.New("internal server error")

	// ErrUpstreamUnavailable means the judge service could not be reached or
	// answered with a server error. Retryable by the caller; the core never
	// retries on its own.
	ErrUpstreamUnavailable = errors.New("judge service unavailable")

	// ErrPollTimeout means the polling deadline elapsed before every case
	// reached a terminal status. Distinct from a judged failure: it must
	// never surface as WrongAnswer.
	ErrPollTimeout = errors.New("timed out waiting for judge results")

	// ErrQuotaExceeded means the per-user daily cap on gated operations was
	// hit; the gated operation did not run.
	ErrQuotaExceeded = errors.New("daily usage quota exceeded")
)

// ValidationFailedError reports the first reference-solution case that did not
// come back Accepted during problem authoring. No Problem row is persisted
// when this is returned.
type ValidationFailedError struct {
	Language  string `json:"language"`
	CaseIndex int    `json:"case_index"`
	Status    string `json:"status"`
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("reference solution validation failed: language=%s case=%d status=%s",
		e.Language, e.CaseIndex, e.Status)
}

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var vErr *ValidationFailedError
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrPollTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &vErr):
		return http.StatusUnprocessableEntity
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique violation
		return http.StatusConflict
	}

	return http.StatusInternalServerError
}
