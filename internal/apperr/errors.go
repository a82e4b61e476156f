// Package apperr defines the operational error taxonomy. Every expected
// failure carries a stable reason code and the HTTP status the API layer
// responds with; anything else is treated as an internal error.
package apperr

import (
	"errors"
	"net/http"
)

type Error struct {
	Code    string `json:"error"`
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrCourseNotFound = &Error{Code: "COURSE_NOT_FOUND", Status: http.StatusBadRequest,
		Message: "course does not exist"}

	ErrPaymentNotFound = &Error{Code: "PAYMENT_NOT_FOUND", Status: http.StatusNotFound,
		Message: "payment does not exist"}

	ErrDuplicateRequest = &Error{Code: "DUPLICATE_REQUEST", Status: http.StatusBadRequest,
		Message: "an active payment already exists for this course"}

	ErrAlreadyOwned = &Error{Code: "ALREADY_OWNED", Status: http.StatusBadRequest,
		Message: "course already purchased"}

	ErrAlreadyActive = &Error{Code: "ALREADY_ACTIVE", Status: http.StatusBadRequest,
		Message: "a live payment already exists, wait for it to be processed"}

	ErrNotEligibleForRetry = &Error{Code: "NOT_ELIGIBLE_FOR_RETRY", Status: http.StatusBadRequest,
		Message: "no rejected or expired payment to retry"}

	// ErrAlreadyProcessed deliberately covers both "not found" and "wrong
	// state" so transition callers cannot probe payment state.
	ErrAlreadyProcessed = &Error{Code: "ALREADY_PROCESSED", Status: http.StatusNotFound,
		Message: "payment was already processed or does not exist"}

	ErrExpired = &Error{Code: "EXPIRED", Status: http.StatusBadRequest,
		Message: "payment window has expired"}

	ErrForbidden = &Error{Code: "FORBIDDEN", Status: http.StatusForbidden,
		Message: "payment belongs to another user"}

	ErrInvalidState = &Error{Code: "INVALID_STATE", Status: http.StatusBadRequest,
		Message: "payment is not in a deletable state"}

	ErrCourseNotCompleted = &Error{Code: "COURSE_NOT_COMPLETED", Status: http.StatusBadRequest,
		Message: "course is not fully completed"}

	ErrTestsNotPassed = &Error{Code: "TESTS_NOT_PASSED", Status: http.StatusBadRequest,
		Message: "aggregate test score is below the passing threshold"}
)

// As unwraps err into an *Error if one is anywhere in its chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
