package errors

import (
	"errors"
	"fmt"
)

// ErrorCode identifies an engine failure kind.
type ErrorCode string

const (
	ErrEntryNotFound       ErrorCode = "ENTRY_NOT_FOUND"
	ErrOfferNotFound       ErrorCode = "OFFER_NOT_FOUND"
	ErrOfferNotPending     ErrorCode = "OFFER_NOT_PENDING"
	ErrOfferExpired        ErrorCode = "OFFER_EXPIRED"
	ErrEntryNotActive      ErrorCode = "ENTRY_NOT_ACTIVE"
	ErrScheduleUnavailable ErrorCode = "SCHEDULE_UNAVAILABLE"
	ErrNoCandidates        ErrorCode = "NO_CANDIDATES"
	ErrInternal            ErrorCode = "INTERNAL"
)

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches two AppErrors by code so callers can use errors.Is against the
// sentinel constructors.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// Error constructors
func EntryNotFound(err error) *AppError {
	return &AppError{Code: ErrEntryNotFound, Message: "waitlist entry not found", Err: err}
}

func OfferNotFound(err error) *AppError {
	return &AppError{Code: ErrOfferNotFound, Message: "waitlist offer not found", Err: err}
}

func OfferNotPending(status string) *AppError {
	return &AppError{Code: ErrOfferNotPending, Message: fmt.Sprintf("offer is no longer pending (status %s)", status)}
}

func OfferExpired() *AppError {
	return &AppError{Code: ErrOfferExpired, Message: "offer has expired"}
}

func EntryNotActive(status string) *AppError {
	return &AppError{Code: ErrEntryNotActive, Message: fmt.Sprintf("waitlist entry is not active (status %s)", status)}
}

func ScheduleUnavailable(clinician string) *AppError {
	return &AppError{Code: ErrScheduleUnavailable, Message: fmt.Sprintf("no schedule template for clinician %s", clinician)}
}

func NoCandidates() *AppError {
	return &AppError{Code: ErrNoCandidates, Message: "no eligible slots for entry"}
}

func Internal(err error) *AppError {
	return &AppError{Code: ErrInternal, Message: "internal error", Err: err}
}

// CodeOf extracts the engine error code, or ErrInternal for plain errors.
func CodeOf(err error) ErrorCode {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ErrInternal
}
