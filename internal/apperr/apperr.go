// Package apperr defines the typed outcomes returned by the service layer.
// Every rejected operation carries a Kind (which decides the HTTP status) and
// a stable Reason code that clients can match on.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
	KindForbidden
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Reason is a machine-checkable code returned alongside the message.
type Reason string

const (
	ReasonInvalidInput             Reason = "invalid_input"
	ReasonInvalidDiscount          Reason = "invalid_discount"
	ReasonPastDate                 Reason = "past_date"
	ReasonOutsideOperatingHours    Reason = "outside_operating_hours"
	ReasonHallUnavailable          Reason = "hall_unavailable"
	ReasonInsufficientBufferBefore Reason = "insufficient_buffer_before"
	ReasonInsufficientBufferAfter  Reason = "insufficient_buffer_after"
	ReasonTooCloseToModify         Reason = "too_close_to_modify"
	ReasonTooCloseToCancel         Reason = "too_close_to_cancel"
	ReasonCapacityDowngrade        Reason = "capacity_downgrade"
	ReasonHasReservations          Reason = "has_reservations"
	ReasonAlreadyReserved          Reason = "already_reserved"
	ReasonNoSeatsAvailable         Reason = "no_seats_available"
	ReasonPaymentIncomplete        Reason = "payment_incomplete"
	ReasonRateFetchFailed          Reason = "rate_fetch_failed"
	ReasonPaymentFailed            Reason = "payment_failed"
	ReasonNotFound                 Reason = "not_found"
	ReasonDuplicate                Reason = "duplicate"
	ReasonInUse                    Reason = "in_use"
	ReasonInvalidCredentials       Reason = "invalid_credentials"
	ReasonInvalidToken             Reason = "invalid_token"
	ReasonForbidden                Reason = "forbidden"
	ReasonInternal                 Reason = "internal"
)

// Error is the concrete error type produced by services.
type Error struct {
	Kind    Kind
	Reason  Reason
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error without a cause.
func New(kind Kind, reason Reason, msg string) *Error {
	return &Error{Kind: kind, Reason: reason, Message: msg}
}

// Wrap builds an Error that keeps err as its cause.
func Wrap(kind Kind, reason Reason, msg string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Message: msg, Err: err}
}

func Validation(reason Reason, msg string) *Error { return New(KindValidation, reason, msg) }

func Conflict(reason Reason, msg string) *Error { return New(KindConflict, reason, msg) }

func NotFound(msg string) *Error { return New(KindNotFound, ReasonNotFound, msg) }

func Forbidden(msg string) *Error { return New(KindForbidden, ReasonForbidden, msg) }

func Unauthorized(reason Reason, msg string) *Error { return New(KindUnauthorized, reason, msg) }

func Upstream(reason Reason, msg string, err error) *Error {
	return Wrap(KindUpstream, reason, msg, err)
}

// Internal wraps an unexpected failure. The message is never shown to clients.
func Internal(msg string, err error) *Error {
	return Wrap(KindInternal, ReasonInternal, msg, err)
}

// From extracts an *Error from err's chain.
func From(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf reports the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	if ae, ok := From(err); ok {
		return ae.Kind
	}
	return KindInternal
}

// ReasonOf reports the reason of err, ReasonInternal for foreign errors.
func ReasonOf(err error) Reason {
	if ae, ok := From(err); ok {
		return ae.Reason
	}
	return ReasonInternal
}
