package game

import (
	"errors"
	"fmt"
)

// Tag is the stable error category surfaced to clients.
type Tag string

const (
	TagValidation    Tag = "validation"
	TagPhaseRejected Tag = "phase_rejected"
	TagNotFound      Tag = "not_found"
	TagConflict      Tag = "conflict"
	TagPrecondition  Tag = "precondition"
	TagDegraded      Tag = "degraded"
	TagUnauthorized  Tag = "unauthorized"
	TagInternal      Tag = "internal"
)

// Error is a domain error with a stable tag and a human-readable message.
type Error struct {
	Tag     Tag
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func newErr(tag Tag, format string, args ...any) *Error {
	e := &Error{Tag: tag, Message: fmt.Sprintf(format, args...)}
	for _, a := range args {
		if err, ok := a.(error); ok {
			e.cause = err
		}
	}
	return e
}

func Validationf(format string, args ...any) *Error {
	return newErr(TagValidation, format, args...)
}

func PhaseRejectedf(format string, args ...any) *Error {
	return newErr(TagPhaseRejected, format, args...)
}

func NotFoundf(format string, args ...any) *Error {
	return newErr(TagNotFound, format, args...)
}

func Conflictf(format string, args ...any) *Error {
	return newErr(TagConflict, format, args...)
}

func Preconditionf(format string, args ...any) *Error {
	return newErr(TagPrecondition, format, args...)
}

func Degradedf(format string, args ...any) *Error {
	return newErr(TagDegraded, format, args...)
}

func Unauthorizedf(format string, args ...any) *Error {
	return newErr(TagUnauthorized, format, args...)
}

func Internalf(format string, args ...any) *Error {
	return newErr(TagInternal, format, args...)
}

// TagOf extracts the stable tag from err, defaulting to internal.
func TagOf(err error) Tag {
	var de *Error
	if errors.As(err, &de) {
		return de.Tag
	}
	return TagInternal
}
