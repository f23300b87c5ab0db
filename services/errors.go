package services

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable failure class returned to callers.
type Kind string

const (
	KindInvalidPayload     Kind = "InvalidPayload"
	KindNotFound           Kind = "NotFound"
	KindUnauthorized       Kind = "Unauthorized"
	KindForbiddenBlocked   Kind = "ForbiddenBlocked"
	KindUserBlocked        Kind = "UserBlocked"
	KindInsufficientFunds  Kind = "InsufficientFunds"
	KindNotActive          Kind = "NotActive"
	KindJoinDeadlinePassed Kind = "JoinDeadlinePassed"
	KindEventEnded         Kind = "EventEnded"
	KindAlreadyFinished    Kind = "AlreadyFinished"
	KindRoundExpired       Kind = "RoundExpired"
	KindCheatDetected      Kind = "CheatDetected"
	KindInternal           Kind = "Internal"
)

// Error carries a Kind plus a human message. errors.Is matches on Kind, so
// callers can compare against the Err* sentinels below.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrInvalidPayload     = &Error{Kind: KindInvalidPayload}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
	ErrForbiddenBlocked   = &Error{Kind: KindForbiddenBlocked}
	ErrUserBlocked        = &Error{Kind: KindUserBlocked}
	ErrInsufficientFunds  = &Error{Kind: KindInsufficientFunds}
	ErrNotActive          = &Error{Kind: KindNotActive}
	ErrJoinDeadlinePassed = &Error{Kind: KindJoinDeadlinePassed}
	ErrEventEnded         = &Error{Kind: KindEventEnded}
	ErrAlreadyFinished    = &Error{Kind: KindAlreadyFinished}
	ErrRoundExpired       = &Error{Kind: KindRoundExpired}
	ErrCheatDetected      = &Error{Kind: KindCheatDetected}
)

// KindOf returns the Kind of err, or KindInternal for anything untyped.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
