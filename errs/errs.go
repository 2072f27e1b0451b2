// Package errs classifies the failures surfaced by the gold client.
//
// Every error returned across a package boundary carries a Kind so that the
// orchestration layer can decide how to surface it: input problems stay on the
// client side, read failures are retryable, submission outcomes terminate the
// operation status.
package errs

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindWalletNotConnected  Kind = "WALLET_NOT_CONNECTED"
	KindInvalidInput        Kind = "INVALID_INPUT"
	KindAddressDerivation   Kind = "ADDRESS_DERIVATION"
	KindNotInitialized      Kind = "NOT_INITIALIZED"
	KindSubmissionRejected  Kind = "SUBMISSION_REJECTED"
	KindSubmissionUnknown   Kind = "SUBMISSION_UNKNOWN"
	KindReadFailure         Kind = "READ_FAILURE"
	KindUserRejected        Kind = "USER_REJECTED"
	KindSignerUnavailable   Kind = "SIGNER_UNAVAILABLE"
	KindOperationInProgress Kind = "OPERATION_IN_PROGRESS"
)

// Sentinels for errors.Is. Any *Error of the same Kind matches.
var (
	ErrWalletNotConnected  = &Error{Kind: KindWalletNotConnected, Message: "wallet not connected"}
	ErrInvalidInput        = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrAddressDerivation   = &Error{Kind: KindAddressDerivation, Message: "address derivation failed"}
	ErrNotInitialized      = &Error{Kind: KindNotInitialized, Message: "protocol not initialized"}
	ErrSubmissionRejected  = &Error{Kind: KindSubmissionRejected, Message: "submission rejected"}
	ErrSubmissionUnknown   = &Error{Kind: KindSubmissionUnknown, Message: "submission outcome unknown"}
	ErrReadFailure         = &Error{Kind: KindReadFailure, Message: "read failure"}
	ErrUserRejected        = &Error{Kind: KindUserRejected, Message: "user rejected the request"}
	ErrSignerUnavailable   = &Error{Kind: KindSignerUnavailable, Message: "signer unavailable"}
	ErrOperationInProgress = &Error{Kind: KindOperationInProgress, Message: "operation already in progress"}
)

type Error struct {
	Kind    Kind
	Field   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Wrapf(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// InvalidInput names the offending field so the presentation layer can point at it.
func InvalidInput(field, message string) *Error {
	return &Error{Kind: KindInvalidInput, Field: field, Message: message}
}

// Fields lists the field of every *Error in err's tree, joined errors
// included, in order.
func Fields(err error) []string {
	var out []string
	var walk func(error)
	walk = func(err error) {
		switch e := err.(type) {
		case nil:
		case *Error:
			if e.Field != "" {
				out = append(out, e.Field)
			}
			walk(e.Cause)
		case interface{ Unwrap() []error }:
			for _, inner := range e.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(e.Unwrap())
		}
	}
	walk(err)
	return out
}

// KindOf returns the Kind of the first *Error in the chain, or "" for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Retryable reports failures the user may simply try again.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindReadFailure, KindSubmissionUnknown:
		return true
	}
	return false
}
