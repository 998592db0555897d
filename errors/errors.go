// Package errors defines the error taxonomy of the messaging core.
// Auth errors are fatal to the connection, validation and store errors fail
// a single operation and leave the connection open.
package errors

import (
	"errors"
	"fmt"
)

var (
	// Auth errors close the connection.
	ErrUnauthenticated = fmt.Errorf("missing or invalid credential")
	ErrAuthTimeout     = fmt.Errorf("handshake not completed in time")

	// Validation errors are reported to the sender only.
	ErrEmptyBody      = fmt.Errorf("message body is empty")
	ErrNotMember      = fmt.Errorf("connection has not joined this channel")
	ErrUnknownChannel = fmt.Errorf("channel does not exist")

	// Store errors are retryable by the caller.
	ErrStoreUnavailable = fmt.Errorf("message store unavailable")
	ErrWriteFailed      = fmt.Errorf("message write failed")
)

// Wire codes sent in errorNotice payloads.
const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeAuthTimeout     = "AUTH_TIMEOUT"
	CodeEmptyBody       = "EMPTY_BODY"
	CodeNotMember       = "NOT_MEMBER"
	CodeUnknownChannel  = "UNKNOWN_CHANNEL"
	CodeStoreFailure    = "STORE_FAILURE"
	CodeInternal        = "INTERNAL"
)

// Code maps an error to its wire code. Unrecognized errors map to INTERNAL
// so that programming faults never leak details to clients.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return CodeUnauthenticated
	case errors.Is(err, ErrAuthTimeout):
		return CodeAuthTimeout
	case errors.Is(err, ErrEmptyBody):
		return CodeEmptyBody
	case errors.Is(err, ErrNotMember):
		return CodeNotMember
	case errors.Is(err, ErrUnknownChannel):
		return CodeUnknownChannel
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrWriteFailed):
		return CodeStoreFailure
	default:
		return CodeInternal
	}
}

// Fatal reports whether an error must terminate the connection.
func Fatal(err error) bool {
	return errors.Is(err, ErrUnauthenticated) || errors.Is(err, ErrAuthTimeout)
}
