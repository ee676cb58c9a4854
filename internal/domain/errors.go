package domain

import (
	"errors"
	"fmt"
)

var (
	ErrStorage               = errors.New("storage failure")
	ErrAuthenticationFailure = errors.New("credential authentication failed")
	ErrRemoteCall            = errors.New("remote call failed")
	ErrEmptyTranscription    = errors.New("transcription returned no text")

	ErrNotReady          = errors.New("assistant is not ready")
	ErrExchangeInFlight  = errors.New("another exchange is in flight")
	ErrInvalidInput      = errors.New("invalid input")
	ErrCaptureCanceled   = errors.New("audio capture canceled")
	ErrNothingToContinue = errors.New("no question has been asked yet")
)

// RemoteCallError describes a non-success response from a remote endpoint.
// It unwraps to ErrRemoteCall.
type RemoteCallError struct {
	Service    string
	StatusCode int
	Body       string
	Retryable  bool
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("%s API error %d: %s", e.Service, e.StatusCode, e.Body)
}

func (e *RemoteCallError) Unwrap() error { return ErrRemoteCall }
