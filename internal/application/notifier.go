package application

import (
	"context"
	"errors"

	"voiceqa/internal/domain"
)

// Notifier shows short status lines to the user ("Transcribing...", errors).
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type NoopNotifier struct{}

func (n *NoopNotifier) Notify(_ context.Context, _ string) error {
	return nil
}

// StatusMessage maps an error from the Assistant to the line shown to the user.
func StatusMessage(err error) string {
	var rce *domain.RemoteCallError

	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrEmptyTranscription):
		return "No text could be recognized. Try again."
	case errors.Is(err, domain.ErrCaptureCanceled):
		return "Recording canceled."
	case errors.Is(err, domain.ErrExchangeInFlight):
		return "Still working on the previous question."
	case errors.Is(err, domain.ErrNotReady):
		return "No API key configured. Run onboarding first."
	case errors.Is(err, domain.ErrNothingToContinue):
		return "Ask a question first."
	case errors.Is(err, domain.ErrAuthenticationFailure):
		return "The stored API key could not be decrypted. Please enter it again."
	case errors.Is(err, domain.ErrStorage):
		return "Local storage is unavailable."
	case errors.As(err, &rce) && rce.Retryable:
		return "The service is busy. Please try again shortly."
	case errors.As(err, &rce):
		return "The request was rejected by the service."
	case errors.Is(err, domain.ErrRemoteCall):
		return "The service could not be reached."
	case errors.Is(err, domain.ErrInvalidInput):
		return "Invalid input."
	default:
		return "An error occurred while processing the request."
	}
}
