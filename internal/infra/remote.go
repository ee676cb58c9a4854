package infra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"voiceqa/internal/domain"
)

// maxErrorBody caps how much of a failed response is kept as error detail.
const maxErrorBody = 64 * 1024

// IsRetryableHTTPStatus returns true if the HTTP status code signals a transient
// server-side condition. Nothing retries automatically; the flag only shapes the
// status shown to the user and whether the circuit breaker counts the failure.
func IsRetryableHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests ||
		statusCode == http.StatusServiceUnavailable ||
		statusCode == http.StatusGatewayTimeout ||
		statusCode >= 500
}

// CheckResponse turns a non-2xx response into a *domain.RemoteCallError that
// carries the response body as detail.
func CheckResponse(service string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &domain.RemoteCallError{
		Service:    service,
		StatusCode: resp.StatusCode,
		Body:       string(body),
		Retryable:  IsRetryableHTTPStatus(resp.StatusCode),
	}
}

// TransportError wraps a failure to reach the remote service at all.
func TransportError(service string, err error) error {
	return fmt.Errorf("%s: sending request: %w: %w", service, domain.ErrRemoteCall, err)
}

// IsServerFailure reports whether err should count against the remote service's
// health: transport failures and retryable statuses do, client errors don't.
func IsServerFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var rce *domain.RemoteCallError
	if errors.As(err, &rce) {
		return rce.Retryable
	}
	return errors.Is(err, domain.ErrRemoteCall)
}
