package infra_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"voiceqa/internal/domain"
	"voiceqa/internal/infra"
)

func response(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}
}

func TestCheckResponse(t *testing.T) {
	if err := infra.CheckResponse("chat", response(http.StatusOK, "{}")); err != nil {
		t.Fatalf("2xx should pass, got %v", err)
	}

	err := infra.CheckResponse("chat", response(http.StatusUnauthorized, `{"error":"bad key"}`))
	if !errors.Is(err, domain.ErrRemoteCall) {
		t.Fatalf("expected ErrRemoteCall, got %v", err)
	}

	var rce *domain.RemoteCallError
	if !errors.As(err, &rce) {
		t.Fatalf("expected *RemoteCallError, got %T", err)
	}
	if rce.StatusCode != http.StatusUnauthorized || rce.Body != `{"error":"bad key"}` || rce.Retryable {
		t.Errorf("unexpected error fields: %+v", rce)
	}
}

func TestIsServerFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"client error", &domain.RemoteCallError{StatusCode: 400}, false},
		{"server error", &domain.RemoteCallError{StatusCode: 502, Retryable: true}, true},
		{"transport", infra.TransportError("chat", errors.New("connection refused")), true},
		{"canceled", infra.TransportError("chat", context.Canceled), false},
		{"unrelated", fmt.Errorf("decoding response: %w", io.ErrUnexpectedEOF), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := infra.IsServerFailure(tt.err); got != tt.want {
				t.Errorf("IsServerFailure(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsRetryableHTTPStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		if !infra.IsRetryableHTTPStatus(code) {
			t.Errorf("%d should be retryable", code)
		}
	}
	for _, code := range []int{400, 401, 403, 404, 413} {
		if infra.IsRetryableHTTPStatus(code) {
			t.Errorf("%d should not be retryable", code)
		}
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := infra.NewRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
}

func TestRateLimiterBurst(t *testing.T) {
	rl := infra.NewRateLimiter(1, 2)

	for i := 0; i < 2; i++ {
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("burst request %d: %v", i, err)
		}
	}

	short, cancelShort := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancelShort()
	if err := rl.Wait(short); err == nil {
		t.Fatal("third request within the minute should have to wait")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := rl.Wait(ctx); err == nil {
		t.Fatal("Wait on canceled context should fail")
	}
}

func TestNilRateLimiter(t *testing.T) {
	var rl *infra.RateLimiter
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("nil limiter should not block: %v", err)
	}
}
