// Package breaker guards the remote transcription and chat clients with a
// circuit breaker so an unhealthy service fails fast instead of being hammered.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"voiceqa/internal/application"
	"voiceqa/internal/domain"
	"voiceqa/internal/infra"
)

const (
	defaultMaxFailures uint32        = 5
	defaultTimeout     time.Duration = 30 * time.Second
	defaultInterval    time.Duration = 60 * time.Second
)

type Config struct {
	// MaxFailures is the number of consecutive server-side failures before the circuit opens.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before allowing a trial request.
	Timeout time.Duration
}

func newBreaker(name string, cfg Config, logger *slog.Logger) *gobreaker.CircuitBreaker[string] {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    defaultInterval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		// A rejected key or malformed request says nothing about service health.
		IsSuccessful: func(err error) bool {
			return !infra.IsServerFailure(err)
		},
	})
}

func wrapOpen(service string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s circuit open: %w: %w", service, domain.ErrRemoteCall, err)
	}
	return err
}

type SpeechToText struct {
	inner   application.SpeechToText
	breaker *gobreaker.CircuitBreaker[string]
}

func NewSpeechToText(inner application.SpeechToText, cfg Config, logger *slog.Logger) *SpeechToText {
	return &SpeechToText{inner: inner, breaker: newBreaker("transcription", cfg, logger)}
}

func (s *SpeechToText) Transcribe(ctx context.Context, apiKey string, clip domain.AudioClip) (string, error) {
	text, err := s.breaker.Execute(func() (string, error) {
		return s.inner.Transcribe(ctx, apiKey, clip)
	})
	return text, wrapOpen("transcription", err)
}

func (s *SpeechToText) State() gobreaker.State { return s.breaker.State() }

type ChatCompleter struct {
	inner   application.ChatCompleter
	breaker *gobreaker.CircuitBreaker[string]
}

func NewChatCompleter(inner application.ChatCompleter, cfg Config, logger *slog.Logger) *ChatCompleter {
	return &ChatCompleter{inner: inner, breaker: newBreaker("chat", cfg, logger)}
}

func (c *ChatCompleter) Complete(ctx context.Context, apiKey string, messages []domain.Message) (string, error) {
	text, err := c.breaker.Execute(func() (string, error) {
		return c.inner.Complete(ctx, apiKey, messages)
	})
	return text, wrapOpen("chat", err)
}

func (c *ChatCompleter) State() gobreaker.State { return c.breaker.State() }

var (
	_ application.SpeechToText  = (*SpeechToText)(nil)
	_ application.ChatCompleter = (*ChatCompleter)(nil)
)
