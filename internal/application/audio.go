package application

import (
	"context"

	"voiceqa/internal/domain"
)

// AudioSource produces recorded questions. Canceling ctx while a clip is being
// captured abandons it with domain.ErrCaptureCanceled.
type AudioSource interface {
	Start(ctx context.Context) error
	Stop() error
	NextClip(ctx context.Context) (domain.AudioClip, error)
	Name() string
}
