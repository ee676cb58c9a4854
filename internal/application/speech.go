package application

import (
	"context"

	"voiceqa/internal/domain"
)

type SpeechToText interface {
	Transcribe(ctx context.Context, apiKey string, clip domain.AudioClip) (string, error)
}

// ChatCompleter sends the full conversation snapshot and returns the raw text
// of the reply.
type ChatCompleter interface {
	Complete(ctx context.Context, apiKey string, messages []domain.Message) (string, error)
}
