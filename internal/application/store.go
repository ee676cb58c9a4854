package application

import (
	"context"

	"voiceqa/internal/domain"
)

// SecretStore persists the exported key and the encrypted credential.
// Failures are returned wrapped with domain.ErrStorage.
type SecretStore interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	// Put writes all entries atomically.
	Put(ctx context.Context, entries ...domain.StoredEntry) error
}
