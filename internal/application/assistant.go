package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"voiceqa/internal/credential"
	"voiceqa/internal/domain"
)

type Options struct {
	// SystemPrompt seeds the conversation. It must ask for the NEXT_QUESTIONS block.
	SystemPrompt string
	// KeepFailedQuestions appends the user message before the chat call and keeps
	// it when the call fails. By default the question is committed together with
	// the answer, so a failed exchange leaves the conversation untouched.
	KeepFailedQuestions bool
}

// Assistant owns the credential, the key and the conversation for one session.
// Only one operation runs at a time; overlapping calls get domain.ErrExchangeInFlight.
type Assistant struct {
	store    SecretStore
	stt      SpeechToText
	chat     ChatCompleter
	notifier Notifier
	logger   *slog.Logger
	opts     Options

	busy *semaphore.Weighted

	mu           sync.RWMutex
	state        domain.State
	apiKey       string
	key          *credential.Key
	conversation *domain.Conversation
}

func NewAssistant(
	store SecretStore,
	stt SpeechToText,
	chat ChatCompleter,
	notifier Notifier,
	logger *slog.Logger,
	opts Options,
) *Assistant {
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = domain.DefaultSystemPrompt
	}
	if notifier == nil {
		notifier = &NoopNotifier{}
	}
	return &Assistant{
		store:        store,
		stt:          stt,
		chat:         chat,
		notifier:     notifier,
		logger:       logger,
		opts:         opts,
		busy:         semaphore.NewWeighted(1),
		state:        domain.StateUninitialized,
		conversation: domain.NewConversation(opts.SystemPrompt),
	}
}

func (a *Assistant) State() domain.State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Snapshot returns the conversation as it would be sent on the next exchange.
func (a *Assistant) Snapshot() []domain.Message {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.conversation.Snapshot()
}

// Bootstrap recovers the stored credential. Missing entries or a credential that
// fails authentication leave the assistant awaiting onboarding; a storage failure
// leaves the state unchanged.
func (a *Assistant) Bootstrap(ctx context.Context) (domain.State, error) {
	if err := a.acquire(); err != nil {
		return a.State(), err
	}
	defer a.release()

	keyData, hasKey, err := a.store.Get(ctx, domain.KeyEncryptionKey)
	if err != nil {
		return a.State(), fmt.Errorf("loading encryption key: %w", err)
	}
	blob, hasBlob, err := a.store.Get(ctx, domain.KeyEncryptedAPIKey)
	if err != nil {
		return a.State(), fmt.Errorf("loading encrypted credential: %w", err)
	}

	if !hasKey || !hasBlob {
		a.logger.Info("no stored credential, onboarding required",
			"has_key", hasKey,
			"has_credential", hasBlob,
		)
		a.reset(domain.StateAwaitingOnboarding)
		return domain.StateAwaitingOnboarding, nil
	}

	key, err := credential.ImportKey(keyData)
	if err != nil {
		a.reset(domain.StateAwaitingOnboarding)
		return domain.StateAwaitingOnboarding, fmt.Errorf("importing encryption key: %w", err)
	}

	apiKey, err := credential.Decrypt(blob, key)
	if err != nil {
		key.Zeroize()
		a.reset(domain.StateAwaitingOnboarding)
		return domain.StateAwaitingOnboarding, fmt.Errorf("decrypting credential: %w", err)
	}

	a.setReady(apiKey, key)
	a.logger.Info("credential recovered")
	return domain.StateReady, nil
}

// Onboard encrypts rawCredential under a fresh key and persists both.
func (a *Assistant) Onboard(ctx context.Context, rawCredential string) error {
	apiKey := strings.TrimSpace(rawCredential)
	if apiKey == "" {
		return fmt.Errorf("empty credential: %w", domain.ErrInvalidInput)
	}

	if err := a.acquire(); err != nil {
		return err
	}
	defer a.release()

	key, err := credential.GenerateKey()
	if err != nil {
		return err
	}

	blob, err := credential.Encrypt(apiKey, key)
	if err != nil {
		key.Zeroize()
		return fmt.Errorf("encrypting credential: %w", err)
	}

	exported, err := credential.ExportKey(key)
	if err != nil {
		key.Zeroize()
		return fmt.Errorf("exporting key: %w", err)
	}

	err = a.store.Put(ctx,
		domain.StoredEntry{Key: domain.KeyEncryptionKey, Value: exported},
		domain.StoredEntry{Key: domain.KeyEncryptedAPIKey, Value: blob},
	)
	if err != nil {
		key.Zeroize()
		return fmt.Errorf("persisting credential: %w", err)
	}

	a.setReady(apiKey, key)
	a.logger.Info("credential stored")
	return nil
}

// Ask sends question with the full conversation and records the answer.
func (a *Assistant) Ask(ctx context.Context, question string) (*domain.ParsedResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("empty question: %w", domain.ErrInvalidInput)
	}

	if err := a.acquire(); err != nil {
		return nil, err
	}
	defer a.release()

	return a.exchange(ctx, question)
}

// More asks for a continuation of the current conversation without adding a
// new user message.
func (a *Assistant) More(ctx context.Context) (*domain.ParsedResponse, error) {
	if err := a.acquire(); err != nil {
		return nil, err
	}
	defer a.release()

	if _, err := a.credential(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	asked := a.conversation.HasQuestion()
	a.mu.RUnlock()
	if !asked {
		return nil, domain.ErrNothingToContinue
	}

	return a.exchange(ctx, "")
}

// AskAudio transcribes clip and asks the recognized text. A blank transcription
// returns domain.ErrEmptyTranscription without touching the conversation.
func (a *Assistant) AskAudio(ctx context.Context, clip domain.AudioClip) (string, *domain.ParsedResponse, error) {
	if err := a.acquire(); err != nil {
		return "", nil, err
	}
	defer a.release()

	apiKey, err := a.credential()
	if err != nil {
		return "", nil, err
	}

	ctx = domain.ContextWithExchangeID(ctx, uuid.NewString())

	a.notify(ctx, "Transcribing...")
	text, err := a.stt.Transcribe(ctx, apiKey, clip)
	if err != nil {
		a.logger.Error("transcription failed",
			"exchange_id", domain.ExchangeIDFromContext(ctx),
			"error", err,
		)
		return "", nil, fmt.Errorf("transcribing: %w", err)
	}

	question := strings.TrimSpace(text)
	if question == "" {
		a.logger.Warn("empty transcription", "bytes", len(clip.Data))
		return "", nil, domain.ErrEmptyTranscription
	}

	a.logger.Info("transcribed", "exchange_id", domain.ExchangeIDFromContext(ctx), "chars", len(question))

	resp, err := a.exchange(ctx, question)
	return question, resp, err
}

// Close drops the in-memory credential and key. A later Bootstrap recovers them.
func (a *Assistant) Close() {
	a.reset(domain.StateUninitialized)
}

// exchange runs one chat round trip. question is empty for a continuation.
// Callers must hold the busy semaphore.
func (a *Assistant) exchange(ctx context.Context, question string) (*domain.ParsedResponse, error) {
	apiKey, err := a.credential()
	if err != nil {
		return nil, err
	}

	exchangeID := domain.ExchangeIDFromContext(ctx)
	if exchangeID == "" {
		exchangeID = uuid.NewString()
		ctx = domain.ContextWithExchangeID(ctx, exchangeID)
	}

	a.mu.Lock()
	if question != "" && a.opts.KeepFailedQuestions {
		a.conversation.Append(domain.RoleUser, question)
	}
	snapshot := a.conversation.Snapshot()
	a.mu.Unlock()

	if question != "" && !a.opts.KeepFailedQuestions {
		snapshot = append(snapshot, domain.Message{Role: domain.RoleUser, Content: question})
	}

	a.notify(ctx, "Thinking...")
	raw, err := a.chat.Complete(ctx, apiKey, snapshot)
	if err != nil {
		a.logger.Error("chat exchange failed",
			"exchange_id", exchangeID,
			"messages", len(snapshot),
			"error", err,
		)
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	parsed := domain.ParseResponse(raw)

	a.mu.Lock()
	if question != "" && !a.opts.KeepFailedQuestions {
		a.conversation.Append(domain.RoleUser, question)
	}
	a.conversation.Append(domain.RoleAssistant, parsed.Answer)
	total := a.conversation.Len()
	a.mu.Unlock()

	a.logger.Info("exchange completed",
		"exchange_id", exchangeID,
		"continuation", question == "",
		"messages", total,
		"suggestions", len(parsed.NextQuestions),
	)

	return parsed, nil
}

func (a *Assistant) acquire() error {
	if !a.busy.TryAcquire(1) {
		return domain.ErrExchangeInFlight
	}
	return nil
}

func (a *Assistant) release() {
	a.busy.Release(1)
}

func (a *Assistant) credential() (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.state != domain.StateReady {
		return "", domain.ErrNotReady
	}
	return a.apiKey, nil
}

func (a *Assistant) setReady(apiKey string, key *credential.Key) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.key != nil && a.key != key {
		a.key.Zeroize()
	}
	a.apiKey = apiKey
	a.key = key
	a.state = domain.StateReady
}

func (a *Assistant) reset(state domain.State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.key != nil {
		a.key.Zeroize()
	}
	a.apiKey = ""
	a.key = nil
	a.state = state
}

func (a *Assistant) notify(ctx context.Context, message string) {
	if err := a.notifier.Notify(ctx, message); err != nil {
		a.logger.Error("notifying status", "error", err)
	}
}
