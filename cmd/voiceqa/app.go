package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/spf13/cobra"

	"voiceqa/config"
	"voiceqa/internal/application"
	"voiceqa/internal/domain"
	"voiceqa/internal/infra"
	"voiceqa/internal/infra/audio"
	"voiceqa/internal/infra/breaker"
	"voiceqa/internal/infra/logger"
	"voiceqa/internal/infra/openai"
	"voiceqa/internal/infra/sqlite"
)

var errOnboardingRequired = errors.New("no API key stored; run `voiceqa onboard` first")

// app holds the wired components for one command invocation.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *sqlite.Store
	notifier  *consoleNotifier
	assistant *application.Assistant
	circuits  []circuit

	closeLog func() error
}

// circuit is a named breaker whose state can be reported.
type circuit struct {
	name  string
	state func() gobreaker.State
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, closeLog, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	store, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	clientCfg := openai.Config{
		BaseURL:            cfg.OpenAI.BaseURL,
		TranscriptionModel: cfg.OpenAI.TranscriptionModel,
		ChatModel:          cfg.OpenAI.ChatModel,
		Language:           cfg.OpenAI.Language,
		Timeout:            cfg.OpenAI.Timeout,
		Limiter:            infra.NewRateLimiter(cfg.OpenAI.RequestsPerMinute, 1),
	}

	var stt application.SpeechToText = openai.NewWhisperClient(clientCfg)
	var chat application.ChatCompleter = openai.NewChatClient(clientCfg)

	var circuits []circuit
	if cfg.Breaker.IsEnabled() {
		bcfg := breaker.Config{MaxFailures: cfg.Breaker.MaxFailures, Timeout: cfg.Breaker.Timeout}
		guardedSTT := breaker.NewSpeechToText(stt, bcfg, log)
		guardedChat := breaker.NewChatCompleter(chat, bcfg, log)
		stt, chat = guardedSTT, guardedChat
		circuits = []circuit{
			{name: "transcription", state: guardedSTT.State},
			{name: "chat", state: guardedChat.State},
		}
	}

	notifier := newConsoleNotifier(cmd.ErrOrStderr())

	assistant := application.NewAssistant(store, stt, chat, notifier, log, application.Options{
		SystemPrompt:        cfg.Chat.SystemPrompt,
		KeepFailedQuestions: cfg.Chat.KeepFailedQuestions,
	})

	log.Debug("components wired",
		"storage", cfg.Storage.Path,
		"chat_model", cfg.OpenAI.ChatModel,
		"breaker", cfg.Breaker.IsEnabled(),
	)

	return &app{
		cfg:       cfg,
		logger:    log,
		store:     store,
		notifier:  notifier,
		assistant: assistant,
		circuits:  circuits,
		closeLog:  closeLog,
	}, nil
}

func (a *app) Close() {
	a.assistant.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Error("closing storage", "error", err)
	}
	a.closeLog()
}

// requireReady bootstraps and fails unless a credential is available.
func (a *app) requireReady(ctx context.Context) error {
	state, err := a.assistant.Bootstrap(ctx)
	if err != nil {
		a.logger.Error("bootstrap", "error", err)
		return errors.New(application.StatusMessage(err))
	}
	if state != domain.StateReady {
		return errOnboardingRequired
	}
	return nil
}

// printCircuits reports each breaker's state, or that breakers are disabled.
func (a *app) printCircuits(w io.Writer) {
	if len(a.circuits) == 0 {
		printStatus(w, "Circuits", "disabled")
		return
	}
	for _, c := range a.circuits {
		printStatus(w, "Circuit "+c.name, "%s", c.state())
	}
}

func (a *app) microphoneConfig() audio.MicrophoneConfig {
	return audio.MicrophoneConfig{
		SampleRate:       a.cfg.Audio.SampleRate,
		MaxDuration:      time.Duration(a.cfg.Audio.MaxSeconds) * time.Second,
		SilenceThreshold: int16(a.cfg.Audio.SilenceThreshold),
		SilenceDuration:  time.Duration(a.cfg.Audio.SilenceSeconds * float64(time.Second)),
	}
}

// createAudioSource returns the capture source named by audio.source.
func (a *app) createAudioSource() application.AudioSource {
	switch a.cfg.Audio.Source {
	case "file":
		return audio.NewFileSource(a.cfg.Audio.Dir, a.cfg.Audio.PollInterval, a.logger)
	default:
		return audio.NewMicrophoneSource(a.microphoneConfig(), a.logger)
	}
}

// remote detaches ctx from interrupt cancellation so an issued request runs
// to completion or failure.
func remote(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
