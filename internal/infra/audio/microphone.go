//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"voiceqa/internal/domain"
)

// MicrophoneSource records one question per NextClip call from the default
// input device.
type MicrophoneSource struct {
	cfg    MicrophoneConfig
	logger *slog.Logger

	stream *portaudio.Stream
	in     []int16

	mu     sync.Mutex
	finish chan struct{}
}

func NewMicrophoneSource(cfg MicrophoneConfig, logger *slog.Logger) *MicrophoneSource {
	return &MicrophoneSource{
		cfg:    cfg.withDefaults(),
		logger: logger,
	}
}

func (m *MicrophoneSource) Name() string {
	return "microphone"
}

func (m *MicrophoneSource) Start(_ context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}

	m.in = make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.cfg.SampleRate), len(m.in), m.in)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("opening stream: %w", err)
	}
	m.stream = stream

	m.logger.Info("microphone ready", "sample_rate", m.cfg.SampleRate)
	return nil
}

func (m *MicrophoneSource) Stop() error {
	if m.stream != nil {
		m.stream.Close()
		m.stream = nil
	}
	return portaudio.Terminate()
}

// Finish ends the recording in progress; NextClip returns what was captured.
func (m *MicrophoneSource) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finish != nil {
		close(m.finish)
		m.finish = nil
	}
}

// NextClip records until trailing silence, the maximum duration, Finish, or
// ctx cancellation. Cancellation discards the audio and returns
// domain.ErrCaptureCanceled.
func (m *MicrophoneSource) NextClip(ctx context.Context) (domain.AudioClip, error) {
	if m.stream == nil {
		return domain.AudioClip{}, fmt.Errorf("microphone not started")
	}

	finish := make(chan struct{})
	m.mu.Lock()
	m.finish = finish
	m.mu.Unlock()
	defer m.Finish()

	if err := m.stream.Start(); err != nil {
		return domain.AudioClip{}, fmt.Errorf("starting stream: %w", err)
	}
	defer m.stream.Stop()

	rec := newRecording(m.cfg)
	m.logger.Info("recording", "max_duration", m.cfg.MaxDuration)

Loop:
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("recording canceled")
			return domain.AudioClip{}, fmt.Errorf("%w: %w", domain.ErrCaptureCanceled, ctx.Err())
		case <-finish:
			break Loop
		default:
		}

		if err := m.stream.Read(); err != nil {
			m.logger.Warn("stream read", "error", err)
			continue
		}

		if rec.add(m.in) {
			break Loop
		}
	}

	data, err := rec.wav()
	if err != nil {
		return domain.AudioClip{}, err
	}

	m.logger.Info("recording finished", "samples", len(rec.samples), "bytes", len(data))
	return domain.AudioClip{Data: data, Filename: domain.DefaultClipName}, nil
}
