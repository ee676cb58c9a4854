package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"voiceqa/internal/application"
	"voiceqa/internal/domain"
	"voiceqa/internal/infra/audio"
)

// finisher is implemented by sources that can end a capture early and keep
// what was recorded.
type finisher interface {
	Finish()
}

// session is the interactive chat loop.
type session struct {
	app         *app
	out         io.Writer
	lines       <-chan string
	done        chan struct{}
	source      application.AudioSource
	started     bool
	suggestions []string
}

func newSession(a *app, in io.Reader, out io.Writer) *session {
	lines := make(chan string)
	done := make(chan struct{})
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()

	return &session{app: a, out: out, lines: lines, done: done}
}

func (s *session) run(ctx context.Context) error {
	defer close(s.done)
	defer s.stopSource()

	state, err := s.app.assistant.Bootstrap(ctx)
	if err != nil {
		s.app.logger.Error("bootstrap", "error", err)
		printWarning(s.out, "%s", application.StatusMessage(err))
	}
	if state != domain.StateReady {
		if err := s.onboard(ctx); err != nil {
			return err
		}
	}

	fmt.Fprintln(s.out, dimStyle.Render("Type a question, /rec to record, /help for commands."))

	for {
		fmt.Fprint(s.out, questionTag.Render("> "))

		line, ok := s.readLine(ctx)
		if !ok {
			return nil
		}

		if quit := s.handle(ctx, strings.TrimSpace(line)); quit {
			return nil
		}
	}
}

func (s *session) readLine(ctx context.Context) (string, bool) {
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-s.lines:
		return line, ok
	}
}

// onboard asks for the key until one is stored or input ends.
func (s *session) onboard(ctx context.Context) error {
	for {
		fmt.Fprint(s.out, boldStyle.Render("OpenAI API key: "))
		line, ok := s.readLine(ctx)
		if !ok {
			return errOnboardingRequired
		}

		err := s.app.assistant.Onboard(ctx, line)
		if err == nil {
			printSuccess(s.out, "API key stored.")
			return nil
		}
		s.app.logger.Error("onboarding", "error", err)
		printError(s.out, "%s", application.StatusMessage(err))
	}
}

func (s *session) handle(ctx context.Context, line string) bool {
	switch {
	case line == "":
		return false
	case line == "/quit" || line == "/exit":
		return true
	case line == "/help":
		fmt.Fprintln(s.out, sessionHelp)
	case line == "/status":
		printStatus(s.out, "State", "%s", s.app.assistant.State())
		s.app.printCircuits(s.out)
	case line == "/more":
		resp, err := s.app.assistant.More(remote(ctx))
		s.show("", resp, err)
	case line == "/rec":
		s.record(ctx)
	case line == "/cancel":
		printWarning(s.out, "Nothing is being recorded.")
	case line == "/file" || strings.HasPrefix(line, "/file "):
		path := strings.TrimSpace(strings.TrimPrefix(line, "/file"))
		if path == "" {
			printError(s.out, "usage: /file PATH")
			return false
		}
		clip, err := audio.LoadFile(path)
		if err != nil {
			s.show("", nil, err)
			return false
		}
		question, resp, err := s.app.assistant.AskAudio(remote(ctx), clip)
		s.show(question, resp, err)
	default:
		question := line
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(s.suggestions) {
			question = s.suggestions[n-1]
		}
		resp, err := s.app.assistant.Ask(remote(ctx), question)
		s.show(question, resp, err)
	}
	return false
}

// record captures one clip from the configured source. Enter stops the
// recording and /cancel discards it.
func (s *session) record(ctx context.Context) {
	if err := s.ensureSource(ctx); err != nil {
		s.app.logger.Error("starting audio source", "error", err)
		printError(s.out, "%v", err)
		return
	}

	captureCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		clip domain.AudioClip
		err  error
	}
	done := make(chan result, 1)
	go func() {
		clip, err := s.source.NextClip(captureCtx)
		done <- result{clip, err}
	}()

	if _, ok := s.source.(finisher); ok {
		fmt.Fprintln(s.out, statusStyle.Render("… Recording. Press Enter to stop, /cancel to discard."))
	} else {
		fmt.Fprintln(s.out, statusStyle.Render("… Waiting for audio. /cancel to stop waiting."))
	}

	var res result
	select {
	case res = <-done:
	case line, ok := <-s.lines:
		if !ok || strings.TrimSpace(line) == "/cancel" {
			cancel()
		} else if f, isFinisher := s.source.(finisher); isFinisher {
			f.Finish()
		} else {
			cancel()
		}
		res = <-done
	}

	if res.err != nil {
		s.show("", nil, res.err)
		return
	}
	if d, err := audio.ClipDuration(res.clip.Data); err == nil {
		s.app.logger.Debug("clip captured", "duration", d, "bytes", len(res.clip.Data))
	}

	question, resp, err := s.app.assistant.AskAudio(remote(ctx), res.clip)
	s.show(question, resp, err)
}

func (s *session) ensureSource(ctx context.Context) error {
	if s.started {
		return nil
	}
	if s.source == nil {
		s.source = s.app.createAudioSource()
	}
	if err := s.source.Start(ctx); err != nil {
		return err
	}
	s.started = true
	return nil
}

func (s *session) stopSource() {
	if s.started {
		s.source.Stop()
		s.started = false
	}
}

func (s *session) show(question string, resp *domain.ParsedResponse, err error) {
	if err != nil {
		if !errors.Is(err, domain.ErrCaptureCanceled) {
			s.app.logger.Error("exchange", "error", err)
		}
		printError(s.out, "%s", application.StatusMessage(err))
		return
	}

	renderResponse(s.out, question, resp)
	s.suggestions = resp.Suggestions()
}
