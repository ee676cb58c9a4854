package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"voiceqa/internal/application"
	"voiceqa/internal/domain"
	"voiceqa/internal/infra/audio"
)

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether an API key is stored and usable",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		state, err := a.assistant.Bootstrap(cmd.Context())

		fmt.Fprintln(out, boldStyle.Render("voiceqa "+version))
		printStatus(out, "Storage", "%s", a.cfg.Storage.Path)
		printStatus(out, "Chat model", "%s", a.cfg.OpenAI.ChatModel)
		printStatus(out, "Audio source", "%s", a.cfg.Audio.Source)
		printStatus(out, "State", "%s", state)

		if err != nil {
			a.logger.Error("bootstrap", "error", err)
			printWarning(out, "%s", application.StatusMessage(err))
		}
		if state == domain.StateAwaitingOnboarding {
			printWarning(out, "Run `voiceqa onboard` to store an API key.")
		}
		return nil
	},
}

// --- onboard ---

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Encrypt and store the OpenAI API key",
	Long: `Encrypt and store the OpenAI API key.

The key is read from --key or, when the flag is absent, from the first line
of standard input.

Examples:
  voiceqa onboard --key sk-...
  echo "$OPENAI_API_KEY" | voiceqa onboard`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, _ := cmd.Flags().GetString("key")
		if key == "" {
			fmt.Fprint(cmd.ErrOrStderr(), "OpenAI API key: ")
			line, err := readLine(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading key: %w", err)
			}
			key = line
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.assistant.Onboard(cmd.Context(), key); err != nil {
			a.logger.Error("onboarding", "error", err)
			return errors.New(application.StatusMessage(err))
		}

		printSuccess(cmd.OutOrStdout(), "API key stored in %s", a.cfg.Storage.Path)
		return nil
	},
}

func init() {
	onboardCmd.Flags().String("key", "", "API key (read from stdin when empty)")
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question, typed or from an audio file",
	Long: `Ask a single question, typed or from an audio file.

Examples:
  voiceqa ask "What is the tallest mountain in Europe?"
  voiceqa ask --audio ./question.m4a`,
	RunE: func(cmd *cobra.Command, args []string) error {
		audioPath, _ := cmd.Flags().GetString("audio")
		question := strings.TrimSpace(strings.Join(args, " "))

		if audioPath == "" && question == "" {
			return fmt.Errorf("a question or --audio is required")
		}
		if audioPath != "" && question != "" {
			return fmt.Errorf("use either a question or --audio, not both")
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		if err := a.requireReady(ctx); err != nil {
			return err
		}

		var resp *domain.ParsedResponse
		if audioPath != "" {
			clip, err := audio.LoadFile(audioPath)
			if err != nil {
				return err
			}
			question, resp, err = a.assistant.AskAudio(remote(ctx), clip)
			if err != nil {
				return errors.New(application.StatusMessage(err))
			}
		} else {
			resp, err = a.assistant.Ask(remote(ctx), question)
			if err != nil {
				return errors.New(application.StatusMessage(err))
			}
		}

		renderResponse(cmd.OutOrStdout(), question, resp)
		return nil
	},
}

func init() {
	askCmd.Flags().String("audio", "", "audio file to transcribe and ask")
}

// --- chat ---

const sessionHelp = `Commands inside the session:
  <text>      ask a question
  1, 2, 3     ask the matching follow-up suggestion
  /more       continue the last answer
  /rec        record a question (Enter stops, /cancel discards)
  /file PATH  transcribe an audio file and ask it
  /status     show the session and circuit breaker state
  /quit       leave the session`

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive question and answer session",
	Long:  "Start an interactive question and answer session.\n\n" + sessionHelp,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		s := newSession(a, cmd.InOrStdin(), cmd.OutOrStdout())
		return s.run(cmd.Context())
	},
}

// --- watch ---

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Transcribe and ask every audio file dropped into a directory",
	Long: `Transcribe and ask every audio file dropped into a directory.

All files share one conversation. Picked files are renamed with a
".processed" suffix. Stop with Ctrl+C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if dir == "" {
			dir = a.cfg.Audio.Dir
		}

		ctx := cmd.Context()
		if err := a.requireReady(ctx); err != nil {
			return err
		}

		source := audio.NewFileSource(dir, a.cfg.Audio.PollInterval, a.logger)
		return watch(ctx, a, source, cmd.OutOrStdout())
	},
}

func init() {
	watchCmd.Flags().String("dir", "", "directory to watch (default audio.dir)")
}

// watch asks every clip from source until ctx is canceled.
func watch(ctx context.Context, a *app, source application.AudioSource, out io.Writer) error {
	if err := source.Start(ctx); err != nil {
		return err
	}
	defer source.Stop()

	printStatus(out, "Watching", "%s source", source.Name())

	for {
		clip, err := source.NextClip(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		question, resp, err := a.assistant.AskAudio(remote(ctx), clip)
		if err != nil {
			printError(out, "%s: %s", clip.Name(), application.StatusMessage(err))
			continue
		}
		renderResponse(out, question, resp)
	}
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
