package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voiceqa/internal/domain"
	"voiceqa/internal/infra/audio"
)

type fakeAPI struct {
	mu         sync.Mutex
	server     *httptest.Server
	questions  []string
	replies    []string
	transcript string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{transcript: "spoken question"}

	mux := http.NewServeMux()
	mux.HandleFunc("/audio/transcriptions", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"text": f.transcript})
	})
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []domain.Message `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		f.mu.Lock()
		defer f.mu.Unlock()
		last := req.Messages[len(req.Messages)-1]
		if last.Role == domain.RoleUser {
			f.questions = append(f.questions, last.Content)
		} else {
			f.questions = append(f.questions, "<continue>")
		}

		reply := "default answer"
		if len(f.replies) > 0 {
			reply = f.replies[0]
			f.replies = f.replies[1:]
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": reply}}},
		})
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func writeTestConfig(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`
audio:
  source: file
  dir: %s
  poll_interval: 10ms
openai:
  base_url: %s
  timeout: 5s
storage:
  path: %s
log:
  output: %s
`, filepath.Join(dir, "inbox"), baseURL, filepath.Join(dir, "data", "assistant.db"), filepath.Join(dir, "voiceqa.log"))

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	err := rootCmd.Execute()
	return out.String(), err
}

func TestAskRequiresOnboarding(t *testing.T) {
	api := newFakeAPI(t)
	cfg := writeTestConfig(t, api.server.URL)

	_, err := execute(t, "", "--config", cfg, "ask", "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, errOnboardingRequired)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Empty(t, api.questions)
}

func TestOnboardThenAsk(t *testing.T) {
	api := newFakeAPI(t)
	cfg := writeTestConfig(t, api.server.URL)

	out, err := execute(t, "sk-from-stdin\n", "--config", cfg, "onboard", "--key", "")
	require.NoError(t, err)
	assert.Contains(t, out, "API key stored")

	out, err = execute(t, "", "--config", cfg, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "ready")

	api.mu.Lock()
	api.replies = []string{"Mont Blanc.\nNEXT_QUESTIONS:\n1) How high?\n2) Who climbed it first?\n3) Where is it?"}
	api.mu.Unlock()

	out, err = execute(t, "", "--config", cfg, "ask", "Tallest", "mountain?")
	require.NoError(t, err)

	assert.Contains(t, out, "Tallest mountain?")
	assert.Contains(t, out, "Mont Blanc.")
	assert.Contains(t, out, "Who climbed it first?")
	assert.NotContains(t, out, "NEXT_QUESTIONS")

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, []string{"Tallest mountain?"}, api.questions)
}

func TestAskValidatesArguments(t *testing.T) {
	api := newFakeAPI(t)
	cfg := writeTestConfig(t, api.server.URL)

	_, err := execute(t, "", "--config", cfg, "ask")
	assert.Error(t, err)
}

func TestChatSession(t *testing.T) {
	api := newFakeAPI(t)
	cfg := writeTestConfig(t, api.server.URL)

	audioPath := filepath.Join(t.TempDir(), "q.wav")
	require.NoError(t, os.WriteFile(audioPath, []byte("RIFF....WAVE"), 0o600))

	api.mu.Lock()
	api.replies = []string{
		"Go is a language.\nNEXT_QUESTIONS:\n1) Who made it?\n2) Is it fast?\n3) Why channels?",
		"Yes.",
		"More detail.",
		"From audio.",
	}
	api.mu.Unlock()

	stdin := strings.Join([]string{
		"   ",
		"sk-chat",
		"What is Go?",
		"2",
		"/more",
		"/file " + audioPath,
		"/status",
		"/quit",
	}, "\n") + "\n"

	out, err := execute(t, stdin, "--config", cfg, "chat")
	require.NoError(t, err)

	assert.Contains(t, out, "Invalid input.")
	assert.Contains(t, out, "API key stored.")
	assert.Contains(t, out, "Go is a language.")
	assert.Contains(t, out, "More detail.")
	assert.Contains(t, out, "From audio.")
	assert.Contains(t, out, "Circuit chat:")
	assert.Contains(t, out, "closed")

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, []string{"What is Go?", "Is it fast?", "<continue>", "spoken question"}, api.questions)
}

func TestWatchAsksEachFile(t *testing.T) {
	api := newFakeAPI(t)
	cfg := writeTestConfig(t, api.server.URL)

	_, err := execute(t, "", "--config", cfg, "onboard", "--key", "sk-watch")
	require.NoError(t, err)

	configPath = cfg
	var out bytes.Buffer
	a, err := newApp(rootCmd)
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.requireReady(context.Background()))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.wav"), []byte("RIFF"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- watch(ctx, a, audio.NewFileSource(dir, 10*time.Millisecond, a.logger), &out)
	}()

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "one.wav.processed"))
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return len(api.questions) == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestRenderResponse(t *testing.T) {
	var buf bytes.Buffer
	renderResponse(&buf, "q?", &domain.ParsedResponse{Answer: "only answer", NextQuestions: []string{"a", "b"}})

	assert.Contains(t, buf.String(), "only answer")
	assert.NotContains(t, buf.String(), "Follow-up questions")
}
