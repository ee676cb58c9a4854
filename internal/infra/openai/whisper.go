package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"voiceqa/internal/domain"
	"voiceqa/internal/infra"
)

const (
	DefaultBaseURL            = "https://api.openai.com/v1"
	DefaultTranscriptionModel = "whisper-1"
	DefaultChatModel          = "gpt-4-turbo"
	defaultTimeout            = 60 * time.Second
)

// Config is shared by the transcription and chat clients.
type Config struct {
	BaseURL            string
	TranscriptionModel string
	ChatModel          string
	// Language is an optional ISO-639-1 hint for transcription.
	Language string
	Timeout  time.Duration
	Limiter  *infra.RateLimiter
}

func (c Config) withDefaults() Config {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.TranscriptionModel == "" {
		c.TranscriptionModel = DefaultTranscriptionModel
	}
	if c.ChatModel == "" {
		c.ChatModel = DefaultChatModel
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

type WhisperClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
	language   string
	limiter    *infra.RateLimiter
}

func NewWhisperClient(cfg Config) *WhisperClient {
	cfg = cfg.withDefaults()
	return &WhisperClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		model:      cfg.TranscriptionModel,
		language:   cfg.Language,
		limiter:    cfg.Limiter,
	}
}

func (c *WhisperClient) Name() string { return "transcription" }

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the clip and returns the recognized text as-is.
func (c *WhisperClient) Transcribe(ctx context.Context, apiKey string, clip domain.AudioClip) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", clip.Name())
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}

	if _, err = part.Write(clip.Data); err != nil {
		return "", fmt.Errorf("writing audio: %w", err)
	}

	if err = writer.WriteField("model", c.model); err != nil {
		return "", fmt.Errorf("writing model field: %w", err)
	}

	if c.language != "" {
		if err = writer.WriteField("language", c.language); err != nil {
			return "", fmt.Errorf("writing language field: %w", err)
		}
	}

	if err = writer.Close(); err != nil {
		return "", fmt.Errorf("closing writer: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	setHeaders(ctx, req, apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", infra.TransportError(c.Name(), err)
	}
	defer resp.Body.Close()

	if err := infra.CheckResponse(c.Name(), resp); err != nil {
		return "", err
	}

	var result transcriptionResponse
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	return result.Text, nil
}

func setHeaders(ctx context.Context, req *http.Request, apiKey string) {
	req.Header.Set("Authorization", "Bearer "+apiKey)
	if id := domain.ExchangeIDFromContext(ctx); id != "" {
		req.Header.Set("X-Client-Request-Id", id)
	}
}
