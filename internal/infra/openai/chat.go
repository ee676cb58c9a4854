package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"voiceqa/internal/domain"
	"voiceqa/internal/infra"
)

// NoAnswerText stands in for a completion that came back without choices.
const NoAnswerText = "No answer."

type ChatClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
	limiter    *infra.RateLimiter
}

func NewChatClient(cfg Config) *ChatClient {
	cfg = cfg.withDefaults()
	return &ChatClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		model:      cfg.ChatModel,
		limiter:    cfg.Limiter,
	}
}

func (c *ChatClient) Name() string { return "chat" }

type chatRequest struct {
	Model    string           `json:"model"`
	Messages []domain.Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the whole conversation and returns the trimmed content of the
// first choice.
func (c *ChatClient) Complete(ctx context.Context, apiKey string, messages []domain.Message) (string, error) {
	bodyBytes, err := json.Marshal(chatRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	setHeaders(ctx, req, apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", infra.TransportError(c.Name(), err)
	}
	defer resp.Body.Close()

	if err := infra.CheckResponse(c.Name(), resp); err != nil {
		return "", err
	}

	var result chatResponse
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if len(result.Choices) == 0 {
		return NoAnswerText, nil
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
