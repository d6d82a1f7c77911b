// Package summarizer generates article summaries through an external
// chat-completion service.
package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	promptEnglish = "Summarize the following news article in a short, neutral paragraph. Begin directly with the summary without any preamble.\n\n%s"
	promptGerman  = "Fasse den folgenden Nachrichtenartikel in einem kurzen, neutralen Absatz zusammen. Beginne direkt mit der Zusammenfassung, ohne Einleitung.\n\n%s"
)

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Summarize submits the article text with a language-appropriate
// instruction and returns the generated summary.
func (c *Client) Summarize(ctx context.Context, content, language string) (string, error) {
	prompt := promptEnglish
	if strings.HasPrefix(language, "de") {
		prompt = promptGerman
	}

	payload, err := json.Marshal(completionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: fmt.Sprintf(prompt, content)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build completion request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call completion service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("completion service returned status %d", resp.StatusCode)
	}

	var result completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("completion service returned no choices")
	}

	summary := strings.TrimSpace(result.Choices[0].Message.Content)
	if summary == "" {
		return "", fmt.Errorf("completion service returned an empty summary")
	}

	return summary, nil
}
