// Package telegram sends formatted messages to feed-linked channels via
// the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultAPIBaseURL = "https://api.telegram.org"

type Client struct {
	apiBaseURL string
	token      string
	httpClient *http.Client
}

func NewClient(token string) *Client {
	return &Client{
		apiBaseURL: defaultAPIBaseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewClientWithBaseURL is used by tests to point at a fake API.
func NewClientWithBaseURL(token, baseURL string) *Client {
	client := NewClient(token)
	client.apiBaseURL = baseURL

	return client
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendChannelMessage posts an HTML-formatted message to the channel.
// The markup is limited to hyperlinks.
func (c *Client) SendChannelMessage(ctx context.Context, channelID, text string) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:    channelID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal chat message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.apiBaseURL, c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build chat message request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send chat message: %w", err)
	}
	defer resp.Body.Close()

	var result sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode chat message response: %w", err)
	}

	if !result.OK {
		return fmt.Errorf("chat message rejected: %s", result.Description)
	}

	return nil
}
