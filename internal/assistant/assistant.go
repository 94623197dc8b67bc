// Package assistant forwards chat prompts to the hosted language-model
// endpoint and keeps a browser session's conversation.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	NoResponse = "No response from AI"
	Fallback   = "⚠️ Sorry, I'm having trouble connecting right now. Please try again in a moment."

	DefaultTypingDelay = 2 * time.Second
)

var ErrEmptyPrompt = errors.New("empty prompt")

type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// New builds a client posting to baseURL + "/api/chat".
func New(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint:   strings.TrimRight(baseURL, "/") + "/api/chat",
		httpClient: httpClient,
		logger:     logger.With("component", "assistant"),
	}
}

type chatReply struct {
	Text     string `json:"text"`
	Response string `json:"response"`
}

// Ask returns the model's text. Transport and status failures are not
// errors for the caller: they come back as the Fallback apology. Only a
// blank prompt is rejected.
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}
	reply, err := c.post(ctx, prompt)
	if err != nil {
		c.logger.Error("chat request failed", "err", err)
		return Fallback, nil
	}
	switch {
	case reply.Text != "":
		return reply.Text, nil
	case reply.Response != "":
		return reply.Response, nil
	}
	return NoResponse, nil
}

func (c *Client) post(ctx context.Context, prompt string) (chatReply, error) {
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return chatReply{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return chatReply{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return chatReply{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return chatReply{}, fmt.Errorf("API request failed with status %d", resp.StatusCode)
	}
	var out chatReply
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return chatReply{}, err
	}
	return out, nil
}

// Greeting depends on the local hour of t.
func Greeting(t time.Time) string {
	switch h := t.Hour(); {
	case h < 12:
		return "Good morning"
	case h < 18:
		return "Good afternoon"
	}
	return "Good evening"
}

func Welcome(t time.Time) string {
	return Greeting(t) + " and welcome to Dream Home AI. It is a pleasure to have you here. " +
		"To assist you better, please describe your use case in as much detail as you can so I can help you effectively."
}
