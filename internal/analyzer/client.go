// ABOUTME: OpenAI-compatible chat-completions client for the security analyzer
// ABOUTME: Works with any provider exposing the /chat/completions API shape

package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/2389/securebot/internal/store"
)

// ErrUnavailable is returned when the inference endpoint cannot be reached
// or rejects the request.
var ErrUnavailable = errors.New("analyzer unavailable")

// ErrTimeout is returned when the inference call exceeds its time budget.
var ErrTimeout = errors.New("analyzer timeout")

// Config holds the settings for the analyzer client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Client calls an OpenAI-compatible chat-completions endpoint. Any provider
// implementing that API shape works: Workers AI, OpenRouter, a local server.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient creates an analyzer client. The caller controls per-request time
// budgets through context deadlines; the embedded HTTP client carries no
// timeout of its own.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{},
		logger:      logger.With("component", "analyzer"),
	}
}

// chatRequest is the request payload for chat completions.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

// chatMessage is a single message in a chat-completions exchange.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the response from chat completions.
type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *chatError   `json:"error,omitempty"`
}

type chatChoice struct {
	Message *chatMessage `json:"message,omitempty"`
}

type chatError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Generate answers a security question. When history is non-empty it is
// folded into the user prompt as prior context; the query itself is always
// the current question, never part of the history.
func (c *Client) Generate(ctx context.Context, query string, history []*store.Message) (string, error) {
	userPrompt := query
	if len(history) > 0 {
		userPrompt = fmt.Sprintf("Previous conversation:\n%s\n\nCurrent question: %s",
			formatHistory(history), query)
	}

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("inference call: %w", ErrTimeout)
		}
		return "", fmt.Errorf("inference call: %w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w: %w", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("inference endpoint returned error",
			"status", resp.StatusCode,
			"body", truncate(string(respBody), 200))
		return "", fmt.Errorf("inference endpoint status %d: %w", resp.StatusCode, ErrUnavailable)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parsing response: %w: %w", ErrUnavailable, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("inference error %q: %w", parsed.Error.Message, ErrUnavailable)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message == nil || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty completion: %w", ErrUnavailable)
	}

	c.logger.Debug("inference call completed",
		"model", c.model,
		"duration", time.Since(start),
		"history_len", len(history))

	return parsed.Choices[0].Message.Content, nil
}

// AnalyzeTraffic classifies a traffic pattern as malicious or benign.
// Single-shot: no conversation history is involved.
func (c *Client) AnalyzeTraffic(ctx context.Context, pattern *TrafficPattern) (string, error) {
	return c.Generate(ctx, buildTrafficPrompt(pattern), nil)
}

// GenerateIncidentReport produces a markdown incident report for the given
// incidents. Single-shot: no conversation history is involved.
func (c *Client) GenerateIncidentReport(ctx context.Context, incidents []*Incident) (string, error) {
	return c.Generate(ctx, buildIncidentPrompt(incidents), nil)
}

// formatHistory renders history messages as "role: content" lines.
func formatHistory(history []*store.Message) string {
	lines := make([]string, len(history))
	for i, msg := range history {
		lines[i] = fmt.Sprintf("%s: %s", msg.Role, msg.Content)
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
