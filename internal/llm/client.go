// Package llm wraps the external completion service behind a structured
// analysis call. One attempt per invocation: retry policy belongs to the
// pipeline, which keeps this client testable without mocking timers.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"servicing-insights-go/internal/types"
)

const defaultTimeout = 45 * time.Second

type Config struct {
	GatewayURL string
	APIKey     string
	Model      string
	Timeout    time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Analyze asks the completion model for a structured analysis of one
// conversation. An empty conversation fails fast with InvalidInputError
// and never reaches the network.
func (c *Client) Analyze(ctx context.Context, conversation []types.ConversationMessage) (types.LLMAnalysis, error) {
	if len(conversation) == 0 {
		return types.LLMAnalysis{}, &InvalidInputError{Reason: "empty conversation"}
	}

	prompt := buildPrompt(conversation)
	reqBody := map[string]any{
		"model": c.cfg.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": 0.0,
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return types.LLMAnalysis{}, fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.GatewayURL, bytes.NewReader(data))
	if err != nil {
		return types.LLMAnalysis{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.LLMAnalysis{}, fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.LLMAnalysis{}, fmt.Errorf("read llm response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.LLMAnalysis{}, &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	content := contentFromChoices(body)
	if content == "" {
		content = string(body)
	}

	raw := extractJSON(content)
	if raw == "" {
		return types.LLMAnalysis{}, &ParseError{RawText: content}
	}

	var out types.LLMAnalysis
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return types.LLMAnalysis{}, &ParseError{RawText: content, Cause: err}
	}

	out.AgentSentimentScore = clamp01(out.AgentSentimentScore)
	out.CustomerSentimentScore = clamp01(out.CustomerSentimentScore)
	out.TopicConfidence = clamp01(out.TopicConfidence)
	return out, nil
}

// contentFromChoices digs choices[0].message.content out of an
// OpenAI-style completion response.
func contentFromChoices(body []byte) string {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	if len(parsed.Choices) == 0 {
		return ""
	}
	return parsed.Choices[0].Message.Content
}

// extractJSON strips markdown fences then returns the first balanced
// {...} object, tolerating prose around it.
func extractJSON(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	for _, fence := range []string{"```json", "```yaml", "```text", "```", "`json", "`"} {
		s = strings.ReplaceAll(s, fence, "")
	}

	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1])
			}
		}
	}
	return ""
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
