package augment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/seeql-labs/seeql/internal/translate"
)

const (
	queryPromptTmpl = `You are a friendly SQL tutor for beginners.

Explain the following SQL query step-by-step in very simple language.
Do NOT use complex database terms.
Explain in the logical order SQL executes.

SQL Query:
%s

Return the explanation as numbered steps.`

	errorPromptTmpl = `You are a friendly SQL tutor helping beginners.

A student ran a SQL query and got the following database error:

"%s"

Your job:
1. Explain what this error means in very simple language.
2. Explain why this error happened.
3. Give a clear suggestion on how to fix it.

Rules:
- Do NOT use complex database jargon.
- Do NOT mention internal database details.
- Keep the explanation short and beginner-friendly.
- Use bullet points.

Respond in this format:

Meaning:
- ...

Reason:
- ...

How to Fix:
- ...`
)

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	baseURL string
	model   string
	apiKey  string
	httpc   *http.Client
	logger  *slog.Logger
}

// ClientConfig configures a remote explanation client.
type ClientConfig struct {
	// BaseURL is the API root, e.g. "https://api.groq.com/openai/v1".
	BaseURL string

	// Model is the chat model name.
	Model string

	// APIKey is the bearer token. May be empty for local services.
	APIKey string

	// Timeout bounds each request. Defaults to 15s.
	Timeout time.Duration

	Logger *slog.Logger
}

// NewClient creates a Client for the given service.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		httpc:   &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// ExplainQuery asks the remote service for step-by-step sentences.
// Non-empty lines of the completion become steps.
func (c *Client) ExplainQuery(ctx context.Context, sql string) ([]string, error) {
	text, err := c.complete(ctx, fmt.Sprintf(queryPromptTmpl, sql))
	if err != nil {
		return nil, err
	}

	var steps []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			steps = append(steps, line)
		}
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("augment: empty completion")
	}
	return steps, nil
}

// ExplainError asks the remote service to explain raw error text and
// parses the Meaning / Reason / How to Fix bullet sections. A
// completion missing all three sections is treated as malformed.
func (c *Client) ExplainError(ctx context.Context, rawErr string) (*translate.Explanation, error) {
	text, err := c.complete(ctx, fmt.Sprintf(errorPromptTmpl, rawErr))
	if err != nil {
		return nil, err
	}

	exp := parseSections(text)
	if len(exp.Meaning) == 0 && len(exp.Reason) == 0 && len(exp.Fix) == 0 {
		return nil, fmt.Errorf("augment: malformed completion")
	}
	return exp, nil
}

// parseSections splits a tutor-formatted completion into its bullet
// sections. Lines starting a known section switch the target; dash
// bullets accumulate into the current one.
func parseSections(text string) *translate.Explanation {
	exp := &translate.Explanation{}
	var current *[]string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "meaning"):
			current = &exp.Meaning
		case strings.HasPrefix(lower, "reason"):
			current = &exp.Reason
		case strings.HasPrefix(lower, "how to fix"):
			current = &exp.Fix
		case strings.HasPrefix(line, "-") && current != nil:
			*current = append(*current, strings.TrimSpace(line[1:]))
		}
	}
	return exp
}

// chatRequest and chatResponse cover the subset of the
// chat-completions wire format this client uses.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("augment: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("augment: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("augment: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("augment: service returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("augment: read response: %w", err)
	}

	var cr chatResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		return "", fmt.Errorf("augment: decode response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("augment: no choices in response")
	}
	return cr.Choices[0].Message.Content, nil
}

var _ Augmenter = (*Client)(nil)
