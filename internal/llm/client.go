// Package llm talks to OpenAI-compatible chat completion endpoints and
// decodes structured answers into Go types.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrMalformedOutput is returned when the model answer does not decode into
// the requested schema after every retry
var ErrMalformedOutput = errors.New("malformed structured output")

// Request is one prompt sent to a model
type Request struct {
	// Name identifies the call in logs
	Name        string
	System      []string
	User        string
	Temperature float64
	MaxTokens   int
}

// Agent is the LLM collaborator used by the pipeline. Structured decodes the
// answer into out, a pointer to one of the result types of this package.
type Agent interface {
	Complete(ctx context.Context, req Request) (string, error)
	Structured(ctx context.Context, req Request, schema string, out any) error
}

// Config points the client at an endpoint
type Config struct {
	Endpoint string
	APIKey   string
	Model    string
	Retries  int
	Timeout  time.Duration
}

// Client implements Agent over HTTP
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	retries    int
	backoff    time.Duration
	httpClient *http.Client
	log        *zap.Logger
}

var _ Agent = (*Client)(nil)

// NewClient builds a client from configuration
func NewClient(cfg Config, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		retries:  cfg.Retries,
		backoff:  time.Second,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature,omitempty"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete returns the plain text answer
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	var answer string
	err := c.withRetries(ctx, req.Name, func() error {
		var err error
		answer, err = c.send(ctx, req, "", false)
		return err
	})
	return answer, err
}

// Structured asks for a JSON answer matching schema and decodes it into out.
// Transport errors and undecodable answers both consume a retry.
func (c *Client) Structured(ctx context.Context, req Request, schema string, out any) error {
	return c.withRetries(ctx, req.Name, func() error {
		answer, err := c.send(ctx, req, schema, true)
		if err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(stripFences(answer)), out); err != nil {
			return eris.Wrapf(ErrMalformedOutput, "%s: %v", req.Name, err)
		}
		return nil
	})
}

func (c *Client) withRetries(ctx context.Context, name string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			c.log.Warn("retrying llm call", zap.String("call", name), zap.Int("attempt", attempt), zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff * time.Duration(attempt)):
			}
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}

func (c *Client) send(ctx context.Context, req Request, schema string, jsonMode bool) (string, error) {
	if c.endpoint == "" || c.model == "" {
		return "", eris.New("llm client misconfigured")
	}

	messages := make([]chatMessage, 0, len(req.System)+2)
	for _, s := range req.System {
		if s = strings.TrimSpace(s); s != "" {
			messages = append(messages, chatMessage{Role: "system", Content: s})
		}
	}
	if schema != "" {
		messages = append(messages, chatMessage{
			Role:    "system",
			Content: "Respond with a single JSON object and nothing else. It must match this schema:\n" + schema,
		})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.User})

	body := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if jsonMode {
		body.ResponseFormat = map[string]string{"type": "json_object"}
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return "", eris.Wrap(err, "marshal chat payload")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(raw))
	if err != nil {
		return "", eris.Wrap(err, "new request")
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", eris.Wrapf(err, "%s: send", req.Name)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", eris.Errorf("%s: llm error %s: %s", req.Name, resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", eris.Wrapf(err, "%s: decode response", req.Name)
	}
	if len(decoded.Choices) == 0 {
		return "", eris.Errorf("%s: empty response", req.Name)
	}

	c.log.Debug("llm call finished", zap.String("call", req.Name), zap.Duration("elapsed", time.Since(start)))
	return decoded.Choices[0].Message.Content, nil
}

// stripFences removes a markdown code fence some models wrap JSON in
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
