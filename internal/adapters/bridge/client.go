// Package bridge implements ports.Executor over HTTP against the
// tool-execution collaborator's /execute endpoint.
package bridge

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

	"github.com/mitchellh/mapstructure"

	"github.com/warroomhq/warroom/pkg/ports"
)

// DefaultTimeout bounds a single collaborator call. Tool runs can
// legitimately take minutes.
const DefaultTimeout = 5 * time.Minute

// Command type tags, re-exported for callers that already import this
// package.
const (
	CommandToolExecute   = ports.CommandToolExecute
	CommandAIGenerate    = ports.CommandAIGenerate
	CommandRobinSearch   = ports.CommandRobinSearch
	CommandBrowserAction = ports.CommandBrowserAction
)

// response is the collaborator's reply envelope.
type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Client implements ports.Executor.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger for request-level debug output.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a client for the collaborator at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		log:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute posts cmd to the collaborator and returns the data payload.
// Collaborator-reported failures and transport failures both come back
// as a *ports.CollaboratorError.
func (c *Client) Execute(ctx context.Context, cmd ports.Command) (json.RawMessage, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command: %w", err)
	}

	url := c.baseURL + "/execute"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug("collaborator call", "type", cmd.Type, "tool", cmd.Tool)
	started := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ports.CollaboratorError{Command: cmd.Type, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ports.CollaboratorError{Command: cmd.Type, Message: "failed to read response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ports.CollaboratorError{
			Command: cmd.Type,
			Message: fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
		}
	}

	var envelope response
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &ports.CollaboratorError{Command: cmd.Type, Message: "malformed response", Err: err}
	}
	if !envelope.Success {
		return nil, &ports.CollaboratorError{Command: cmd.Type, Message: envelope.Error}
	}

	c.log.Debug("collaborator call done", "type", cmd.Type, "elapsed", time.Since(started))
	return envelope.Data, nil
}

// ExecuteTool runs a named tool against a target.
func (c *Client) ExecuteTool(ctx context.Context, tool, target string, args map[string]any) (json.RawMessage, error) {
	rawArgs, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool args: %w", err)
	}
	return c.Execute(ctx, ports.Command{
		Type:   CommandToolExecute,
		Tool:   tool,
		Target: target,
		Args:   rawArgs,
	})
}

// generation is the ai_generate data payload.
type generation struct {
	Response string `mapstructure:"response"`
	Model    string `mapstructure:"model"`
}

// Generate asks the collaborator's model for a completion and returns
// the response text.
func (c *Client) Generate(ctx context.Context, prompt string, model *string) (string, error) {
	data, err := c.Execute(ctx, ports.Command{
		Type:   CommandAIGenerate,
		Prompt: prompt,
		Model:  model,
	})
	if err != nil {
		return "", err
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", &ports.CollaboratorError{Command: CommandAIGenerate, Message: "malformed data payload", Err: err}
	}
	var gen generation
	if err := mapstructure.Decode(payload, &gen); err != nil {
		return "", &ports.CollaboratorError{Command: CommandAIGenerate, Message: "unexpected data payload", Err: err}
	}
	return gen.Response, nil
}

// RobinSearch runs a dark web search through the collaborator.
func (c *Client) RobinSearch(ctx context.Context, query string) (json.RawMessage, error) {
	return c.Execute(ctx, ports.Command{
		Type:  CommandRobinSearch,
		Query: query,
	})
}

// BrowserAction drives collaborator-side browser automation.
func (c *Client) BrowserAction(ctx context.Context, action string, params map[string]any) (json.RawMessage, error) {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal action params: %w", err)
	}
	return c.Execute(ctx, ports.Command{
		Type:   CommandBrowserAction,
		Action: action,
		Params: rawParams,
	})
}
