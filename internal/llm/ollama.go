package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/qaforge/qa-forge/internal/pkg/errors"
)

const (
	// DefaultOllamaURL is the default Ollama API base URL.
	DefaultOllamaURL = "http://localhost:11434/api"

	// DefaultOllamaTimeout bounds a single generation call.
	DefaultOllamaTimeout = 5 * time.Minute
)

// OllamaConfig holds connection settings for a local Ollama server.
type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OllamaClient talks to an Ollama server over its HTTP API.
type OllamaClient struct {
	config     OllamaConfig
	httpClient *http.Client
}

// ollamaRequest is the /api/generate request body.
type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Format  string        `json:"format,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options,omitempty"`
}

// ollamaOptions maps Options onto Ollama parameter names.
type ollamaOptions struct {
	Temperature float64  `json:"temperature,omitempty"`
	TopP        float64  `json:"top_p,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// ollamaResponse is a single /api/generate response object. In streaming
// mode one object arrives per line.
type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewOllamaClient creates a client for a local Ollama server.
func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultOllamaTimeout
	}

	return &OllamaClient{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Complete sends a prompt and returns the full reply text.
func (c *OllamaClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	body, err := c.newRequest(ctx, prompt, opts, false)
	if err != nil {
		return "", err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", errors.LLMError("reading ollama response", err)
	}

	var resp ollamaResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", errors.LLMError("decoding ollama response", err)
	}

	return resp.Response, nil
}

// Stream sends a prompt and invokes fn for each incremental token.
func (c *OllamaClient) Stream(ctx context.Context, prompt string, opts Options, fn func(token string) error) error {
	body, err := c.newRequest(ctx, prompt, opts, true)
	if err != nil {
		return err
	}
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var chunk ollamaResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return errors.LLMError("decoding ollama stream chunk", err)
		}

		if chunk.Response != "" {
			if err := fn(chunk.Response); err != nil {
				return err
			}
		}
		if chunk.Done {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.LLMError("reading ollama stream", err)
	}
	return nil
}

// Close releases client resources.
func (c *OllamaClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// newRequest issues the generate call and returns the response body.
func (c *OllamaClient) newRequest(ctx context.Context, prompt string, opts Options, stream bool) (io.ReadCloser, error) {
	req := ollamaRequest{
		Model:  c.config.Model,
		Prompt: prompt,
		System: opts.SystemPrompt,
		Stream: stream,
		Options: ollamaOptions{
			Temperature: opts.Temperature,
			TopP:        opts.TopP,
			NumPredict:  opts.MaxTokens,
			Stop:        opts.Stop,
		},
	}
	if opts.JSONMode {
		req.Format = "json"
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.InternalError("marshaling ollama request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.InternalError("building ollama request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.LLMError("calling ollama", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		defer httpResp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return nil, errors.LLMError(fmt.Sprintf("ollama returned status %d: %s", httpResp.StatusCode, data), nil)
	}

	return httpResp.Body, nil
}
