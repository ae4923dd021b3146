package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultModelBaseURL = "http://127.0.0.1:5000/translate"

// ModelConfig captures the settings for a locally hosted translation
// model server (the --model backend).
type ModelConfig struct {
	BaseURL string
	Source  string
	Target  string
}

// ModelClient posts translation requests to a local inference server.
type ModelClient struct {
	cfg        ModelConfig
	httpClient *http.Client
}

// ModelOption customizes the client.
type ModelOption func(*ModelClient)

// WithModelHTTPClient overrides the default HTTP client.
func WithModelHTTPClient(client *http.Client) ModelOption {
	return func(c *ModelClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewModelClient constructs the alternate model-server backend.
func NewModelClient(cfg ModelConfig, opts ...ModelOption) *ModelClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultModelBaseURL
	}
	if cfg.Source == "" {
		cfg.Source = "en"
	}
	if cfg.Target == "" {
		cfg.Target = "vi"
	}
	c := &ModelClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements Translator.
func (c *ModelClient) Name() string { return "model" }

type modelRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type modelResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error,omitempty"`
}

// Translate implements Translator.
func (c *ModelClient) Translate(ctx context.Context, text string) (string, error) {
	encoded, err := json.Marshal(modelRequest{Q: text, Source: c.cfg.Source, Target: c.cfg.Target})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &ServiceError{Backend: c.Name(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ServiceError{Backend: c.Name(), Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &ServiceError{
			Backend: c.Name(),
			Err:     fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var decoded modelResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", &ServiceError{Backend: c.Name(), Err: fmt.Errorf("decode response: %w", err)}
	}
	if decoded.Error != "" {
		return "", &ServiceError{Backend: c.Name(), Err: fmt.Errorf("server error: %s", decoded.Error)}
	}
	if decoded.TranslatedText == "" {
		return "", &ServiceError{Backend: c.Name(), Err: fmt.Errorf("empty translation")}
	}
	return decoded.TranslatedText, nil
}

var (
	_ Translator = (*GoogleClient)(nil)
	_ Translator = (*ModelClient)(nil)
)
