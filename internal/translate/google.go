package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultGoogleBaseURL = "https://translate.googleapis.com/translate_a/single"
	defaultHTTPTimeout   = 15 * time.Second
)

// GoogleConfig captures the settings for the hosted translate endpoint.
type GoogleConfig struct {
	BaseURL string
	Source  string // source language code, e.g. "en"
	Target  string // target language code, e.g. "vi"
}

// GoogleClient talks to the public translate endpoint used by the
// gtx web client.
type GoogleClient struct {
	cfg        GoogleConfig
	httpClient *http.Client
}

// GoogleOption customizes the client.
type GoogleOption func(*GoogleClient)

// WithGoogleHTTPClient overrides the default HTTP client.
func WithGoogleHTTPClient(client *http.Client) GoogleOption {
	return func(c *GoogleClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewGoogleClient constructs the default translation backend.
func NewGoogleClient(cfg GoogleConfig, opts ...GoogleOption) *GoogleClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGoogleBaseURL
	}
	if cfg.Source == "" {
		cfg.Source = "en"
	}
	if cfg.Target == "" {
		cfg.Target = "vi"
	}
	c := &GoogleClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements Translator.
func (c *GoogleClient) Name() string { return "google" }

// Translate implements Translator. Any transport or decode failure is
// reported as a *ServiceError so the caller's retry policy applies.
func (c *GoogleClient) Translate(ctx context.Context, text string) (string, error) {
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", c.cfg.Source)
	params.Set("tl", c.cfg.Target)
	params.Set("dt", "t")
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

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

	translated, err := decodeGoogleResponse(body)
	if err != nil {
		return "", &ServiceError{Backend: c.Name(), Err: err}
	}
	return translated, nil
}

// decodeGoogleResponse unpacks the gtx nested-array payload:
// [[["translated","original",...], ...], ...]. Sentence fragments are
// concatenated in order.
func decodeGoogleResponse(body []byte) (string, error) {
	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("empty response payload")
	}

	var sentences [][]json.RawMessage
	if err := json.Unmarshal(payload[0], &sentences); err != nil {
		return "", fmt.Errorf("decode sentences: %w", err)
	}

	var b strings.Builder
	for _, sentence := range sentences {
		if len(sentence) == 0 {
			continue
		}
		var fragment string
		if err := json.Unmarshal(sentence[0], &fragment); err != nil {
			continue
		}
		b.WriteString(fragment)
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no translation in response")
	}
	return b.String(), nil
}
