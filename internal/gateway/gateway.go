// Package gateway is the desktop client for the translation proxy. It owns
// token and voice-list caching so controllers never touch credentials.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rbright/yatra/internal/azure"
	"github.com/rbright/yatra/internal/cache"
	"github.com/rbright/yatra/internal/lang"
	"github.com/rbright/yatra/internal/version"
)

// TokenTTL is how long a speech token is reused before refetching.
const TokenTTL = 8 * time.Minute

// ErrTransport wraps every proxy failure.
var ErrTransport = errors.New("proxy request failed")

// TranslateRequest is the proxy translate body.
type TranslateRequest struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"sourceLanguage,omitempty"`
	TargetLanguage string `json:"targetLanguage"`
}

// TranslateResponse is the proxy translate reply.
type TranslateResponse struct {
	Translation string `json:"translation"`
}

// AlternativesResponse is the proxy alternatives reply.
type AlternativesResponse struct {
	Alternatives []string `json:"alternatives"`
}

// DetectRequest is the proxy detect body.
type DetectRequest struct {
	Text string `json:"text"`
}

// DetectResponse is the proxy detect reply.
type DetectResponse struct {
	DetectedLanguage string `json:"detectedLanguage"`
}

// VoicesResponse is the proxy voices reply.
type VoicesResponse struct {
	Voices []lang.Voice `json:"voices"`
}

// Health is the proxy health reply.
type Health struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ErrorResponse is the proxy error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Client calls the proxy over HTTP.
type Client struct {
	base string
	http *http.Client

	token  cache.Value[azure.Token]
	voices cache.Value[[]lang.Voice]
}

// New constructs a proxy client for baseURL. A nil httpClient uses a client
// with a 20 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{
		base:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:  httpClient,
		token: cache.Value[azure.Token]{TTL: TokenTTL},
	}
}

// BaseURL returns the proxy base URL.
func (c *Client) BaseURL() string {
	return c.base
}

// Translate asks the proxy to translate text. An empty from lets the
// service detect the source.
func (c *Client) Translate(ctx context.Context, text string, from string, to string) (string, error) {
	var out TranslateResponse
	err := c.call(ctx, http.MethodPost, "/api/translate", TranslateRequest{Text: text, SourceLanguage: from, TargetLanguage: to}, &out)
	if err != nil {
		return "", err
	}
	return out.Translation, nil
}

// Alternatives asks the proxy for alternative renderings.
func (c *Client) Alternatives(ctx context.Context, text string, from string, to string) ([]string, error) {
	var out AlternativesResponse
	err := c.call(ctx, http.MethodPost, "/api/translate/alternatives", TranslateRequest{Text: text, SourceLanguage: from, TargetLanguage: to}, &out)
	if err != nil {
		return nil, err
	}
	return out.Alternatives, nil
}

// Detect asks the proxy to identify text's language.
func (c *Client) Detect(ctx context.Context, text string) (string, error) {
	var out DetectResponse
	if err := c.call(ctx, http.MethodPost, "/api/translate/detect", DetectRequest{Text: text}, &out); err != nil {
		return "", err
	}
	return out.DetectedLanguage, nil
}

// SpeechToken returns a cached speech token, refetching after TokenTTL.
func (c *Client) SpeechToken(ctx context.Context) (azure.Token, error) {
	return c.token.Get(ctx, func(ctx context.Context) (azure.Token, error) {
		var out azure.Token
		if err := c.call(ctx, http.MethodGet, "/api/translate/speech-token", nil, &out); err != nil {
			return azure.Token{}, err
		}
		if out.Value == "" {
			return azure.Token{}, fmt.Errorf("%w: empty speech token", ErrTransport)
		}
		return out, nil
	})
}

// InvalidateToken drops the cached token so the next call refetches.
func (c *Client) InvalidateToken() {
	c.token.Invalidate()
}

// Voices returns the voice catalog, cached for the client's lifetime.
// A failed fetch returns an empty list with the error and is retried on
// the next call.
func (c *Client) Voices(ctx context.Context) ([]lang.Voice, error) {
	voices, err := c.voices.Get(ctx, func(ctx context.Context) ([]lang.Voice, error) {
		var out VoicesResponse
		if err := c.call(ctx, http.MethodGet, "/api/translate/voices", nil, &out); err != nil {
			return nil, err
		}
		return out.Voices, nil
	})
	if err != nil {
		return []lang.Voice{}, err
	}
	return voices, nil
}

// Health queries the proxy health endpoint.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	if err := c.call(ctx, http.MethodGet, "/api/health", nil, &out); err != nil {
		return Health{}, err
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, method string, path string, in any, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("%w: build %s: %v", ErrTransport, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTransport, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrTransport, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var failure ErrorResponse
		_ = json.Unmarshal(raw, &failure)
		message := strings.TrimSpace(failure.Error)
		if message == "" {
			message = resp.Status
		}
		return fmt.Errorf("%w: %s: %d %s", ErrTransport, path, resp.StatusCode, message)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrTransport, path, err)
	}
	return nil
}
