// Package azure talks to the cloud translator and speech services.
package azure

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTranslatorEndpoint is the global translator endpoint.
const DefaultTranslatorEndpoint = "https://api.cognitive.microsofttranslator.com"

// ErrUpstream wraps non-success responses from a cloud service.
var ErrUpstream = errors.New("upstream request failed")

// Credentials hold service keys and regions. Only the proxy holds keys;
// desktop clients authenticate speech calls with short-lived tokens.
type Credentials struct {
	TranslatorKey      string
	TranslatorRegion   string
	TranslatorEndpoint string
	SpeechKey          string
	SpeechRegion       string
	SpeechEndpoint     string
}

// TranslatorBase returns the translator endpoint without a trailing slash.
func (c Credentials) TranslatorBase() string {
	endpoint := strings.TrimSpace(c.TranslatorEndpoint)
	if endpoint == "" {
		endpoint = DefaultTranslatorEndpoint
	}
	return strings.TrimRight(endpoint, "/")
}

// SpeechBase returns the speech resource endpoint used for token issuance.
func (c Credentials) SpeechBase() string {
	endpoint := strings.TrimRight(strings.TrimSpace(c.SpeechEndpoint), "/")
	if endpoint != "" {
		return endpoint
	}
	return fmt.Sprintf("https://%s.api.cognitive.microsoft.com", c.SpeechRegion)
}

// TTSBase returns the regional text-to-speech host.
func TTSBase(region string) string {
	return fmt.Sprintf("https://%s.tts.speech.microsoft.com", strings.TrimSpace(region))
}

// STTBase returns the regional speech-to-text websocket host.
func STTBase(region string) string {
	return fmt.Sprintf("wss://%s.stt.speech.microsoft.com", strings.TrimSpace(region))
}

// Client calls the key-authenticated translator and speech endpoints.
type Client struct {
	creds Credentials
	http  *http.Client

	// TTSBaseURL overrides the regional text-to-speech host.
	TTSBaseURL string
	// NewTraceID generates X-ClientTraceId values.
	NewTraceID func() string
}

// NewClient constructs a key-authenticated client. A nil httpClient uses a
// client with a 15 second timeout.
func NewClient(creds Credentials, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		creds:      creds,
		http:       httpClient,
		NewTraceID: func() string { return uuid.NewString() },
	}
}

// Credentials returns the configured credentials.
func (c *Client) Credentials() Credentials {
	return c.creds
}

func (c *Client) ttsBase() string {
	if c.TTSBaseURL != "" {
		return strings.TrimRight(c.TTSBaseURL, "/")
	}
	return TTSBase(c.creds.SpeechRegion)
}

// do sends req and returns the body of a 2xx response.
func do(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s %s: %s: %s", ErrUpstream, req.Method, req.URL.Path, resp.Status, snippet(body))
	}
	return body, nil
}

func snippet(body []byte) string {
	const limit = 200
	text := strings.TrimSpace(string(body))
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}
