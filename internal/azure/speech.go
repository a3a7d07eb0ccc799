package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rbright/yatra/internal/lang"
)

// TokenLifetimeSeconds is how long an issued speech token stays valid.
const TokenLifetimeSeconds = 600

// OutputFormat is the synthesis audio format: 24 kHz 16-bit mono WAV.
const OutputFormat = "riff-24khz-16bit-mono-pcm"

// Token is a short-lived speech service bearer token.
type Token struct {
	Value     string `json:"token"`
	Region    string `json:"region"`
	ExpiresIn int    `json:"expiresIn"`
}

// IssueToken exchanges the speech key for a bearer token.
func (c *Client) IssueToken(ctx context.Context) (Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.creds.SpeechBase()+"/sts/v1.0/issueToken", http.NoBody)
	if err != nil {
		return Token{}, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.creds.SpeechKey)
	req.Header.Set("Content-Type", "application/json")

	raw, err := do(c.http, req)
	if err != nil {
		return Token{}, fmt.Errorf("issue speech token: %w", err)
	}
	value := strings.TrimSpace(string(raw))
	if value == "" {
		return Token{}, errors.New("issue speech token: empty token")
	}
	return Token{Value: value, Region: c.creds.SpeechRegion, ExpiresIn: TokenLifetimeSeconds}, nil
}

// Voices fetches the regional voice catalog.
func (c *Client) Voices(ctx context.Context) ([]lang.Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ttsBase()+"/cognitiveservices/voices/list", http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.creds.SpeechKey)

	raw, err := do(c.http, req)
	if err != nil {
		return nil, fmt.Errorf("list voices: %w", err)
	}
	var voices []lang.Voice
	if err := json.Unmarshal(raw, &voices); err != nil {
		return nil, fmt.Errorf("list voices: decode: %w", err)
	}
	return voices, nil
}

var highlightedIndianLocales = []string{
	"hi-IN", "bn-IN", "ta-IN", "te-IN", "mr-IN",
	"gu-IN", "kn-IN", "ml-IN", "pa-IN", "ur-IN",
	"as-IN", "or-IN", "ta-LK", "ta-MY", "ta-SG",
}

var highlightedGlobalPrefixes = []string{
	"en-", "zh-", "ar-", "es-", "fr-", "de-", "ru-", "pt-", "ja-", "ko-",
}

// FilterVoices keeps Indian and major global voices. The full list is
// returned when the filter would leave nothing.
func FilterVoices(voices []lang.Voice) []lang.Voice {
	out := make([]lang.Voice, 0, len(voices))
	for _, v := range voices {
		if v.Locale == "" {
			continue
		}
		if hasAnyPrefix(v.Locale, highlightedIndianLocales) || hasAnyPrefix(v.Locale, highlightedGlobalPrefixes) {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return append([]lang.Voice{}, voices...)
	}
	return out
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// TokenSource supplies bearer tokens for speech calls.
type TokenSource interface {
	SpeechToken(ctx context.Context) (Token, error)
}

// Synthesizer renders SSML to WAV audio using bearer tokens.
type Synthesizer struct {
	Tokens TokenSource
	HTTP   *http.Client
	// BaseURL overrides the regional text-to-speech host.
	BaseURL string
}

// Synthesize renders text with voice and returns WAV bytes.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, voice string, locale string) ([]byte, error) {
	if s.Tokens == nil {
		return nil, errors.New("synthesize: no token source")
	}
	token, err := s.Tokens.SpeechToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}

	ssml, err := BuildSSML(text, voice, locale)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}

	base := s.BaseURL
	if base == "" {
		base = TTSBase(token.Region)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+"/cognitiveservices/v1", strings.NewReader(ssml))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.Value)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", OutputFormat)
	req.Header.Set("User-Agent", "yatra")

	client := s.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	audio, err := do(client, req)
	if err != nil {
		return nil, fmt.Errorf("synthesize %s: %w", voice, err)
	}
	return audio, nil
}

// BuildSSML wraps text for one voice. locale falls back to the voice's own
// locale prefix.
func BuildSSML(text string, voice string, locale string) (string, error) {
	voice = strings.TrimSpace(voice)
	if voice == "" {
		return "", errors.New("voice required")
	}
	if locale = strings.TrimSpace(locale); locale == "" {
		locale = lang.VoiceLocale(voice)
	}

	var escaped bytes.Buffer
	if err := xml.EscapeText(&escaped, []byte(text)); err != nil {
		return "", err
	}
	var attr bytes.Buffer
	if err := xml.EscapeText(&attr, []byte(voice)); err != nil {
		return "", err
	}

	return fmt.Sprintf(
		`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="%s"><voice name="%s">%s</voice></speak>`,
		locale, attr.String(), escaped.String(),
	), nil
}
