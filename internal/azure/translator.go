package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const translatorAPIVersion = "3.0"

type textItem struct {
	Text string `json:"Text"`
}

type translateResult struct {
	Translations []struct {
		Text string `json:"text"`
		To   string `json:"to"`
	} `json:"translations"`
}

type detectResult struct {
	Language string  `json:"language"`
	Score    float64 `json:"score"`
}

type lookupResult struct {
	Translations []struct {
		DisplayTarget string  `json:"displayTarget"`
		Confidence    float64 `json:"confidence"`
	} `json:"translations"`
}

// Translate converts text into to. from is omitted when empty, "auto", or
// equal to to so the service detects the source itself.
func (c *Client) Translate(ctx context.Context, text string, from string, to string) (string, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return "", errors.New("translate: target language required")
	}
	params := url.Values{"to": {to}}
	if from = strings.TrimSpace(from); from != "" && !strings.EqualFold(from, "auto") && !strings.EqualFold(from, to) {
		params.Set("from", from)
	}

	var results []translateResult
	if err := c.translatorCall(ctx, "/translate", params, text, &results); err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	if len(results) == 0 || len(results[0].Translations) == 0 {
		return "", errors.New("translate: invalid translation response")
	}
	return results[0].Translations[0].Text, nil
}

// Detect returns the service's best language guess for text.
func (c *Client) Detect(ctx context.Context, text string) (string, error) {
	var results []detectResult
	if err := c.translatorCall(ctx, "/detect", url.Values{}, text, &results); err != nil {
		return "", fmt.Errorf("detect: %w", err)
	}
	if len(results) == 0 || results[0].Language == "" {
		return "", errors.New("detect: empty detection response")
	}
	return results[0].Language, nil
}

// Alternatives returns dictionary renderings of text ordered by confidence.
// The dictionary needs an explicit source, so an empty from is detected first.
func (c *Client) Alternatives(ctx context.Context, text string, from string, to string) ([]string, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return nil, errors.New("alternatives: target language required")
	}
	from = strings.TrimSpace(from)
	if from == "" || strings.EqualFold(from, "auto") {
		detected, err := c.Detect(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("alternatives: %w", err)
		}
		from = detected
	}
	if strings.EqualFold(from, to) {
		return []string{}, nil
	}

	var results []lookupResult
	params := url.Values{"from": {from}, "to": {to}}
	if err := c.translatorCall(ctx, "/dictionary/lookup", params, text, &results); err != nil {
		return nil, fmt.Errorf("alternatives: %w", err)
	}

	out := make([]string, 0)
	for _, result := range results {
		for _, tr := range result.Translations {
			if display := strings.TrimSpace(tr.DisplayTarget); display != "" {
				out = append(out, display)
			}
		}
	}
	return out, nil
}

func (c *Client) translatorCall(ctx context.Context, path string, params url.Values, text string, out any) error {
	params.Set("api-version", translatorAPIVersion)
	body, err := json.Marshal([]textItem{{Text: text}})
	if err != nil {
		return err
	}

	endpoint := c.creds.TranslatorBase() + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.creds.TranslatorKey)
	if c.creds.TranslatorRegion != "" {
		req.Header.Set("Ocp-Apim-Subscription-Region", c.creds.TranslatorRegion)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.NewTraceID != nil {
		req.Header.Set("X-ClientTraceId", c.NewTraceID())
	}

	raw, err := do(c.http, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
