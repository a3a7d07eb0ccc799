package azure

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTranslatorServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(Credentials{
		TranslatorKey:      "translator-key",
		TranslatorRegion:   "centralindia",
		TranslatorEndpoint: server.URL + "/",
	}, server.Client())
	client.NewTraceID = func() string { return "trace-1" }
	return client
}

func TestTranslateSendsHeadersAndOmitsAutoSource(t *testing.T) {
	var gotQuery map[string][]string
	var gotBody []map[string]string
	client := newTranslatorServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/translate", r.URL.Path)
		require.Equal(t, "translator-key", r.Header.Get("Ocp-Apim-Subscription-Key"))
		require.Equal(t, "centralindia", r.Header.Get("Ocp-Apim-Subscription-Region"))
		require.Equal(t, "trace-1", r.Header.Get("X-ClientTraceId"))
		gotQuery = r.URL.Query()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = io.WriteString(w, `[{"translations":[{"text":"नमस्ते","to":"hi"}]}]`)
	})

	got, err := client.Translate(context.Background(), "hello", "", "hi")
	require.NoError(t, err)
	require.Equal(t, "नमस्ते", got)
	require.Equal(t, []string{"3.0"}, gotQuery["api-version"])
	require.Equal(t, []string{"hi"}, gotQuery["to"])
	require.NotContains(t, gotQuery, "from")
	require.Equal(t, []map[string]string{{"Text": "hello"}}, gotBody)
}

func TestTranslateFromRules(t *testing.T) {
	tests := []struct {
		name     string
		from     string
		to       string
		wantFrom string
	}{
		{name: "explicit", from: "en", to: "ta", wantFrom: "en"},
		{name: "auto", from: "auto", to: "ta", wantFrom: ""},
		{name: "same as target", from: "ta", to: "ta", wantFrom: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var from string
			client := newTranslatorServer(t, func(w http.ResponseWriter, r *http.Request) {
				from = r.URL.Query().Get("from")
				_, _ = io.WriteString(w, `[{"translations":[{"text":"ok"}]}]`)
			})
			_, err := client.Translate(context.Background(), "x", tc.from, tc.to)
			require.NoError(t, err)
			require.Equal(t, tc.wantFrom, from)
		})
	}
}

func TestTranslateUpstreamFailure(t *testing.T) {
	client := newTranslatorServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"code":401000}}`, http.StatusUnauthorized)
	})

	_, err := client.Translate(context.Background(), "hello", "en", "hi")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUpstream))
	require.Contains(t, err.Error(), "401")
}

func TestTranslateInvalidResponse(t *testing.T) {
	client := newTranslatorServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})

	_, err := client.Translate(context.Background(), "hello", "en", "hi")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid translation response")
}

func TestDetect(t *testing.T) {
	client := newTranslatorServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/detect", r.URL.Path)
		_, _ = io.WriteString(w, `[{"language":"bn","score":0.98}]`)
	})

	got, err := client.Detect(context.Background(), "ধন্যবাদ")
	require.NoError(t, err)
	require.Equal(t, "bn", got)
}

func TestAlternativesDetectsMissingSource(t *testing.T) {
	paths := make([]string, 0)
	client := newTranslatorServer(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/detect":
			_, _ = io.WriteString(w, `[{"language":"en"}]`)
		case "/dictionary/lookup":
			require.Equal(t, "en", r.URL.Query().Get("from"))
			require.Equal(t, "hi", r.URL.Query().Get("to"))
			_, _ = io.WriteString(w, `[{"translations":[{"displayTarget":"पानी"},{"displayTarget":" जल "},{"displayTarget":""}]}]`)
		}
	})

	got, err := client.Alternatives(context.Background(), "water", "", "hi")
	require.NoError(t, err)
	require.Equal(t, []string{"पानी", "जल"}, got)
	require.Equal(t, []string{"/detect", "/dictionary/lookup"}, paths)
}

func TestCredentialBases(t *testing.T) {
	creds := Credentials{SpeechRegion: "centralindia"}
	require.Equal(t, DefaultTranslatorEndpoint, creds.TranslatorBase())
	require.Equal(t, "https://centralindia.api.cognitive.microsoft.com", creds.SpeechBase())

	creds.SpeechEndpoint = "https://custom.example.com/"
	require.Equal(t, "https://custom.example.com", creds.SpeechBase())
	require.Equal(t, "https://centralindia.tts.speech.microsoft.com", TTSBase("centralindia"))
	require.Equal(t, "wss://centralindia.stt.speech.microsoft.com", STTBase("centralindia"))
}
