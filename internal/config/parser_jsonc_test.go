package config

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseJSONCOverridesDefaults(t *testing.T) {
	input := `
{
  // travelling in Maharashtra
  "languages": { "source": "en", "target": "mr" },
  "proxy_url": "https://yatra.example.net",
  "audio": { "input": "yeti", },
  "recognition": { "interim_threshold": 8 },
  "voice": { "gender": "male" },
  "output": { "copy": true, "speak": false },
  "indicator": {
    "backend": "desktop",
    "notice_timeout_ms": 5000,
    "sound_files": { "translated": "~/sounds/ding.wav" },
  },
  "vocab": {
    "global": "stations, food",
    "sets": {
      "stations": ["Churchgate", "Dadar", "CST"],
      "food": ["vada pav", "misal", "Dadar"],
    },
  },
  "debug": { "event_dump": true },
}
`
	cfg, warnings, err := Parse(input, Default())
	require.NoError(t, err)

	require.Equal(t, "mr", cfg.Languages.Target)
	require.Equal(t, "https://yatra.example.net", cfg.ProxyURL)
	require.Equal(t, "yeti", cfg.Audio.Input)
	require.Equal(t, "default", cfg.Audio.Fallback)
	require.Equal(t, 8, cfg.Recognition.InterimThreshold)
	require.Equal(t, "male", cfg.Voice.Gender)
	require.True(t, cfg.Output.Copy)
	require.False(t, cfg.Output.Speak)
	require.Equal(t, "desktop", cfg.Indicator.Backend)
	require.Equal(t, 5000, cfg.Indicator.NoticeTimeoutMS)
	require.Equal(t, CueFiles{Translated: "~/sounds/ding.wav"}, cfg.Indicator.SoundCues)
	require.True(t, cfg.Debug.EnableEventDump)
	require.Equal(t, []string{"stations", "food"}, cfg.Vocab.GlobalSets)

	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "Dadar")

	phrases, _, err := BuildPhraseList(cfg)
	require.NoError(t, err)
	require.Equal(t, []string{"CST", "Churchgate", "Dadar", "misal", "vada pav"}, phrases)

	require.Empty(t, Default().Vocab.Sets)
}

func TestParseJSONCRejectsUnknownKeysWithPosition(t *testing.T) {
	_, _, err := Parse("{\n  \"asr\": {}\n}", Default())
	require.ErrorContains(t, err, "unknown field")

	_, _, err = Parse("{\n\n  \"voice\": { \"gender\": 3 }\n}", Default())
	require.ErrorContains(t, err, "line 3")
}

func TestParseRejectsNonObject(t *testing.T) {
	_, _, err := Parse("voice.gender = male", Default())
	require.ErrorContains(t, err, "JSONC object")

	cfg, _, err := Parse("   ", Default())
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestNormalizeJSONCRemovesCommentsAndTrailingCommas(t *testing.T) {
	input := `
{
  // line comment
  "items": [
    "one", /* block
    comment */
    "two",
  ],
  "nested": { "enabled": true, },
}
`
	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.NotContains(t, normalized, "//")
	require.NotContains(t, normalized, "/*")
	require.Equal(t, strings.Count(input, "\n"), strings.Count(normalized, "\n"))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(normalized), &decoded))
	require.Equal(t, []any{"one", "two"}, decoded["items"])
}

func TestNormalizeJSONCKeepsStringContents(t *testing.T) {
	normalized, err := normalizeJSONC(`{"value":"http://x /* y */ \"q\", ]",}`)
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(normalized), &decoded))
	require.Equal(t, `http://x /* y */ "q", ]`, decoded["value"])
}

func TestNormalizeJSONCUnterminatedBlockCommentFails(t *testing.T) {
	_, err := normalizeJSONC("{ /* unterminated ")
	require.ErrorContains(t, err, "unterminated block comment")
}

func TestEnsureSingleJSONValueRejectsExtraPayload(t *testing.T) {
	decoder := json.NewDecoder(strings.NewReader(`{"one":1}{"two":2}`))
	var payload map[string]any
	require.NoError(t, decoder.Decode(&payload))
	require.ErrorContains(t, ensureSingleJSONValue(decoder), "multiple JSON values")
}

func TestOffsetToLineCol(t *testing.T) {
	content := "{\n  \"a\": x\n}"
	line, col := offsetToLineCol(content, 10)
	require.Equal(t, 2, line)
	require.Equal(t, 8, col)

	line, col = offsetToLineCol(content, 0)
	require.Equal(t, 1, line)
	require.Equal(t, 1, col)
}
