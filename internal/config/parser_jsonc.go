package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type fileConfig struct {
	ProxyURL    *string          `json:"proxy_url"`
	Serve       *fileServe       `json:"serve"`
	Languages   *fileLanguages   `json:"languages"`
	Audio       *fileAudio       `json:"audio"`
	Recognition *fileRecognition `json:"recognition"`
	Voice       *fileVoice       `json:"voice"`
	Output      *fileOutput      `json:"output"`
	Indicator   *fileIndicator   `json:"indicator"`

	ClipboardCmd *string    `json:"clipboard_cmd"`
	PasteCmd     *string    `json:"paste_cmd"`
	Vocab        *fileVocab `json:"vocab"`
	Debug        *fileDebug `json:"debug"`
}

type fileServe struct {
	HTTP *string `json:"http"`
	GRPC *string `json:"grpc"`
}

type fileLanguages struct {
	Source *string `json:"source"`
	Target *string `json:"target"`
}

type fileAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

type fileRecognition struct {
	InterimThreshold *int `json:"interim_threshold"`
}

type fileVoice struct {
	Gender *string `json:"gender"`
}

type fileOutput struct {
	Copy     *bool   `json:"copy"`
	Paste    *bool   `json:"paste"`
	Shortcut *string `json:"shortcut"`
	Speak    *bool   `json:"speak"`
}

type fileIndicator struct {
	Enable          *bool     `json:"enable"`
	Backend         *string   `json:"backend"`
	DesktopAppName  *string   `json:"desktop_app_name"`
	SoundEnable     *bool     `json:"sound_enable"`
	SoundCues       *fileCues `json:"sound_files"`
	ErrorTimeoutMS  *int      `json:"error_timeout_ms"`
	NoticeTimeoutMS *int      `json:"notice_timeout_ms"`
}

type fileCues struct {
	Listening   *string `json:"listening"`
	Translating *string `json:"translating"`
	Translated  *string `json:"translated"`
	Failed      *string `json:"failed"`
}

type fileVocab struct {
	Global     *stringList         `json:"global"`
	MaxPhrases *int                `json:"max_phrases"`
	Sets       map[string][]string `json:"sets"`
}

type fileDebug struct {
	AudioDump *bool `json:"audio_dump"`
	EventDump *bool `json:"event_dump"`
}

// stringList accepts either a JSON array or a comma-delimited string.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("expected string array or comma-delimited string")
	}
	out := []string{}
	for _, part := range strings.Split(single, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*l = out
	return nil
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload fileConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	cfg.Vocab.Sets = cloneSets(base.Vocab.Sets)
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setCommand(dst *CommandConfig, src *string, key string) error {
	if src == nil {
		return nil
	}
	argv, err := parseArgv(*src)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = CommandConfig{Raw: *src, Argv: argv}
	return nil
}

func (payload fileConfig) applyTo(cfg *Config) error {
	setString(&cfg.ProxyURL, payload.ProxyURL)

	if s := payload.Serve; s != nil {
		setString(&cfg.Serve.HTTPAddr, s.HTTP)
		setString(&cfg.Serve.GRPCAddr, s.GRPC)
	}
	if l := payload.Languages; l != nil {
		setString(&cfg.Languages.Source, l.Source)
		setString(&cfg.Languages.Target, l.Target)
	}
	if a := payload.Audio; a != nil {
		setString(&cfg.Audio.Input, a.Input)
		setString(&cfg.Audio.Fallback, a.Fallback)
	}
	if r := payload.Recognition; r != nil {
		setInt(&cfg.Recognition.InterimThreshold, r.InterimThreshold)
	}
	if v := payload.Voice; v != nil {
		setString(&cfg.Voice.Gender, v.Gender)
	}
	if o := payload.Output; o != nil {
		setBool(&cfg.Output.Copy, o.Copy)
		setBool(&cfg.Output.Paste, o.Paste)
		setString(&cfg.Output.Shortcut, o.Shortcut)
		setBool(&cfg.Output.Speak, o.Speak)
	}
	if i := payload.Indicator; i != nil {
		setBool(&cfg.Indicator.Enable, i.Enable)
		setString(&cfg.Indicator.Backend, i.Backend)
		setString(&cfg.Indicator.DesktopAppName, i.DesktopAppName)
		setBool(&cfg.Indicator.SoundEnable, i.SoundEnable)
		if cues := i.SoundCues; cues != nil {
			setString(&cfg.Indicator.SoundCues.Listening, cues.Listening)
			setString(&cfg.Indicator.SoundCues.Translating, cues.Translating)
			setString(&cfg.Indicator.SoundCues.Translated, cues.Translated)
			setString(&cfg.Indicator.SoundCues.Failed, cues.Failed)
		}
		setInt(&cfg.Indicator.ErrorTimeoutMS, i.ErrorTimeoutMS)
		setInt(&cfg.Indicator.NoticeTimeoutMS, i.NoticeTimeoutMS)
	}

	if err := setCommand(&cfg.Clipboard, payload.ClipboardCmd, "clipboard_cmd"); err != nil {
		return err
	}
	if err := setCommand(&cfg.PasteCmd, payload.PasteCmd, "paste_cmd"); err != nil {
		return err
	}

	if v := payload.Vocab; v != nil {
		if v.Global != nil {
			cfg.Vocab.GlobalSets = nil
			for _, name := range *v.Global {
				if name = strings.TrimSpace(name); name != "" {
					cfg.Vocab.GlobalSets = append(cfg.Vocab.GlobalSets, name)
				}
			}
		}
		setInt(&cfg.Vocab.MaxPhrases, v.MaxPhrases)
		for name, phrases := range v.Sets {
			name = strings.TrimSpace(name)
			if name == "" {
				return fmt.Errorf("vocab.sets contains an empty set name")
			}
			cfg.Vocab.Sets[name] = VocabSet{Name: name, Phrases: append([]string(nil), phrases...)}
		}
	}

	if d := payload.Debug; d != nil {
		setBool(&cfg.Debug.EnableAudioDump, d.AudioDump)
		setBool(&cfg.Debug.EnableEventDump, d.EventDump)
	}
	return nil
}

func cloneSets(sets map[string]VocabSet) map[string]VocabSet {
	out := make(map[string]VocabSet, len(sets))
	for name, set := range sets {
		out[name] = set
	}
	return out
}

// normalizeJSONC blanks out comments and drops trailing commas while keeping
// byte offsets stable, so decode errors still point at the original line.
func normalizeJSONC(content string) (string, error) {
	src := []byte(content)
	out := make([]byte, len(src))
	copy(out, src)

	inString := false
	for i := 0; i < len(src); i++ {
		ch := src[i]
		switch {
		case inString:
			if ch == '\\' {
				i++
			} else if ch == '"' {
				inString = false
			}
		case ch == '"':
			inString = true
		case ch == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' && src[i] != '\r' {
				out[i] = ' '
				i++
			}
		case ch == '/' && i+1 < len(src) && src[i+1] == '*':
			end := bytes.Index(src[i+2:], []byte("*/"))
			if end < 0 {
				return "", fmt.Errorf("unterminated block comment in JSONC")
			}
			stop := i + 2 + end + 2
			for ; i < stop; i++ {
				if !isLineBreak(src[i]) {
					out[i] = ' '
				}
			}
			i--
		}
	}

	dropTrailingCommas(out)
	return string(out), nil
}

// dropTrailingCommas blanks a comma whose next significant byte closes an
// object or array.
func dropTrailingCommas(buf []byte) {
	inString := false
	for i := 0; i < len(buf); i++ {
		ch := buf[i]
		if inString {
			if ch == '\\' {
				i++
			} else if ch == '"' {
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
			continue
		}
		if ch != ',' {
			continue
		}
		j := i + 1
		for j < len(buf) && isJSONWhitespace(buf[j]) {
			j++
		}
		if j < len(buf) && (buf[j] == '}' || buf[j] == ']') {
			buf[i] = ' '
		}
	}
}

func isLineBreak(ch byte) bool {
	return ch == '\n' || ch == '\r'
}

func isJSONWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\t' || isLineBreak(ch)
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var offset int64
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return err
	}
	line, col := offsetToLineCol(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}
	prefix := content[:min(int(offset), len(content))]
	if len(prefix) > 0 {
		prefix = prefix[:len(prefix)-1]
	}
	line := 1 + strings.Count(prefix, "\n")
	col := len(prefix) - strings.LastIndex(prefix, "\n")
	return line, col
}
