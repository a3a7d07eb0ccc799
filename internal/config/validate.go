package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/rbright/yatra/internal/lang"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	var warnings []Warning

	proxy, err := url.Parse(strings.TrimSpace(cfg.ProxyURL))
	if err != nil || (proxy.Scheme != "http" && proxy.Scheme != "https") || proxy.Host == "" {
		return nil, fmt.Errorf("proxy_url must be an http(s) URL")
	}
	if strings.TrimSpace(cfg.Serve.HTTPAddr) == "" {
		return nil, fmt.Errorf("serve.http must not be empty")
	}

	source := strings.TrimSpace(cfg.Languages.Source)
	if source == "" {
		return nil, fmt.Errorf("languages.source must not be empty")
	}
	if source != lang.Auto.Code {
		if _, ok := lang.Lookup(source); !ok {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("languages.source %q is not in the catalog", source)})
		}
	}
	target := strings.TrimSpace(cfg.Languages.Target)
	if target == "" || target == lang.Auto.Code {
		return nil, fmt.Errorf("languages.target must be a concrete language")
	}
	if _, ok := lang.Lookup(target); !ok {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("languages.target %q is not in the catalog", target)})
	}

	if cfg.Recognition.InterimThreshold < 0 {
		return nil, fmt.Errorf("recognition.interim_threshold must be >= 0")
	}
	switch lang.Gender(strings.ToLower(strings.TrimSpace(cfg.Voice.Gender))) {
	case lang.GenderFemale, lang.GenderMale:
	default:
		return nil, fmt.Errorf("voice.gender must be one of: female, male")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	if backend != "hypr" && backend != "desktop" {
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 || cfg.Indicator.NoticeTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator timeouts must be >= 0")
	}

	if cfg.Output.Copy && len(cfg.Clipboard.Argv) == 0 {
		return nil, fmt.Errorf("clipboard_cmd must not be empty when output.copy=true")
	}
	if cfg.Output.Paste {
		if len(cfg.Clipboard.Argv) == 0 {
			return nil, fmt.Errorf("clipboard_cmd must not be empty when output.paste=true")
		}
		if cfg.PasteCmd.Raw != "" && len(cfg.PasteCmd.Argv) == 0 {
			return nil, fmt.Errorf("paste_cmd is configured but empty")
		}
		if len(cfg.PasteCmd.Argv) == 0 && strings.TrimSpace(cfg.Output.Shortcut) == "" {
			return nil, fmt.Errorf("output.shortcut must not be empty when output.paste=true and paste_cmd is unset")
		}
	}

	if cfg.Vocab.MaxPhrases <= 0 {
		return nil, fmt.Errorf("vocab.max_phrases must be > 0")
	}
	_, vocabWarnings, err := BuildPhraseList(cfg)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, vocabWarnings...)

	return warnings, nil
}

// BuildPhraseList merges the enabled vocab sets into a sorted, de-duplicated
// phrase list for the recognizer.
func BuildPhraseList(cfg Config) ([]string, []Warning, error) {
	if len(cfg.Vocab.GlobalSets) == 0 {
		return nil, nil, nil
	}

	var warnings []Warning
	owner := make(map[string]string)
	for _, name := range cfg.Vocab.GlobalSets {
		set, ok := cfg.Vocab.Sets[name]
		if !ok {
			return nil, nil, fmt.Errorf("vocab.global references unknown set %q", name)
		}
		for _, phrase := range set.Phrases {
			phrase = strings.TrimSpace(phrase)
			if phrase == "" {
				continue
			}
			key := strings.ToLower(phrase)
			if first, seen := owner[key]; seen {
				if first != name {
					warnings = append(warnings, Warning{Message: fmt.Sprintf("phrase %q present in %q and %q", phrase, first, name)})
				}
				continue
			}
			owner[key] = name
		}
	}

	if len(owner) > cfg.Vocab.MaxPhrases {
		return nil, nil, fmt.Errorf("vocabulary phrase count %d exceeds vocab.max_phrases=%d", len(owner), cfg.Vocab.MaxPhrases)
	}

	phrases := make([]string, 0, len(owner))
	seen := make(map[string]struct{}, len(owner))
	for _, name := range cfg.Vocab.GlobalSets {
		for _, phrase := range cfg.Vocab.Sets[name].Phrases {
			phrase = strings.TrimSpace(phrase)
			key := strings.ToLower(phrase)
			if _, ok := owner[key]; !ok {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			phrases = append(phrases, phrase)
		}
	}
	sort.Strings(phrases)
	return phrases, warnings, nil
}
