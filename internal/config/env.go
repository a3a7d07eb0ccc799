package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment keys read by yatra.
const (
	EnvTranslatorKey      = "AZURE_TRANSLATOR_KEY"
	EnvTranslatorRegion   = "AZURE_TRANSLATOR_REGION"
	EnvTranslatorEndpoint = "AZURE_TRANSLATOR_ENDPOINT"
	EnvSpeechKey          = "AZURE_SPEECH_KEY"
	EnvSpeechRegion       = "AZURE_SPEECH_REGION"
	EnvSpeechEndpoint     = "AZURE_SPEECH_ENDPOINT"
	EnvPort               = "PORT"
	EnvProxyURL           = "YATRA_PROXY_URL"
)

// Env resolves a key to a value.
type Env func(key string) (string, bool)

// ReadEnv layers the process environment over the dotenv file at path. A
// missing file is not an error.
func ReadEnv(path string) (Env, error) {
	file, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read env file %q: %w", path, err)
		}
		file = map[string]string{}
	}
	return func(key string) (string, bool) {
		if value, ok := os.LookupEnv(key); ok {
			return value, true
		}
		value, ok := file[key]
		return value, ok
	}, nil
}

// ApplyEnv copies credentials and listener overrides into cfg.
func ApplyEnv(cfg *Config, env Env) []Warning {
	if env == nil {
		return nil
	}
	get := func(key string) string {
		value, _ := env(key)
		return strings.TrimSpace(value)
	}

	cfg.Azure = AzureConfig{
		TranslatorKey:      get(EnvTranslatorKey),
		TranslatorRegion:   get(EnvTranslatorRegion),
		TranslatorEndpoint: get(EnvTranslatorEndpoint),
		SpeechKey:          get(EnvSpeechKey),
		SpeechRegion:       get(EnvSpeechRegion),
		SpeechEndpoint:     get(EnvSpeechEndpoint),
	}

	var warnings []Warning
	if port := get(EnvPort); port != "" {
		cfg.Serve.HTTPAddr = ":" + strings.TrimPrefix(port, ":")
	}
	if proxy := get(EnvProxyURL); proxy != "" {
		cfg.ProxyURL = proxy
	}
	if cfg.Azure.SpeechKey != "" && cfg.Azure.SpeechRegion == "" && cfg.Azure.SpeechEndpoint == "" {
		warnings = append(warnings, Warning{Message: EnvSpeechKey + " is set without " + EnvSpeechRegion})
	}
	return warnings
}

// MissingCredentials lists the environment keys `yatra serve` needs but
// does not have.
func (a AzureConfig) MissingCredentials() []string {
	var missing []string
	if a.TranslatorKey == "" {
		missing = append(missing, EnvTranslatorKey)
	}
	if a.SpeechKey == "" {
		missing = append(missing, EnvSpeechKey)
	}
	if a.SpeechRegion == "" {
		missing = append(missing, EnvSpeechRegion)
	}
	return missing
}
