package config

import (
	"fmt"
	"strings"
)

// Parse reads JSONC configuration content over base and validates the result.
func Parse(content string, base Config) (Config, []Warning, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		warnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, warnings, nil
	}

	if !strings.HasPrefix(trimmed, "{") {
		return Config{}, nil, fmt.Errorf("config must be a JSONC object")
	}
	return parseJSONC(content, base)
}
