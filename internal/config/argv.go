package config

import (
	"fmt"
	"strings"
	"unicode"
)

// parseArgv splits a command line with shell-like quoting. A line starting
// with # is treated as unset.
func parseArgv(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.HasPrefix(input, "#") {
		return nil, nil
	}

	var (
		argv  []string
		word  strings.Builder
		open  bool
		quote rune
	)
	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\\':
			if i+1 == len(runes) {
				return nil, fmt.Errorf("unterminated escape sequence in command: %q", input)
			}
			i++
			word.WriteRune(runes[i])
			open = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				word.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			open = true
		case unicode.IsSpace(r):
			if open {
				argv = append(argv, word.String())
				word.Reset()
				open = false
			}
		default:
			word.WriteRune(r)
			open = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote in command: %q", input)
	}
	if open {
		argv = append(argv, word.String())
	}
	return argv, nil
}

func mustParseArgv(input string) []string {
	argv, err := parseArgv(input)
	if err != nil {
		panic(err)
	}
	return argv
}
