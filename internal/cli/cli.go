// Package cli parses yatra command lines.
package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Command string

const (
	CommandRun          Command = "run"
	CommandServe        Command = "serve"
	CommandPress        Command = "press"
	CommandRelease      Command = "release"
	CommandStop         Command = "stop"
	CommandStatus       Command = "status"
	CommandTranslate    Command = "translate"
	CommandRetranslate  Command = "retranslate"
	CommandDetect       Command = "detect"
	CommandAlternatives Command = "alternatives"
	CommandHistory      Command = "history"
	CommandSpeak        Command = "speak"
	CommandCopy         Command = "copy"
	CommandSource       Command = "source"
	CommandTarget       Command = "target"
	CommandSwap         Command = "swap"
	CommandLanguages    Command = "languages"
	CommandQuit         Command = "quit"
	CommandDevices      Command = "devices"
	CommandDoctor       Command = "doctor"
	CommandVersion      Command = "version"
	CommandHelp         Command = "help"
)

type arity int

const (
	argsNone arity = iota
	argsOne
	argsText
)

// usage describes what may follow a command.
type usage struct {
	args  arity
	flags []string
}

var commands = map[Command]usage{
	CommandRun:          {},
	CommandServe:        {},
	CommandPress:        {flags: []string{"--focus"}},
	CommandRelease:      {flags: []string{"--focus"}},
	CommandStop:         {},
	CommandStatus:       {},
	CommandTranslate:    {args: argsText, flags: []string{"--from", "--to"}},
	CommandRetranslate:  {flags: []string{"--id", "--to"}},
	CommandDetect:       {args: argsText},
	CommandAlternatives: {flags: []string{"--id"}},
	CommandHistory:      {},
	CommandSpeak:        {flags: []string{"--id"}},
	CommandCopy:         {flags: []string{"--id"}},
	CommandSource:       {args: argsOne},
	CommandTarget:       {args: argsOne},
	CommandSwap:         {},
	CommandLanguages:    {},
	CommandQuit:         {},
	CommandDevices:      {},
	CommandDoctor:       {},
	CommandVersion:      {},
	CommandHelp:         {},
}

// Forwarded reports whether the command is served by the running owner.
func (c Command) Forwarded() bool {
	switch c {
	case CommandRun, CommandServe, CommandLanguages, CommandDevices, CommandDoctor, CommandVersion, CommandHelp:
		return false
	default:
		return true
	}
}

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool

	Text  string
	From  string
	To    string
	ID    int64
	Focus bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := commands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			if err := parseCommandArgs(&parsed, args[i+1:]); err != nil {
				return Parsed{}, err
			}
			return parsed, nil
		}
	}

	return parsed, nil
}

// parseCommandArgs reads the positional arguments and flags after a command.
func parseCommandArgs(parsed *Parsed, rest []string) error {
	s := commands[parsed.Command]
	var positional []string

	for i := 0; i < len(rest); i++ {
		arg := rest[i]
		if arg == "--" {
			positional = append(positional, rest[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "--") || len(arg) == 2 {
			positional = append(positional, arg)
			continue
		}

		name, value, hasValue := strings.Cut(arg, "=")
		if !allowsFlag(s, name) {
			return fmt.Errorf("flag %s is not valid for %q", name, parsed.Command)
		}
		if name == "--focus" {
			if hasValue {
				return errors.New("--focus takes no value")
			}
			parsed.Focus = true
			continue
		}
		if !hasValue {
			i++
			if i >= len(rest) {
				return fmt.Errorf("%s requires a value", name)
			}
			value = rest[i]
		}

		switch name {
		case "--from":
			parsed.From = strings.TrimSpace(value)
		case "--to":
			parsed.To = strings.TrimSpace(value)
		case "--id":
			id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("--id must be a positive integer, got %q", value)
			}
			parsed.ID = id
		}
	}

	switch s.args {
	case argsNone:
		if len(positional) > 0 {
			return fmt.Errorf("unexpected arguments after command %q", parsed.Command)
		}
	case argsOne:
		if len(positional) != 1 {
			return fmt.Errorf("%q requires exactly one language code", parsed.Command)
		}
		parsed.Text = strings.TrimSpace(positional[0])
	case argsText:
		parsed.Text = strings.TrimSpace(strings.Join(positional, " "))
		if parsed.Text == "" {
			return fmt.Errorf("%q requires text", parsed.Command)
		}
	}
	return nil
}

func allowsFlag(s usage, name string) bool {
	for _, flag := range s.flags {
		if flag == name {
			return true
		}
	}
	return false
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command> [args]

Owner:
  run                      Start the owner process (capture, translation, playback)
  serve                    Start the translation proxy (HTTP + gRPC health)

Conversation (sent to the running owner):
  press [--focus]          Start listening (bind to key down)
  release [--focus]        Stop listening and translate (bind to key up)
  stop                     Stop listening and translate
  status                   Print state and selected languages
  translate [--from CODE] [--to CODE] TEXT
                           Translate typed text
  retranslate [--id N] [--to CODE]
                           Translate an entry again into another language
  detect TEXT              Identify the language of TEXT
  alternatives [--id N]    Show other renderings of an entry
  history                  Print the conversation
  speak [--id N]           Speak an entry's translation again
  copy [--id N]            Copy an entry's translation to the clipboard
  source CODE              Select the source language (auto to detect)
  target CODE              Select the target language
  swap                     Swap source and target languages
  quit                     Stop the owner process

Local:
  languages                List supported language codes
  devices                  List available input devices
  doctor                   Run configuration and environment checks
  version                  Print version information
  help                     Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/yatra/config.jsonc)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
