// Package app dispatches parsed commands: owner and proxy processes run
// locally, everything else is forwarded to the running owner.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/rbright/yatra/internal/audio"
	"github.com/rbright/yatra/internal/cli"
	"github.com/rbright/yatra/internal/config"
	"github.com/rbright/yatra/internal/doctor"
	"github.com/rbright/yatra/internal/lang"
	"github.com/rbright/yatra/internal/logging"
	"github.com/rbright/yatra/internal/version"
)

const binaryName = "yatra"

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	switch {
	case parsed.ShowHelp:
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	case parsed.Command == cli.CommandVersion:
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	case parsed.Command == cli.CommandLanguages:
		return r.commandLanguages()
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	if parsed.Command.Forwarded() {
		logger.Debug("forward command", "command", parsed.Command)
		return r.forward(ctx, parsed)
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandServe:
		return r.commandServe(ctx, cfgLoaded.Config, logger)
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandLanguages() int {
	for _, language := range lang.Catalog() {
		voice := " "
		if lang.HasCuratedVoice(language.Code) {
			voice = "*"
		}
		fmt.Fprintf(r.Stdout, "%s %-8s %s\n", voice, language.Code, language.Name)
	}
	return 0
}

func (r Runner) commandDevices(ctx context.Context) int {
	sources, err := audio.ListSources(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(sources) == 0 {
		fmt.Fprintln(r.Stdout, "no audio input sources found")
		return 1
	}

	for _, source := range sources {
		defaultMark := " "
		if source.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !source.Available {
			availability = "no"
		}
		muted := "no"
		if source.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			source.ID,
			source.Description,
			source.State,
			availability,
			muted,
		)
	}

	return 0
}
