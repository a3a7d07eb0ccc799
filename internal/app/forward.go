package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/rbright/yatra/internal/cli"
	"github.com/rbright/yatra/internal/ipc"
)

const (
	// statusTimeout bounds a status query; an owner that cannot answer in
	// this window is reported as unreachable.
	statusTimeout = 220 * time.Millisecond
	// commandTimeout covers a release that finalizes recognition and then
	// waits on translation.
	commandTimeout = 45 * time.Second
)

// forward sends a parsed command to the running owner and prints the reply.
func (r Runner) forward(ctx context.Context, parsed cli.Parsed) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		if parsed.Command == cli.CommandStatus {
			fmt.Fprintln(r.Stdout, "idle")
			return 0
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	req := ipc.Request{
		Command: string(parsed.Command),
		Text:    parsed.Text,
		From:    parsed.From,
		To:      parsed.To,
		ID:      parsed.ID,
		Focus:   parsed.Focus,
	}
	timeout := commandTimeout
	if parsed.Command == cli.CommandStatus {
		timeout = statusTimeout
	}

	resp, handled, err := tryForward(ctx, socketPath, req, timeout)
	if !handled {
		if parsed.Command == cli.CommandStatus {
			fmt.Fprintln(r.Stdout, "idle")
			return 0
		}
		fmt.Fprintf(r.Stderr, "error: no running yatra owner (start one with `yatra run`)\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	r.printResponse(parsed.Command, resp)
	return 0
}

func (r Runner) printResponse(command cli.Command, resp ipc.Response) {
	switch command {
	case cli.CommandStatus:
		state := resp.State
		if state == "" {
			state = "idle"
		}
		if resp.Source == "" && resp.Target == "" {
			fmt.Fprintln(r.Stdout, state)
			return
		}
		fmt.Fprintf(r.Stdout, "%s (%s -> %s)\n", state, resp.Source, resp.Target)
		if resp.Transcript != "" {
			fmt.Fprintln(r.Stdout, resp.Transcript)
		}
	case cli.CommandHistory:
		if len(resp.Entries) == 0 {
			fmt.Fprintln(r.Stdout, "no translations yet")
			return
		}
		for _, entry := range resp.Entries {
			fmt.Fprintln(r.Stdout, formatEntry(entry))
		}
	case cli.CommandRelease, cli.CommandStop, cli.CommandTranslate, cli.CommandRetranslate:
		if len(resp.Entries) == 0 {
			if resp.Message != "" {
				fmt.Fprintln(r.Stdout, resp.Message)
			}
			return
		}
		for _, entry := range resp.Entries {
			fmt.Fprintln(r.Stdout, entry.TranslatedText)
		}
	default:
		if resp.Message != "" {
			fmt.Fprintln(r.Stdout, resp.Message)
		}
	}
}

func formatEntry(entry ipc.Entry) string {
	marker := ""
	if entry.Failed {
		marker = " (failed)"
	}
	return fmt.Sprintf("%d [%s -> %s]%s %s => %s",
		entry.ID,
		entry.OriginalLanguage,
		entry.TargetLanguage,
		marker,
		strings.TrimSpace(entry.OriginalText),
		strings.TrimSpace(entry.TranslatedText),
	)
}

func tryForward(ctx context.Context, socketPath string, req ipc.Request, timeout time.Duration) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, timeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) {
		return ipc.Response{}, false, nil
	}
	if isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
