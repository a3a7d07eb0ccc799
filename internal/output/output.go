// Package output hands finished translations to the desktop: clipboard copy
// and an optional paste into the focused window.
package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/yatra/internal/config"
)

// ErrNoClipboard is returned when a copy is requested without a clipboard command.
var ErrNoClipboard = errors.New("clipboard command not configured")

// Deliverer applies the configured output actions to translated text.
type Deliverer struct {
	config config.Config
	logger *slog.Logger
}

// NewDeliverer constructs a deliverer from runtime config.
func NewDeliverer(cfg config.Config, logger *slog.Logger) *Deliverer {
	return &Deliverer{config: cfg, logger: logger}
}

// Enabled reports whether any automatic output action is configured.
func (d *Deliverer) Enabled() bool {
	return d.config.Output.Copy || d.config.Output.Paste
}

// Deliver copies text when output.copy or output.paste is set, then pastes
// when output.paste is set. Paste failures are logged; the clipboard keeps
// the text.
func (d *Deliverer) Deliver(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" || !d.Enabled() {
		return nil
	}

	if err := d.Copy(ctx, text); err != nil {
		return err
	}
	if !d.config.Output.Paste {
		return nil
	}

	if len(d.config.PasteCmd.Argv) > 0 {
		pasteCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := runCommandWithInput(pasteCtx, d.config.PasteCmd.Argv, ""); err != nil {
			d.logPasteFailure(err)
		}
		return nil
	}

	pasteCtx, cancel := context.WithTimeout(ctx, 1200*time.Millisecond)
	defer cancel()
	window, err := defaultPaste(pasteCtx, d.config.Output.Shortcut)
	if err != nil {
		d.logPasteFailure(err)
		return nil
	}
	if d.logger != nil {
		d.logger.Debug("translation pasted", "window_class", window.Class)
	}
	return nil
}

// Copy writes text to the clipboard regardless of output settings.
func (d *Deliverer) Copy(ctx context.Context, text string) error {
	if len(d.config.Clipboard.Argv) == 0 {
		return ErrNoClipboard
	}
	copyCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := runCommandWithInput(copyCtx, d.config.Clipboard.Argv, text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	return nil
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}

func (d *Deliverer) logPasteFailure(err error) {
	if d.logger == nil || err == nil {
		return
	}
	d.logger.Error("paste dispatch failed; clipboard keeps the translation", "error", err.Error())
}
