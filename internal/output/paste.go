package output

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rbright/yatra/internal/hypr"
)

const (
	windowQueryAttempts = 5
	windowQueryDelay    = 10 * time.Millisecond
)

// errNoWindow is returned when Hyprland reports no focused client.
var errNoWindow = errors.New("no focused window")

// defaultPaste sends the paste shortcut to the focused window and returns
// the window it targeted.
func defaultPaste(ctx context.Context, shortcut string) (hypr.ActiveWindow, error) {
	shortcut = strings.TrimSpace(shortcut)
	if shortcut == "" {
		return hypr.ActiveWindow{}, errors.New("paste shortcut cannot be empty")
	}

	window, err := focusedWindow(ctx, windowQueryAttempts, windowQueryDelay)
	if err != nil {
		return hypr.ActiveWindow{}, err
	}
	return window, hypr.SendShortcut(ctx, shortcutFor(shortcut, window))
}

// shortcutFor binds a shortcut like "CTRL,V" to one window so focus changes
// during delivery cannot redirect the paste.
func shortcutFor(shortcut string, window hypr.ActiveWindow) string {
	return fmt.Sprintf("%s,address:%s", shortcut, window.Address)
}

// focusedWindow polls Hyprland for the focused window. Focus can be briefly
// empty right after a key release, so the query is retried.
func focusedWindow(ctx context.Context, attempts int, delay time.Duration) (hypr.ActiveWindow, error) {
	lastErr := errNoWindow
	for i := range max(attempts, 1) {
		if i > 0 {
			select {
			case <-ctx.Done():
				return hypr.ActiveWindow{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		window, err := hypr.QueryActiveWindow(ctx)
		switch {
		case err != nil:
			lastErr = err
		case strings.TrimSpace(window.Address) == "":
			lastErr = errNoWindow
		default:
			return window, nil
		}
		if ctx.Err() != nil {
			return hypr.ActiveWindow{}, ctx.Err()
		}
	}
	return hypr.ActiveWindow{}, fmt.Errorf("resolve focused window: %w", lastErr)
}
