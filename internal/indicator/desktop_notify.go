package indicator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// notification is one freedesktop Notify call.
type notification struct {
	appName   string
	replaceID uint32
	summary   string
	body      string
	timeoutMS int
}

// desktopNotify sends a freedesktop notification over DBus via busctl.
// It returns the notification ID assigned by the server.
func desktopNotify(ctx context.Context, n notification) (uint32, error) {
	args := []string{
		"--user",
		"call",
		"org.freedesktop.Notifications",
		"/org/freedesktop/Notifications",
		"org.freedesktop.Notifications",
		"Notify",
		"susssasa{sv}i",
		n.appName,
		strconv.FormatUint(uint64(n.replaceID), 10),
		"accessories-dictionary",
		n.summary,
		n.body,
		"0", // actions
		"0", // hints
		strconv.Itoa(n.timeoutMS),
	}

	out, err := exec.CommandContext(ctx, "busctl", args...).CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return 0, fmt.Errorf("desktop notify failed: %w", err)
		}
		return 0, fmt.Errorf("desktop notify failed: %w (%s)", err, trimmed)
	}

	fields := strings.Fields(strings.TrimSpace(string(out)))
	if len(fields) < 2 || fields[0] != "u" {
		return 0, fmt.Errorf("desktop notify invalid response: %q", strings.TrimSpace(string(out)))
	}

	value, parseErr := strconv.ParseUint(fields[1], 10, 32)
	if parseErr != nil {
		return 0, fmt.Errorf("desktop notify parse id %q: %w", fields[1], parseErr)
	}
	return uint32(value), nil
}

// desktopDismiss requests explicit close by notification ID.
func desktopDismiss(ctx context.Context, id uint32) error {
	args := []string{
		"--user",
		"call",
		"org.freedesktop.Notifications",
		"/org/freedesktop/Notifications",
		"org.freedesktop.Notifications",
		"CloseNotification",
		"u",
		strconv.FormatUint(uint64(id), 10),
	}

	out, err := exec.CommandContext(ctx, "busctl", args...).CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return fmt.Errorf("desktop dismiss failed: %w", err)
		}
		return fmt.Errorf("desktop dismiss failed: %w (%s)", err, trimmed)
	}

	return nil
}
