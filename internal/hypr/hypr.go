// Package hypr wraps the hyprctl calls used for notifications and paste.
package hypr

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

func runHyprctl(ctx context.Context, args ...string) error {
	_, err := runHyprctlOutput(ctx, args...)
	return err
}

func runHyprctlOutput(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "hyprctl", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return nil, fmt.Errorf("hyprctl %v failed: %w", args, err)
		}
		return nil, fmt.Errorf("hyprctl %v failed: %w (%s)", args, err, trimmed)
	}
	return out, nil
}

// Available reports whether hyprctl can reach a running compositor.
func Available(ctx context.Context) error {
	_, err := runHyprctlOutput(ctx, "-j", "version")
	return err
}
