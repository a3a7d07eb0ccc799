// Package doctor runs readiness diagnostics for config, credentials, the
// translation proxy, tools, and audio.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/yatra/internal/audio"
	"github.com/rbright/yatra/internal/config"
	"github.com/rbright/yatra/internal/gateway"
	"github.com/rbright/yatra/internal/hypr"
)

const probeTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{}

	configMessage := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		configMessage = fmt.Sprintf("%q not found; using defaults", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: configMessage})
	checks = append(checks, checkCredentials(cfg.Config.Azure, cfg.EnvPath))

	checks = append(checks, checkEnv("XDG_SESSION_TYPE", func(v string) bool {
		return strings.EqualFold(strings.TrimSpace(v), "wayland")
	}, "session type is wayland", "expected XDG_SESSION_TYPE=wayland"))

	if cfg.Config.Indicator.Enable && cfg.Config.Indicator.Backend != "desktop" {
		checks = append(checks, checkHyprland(ctx))
	}

	if cfg.Config.Output.Copy || cfg.Config.Output.Paste {
		checks = append(checks, checkCommand(cfg.Config.Clipboard.Argv, "clipboard_cmd"))
	}
	if cfg.Config.Output.Paste {
		if len(cfg.Config.PasteCmd.Argv) > 0 {
			checks = append(checks, checkCommand(cfg.Config.PasteCmd.Argv, "paste_cmd"))
		} else {
			checks = append(checks, checkBinary("hyprctl", "default paste path requires hyprctl"))
		}
	}

	checks = append(checks, checkAudioSelection(ctx, cfg.Config))
	checks = append(checks, checkProxy(ctx, gateway.New(cfg.Config.ProxyURL, nil)))
	if addr := strings.TrimSpace(cfg.Config.Serve.GRPCAddr); addr != "" {
		checks = append(checks, checkHealthService(ctx, addr))
	}

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCredentials reports the cloud keys the proxy needs.
func checkCredentials(azure config.AzureConfig, envPath string) Check {
	missing := azure.MissingCredentials()
	if len(missing) == 0 {
		return Check{Name: "azure.credentials", Pass: true, Message: "translator and speech keys set"}
	}
	return Check{
		Name:    "azure.credentials",
		Pass:    false,
		Message: fmt.Sprintf("missing %s (environment or %s)", strings.Join(missing, ", "), envPath),
	}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

func checkHyprland(ctx context.Context) Check {
	if strings.TrimSpace(os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")) == "" {
		return Check{Name: "hyprland", Pass: false, Message: "HYPRLAND_INSTANCE_SIGNATURE is empty"}
	}
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := hypr.Available(probeCtx); err != nil {
		return Check{Name: "hyprland", Pass: false, Message: err.Error()}
	}
	return Check{Name: "hyprland", Pass: true, Message: "hyprctl responds"}
}

// checkAudioSelection runs live source selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectSource(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.source", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Source.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.source", Pass: true, Message: message}
}

// checkProxy queries the proxy's HTTP health route.
func checkProxy(ctx context.Context, client *gateway.Client) Check {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	health, err := client.Health(probeCtx)
	if err != nil {
		return Check{Name: "proxy.http", Pass: false, Message: err.Error()}
	}
	if !strings.EqualFold(health.Status, "ok") {
		return Check{Name: "proxy.http", Pass: false, Message: fmt.Sprintf("status %q from %s", health.Status, client.BaseURL())}
	}
	return Check{Name: "proxy.http", Pass: true, Message: fmt.Sprintf("ready at %s", client.BaseURL())}
}
