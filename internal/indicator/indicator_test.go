package indicator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/yatra/internal/config"
)

func TestNotifierDispatchesHyprNotifications(t *testing.T) {
	t.Setenv("LANG", "en_US.UTF-8")
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installStub(t, "hyprctl", `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	cfg := config.Default().Indicator
	cfg.SoundEnable = false
	cfg.Enable = true

	notify := New(cfg, nil)
	notify.ShowListening(context.Background(), "Hindi")
	notify.ShowFallback(context.Background(), "Hindi")
	notify.ShowTranslating(context.Background())
	notify.ShowTranslation(context.Background(), "स्टेशन कहाँ है?")
	notify.ShowError(context.Background(), "")
	notify.Hide(context.Background())

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Equal(t, []string{
		"--quiet dispatch notify 1 300000 rgb(89b4fa) Listening… (Hindi)",
		"--quiet dispatch notify 0 3000 rgb(89b4fa) Using Hindi speech recognition for better results",
		"--quiet dispatch notify 1 300000 rgb(cba6f7) Translating…",
		"--quiet dispatch notify 5 3000 rgb(a6e3a1) स्टेशन कहाँ है?",
		"--quiet dispatch notify 3 1600 rgb(f38ba8) Translation failed",
		"--quiet dispatch dismissnotify",
	}, lines)
}

func TestShowErrorUsesProvidedTextAndDefaultTimeout(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installStub(t, "hyprctl", `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	cfg := config.Default().Indicator
	cfg.SoundEnable = false
	cfg.ErrorTimeoutMS = 0

	notify := New(cfg, nil)
	notify.ShowError(context.Background(), "Proxy unreachable")

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	require.Equal(t, "--quiet dispatch notify 3 1200 rgb(f38ba8) Proxy unreachable\n", string(data))
}

func TestDisabledNotifierSkipsDispatch(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installStub(t, "hyprctl", `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	cfg := config.Default().Indicator
	cfg.Enable = false
	cfg.SoundEnable = false

	notify := New(cfg, nil)
	notify.ShowListening(context.Background(), "English")
	notify.ShowNotice(context.Background(), "ignored")
	notify.ShowError(context.Background(), "ignored")
	notify.Hide(context.Background())

	_, err := os.Stat(argsFile)
	require.True(t, os.IsNotExist(err))
}

func TestDesktopBackendReplacesAndClosesNotification(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installStub(t, "busctl", `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
if [[ "$*" == *" Notify "* ]]; then
  echo 'u 42'
fi
`)

	cfg := config.Default().Indicator
	cfg.Enable = true
	cfg.SoundEnable = false
	cfg.Backend = "desktop"

	notify := New(cfg, nil)
	notify.ShowNotice(context.Background(), "first")
	notify.ShowNotice(context.Background(), "second")
	notify.Hide(context.Background())
	notify.Hide(context.Background())

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "Notify susssasa{sv}i yatra 0 accessories-dictionary first")
	require.Contains(t, lines[1], "Notify susssasa{sv}i yatra 42 accessories-dictionary second")
	require.True(t, strings.HasSuffix(lines[2], "CloseNotification u 42"))
}

func TestDesktopNotifyRejectsMalformedReply(t *testing.T) {
	installStub(t, "busctl", `
echo 'garbage'
`)
	_, err := desktopNotify(context.Background(), notification{appName: "yatra", summary: "x"})
	require.ErrorContains(t, err, "invalid response")
}

func installStub(t *testing.T, name string, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, name)
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}
