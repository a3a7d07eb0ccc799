package doctor

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rbright/yatra/internal/config"
	"github.com/rbright/yatra/internal/gateway"
	"github.com/rbright/yatra/internal/server"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestReportOKAllPassing(t *testing.T) {
	report := Report{Checks: []Check{{Name: "one", Pass: true}, {Name: "two", Pass: true}}}
	require.True(t, report.OK())
}

func TestCheckEnv(t *testing.T) {
	t.Setenv("TEST_DOCTOR_ENV", "wayland")

	check := checkEnv(
		"TEST_DOCTOR_ENV",
		func(v string) bool { return strings.EqualFold(v, "wayland") },
		"looks good",
		"unexpected",
	)

	require.True(t, check.Pass)
	require.Equal(t, "looks good", check.Message)
}

func TestCheckCredentials(t *testing.T) {
	check := checkCredentials(config.AzureConfig{TranslatorKey: "k"}, "/tmp/yatra/.env")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, config.EnvSpeechKey)
	require.Contains(t, check.Message, config.EnvSpeechRegion)
	require.NotContains(t, check.Message, config.EnvTranslatorKey)
	require.Contains(t, check.Message, "/tmp/yatra/.env")

	check = checkCredentials(config.AzureConfig{TranslatorKey: "k", SpeechKey: "s", SpeechRegion: "centralindia"}, "")
	require.True(t, check.Pass)
}

func TestCheckCommandEmpty(t *testing.T) {
	check := checkCommand(nil, "clipboard_cmd")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "command is empty")
}

func TestCheckBinaryFound(t *testing.T) {
	check := checkBinary("sh", "shell available")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "shell available")
}

func TestCheckBinaryMissing(t *testing.T) {
	check := checkBinary("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckCommandUsesBinaryFromPath(t *testing.T) {
	installStub(t, "fake-bin", "exit 0")

	check := checkCommand([]string{"fake-bin", "--arg"}, "clipboard_cmd")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "clipboard_cmd command is available")
}

func TestCheckHyprland(t *testing.T) {
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "")
	check := checkHyprland(context.Background())
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "HYPRLAND_INSTANCE_SIGNATURE")

	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "abc123")
	installStub(t, "hyprctl", `echo '{"version":"0.45.0"}'`)
	check = checkHyprland(context.Background())
	require.True(t, check.Pass)
}

func TestCheckProxy(t *testing.T) {
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/health", r.URL.Path)
		_, _ = io.WriteString(w, `{"status":"OK","message":"Server is running"}`)
	}))
	t.Cleanup(proxy.Close)

	check := checkProxy(context.Background(), gateway.New(proxy.URL, proxy.Client()))
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "ready at")
}

func TestCheckProxyFailureStatusCode(t *testing.T) {
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(proxy.Close)

	check := checkProxy(context.Background(), gateway.New(proxy.URL, proxy.Client()))
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "503")
}

func TestCheckHealthService(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	healthServer := health.NewServer()
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	go func() { _ = grpcServer.Serve(listener) }()
	t.Cleanup(grpcServer.Stop)

	healthServer.SetServingStatus(server.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	check := checkHealthService(context.Background(), listener.Addr().String())
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "NOT_SERVING")

	healthServer.SetServingStatus(server.ServiceName, healthpb.HealthCheckResponse_SERVING)
	check = checkHealthService(context.Background(), listener.Addr().String())
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "serving at")
}

func TestCheckHealthServiceUnreachable(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	check := checkHealthService(context.Background(), addr)
	require.False(t, check.Pass)
	require.Equal(t, "proxy.grpc", check.Name)
}

func TestCheckAudioSelectionFailureWithInvalidPulseServer(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	check := checkAudioSelection(context.Background(), config.Default())
	require.False(t, check.Pass)
	require.Equal(t, "audio.source", check.Name)
}

func TestRunUsesPasteCmdOverrideCheck(t *testing.T) {
	fakePaste := installStub(t, "fake-paste", "exit 0")
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	t.Setenv("XDG_SESSION_TYPE", "wayland")

	cfg := config.Default()
	cfg.Indicator.Enable = false
	cfg.Output.Paste = true
	cfg.PasteCmd = config.CommandConfig{Raw: fakePaste, Argv: []string{"fake-paste"}}
	cfg.ProxyURL = unusedURL(t)
	cfg.Serve.GRPCAddr = ""

	report := Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Config: cfg})
	names := checkNames(report)
	require.Contains(t, names, "fake-paste")
	require.Contains(t, names, "clipboard_cmd")
	require.NotContains(t, names, "hyprctl")
	require.NotContains(t, names, "hyprland")
	require.NotContains(t, names, "proxy.grpc")
	require.Contains(t, names, "proxy.http")
	require.False(t, report.OK())
}

func TestRunUsesHyprctlWhenPasteCmdUnset(t *testing.T) {
	installStub(t, "hyprctl", "exit 0")
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	t.Setenv("XDG_SESSION_TYPE", "wayland")
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "abc123")

	cfg := config.Default()
	cfg.Output.Paste = true
	cfg.PasteCmd = config.CommandConfig{}
	cfg.ProxyURL = unusedURL(t)
	cfg.Serve.GRPCAddr = ""

	report := Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Config: cfg})
	names := checkNames(report)
	require.Contains(t, names, "hyprctl")
	require.Contains(t, names, "hyprland")
}

func TestRunSkipsClipboardWhenOutputDisabled(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	cfg := config.Default()
	cfg.Indicator.Enable = false
	cfg.ProxyURL = unusedURL(t)
	cfg.Serve.GRPCAddr = ""

	report := Run(context.Background(), config.Loaded{Path: "/tmp/missing.jsonc", Config: cfg})
	names := checkNames(report)
	require.NotContains(t, names, "clipboard_cmd")
	require.Equal(t, "config", report.Checks[0].Name)
	require.Contains(t, report.Checks[0].Message, "using defaults")
}

func installStub(t *testing.T, name string, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/usr/bin/env sh\n"+body+"\n"), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
	return path
}

func unusedURL(t *testing.T) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())
	return "http://" + addr
}

func checkNames(report Report) []string {
	names := make([]string, 0, len(report.Checks))
	for _, check := range report.Checks {
		names = append(names, check.Name)
	}
	return names
}
