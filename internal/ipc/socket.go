package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// SocketName is the owner socket's file name under XDG_RUNTIME_DIR.
const SocketName = "yatra.sock"

// ErrAlreadyRunning is returned by Acquire when a live owner holds the socket.
var ErrAlreadyRunning = errors.New("yatra owner already running")

// RuntimeSocketPath returns the owner socket under XDG_RUNTIME_DIR.
func RuntimeSocketPath() (string, error) {
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(runtimeDir, SocketName), nil
}

// AcquireOptions tune how Acquire treats an existing socket file.
type AcquireOptions struct {
	// ProbeTimeout bounds the status roundtrip used to detect a live owner.
	ProbeTimeout time.Duration
	// Retries is how many times a stale socket is cleared before giving up.
	Retries int
	// OnStale is told about every stale socket file that was removed.
	OnStale func(path string)
}

// Acquire listens on path. A socket file left by a dead owner is removed;
// a live owner yields ErrAlreadyRunning. A socket that accepts but never
// answers is left alone.
func Acquire(ctx context.Context, path string, opts AcquireOptions) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	for attempt := 0; ; attempt++ {
		listener, err := net.Listen("unix", path)
		if err == nil {
			_ = os.Chmod(path, 0o600)
			return listener, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("listen unix %s: %w", path, err)
		}
		alive, probeErr := Probe(ctx, path, opts.ProbeTimeout)
		if alive {
			return nil, ErrAlreadyRunning
		}
		if probeErr != nil {
			return nil, fmt.Errorf("probe existing socket %s: %w", path, probeErr)
		}

		if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket %s: %w", path, removeErr)
		}
		if opts.OnStale != nil {
			opts.OnStale(path)
		}
		if attempt >= opts.Retries {
			return nil, fmt.Errorf("failed to acquire socket %s after %d retries", path, opts.Retries)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(25*(attempt+1)) * time.Millisecond):
		}
	}
}
