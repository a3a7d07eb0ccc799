package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/rbright/yatra/internal/audio"
	"github.com/rbright/yatra/internal/azure"
	"github.com/rbright/yatra/internal/capture"
	"github.com/rbright/yatra/internal/config"
	"github.com/rbright/yatra/internal/conversation"
	"github.com/rbright/yatra/internal/events"
	"github.com/rbright/yatra/internal/gateway"
	"github.com/rbright/yatra/internal/indicator"
	"github.com/rbright/yatra/internal/ipc"
	"github.com/rbright/yatra/internal/lang"
	"github.com/rbright/yatra/internal/output"
	"github.com/rbright/yatra/internal/pipeline"
	"github.com/rbright/yatra/internal/playback"
	"github.com/rbright/yatra/internal/session"
)

// commandRun becomes the owner: it holds the socket, the controllers, and
// the conversation until quit or a signal.
func (r Runner) commandRun(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, ipc.AcquireOptions{
		ProbeTimeout: 180 * time.Millisecond,
		Retries:      8,
		OnStale: func(path string) {
			logger.Warn("removed stale owner socket", "socket", path)
		},
	})
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: yatra owner already running; use `yatra quit` to stop it")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	coordinator, err := newCoordinator(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("owner setup failed", "error", err.Error())
		return 1
	}

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, ipc.HandlerFunc(coordinator.Handle))
	}()

	logger.Info("owner ready", "socket", socketPath, "proxy", cfg.ProxyURL)
	fmt.Fprintf(r.Stdout, "yatra listening on %s\n", socketPath)

	runErr := coordinator.Run(ctx)
	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}
	if runErr != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", runErr)
		return 1
	}
	return 0
}

// newCoordinator wires capture, translation, playback, and desktop output
// against the proxy at cfg.ProxyURL.
func newCoordinator(ctx context.Context, cfg config.Config, logger *slog.Logger) (*session.Coordinator, error) {
	phrases, _, err := config.BuildPhraseList(cfg)
	if err != nil {
		return nil, err
	}

	indicatorCtl := indicator.New(cfg.Indicator, logger)
	observer := events.Fanout{
		events.LogObserver{Logger: logger},
		noticeObserver{indicator: indicatorCtl},
	}

	proxy := gateway.New(cfg.ProxyURL, nil)
	recognizer := &azure.Recognizer{
		Tokens:     proxy,
		SampleRate: audio.CaptureSampleRate,
		Phrases:    phrases,
	}

	captureCtl := capture.NewController(logger, pipeline.NewRecognition(cfg, logger, recognizer, observer), observer)
	captureCtl.SetInterimThreshold(cfg.Recognition.InterimThreshold)
	if err := captureCtl.SetLanguage(ctx, lang.Resolve(cfg.Languages.Source)); err != nil {
		return nil, fmt.Errorf("select source language: %w", err)
	}

	speaker := playback.NewController(logger, &azure.Synthesizer{Tokens: proxy}, audio.NewPlayer(), proxy, observer)
	speaker.SetGender(lang.Gender(cfg.Voice.Gender))

	return session.New(session.Options{
		Logger:       logger,
		Capture:      captureCtl,
		Conversation: conversation.NewOrchestrator(logger, proxy, observer),
		Speaker:      speaker,
		Output:       output.NewDeliverer(cfg, logger),
		Indicator:    indicatorCtl,
		Observer:     observer,
		Target:       lang.Resolve(cfg.Languages.Target),
		Speak:        cfg.Output.Speak,
	}), nil
}

// noticeObserver surfaces notice events on the indicator without blocking
// the reporting controller.
type noticeObserver struct {
	indicator interface {
		ShowNotice(ctx context.Context, text string)
	}
}

func (o noticeObserver) Observe(e events.Event) {
	if e.Kind != events.KindNotice || e.Message == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		o.indicator.ShowNotice(ctx, e.Message)
	}()
}
