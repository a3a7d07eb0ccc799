// Package indicator shows listening, translating, and notice states on the
// desktop and plays short audio cues.
package indicator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/yatra/internal/config"
	"github.com/rbright/yatra/internal/hypr"
)

// Controller is the session-facing indicator contract.
type Controller interface {
	ShowListening(ctx context.Context, language string)
	ShowTranslating(ctx context.Context)
	ShowTranslation(ctx context.Context, text string)
	ShowFallback(ctx context.Context, language string)
	ShowNotice(ctx context.Context, text string)
	ShowError(ctx context.Context, text string)
	Hide(ctx context.Context)
}

// Notifier routes indicator output through Hyprland or freedesktop
// notifications according to the configured backend.
type Notifier struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages

	mu                    sync.Mutex
	desktopNotificationID uint32
	soundMu               sync.Mutex
}

// New creates an indicator controller from config.
func New(cfg config.IndicatorConfig, logger *slog.Logger) *Notifier {
	return &Notifier{
		cfg:      cfg,
		logger:   logger,
		messages: indicatorMessagesFromEnv(),
	}
}

// ShowListening signals capture start and emits the listening cue.
func (n *Notifier) ShowListening(ctx context.Context, language string) {
	n.playCue(cueListening)
	text := n.messages.listening
	if language = strings.TrimSpace(language); language != "" {
		text = fmt.Sprintf("%s (%s)", text, language)
	}
	n.show(ctx, 1, 300000, hypr.ColorInfo, text)
}

// ShowTranslating signals that the final transcript is being translated.
func (n *Notifier) ShowTranslating(ctx context.Context) {
	n.playCue(cueTranslating)
	n.show(ctx, 1, 300000, hypr.ColorWorking, n.messages.translating)
}

// ShowTranslation displays a finished translation and emits its cue.
func (n *Notifier) ShowTranslation(ctx context.Context, text string) {
	n.playCue(cueTranslated)
	n.show(ctx, 5, n.noticeTimeout(), hypr.ColorSuccess, text)
}

// ShowFallback discloses that a substitute speech language is in use.
func (n *Notifier) ShowFallback(ctx context.Context, language string) {
	n.show(ctx, 0, n.noticeTimeout(), hypr.ColorInfo, fmt.Sprintf(n.messages.fallback, language))
}

// ShowNotice displays an informational message.
func (n *Notifier) ShowNotice(ctx context.Context, text string) {
	n.show(ctx, 0, n.noticeTimeout(), hypr.ColorInfo, text)
}

// ShowError displays an error message and emits the failure cue.
func (n *Notifier) ShowError(ctx context.Context, text string) {
	n.playCue(cueFailed)
	if text == "" {
		text = n.messages.errorText
	}
	timeout := n.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = 1200
	}
	n.show(ctx, 3, timeout, hypr.ColorError, text)
}

// Hide dismisses the active indicator surface.
func (n *Notifier) Hide(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, n.dismiss)
}

func (n *Notifier) show(ctx context.Context, icon int, timeoutMS int, color string, text string) {
	if !n.cfg.Enable || strings.TrimSpace(text) == "" {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, icon, timeoutMS, color, text)
	})
}

func (n *Notifier) noticeTimeout() int {
	if n.cfg.NoticeTimeoutMS <= 0 {
		return 3000
	}
	return n.cfg.NoticeTimeoutMS
}

// notify dispatches indicator output through the configured backend.
func (n *Notifier) notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	if n.desktopBackend() {
		return n.notifyDesktop(ctx, timeoutMS, text)
	}
	return hypr.Notify(ctx, icon, timeoutMS, color, text)
}

// dismiss removes indicator output from the configured backend.
func (n *Notifier) dismiss(ctx context.Context) error {
	if n.desktopBackend() {
		return n.dismissDesktop(ctx)
	}
	return hypr.DismissNotify(ctx)
}

func (n *Notifier) desktopBackend() bool {
	return strings.EqualFold(strings.TrimSpace(n.cfg.Backend), "desktop")
}

// notifyDesktop replaces the previous desktop notification and stores the
// new ID.
func (n *Notifier) notifyDesktop(ctx context.Context, timeoutMS int, text string) error {
	n.mu.Lock()
	replaceID := n.desktopNotificationID
	n.mu.Unlock()

	appName := strings.TrimSpace(n.cfg.DesktopAppName)
	if appName == "" {
		appName = "yatra"
	}

	id, err := desktopNotify(ctx, notification{
		appName:   appName,
		replaceID: replaceID,
		summary:   text,
		timeoutMS: timeoutMS,
	})
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.desktopNotificationID = id
	n.mu.Unlock()
	return nil
}

// dismissDesktop closes the current desktop notification ID when present.
func (n *Notifier) dismissDesktop(ctx context.Context) error {
	n.mu.Lock()
	id := n.desktopNotificationID
	n.desktopNotificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run executes an indicator operation with a bounded timeout.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("indicator dispatch failed", err)
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (n *Notifier) playCue(c cue) {
	if !n.cfg.SoundEnable {
		return
	}
	go func() {
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
		defer cancel()
		if err := playCueSound(ctx, c, n.cfg.SoundCues); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}()
}

// log emits debug-only indicator failures to the runtime logger.
func (n *Notifier) log(message string, err error) {
	if n.logger == nil || err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}
