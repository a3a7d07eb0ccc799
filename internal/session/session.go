// Package session coordinates one owner process: capture on the hold
// gesture, translation of the final transcript, output, and playback.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/yatra/internal/capture"
	"github.com/rbright/yatra/internal/conversation"
	"github.com/rbright/yatra/internal/events"
	"github.com/rbright/yatra/internal/fsm"
	"github.com/rbright/yatra/internal/lang"
)

const component = "session"

var (
	// ErrSpeaking is returned when capture is requested during playback.
	ErrSpeaking = errors.New("cannot listen while speaking")
	// ErrEmptyTranscript is returned when a capture ends without speech.
	ErrEmptyTranscript = errors.New("no speech detected")
	// ErrAutoTarget is returned when auto-detect is chosen as a target.
	ErrAutoTarget = errors.New("target language must be concrete")
)

// Capture is the session-facing subset of the capture controller.
type Capture interface {
	Press(ctx context.Context, g capture.Gesture) error
	Release(ctx context.Context, g capture.Gesture) (string, error)
	Stop(ctx context.Context) (string, error)
	SetLanguage(ctx context.Context, language lang.Language) error
	Snapshot() capture.Snapshot
	OnUpdate(fn func(capture.Snapshot))
	Close(ctx context.Context) error
}

// Conversation is the session-facing subset of the translation orchestrator.
type Conversation interface {
	Translate(ctx context.Context, text string, source lang.Language, target lang.Language) (conversation.Item, error)
	Retranslate(ctx context.Context, item conversation.Item, target lang.Language) (conversation.Item, error)
	Detect(ctx context.Context, text string) (lang.Language, error)
	Alternatives(ctx context.Context, item conversation.Item) []string
	History() []conversation.Item
	Get(id int64) (conversation.Item, error)
	Last() (conversation.Item, bool)
}

// Speaker is the session-facing subset of the playback controller.
type Speaker interface {
	Speak(ctx context.Context, text string, code string)
	Speaking() bool
	Close()
}

// Output delivers finished translations to the desktop.
type Output interface {
	Deliver(ctx context.Context, text string) error
	Copy(ctx context.Context, text string) error
}

// Indicator is the session-facing subset of indicator behavior.
type Indicator interface {
	ShowListening(ctx context.Context, language string)
	ShowTranslating(ctx context.Context)
	ShowTranslation(ctx context.Context, text string)
	ShowFallback(ctx context.Context, language string)
	ShowNotice(ctx context.Context, text string)
	ShowError(ctx context.Context, text string)
	Hide(ctx context.Context)
}

// noopIndicator preserves session flow when no indicator is wired.
type noopIndicator struct{}

func (noopIndicator) ShowListening(context.Context, string)   {}
func (noopIndicator) ShowTranslating(context.Context)         {}
func (noopIndicator) ShowTranslation(context.Context, string) {}
func (noopIndicator) ShowFallback(context.Context, string)    {}
func (noopIndicator) ShowNotice(context.Context, string)      {}
func (noopIndicator) ShowError(context.Context, string)       {}
func (noopIndicator) Hide(context.Context)                    {}

type noopOutput struct{}

func (noopOutput) Deliver(context.Context, string) error { return nil }
func (noopOutput) Copy(context.Context, string) error    { return errors.New("clipboard output not configured") }

// Options are the coordinator's collaborators. Capture and Conversation are
// required.
type Options struct {
	Logger       *slog.Logger
	Capture      Capture
	Conversation Conversation
	Speaker      Speaker
	Output       Output
	Indicator    Indicator
	Observer     events.Observer
	Target       lang.Language
	// Speak enables automatic playback of each translation.
	Speak bool
}

// Result is the outcome of one utterance, from release to translation.
type Result struct {
	Transcript string
	Item       conversation.Item
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Coordinator routes owner commands to the controllers.
type Coordinator struct {
	logger       *slog.Logger
	capture      Capture
	conversation Conversation
	speaker      Speaker
	output       Output
	indicator    Indicator
	observer     events.Observer
	speak        bool

	mu          sync.RWMutex
	target      lang.Language
	translating int
	captureErr  error

	quitOnce sync.Once
	quit     chan struct{}
}

// New constructs a coordinator with safe defaults for optional collaborators.
func New(opts Options) *Coordinator {
	if opts.Indicator == nil {
		opts.Indicator = noopIndicator{}
	}
	if opts.Output == nil {
		opts.Output = noopOutput{}
	}
	if opts.Observer == nil {
		opts.Observer = events.Nop{}
	}
	if strings.TrimSpace(opts.Target.Code) == "" {
		opts.Target = lang.Resolve("hi")
	}

	c := &Coordinator{
		logger:       opts.Logger,
		capture:      opts.Capture,
		conversation: opts.Conversation,
		speaker:      opts.Speaker,
		output:       opts.Output,
		indicator:    opts.Indicator,
		observer:     opts.Observer,
		speak:        opts.Speak,
		target:       opts.Target,
		quit:         make(chan struct{}),
	}
	opts.Capture.OnUpdate(c.onCaptureUpdate)
	return c
}

// Run blocks until ctx is cancelled or a quit command arrives, then closes
// the capture and playback controllers.
func (c *Coordinator) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
	case <-c.quit:
	}

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	err := c.capture.Close(cleanupCtx)
	if c.speaker != nil {
		c.speaker.Close()
	}
	c.indicator.Hide(cleanupCtx)
	c.logInfo("owner stopped")
	return err
}

// Quit asks Run to return.
func (c *Coordinator) Quit() {
	c.quitOnce.Do(func() { close(c.quit) })
}

// Target returns the selected target language.
func (c *Coordinator) Target() lang.Language {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.target
}

// State reports the coordinator's user-visible state.
func (c *Coordinator) State() string {
	c.mu.RLock()
	translating := c.translating > 0
	c.mu.RUnlock()

	switch {
	case c.speaker != nil && c.speaker.Speaking():
		return "speaking"
	case translating:
		return "translating"
	default:
		return string(c.capture.Snapshot().State)
	}
}

// Press starts capture for a hold gesture.
func (c *Coordinator) Press(ctx context.Context, g capture.Gesture) error {
	if c.speaker != nil && c.speaker.Speaking() {
		c.observer.Observe(events.Guard(component, "press ignored: speaking"))
		return ErrSpeaking
	}

	if err := c.capture.Press(ctx, g); err != nil {
		if !errors.Is(err, capture.ErrAlreadyActive) {
			c.indicator.ShowError(context.WithoutCancel(ctx), "Unable to start listening")
		}
		return err
	}

	snap := c.capture.Snapshot()
	if snap.State != fsm.StateListening {
		return nil
	}
	c.indicator.ShowListening(ctx, snap.Language.String())
	if snap.Fallback {
		c.indicator.ShowFallback(ctx, lang.Resolve(lang.BaseCode(snap.Locale)).EnglishName())
	}
	return nil
}

// Release ends a hold gesture and translates what was heard.
func (c *Coordinator) Release(ctx context.Context, g capture.Gesture) Result {
	pressed := c.capture.Snapshot().Pressed
	text, err := c.capture.Release(ctx, g)
	if !pressed || g.TextEntryFocused {
		return Result{Transcript: text, Err: err}
	}
	return c.finish(ctx, text, err)
}

// Stop ends any capture and translates what was heard.
func (c *Coordinator) Stop(ctx context.Context) Result {
	if c.capture.Snapshot().State == fsm.StateIdle {
		return Result{Err: errors.New("not listening")}
	}
	text, err := c.capture.Stop(ctx)
	return c.finish(ctx, text, err)
}

func (c *Coordinator) finish(ctx context.Context, text string, err error) Result {
	if err == nil {
		err = c.capture.Snapshot().LastError
	}
	if err != nil {
		if strings.TrimSpace(text) == "" {
			c.reportCaptureError(err)
			return Result{Transcript: text, Err: err}
		}
		c.logError("speech recognition ended with an error; translating captured speech", err)
	}
	if strings.TrimSpace(text) == "" {
		c.indicator.ShowNotice(context.WithoutCancel(ctx), "No speech detected")
		return Result{Err: ErrEmptyTranscript}
	}
	return c.TranslateText(ctx, text, c.capture.Snapshot().Language, c.Target())
}

// TranslateText translates text, delivers the result, and speaks it when
// automatic playback is enabled.
func (c *Coordinator) TranslateText(ctx context.Context, text string, source lang.Language, target lang.Language) Result {
	result := Result{Transcript: text, StartedAt: time.Now()}

	c.mu.Lock()
	c.translating++
	c.mu.Unlock()
	c.indicator.ShowTranslating(ctx)

	item, err := c.conversation.Translate(ctx, text, source, target)

	c.mu.Lock()
	c.translating--
	c.mu.Unlock()

	result.Item = item
	result.Err = err
	result.FinishedAt = time.Now()
	c.present(ctx, result)
	return result
}

// Retranslate translates the entry with id (or the latest when id is 0)
// into target.
func (c *Coordinator) Retranslate(ctx context.Context, id int64, target lang.Language) Result {
	item, err := c.entry(id)
	if err != nil {
		return Result{Err: err}
	}
	result := Result{Transcript: item.OriginalText, StartedAt: time.Now()}
	c.indicator.ShowTranslating(ctx)
	result.Item, result.Err = c.conversation.Retranslate(ctx, item, target)
	result.FinishedAt = time.Now()
	c.present(ctx, result)
	return result
}

// present shows, delivers, and speaks one translation result.
func (c *Coordinator) present(ctx context.Context, result Result) {
	c.logResult(result)
	if result.Err != nil {
		c.indicator.ShowError(context.WithoutCancel(ctx), "")
		return
	}

	translated := result.Item.TranslatedText
	if err := c.output.Deliver(ctx, translated); err != nil {
		c.logError("translation output failed", err)
	}
	c.indicator.ShowTranslation(ctx, translated)
	if c.speak {
		c.Speak(ctx, result.Item)
	}
}

// Speak plays an entry's translation in its target language.
func (c *Coordinator) Speak(ctx context.Context, item conversation.Item) {
	if c.speaker == nil || item.Failed || item.Pending() {
		return
	}
	c.speaker.Speak(ctx, item.TranslatedText, item.TargetLanguage.Code)
}

// SetSource selects the recognition and translation source language.
func (c *Coordinator) SetSource(ctx context.Context, language lang.Language) error {
	return c.capture.SetLanguage(ctx, language)
}

// SetTarget selects the translation target language.
func (c *Coordinator) SetTarget(language lang.Language) error {
	if language.Code == "" || language.Equal(lang.Auto) {
		return ErrAutoTarget
	}
	c.mu.Lock()
	c.target = language
	c.mu.Unlock()
	return nil
}

// Swap exchanges the source and target languages.
func (c *Coordinator) Swap(ctx context.Context) error {
	source := c.capture.Snapshot().Language
	if source.Equal(lang.Auto) {
		return ErrAutoTarget
	}
	target := c.Target()
	if err := c.capture.SetLanguage(ctx, target); err != nil {
		return err
	}
	return c.SetTarget(source)
}

func (c *Coordinator) entry(id int64) (conversation.Item, error) {
	if id != 0 {
		return c.conversation.Get(id)
	}
	item, ok := c.conversation.Last()
	if !ok {
		return conversation.Item{}, conversation.ErrNotFound
	}
	return item, nil
}

// onCaptureUpdate surfaces session errors raised while listening.
func (c *Coordinator) onCaptureUpdate(snap capture.Snapshot) {
	if snap.LastError == nil || snap.State != fsm.StateIdle {
		return
	}
	c.reportCaptureError(snap.LastError)
}

// reportCaptureError shows each distinct capture failure once.
func (c *Coordinator) reportCaptureError(err error) {
	c.mu.Lock()
	seen := c.captureErr == err
	c.captureErr = err
	c.mu.Unlock()
	if seen {
		return
	}
	c.logError("speech recognition failed", err)
	c.indicator.ShowError(context.Background(), "Speech recognition failed")
}

func (c *Coordinator) logResult(result Result) {
	if c.logger == nil {
		return
	}
	fields := []any{
		"id", result.Item.ID,
		"from", result.Item.OriginalLanguage.Code,
		"to", result.Item.TargetLanguage.Code,
		"transcript_chars", len([]rune(result.Transcript)),
		"translation_chars", len([]rune(result.Item.TranslatedText)),
		"latency_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
	}
	if result.Err != nil {
		c.logger.Error("translation failed", append(fields, "error", result.Err.Error())...)
		return
	}
	c.logger.Info("translation complete", fields...)
}

func (c *Coordinator) logInfo(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Info(msg, args...)
}

func (c *Coordinator) logError(msg string, err error) {
	if c.logger == nil || err == nil {
		return
	}
	c.logger.Error(msg, "error", err.Error())
}
