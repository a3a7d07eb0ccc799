// Package capture owns the continuous speech recognition lifecycle for the
// currently selected source language.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rbright/yatra/internal/events"
	"github.com/rbright/yatra/internal/fsm"
	"github.com/rbright/yatra/internal/lang"
	"github.com/rbright/yatra/internal/transcript"
)

const component = "capture"

var (
	// ErrAlreadyActive is returned by Start while a session is opening or open.
	ErrAlreadyActive = errors.New("recognition already active")
	// ErrTransport wraps failures opening or running a recognition session.
	ErrTransport = errors.New("recognition transport failure")
	// ErrAborted is returned by Start when Stop or Close won the race with an opening session.
	ErrAborted = errors.New("recognition start aborted")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("capture controller closed")
)

// Handlers receive results from one recognition session.
type Handlers struct {
	Interim func(text string)
	Final   func(text string)
	Error   func(err error)
}

// Session is one open recognition connection.
// Close flushes pending audio and delivers outstanding final results
// through Handlers before returning.
type Session interface {
	Close(ctx context.Context) error
}

// Opener opens recognition sessions for a speech locale.
type Opener interface {
	Open(ctx context.Context, locale string, handlers Handlers) (Session, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(context.Context, string, Handlers) (Session, error)

func (f OpenerFunc) Open(ctx context.Context, locale string, handlers Handlers) (Session, error) {
	return f(ctx, locale, handlers)
}

// Gesture describes the user input that triggered a press or release.
type Gesture struct {
	// TextEntryFocused is set when the press landed in a text field;
	// such presses belong to typing and never start capture.
	TextEntryFocused bool
}

// Snapshot is a point-in-time view of the controller.
type Snapshot struct {
	State      fsm.State
	Language   lang.Language
	Locale     string
	Fallback   bool
	Transcript string
	Pressed    bool
	LastError  error
}

// Controller drives Idle -> Listening -> Idle for one source language.
type Controller struct {
	logger    *slog.Logger
	opener    Opener
	observer  events.Observer
	threshold int

	mu         sync.RWMutex
	state      fsm.State
	language   lang.Language
	locale     string
	fallback   bool
	transcript string
	session    Session
	generation uint64
	stopping   bool
	// inFlight is set from the start of Open until its session is either
	// adopted or closed, including after Stop aborted the start.
	inFlight   bool
	pressed    bool
	closed     bool
	lastErr    error
	onUpdate   func(Snapshot)
}

// NewController constructs a capture controller with safe defaults.
func NewController(logger *slog.Logger, opener Opener, observer events.Observer) *Controller {
	if observer == nil {
		observer = events.Nop{}
	}
	return &Controller{
		logger:    logger,
		opener:    opener,
		observer:  observer,
		threshold: transcript.InterimThreshold,
		state:     fsm.StateIdle,
		language:  lang.Resolve("en"),
	}
}

// OnUpdate registers a callback fired after every transcript change.
// The callback runs without the controller lock held.
func (c *Controller) OnUpdate(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUpdate = fn
}

// SetInterimThreshold overrides the interim damping threshold.
func (c *Controller) SetInterimThreshold(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threshold = n
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Language returns the selected source language.
func (c *Controller) Language() lang.Language {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.language
}

// Snapshot returns the current controller view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:      c.state,
		Language:   c.language,
		Locale:     c.locale,
		Fallback:   c.fallback,
		Transcript: c.transcript,
		Pressed:    c.pressed,
		LastError:  c.lastErr,
	}
}

// Start opens one recognition session for the selected language.
func (c *Controller) Start(ctx context.Context) error {
	return c.start(ctx, false)
}

// Press starts capture for a hold gesture. Presses inside a text field are
// ignored.
func (c *Controller) Press(ctx context.Context, g Gesture) error {
	if g.TextEntryFocused {
		c.observer.Observe(events.Guard(component, "press ignored: text entry focused"))
		return nil
	}
	return c.start(ctx, true)
}

// Release ends a hold gesture. Only a session started by Press is stopped.
func (c *Controller) Release(ctx context.Context, g Gesture) (string, error) {
	c.mu.RLock()
	pressed := c.pressed
	text := c.transcript
	c.mu.RUnlock()

	if !pressed || g.TextEntryFocused {
		return text, nil
	}
	return c.Stop(ctx)
}

func (c *Controller) start(ctx context.Context, pressed bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != fsm.StateIdle || c.inFlight {
		state := c.state
		c.mu.Unlock()
		if state == fsm.StateIdle {
			c.observer.Observe(events.Guard(component, "start rejected: aborted session still opening"))
		} else {
			c.observer.Observe(events.Guard(component, fmt.Sprintf("start rejected in state %s", state)))
		}
		return ErrAlreadyActive
	}
	if err := c.transitionLocked(fsm.EventStart); err != nil {
		c.mu.Unlock()
		return err
	}
	c.generation++
	gen := c.generation
	language := c.language
	resolution := lang.SpeechLocale(language.Code)
	c.locale = resolution.Locale
	c.fallback = resolution.Fallback
	c.transcript = ""
	c.lastErr = nil
	c.pressed = pressed
	c.inFlight = true
	c.mu.Unlock()

	if resolution.Fallback {
		c.observer.Observe(events.Fallback(
			component,
			language.Code,
			resolution.Locale,
			fmt.Sprintf("using %s speech recognition for %s", resolution.Locale, language),
		))
	}
	c.notify()

	if c.opener == nil {
		return c.abortStart(gen, fmt.Errorf("%w: no recognition opener configured", ErrTransport))
	}

	session, err := c.opener.Open(ctx, resolution.Locale, c.handlersFor(gen))
	if err != nil {
		c.observer.Observe(events.Transport(component, "open recognition session failed", err))
		return c.abortStart(gen, fmt.Errorf("%w: open recognition session: %w", ErrTransport, err))
	}

	c.mu.Lock()
	if c.generation != gen || c.state != fsm.StateOpening {
		c.mu.Unlock()
		_ = session.Close(context.WithoutCancel(ctx))
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
		return ErrAborted
	}
	c.inFlight = false
	c.session = session
	_ = c.transitionLocked(fsm.EventOpened)
	c.mu.Unlock()

	c.logDebug("recognition started", "locale", resolution.Locale, "fallback", resolution.Fallback)
	return nil
}

// abortStart returns an opening controller to idle and records err.
func (c *Controller) abortStart(gen uint64, err error) error {
	c.mu.Lock()
	c.inFlight = false
	if c.generation == gen && c.state == fsm.StateOpening {
		_ = c.transitionLocked(fsm.EventAbort)
		c.pressed = false
		c.lastErr = err
	}
	c.mu.Unlock()
	c.notify()
	return err
}

// Stop closes the open session and returns the final transcript. Stopping
// an idle controller returns the current transcript unchanged. Stopping an
// opening controller returns it to idle at once; the pending session is
// closed when its Open returns, and no new start is accepted before then.
func (c *Controller) Stop(ctx context.Context) (string, error) {
	c.mu.Lock()
	switch c.state {
	case fsm.StateOpening:
		c.generation++
		_ = c.transitionLocked(fsm.EventAbort)
		c.pressed = false
		text := c.transcript
		c.mu.Unlock()
		c.notify()
		return text, nil
	case fsm.StateListening:
		if c.stopping {
			text := c.transcript
			c.mu.Unlock()
			return text, nil
		}
	default:
		text := c.transcript
		c.mu.Unlock()
		return text, nil
	}

	session := c.session
	c.session = nil
	c.stopping = true
	c.mu.Unlock()

	var closeErr error
	if session != nil {
		closeErr = session.Close(ctx)
	}

	c.mu.Lock()
	c.stopping = false
	c.generation++
	if c.state == fsm.StateListening {
		_ = c.transitionLocked(fsm.EventStop)
	}
	c.pressed = false
	if closeErr != nil {
		c.lastErr = fmt.Errorf("%w: close recognition session: %w", ErrTransport, closeErr)
	}
	text := c.transcript
	c.mu.Unlock()

	if closeErr != nil {
		c.observer.Observe(events.Transport(component, "close recognition session failed", closeErr))
	}
	c.notify()
	c.logDebug("recognition stopped", "chars", len([]rune(text)))
	return text, nil
}

// SetLanguage selects the source language. An active session is stopped
// first and is never restarted.
func (c *Controller) SetLanguage(ctx context.Context, language lang.Language) error {
	if c.State() != fsm.StateIdle {
		if _, err := c.Stop(ctx); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.language = language
	c.mu.Unlock()
	c.notify()
	return nil
}

// Close tears the controller down. It is safe to call more than once.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	_, err := c.Stop(ctx)
	return err
}

// handlersFor binds session callbacks to one generation so results from a
// replaced session are dropped.
func (c *Controller) handlersFor(gen uint64) Handlers {
	return Handlers{
		Interim: func(text string) { c.applyInterim(gen, text) },
		Final:   func(text string) { c.applyFinal(gen, text) },
		Error:   func(err error) { c.applyError(gen, err) },
	}
}

func (c *Controller) current(gen uint64) bool {
	return c.generation == gen && c.state == fsm.StateListening
}

func (c *Controller) applyInterim(gen uint64, text string) {
	c.mu.Lock()
	if !c.current(gen) || !transcript.ShouldReplaceInterim(c.transcript, text, c.threshold) {
		c.mu.Unlock()
		return
	}
	c.transcript = transcript.Clean(text)
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) applyFinal(gen uint64, text string) {
	text = transcript.Clean(text)
	c.mu.Lock()
	if !c.current(gen) || text == "" {
		c.mu.Unlock()
		return
	}
	c.transcript = text
	c.mu.Unlock()
	c.notify()
}

// applyError tears down a failed session. During Stop the error is only
// recorded; Stop finishes the teardown.
func (c *Controller) applyError(gen uint64, err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	if !c.current(gen) {
		c.mu.Unlock()
		return
	}
	c.lastErr = fmt.Errorf("%w: %w", ErrTransport, err)
	if c.stopping {
		c.mu.Unlock()
		c.observer.Observe(events.Transport(component, "recognition session error", err))
		return
	}

	session := c.session
	c.session = nil
	c.generation++
	_ = c.transitionLocked(fsm.EventFail)
	_ = c.transitionLocked(fsm.EventReset)
	c.pressed = false
	c.mu.Unlock()

	c.observer.Observe(events.Transport(component, "recognition session error", err))
	if session != nil {
		go func() { _ = session.Close(context.Background()) }()
	}
	c.notify()
}

func (c *Controller) transitionLocked(event fsm.Event) error {
	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

func (c *Controller) notify() {
	c.mu.RLock()
	fn := c.onUpdate
	snap := c.snapshotLocked()
	c.mu.RUnlock()
	if fn != nil {
		fn(snap)
	}
}

func (c *Controller) logDebug(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Debug(msg, args...)
}
