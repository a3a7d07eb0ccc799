// Package playback speaks translations with a voice chosen for the target
// language, degrading through fallback voices when coverage is missing.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/rbright/yatra/internal/events"
	"github.com/rbright/yatra/internal/lang"
)

const component = "playback"

// Synthesizer renders text with a named voice into playable audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice string, locale string) ([]byte, error)
}

// Player plays synthesized audio to completion.
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

// VoiceSource lists the synthesis service's live voice catalog.
type VoiceSource interface {
	Voices(ctx context.Context) ([]lang.Voice, error)
}

// Choice is a resolved synthesis voice.
type Choice struct {
	Voice    string
	Locale   string
	Curated  bool
	Fallback bool
}

// Controller speaks one utterance at a time.
type Controller struct {
	logger   *slog.Logger
	synth    Synthesizer
	player   Player
	voices   VoiceSource
	observer events.Observer

	base   context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	gender   lang.Gender
	speaking bool
	done     chan struct{}
}

// NewController constructs a playback controller. voices may be nil when no
// live catalog is available.
func NewController(logger *slog.Logger, synth Synthesizer, player Player, voices VoiceSource, observer events.Observer) *Controller {
	if observer == nil {
		observer = events.Nop{}
	}
	base, cancel := context.WithCancel(context.Background())
	return &Controller{
		logger:   logger,
		synth:    synth,
		player:   player,
		voices:   voices,
		observer: observer,
		base:     base,
		cancel:   cancel,
		gender:   lang.GenderFemale,
	}
}

// SetGender selects the curated voice gender.
func (c *Controller) SetGender(g lang.Gender) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gender = g
}

// Speaking reports whether an utterance is in progress.
func (c *Controller) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

// Wait blocks until the current utterance, if any, finishes.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Close cancels the current utterance and waits for it to finish.
func (c *Controller) Close() {
	c.cancel()
	c.Wait()
}

// Speak starts speaking text in the language identified by code and returns
// immediately. Blank text and calls made while already speaking are no-ops.
// Failures are reported to the observer, never returned.
func (c *Controller) Speak(ctx context.Context, text string, code string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	c.mu.Lock()
	if c.speaking {
		c.mu.Unlock()
		c.observer.Observe(events.Guard(component, "speak ignored: already speaking"))
		return
	}
	if c.base.Err() != nil {
		c.mu.Unlock()
		return
	}
	c.speaking = true
	done := make(chan struct{})
	c.done = done
	c.mu.Unlock()

	runCtx, cancel := mergeCancel(context.WithoutCancel(ctx), c.base)
	go func() {
		defer close(done)
		defer cancel()
		defer c.finish()
		c.speak(runCtx, text, code)
	}()
}

func (c *Controller) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speaking = false
}

func (c *Controller) speak(ctx context.Context, text string, code string) {
	if c.synth == nil || c.player == nil {
		c.logWarn("speech output not configured")
		return
	}

	choice, ok := c.Resolve(ctx, code)
	if !ok {
		c.observer.Observe(events.Notice(component, fmt.Sprintf("no voice available for %s", code)))
		return
	}

	audio, err := c.synth.Synthesize(ctx, text, choice.Voice, choice.Locale)
	if err != nil && choice.Curated {
		c.observer.Observe(events.Transport(component, "curated voice synthesis failed", err))
		next, found := c.catalogChoice(ctx, code, choice.Voice)
		if !found {
			return
		}
		choice = next
		audio, err = c.synth.Synthesize(ctx, text, choice.Voice, choice.Locale)
	}
	if err != nil {
		c.observer.Observe(events.Transport(component, "speech synthesis failed", err))
		return
	}

	if err := c.player.Play(ctx, audio); err != nil && !errors.Is(err, context.Canceled) {
		c.observer.Observe(events.Transport(component, "audio playback failed", err))
		return
	}
	c.logDebug("spoke", "voice", choice.Voice, "fallback", choice.Fallback)
}

// Resolve picks the synthesis voice for code.
//
// Order: an Indian language without a curated voice uses the Hindi voice;
// a curated voice; a catalog voice of the same base language (neural
// first); any Hindi catalog voice for Indian languages; any English
// catalog voice. ok is false when nothing qualifies.
func (c *Controller) Resolve(ctx context.Context, code string) (Choice, bool) {
	c.mu.Lock()
	gender := c.gender
	c.mu.Unlock()

	if lang.IsIndian(code) && !lang.HasCuratedVoice(code) {
		name, _ := lang.VoiceName("hi", gender)
		c.observer.Observe(events.Fallback(component, code, name, "using Hindi voice"))
		return Choice{Voice: name, Locale: lang.VoiceLocale(name), Curated: true, Fallback: true}, true
	}
	if name, ok := lang.VoiceName(code, gender); ok {
		return Choice{Voice: name, Locale: lang.VoiceLocale(name), Curated: true}, true
	}
	return c.catalogChoice(ctx, code, "")
}

// catalogChoice searches the live voice catalog, skipping exclude.
func (c *Controller) catalogChoice(ctx context.Context, code string, exclude string) (Choice, bool) {
	voices := c.catalog(ctx)
	base := lang.BaseCode(code)

	if v, ok := pickVoice(voices, base, exclude); ok {
		return Choice{Voice: v.ShortName, Locale: v.Locale}, true
	}
	if lang.IsIndian(code) {
		if v, ok := pickVoice(voices, "hi", exclude); ok {
			c.observer.Observe(events.Fallback(component, code, v.ShortName, "using Hindi voice"))
			return Choice{Voice: v.ShortName, Locale: v.Locale, Fallback: true}, true
		}
	}
	if v, ok := pickVoice(voices, "en", exclude); ok {
		c.observer.Observe(events.Fallback(component, code, v.ShortName, "using English voice"))
		return Choice{Voice: v.ShortName, Locale: v.Locale, Fallback: true}, true
	}

	c.logWarn("no voice found", "code", code)
	return Choice{}, false
}

func (c *Controller) catalog(ctx context.Context) []lang.Voice {
	if c.voices == nil {
		return nil
	}
	voices, err := c.voices.Voices(ctx)
	if err != nil {
		c.observer.Observe(events.Transport(component, "voice catalog unavailable", err))
		return nil
	}
	return voices
}

// pickVoice returns the first voice whose locale belongs to base,
// preferring neural voices.
func pickVoice(voices []lang.Voice, base string, exclude string) (lang.Voice, bool) {
	if base == "" {
		return lang.Voice{}, false
	}
	var first *lang.Voice
	for i := range voices {
		v := voices[i]
		if v.ShortName == "" || v.ShortName == exclude || !localeHasBase(v.Locale, base) {
			continue
		}
		if v.Neural() {
			return v, true
		}
		if first == nil {
			first = &voices[i]
		}
	}
	if first == nil {
		return lang.Voice{}, false
	}
	return *first, true
}

func localeHasBase(locale string, base string) bool {
	locale = strings.ToLower(locale)
	return locale == base || strings.HasPrefix(locale, base+"-")
}

// mergeCancel returns ctx that is also cancelled when other is done.
func mergeCancel(ctx context.Context, other context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(other, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}

func (c *Controller) logWarn(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(msg, args...)
}

func (c *Controller) logDebug(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Debug(msg, args...)
}
