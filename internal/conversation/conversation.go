// Package conversation translates finalized utterances and keeps the
// in-memory conversation history.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/yatra/internal/events"
	"github.com/rbright/yatra/internal/lang"
)

const component = "conversation"

// FailureMarker replaces the translation of an entry whose request failed.
const FailureMarker = "[Translation failed]"

var (
	// ErrMissingParameter is returned before any network call when text or target is empty.
	ErrMissingParameter = errors.New("missing required parameter")
	// ErrTransport wraps translator failures.
	ErrTransport = errors.New("translation transport failure")
	// ErrNotFound is returned for unknown history IDs.
	ErrNotFound = errors.New("conversation item not found")
)

// Item is one utterance and its translation.
type Item struct {
	ID               int64         `json:"id"`
	OriginalText     string        `json:"original_text"`
	OriginalLanguage lang.Language `json:"original_language"`
	TranslatedText   string        `json:"translated_text"`
	TargetLanguage   lang.Language `json:"target_language"`
	Failed           bool          `json:"failed,omitempty"`
}

// Pending reports whether the translation has not completed yet.
func (i Item) Pending() bool {
	return i.TranslatedText == "" && !i.Failed
}

// Translator converts text between translator language codes. An empty
// from asks the translator to detect the source language.
type Translator interface {
	Translate(ctx context.Context, text string, from string, to string) (string, error)
}

// Detector identifies the language of text.
type Detector interface {
	Detect(ctx context.Context, text string) (string, error)
}

// Dictionary returns alternative renderings of a short phrase.
type Dictionary interface {
	Alternatives(ctx context.Context, text string, from string, to string) ([]string, error)
}

// Orchestrator issues translation requests and records their results.
// Requests run concurrently; each resolves its own history entry by ID.
type Orchestrator struct {
	logger     *slog.Logger
	translator Translator
	observer   events.Observer
	now        func() time.Time

	mu       sync.RWMutex
	items    []Item
	index    map[int64]int
	lastID   int64
	onChange func(Item)
}

// NewOrchestrator constructs an orchestrator with an empty history.
func NewOrchestrator(logger *slog.Logger, translator Translator, observer events.Observer) *Orchestrator {
	if observer == nil {
		observer = events.Nop{}
	}
	return &Orchestrator{
		logger:     logger,
		translator: translator,
		observer:   observer,
		now:        time.Now,
		index:      make(map[int64]int),
	}
}

// OnChange registers a callback fired whenever an entry is added or updated.
func (o *Orchestrator) OnChange(fn func(Item)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onChange = fn
}

// Translate appends a pending entry, translates text, and resolves the entry.
// On translator failure the entry keeps FailureMarker and the returned error
// wraps ErrTransport.
func (o *Orchestrator) Translate(ctx context.Context, text string, source lang.Language, target lang.Language) (Item, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Item{}, fmt.Errorf("%w: text", ErrMissingParameter)
	}
	to := lang.TranslatorCode(target.Code)
	if to == "" {
		return Item{}, fmt.Errorf("%w: target language", ErrMissingParameter)
	}
	from := lang.TranslatorCode(source.Code)

	item := o.append(Item{
		OriginalText:     text,
		OriginalLanguage: source,
		TargetLanguage:   target,
	})

	if o.translator == nil {
		return o.fail(item.ID, errors.New("no translator configured"))
	}

	translated, err := o.translator.Translate(ctx, text, from, to)
	if err == nil && strings.TrimSpace(translated) == "" {
		err = errors.New("empty translation")
	}
	if err != nil {
		return o.fail(item.ID, err)
	}

	resolved, _ := o.resolve(item.ID, func(it *Item) {
		it.TranslatedText = strings.TrimSpace(translated)
	})
	o.logDebug("translated", "id", resolved.ID, "from", from, "to", to)
	return resolved, nil
}

// Retranslate creates a new entry translating item's original text into
// target. The original entry is left untouched.
func (o *Orchestrator) Retranslate(ctx context.Context, item Item, target lang.Language) (Item, error) {
	return o.Translate(ctx, item.OriginalText, item.OriginalLanguage, target)
}

// History returns a copy of every entry in creation order.
func (o *Orchestrator) History() []Item {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]Item(nil), o.items...)
}

// Get returns the entry with id.
func (o *Orchestrator) Get(id int64) (Item, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	idx, ok := o.index[id]
	if !ok {
		return Item{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return o.items[idx], nil
}

// Last returns the most recent entry.
func (o *Orchestrator) Last() (Item, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if len(o.items) == 0 {
		return Item{}, false
	}
	return o.items[len(o.items)-1], true
}

// Detect identifies text's language when the translator supports it.
func (o *Orchestrator) Detect(ctx context.Context, text string) (lang.Language, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return lang.Language{}, fmt.Errorf("%w: text", ErrMissingParameter)
	}
	detector, ok := o.translator.(Detector)
	if !ok {
		return lang.Language{}, errors.New("language detection unsupported")
	}
	code, err := detector.Detect(ctx, text)
	if err != nil {
		o.observer.Observe(events.Transport(component, "language detection failed", err))
		return lang.Language{}, fmt.Errorf("%w: detect: %w", ErrTransport, err)
	}
	return lang.Resolve(code), nil
}

// Alternatives returns other renderings of item's original text. Failures
// and unsupported translators yield an empty list.
func (o *Orchestrator) Alternatives(ctx context.Context, item Item) []string {
	dictionary, ok := o.translator.(Dictionary)
	if !ok || strings.TrimSpace(item.OriginalText) == "" {
		return []string{}
	}
	to := lang.TranslatorCode(item.TargetLanguage.Code)
	if to == "" {
		return []string{}
	}

	alternatives, err := dictionary.Alternatives(ctx, item.OriginalText, lang.TranslatorCode(item.OriginalLanguage.Code), to)
	if err != nil {
		o.observer.Observe(events.Transport(component, "alternatives lookup failed", err))
		return []string{}
	}

	out := make([]string, 0, len(alternatives))
	seen := map[string]struct{}{strings.ToLower(item.TranslatedText): {}}
	for _, alt := range alternatives {
		alt = strings.TrimSpace(alt)
		key := strings.ToLower(alt)
		if alt == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, alt)
	}
	return out
}

func (o *Orchestrator) fail(id int64, cause error) (Item, error) {
	o.observer.Observe(events.Transport(component, "translation failed", cause))
	item, _ := o.resolve(id, func(it *Item) {
		it.TranslatedText = FailureMarker
		it.Failed = true
	})
	return item, fmt.Errorf("%w: %w", ErrTransport, cause)
}

// append stores a new entry with a strictly increasing millisecond ID.
func (o *Orchestrator) append(item Item) Item {
	o.mu.Lock()
	id := o.now().UnixMilli()
	if id <= o.lastID {
		id = o.lastID + 1
	}
	o.lastID = id
	item.ID = id
	o.index[id] = len(o.items)
	o.items = append(o.items, item)
	fn := o.onChange
	o.mu.Unlock()

	if fn != nil {
		fn(item)
	}
	return item
}

// resolve updates the entry with id exactly once.
func (o *Orchestrator) resolve(id int64, update func(*Item)) (Item, bool) {
	o.mu.Lock()
	idx, ok := o.index[id]
	if !ok {
		o.mu.Unlock()
		return Item{}, false
	}
	update(&o.items[idx])
	item := o.items[idx]
	fn := o.onChange
	o.mu.Unlock()

	if fn != nil {
		fn(item)
	}
	return item, true
}

func (o *Orchestrator) logDebug(msg string, args ...any) {
	if o.logger == nil {
		return
	}
	o.logger.Debug(msg, args...)
}
