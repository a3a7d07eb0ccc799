package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rbright/yatra/internal/capture"
	"github.com/rbright/yatra/internal/conversation"
	"github.com/rbright/yatra/internal/ipc"
	"github.com/rbright/yatra/internal/lang"
)

// Handle serves IPC commands for the owner process.
func (c *Coordinator) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case "status":
		return c.status("status")
	case "press":
		if err := c.Press(ctx, capture.Gesture{TextEntryFocused: req.Focus}); err != nil {
			return c.failure(err)
		}
		return c.status("listening")
	case "release":
		return c.respond(c.Release(ctx, capture.Gesture{TextEntryFocused: req.Focus}))
	case "stop":
		return c.respond(c.Stop(ctx))
	case "source":
		language, err := parseLanguage(req.Text, true)
		if err != nil {
			return c.failure(err)
		}
		if err := c.SetSource(ctx, language); err != nil {
			return c.failure(err)
		}
		return c.status("source set")
	case "target":
		language, err := parseLanguage(req.Text, false)
		if err != nil {
			return c.failure(err)
		}
		if err := c.SetTarget(language); err != nil {
			return c.failure(err)
		}
		return c.status("target set")
	case "swap":
		if err := c.Swap(ctx); err != nil {
			return c.failure(err)
		}
		return c.status("languages swapped")
	case "translate":
		return c.handleTranslate(ctx, req)
	case "retranslate":
		target := c.Target()
		if strings.TrimSpace(req.To) != "" {
			language, err := parseLanguage(req.To, false)
			if err != nil {
				return c.failure(err)
			}
			target = language
		}
		return c.respond(c.Retranslate(ctx, req.ID, target))
	case "detect":
		language, err := c.conversation.Detect(ctx, req.Text)
		if err != nil {
			return c.failure(err)
		}
		resp := c.status("detected")
		resp.Message = language.String()
		resp.Source = language.Code
		return resp
	case "alternatives":
		item, err := c.entry(req.ID)
		if err != nil {
			return c.failure(err)
		}
		resp := c.status("alternatives")
		resp.Message = strings.Join(c.conversation.Alternatives(ctx, item), "\n")
		return resp
	case "history":
		resp := c.status("history")
		resp.Entries = toEntries(c.conversation.History())
		return resp
	case "speak":
		item, err := c.entry(req.ID)
		if err != nil {
			return c.failure(err)
		}
		if item.Failed {
			return c.failure(fmt.Errorf("entry %d has no translation", item.ID))
		}
		c.Speak(ctx, item)
		return c.status("speaking")
	case "copy":
		item, err := c.entry(req.ID)
		if err != nil {
			return c.failure(err)
		}
		if err := c.output.Copy(ctx, item.TranslatedText); err != nil {
			return c.failure(err)
		}
		return c.status("copied")
	case "quit":
		c.Quit()
		return c.status("quitting")
	default:
		return ipc.Response{OK: false, State: c.State(), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func (c *Coordinator) handleTranslate(ctx context.Context, req ipc.Request) ipc.Response {
	source := c.capture.Snapshot().Language
	if strings.TrimSpace(req.From) != "" {
		language, err := parseLanguage(req.From, true)
		if err != nil {
			return c.failure(err)
		}
		source = language
	}
	target := c.Target()
	if strings.TrimSpace(req.To) != "" {
		language, err := parseLanguage(req.To, false)
		if err != nil {
			return c.failure(err)
		}
		target = language
	}
	return c.respond(c.TranslateText(ctx, req.Text, source, target))
}

// status reports languages and state with message.
func (c *Coordinator) status(message string) ipc.Response {
	snap := c.capture.Snapshot()
	return ipc.Response{
		OK:         true,
		State:      c.State(),
		Message:    message,
		Source:     snap.Language.Code,
		Target:     c.Target().Code,
		Speaking:   c.speaker != nil && c.speaker.Speaking(),
		Transcript: snap.Transcript,
	}
}

func (c *Coordinator) failure(err error) ipc.Response {
	resp := c.status("")
	resp.OK = false
	resp.Error = err.Error()
	return resp
}

// respond converts a translation result into a reply carrying its entry.
func (c *Coordinator) respond(result Result) ipc.Response {
	if result.Err != nil {
		resp := c.failure(result.Err)
		resp.Transcript = result.Transcript
		if result.Item.ID != 0 {
			resp.Entries = toEntries([]conversation.Item{result.Item})
		}
		return resp
	}
	resp := c.status("translated")
	resp.Transcript = result.Transcript
	if result.Item.ID == 0 {
		resp.Message = "nothing to translate"
		return resp
	}
	resp.Entries = toEntries([]conversation.Item{result.Item})
	return resp
}

// parseLanguage resolves a code from the command line. Unknown codes are
// rejected; auto is accepted only for sources.
func parseLanguage(code string, allowAuto bool) (lang.Language, error) {
	language, ok := lang.Lookup(code)
	if !ok {
		return lang.Language{}, fmt.Errorf("unknown language code %q", strings.TrimSpace(code))
	}
	if language.Equal(lang.Auto) && !allowAuto {
		return lang.Language{}, ErrAutoTarget
	}
	return language, nil
}

func toEntries(items []conversation.Item) []ipc.Entry {
	out := make([]ipc.Entry, 0, len(items))
	for _, item := range items {
		out = append(out, ipc.Entry{
			ID:               item.ID,
			OriginalText:     item.OriginalText,
			OriginalLanguage: item.OriginalLanguage.Code,
			TranslatedText:   item.TranslatedText,
			TargetLanguage:   item.TargetLanguage.Code,
			Failed:           item.Failed,
		})
	}
	return out
}

// IsSpeaking reports whether err is a refusal to capture during playback.
func IsSpeaking(err error) bool {
	return errors.Is(err, ErrSpeaking)
}
