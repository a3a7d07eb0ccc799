// Package audio wraps the Pulse server: input source selection, 16 kHz
// microphone capture for recognition, and WAV playback for synthesized
// speech.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const appName = "yatra"

// Source is one Pulse input source.
type Source struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Usable reports whether the source can record right now.
func (s Source) Usable() bool {
	return s.Available && !s.Muted
}

func (s Source) problem() string {
	if s.Muted {
		return "muted"
	}
	return "unavailable"
}

// Selection is the source chosen for a recognition session. Warning is set
// when the preferred source could not be used.
type Selection struct {
	Source   Source
	Warning  string
	Fallback bool
}

func newClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(appName),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// ListSources returns every Pulse input source.
func ListSources(_ context.Context) ([]Source, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}

	var infos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &infos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	sources := make([]Source, 0, len(infos))
	for _, info := range infos {
		if info == nil {
			continue
		}
		sources = append(sources, Source{
			ID:          info.SourceName,
			Description: info.Device,
			State:       sourceState(info.State),
			Available:   portAvailable(info),
			Muted:       info.Mute,
			Default:     info.SourceName == defaultSource.ID(),
		})
	}
	return sources, nil
}

// SelectSource resolves the preferred and fallback source names against
// the live source list. "default" or an empty name means the server default.
func SelectSource(ctx context.Context, preferred string, fallback string) (Selection, error) {
	sources, err := ListSources(ctx)
	if err != nil {
		return Selection{}, err
	}
	return pickSource(sources, preferred, fallback)
}

func pickSource(sources []Source, preferred string, fallback string) (Selection, error) {
	if len(sources) == 0 {
		return Selection{}, errors.New("no audio input sources found")
	}

	primary, err := findSource(sources, preferred)
	if err != nil {
		return Selection{}, fmt.Errorf("audio input: %w", err)
	}
	if primary.Usable() {
		return Selection{Source: primary}, nil
	}

	backup, err := findSource(sources, fallback)
	if err != nil {
		return Selection{}, fmt.Errorf("input %q is %s and fallback failed: %w", primary.ID, primary.problem(), err)
	}
	if !backup.Usable() {
		return Selection{}, fmt.Errorf("fallback input %q is %s", backup.ID, backup.problem())
	}

	return Selection{
		Source:   backup,
		Warning:  fmt.Sprintf("input %q is %s; using %q", primary.ID, primary.problem(), backup.ID),
		Fallback: backup.ID != primary.ID,
	}, nil
}

func findSource(sources []Source, name string) (Source, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "default" {
		for _, source := range sources {
			if source.Default {
				return source, nil
			}
		}
		return Source{}, errors.New("default source is unavailable")
	}
	for _, source := range sources {
		if sourceMatches(source, name) {
			return source, nil
		}
	}
	return Source{}, fmt.Errorf("%q did not match any source", name)
}

func sourceMatches(source Source, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(source.ID), term) ||
		strings.Contains(strings.ToLower(source.Description), term)
}

func sourceState(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// portAvailable treats a source without ports, or whose active port is in
// the unknown(0) or yes(2) state, as available.
func portAvailable(info *pulseproto.GetSourceInfoReply) bool {
	if info == nil {
		return false
	}
	for _, port := range info.Ports {
		if port.Name == info.ActivePortName {
			return port.Available == 0 || port.Available == 2
		}
	}
	return true
}
