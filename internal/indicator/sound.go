package indicator

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/rbright/yatra/internal/audio"
	"github.com/rbright/yatra/internal/config"
)

type cue int

const (
	cueListening cue = iota + 1
	cueTranslating
	cueTranslated
	cueFailed
)

// cueRate matches the 24 kHz speech output so cues and voices share one
// stream format.
const (
	cueRate   = 24000
	cueVolume = 0.15
	cueFadeMS = 5
)

// note is one step of a cue; a zero pitch is a rest.
type note struct {
	pitch float64
	ms    int
}

var cueNotes = map[cue][]note{
	cueListening:   {{pitch: 587.33, ms: 70}, {ms: 20}, {pitch: 880.00, ms: 90}},
	cueTranslating: {{pitch: 698.46, ms: 55}, {ms: 35}, {pitch: 698.46, ms: 55}},
	cueTranslated:  {{pitch: 659.25, ms: 60}, {ms: 15}, {pitch: 830.61, ms: 60}, {ms: 15}, {pitch: 987.77, ms: 110}},
	cueFailed:      {{pitch: 440.00, ms: 90}, {ms: 20}, {pitch: 311.13, ms: 140}},
}

var cueSamples = func() map[cue][]int16 {
	out := make(map[cue][]int16, len(cueNotes))
	for c, notes := range cueNotes {
		out[c] = render(notes)
	}
	return out
}()

// playCueSound plays the configured WAV for c and falls back to the built-in
// tones when none is set or it cannot be decoded.
func playCueSound(ctx context.Context, c cue, files config.CueFiles) error {
	if path := cueFile(c, files); path != "" {
		if pcm, err := loadCueFile(path); err == nil {
			return audio.PlaySamples(ctx, pcm.Samples(), pcm.SampleRate, "yatra indicator cue")
		}
	}
	return audio.PlaySamples(ctx, cueSamples[c], cueRate, "yatra indicator cue")
}

func cueFile(c cue, files config.CueFiles) string {
	switch c {
	case cueListening:
		return expandHome(files.Listening)
	case cueTranslating:
		return expandHome(files.Translating)
	case cueTranslated:
		return expandHome(files.Translated)
	case cueFailed:
		return expandHome(files.Failed)
	}
	return ""
}

func loadCueFile(path string) (audio.PCM, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return audio.PCM{}, err
	}
	pcm, err := audio.DecodeWAV(raw)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("cue file %s: %w", path, err)
	}
	if pcm.Channels != 1 {
		return audio.PCM{}, fmt.Errorf("cue file %s: %d channels, want mono", path, pcm.Channels)
	}
	return pcm, nil
}

func expandHome(path string) string {
	path = strings.TrimSpace(path)
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// render turns notes into mono samples with a short linear fade on every
// tone edge.
func render(notes []note) []int16 {
	var pcm []int16
	for _, n := range notes {
		count := cueRate * n.ms / 1000
		if n.pitch <= 0 {
			pcm = append(pcm, make([]int16, count)...)
			continue
		}
		fade := min(cueRate*cueFadeMS/1000, count/2)
		for i := range count {
			gain := 1.0
			if edge := min(i, count-1-i); edge < fade {
				gain = float64(edge) / float64(fade)
			}
			phase := 2 * math.Pi * n.pitch * float64(i) / cueRate
			pcm = append(pcm, int16(math.Round(math.Sin(phase)*cueVolume*gain*math.MaxInt16)))
		}
	}
	return pcm
}
