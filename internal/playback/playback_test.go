package playback

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rbright/yatra/internal/events"
	"github.com/rbright/yatra/internal/lang"
	"github.com/stretchr/testify/require"
)

type synthCall struct {
	text   string
	voice  string
	locale string
}

type fakeSynth struct {
	mu      sync.Mutex
	calls   []synthCall
	failFor map[string]error
}

func (f *fakeSynth) Synthesize(_ context.Context, text, voice, locale string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, synthCall{text: text, voice: voice, locale: locale})
	if err := f.failFor[voice]; err != nil {
		return nil, err
	}
	return []byte("RIFF" + voice), nil
}

func (f *fakeSynth) snapshot() []synthCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]synthCall(nil), f.calls...)
}

type fakePlayer struct {
	plays   atomic.Int32
	release chan struct{}
	err     error
}

func (p *fakePlayer) Play(ctx context.Context, _ []byte) error {
	p.plays.Add(1)
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.err
}

type fakeVoices struct {
	voices []lang.Voice
	err    error
	calls  atomic.Int32
}

func (f *fakeVoices) Voices(context.Context) ([]lang.Voice, error) {
	f.calls.Add(1)
	return f.voices, f.err
}

var catalog = []lang.Voice{
	{ShortName: "en-US-GuyStandard", Locale: "en-US", VoiceType: "Standard"},
	{ShortName: "en-US-JennyNeural", Locale: "en-US", VoiceType: "Neural"},
	{ShortName: "fr-FR-Julie", Locale: "fr-FR", VoiceType: "Standard"},
	{ShortName: "fr-FR-DeniseNeural", Locale: "fr-FR", VoiceType: "Neural"},
	{ShortName: "hi-IN-KavyaNeural", Locale: "hi-IN", VoiceType: "Neural"},
	{ShortName: "ja-JP-Ayumi", Locale: "ja-JP", VoiceType: "Standard"},
}

func TestResolveOrder(t *testing.T) {
	c := NewController(nil, nil, nil, &fakeVoices{voices: catalog}, nil)

	tests := []struct {
		name     string
		code     string
		voice    string
		fallback bool
	}{
		{name: "curated", code: "ta", voice: "ta-IN-PallaviNeural"},
		{name: "indian without curated voice", code: "sd", voice: "hi-IN-SwaraNeural", fallback: true},
		{name: "catalog prefers neural", code: "fr", voice: "fr-FR-DeniseNeural"},
		{name: "catalog standard when only option", code: "ja", voice: "ja-JP-Ayumi"},
		{name: "english fallback", code: "sw", voice: "en-US-JennyNeural", fallback: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			choice, ok := c.Resolve(context.Background(), tc.code)
			require.True(t, ok)
			require.Equal(t, tc.voice, choice.Voice)
			require.Equal(t, tc.fallback, choice.Fallback)
		})
	}
}

func TestResolveMaleCuratedVoice(t *testing.T) {
	c := NewController(nil, nil, nil, nil, nil)
	c.SetGender(lang.GenderMale)

	choice, ok := c.Resolve(context.Background(), "hi")
	require.True(t, ok)
	require.Equal(t, "hi-IN-MadhurNeural", choice.Voice)
	require.Equal(t, "hi-IN", choice.Locale)
}

func TestResolveNothingAvailable(t *testing.T) {
	recorder := &events.Recorder{}
	c := NewController(nil, nil, nil, &fakeVoices{err: errors.New("offline")}, recorder)

	_, ok := c.Resolve(context.Background(), "fr")
	require.False(t, ok)
	require.Len(t, recorder.OfKind(events.KindTransportError), 1)
}

func TestSpeakPlaysCuratedVoice(t *testing.T) {
	synth := &fakeSynth{}
	player := &fakePlayer{}
	c := NewController(nil, synth, player, nil, nil)

	c.Speak(context.Background(), "नमस्ते", "hi")
	c.Wait()

	require.Equal(t, []synthCall{{text: "नमस्ते", voice: "hi-IN-SwaraNeural", locale: "hi-IN"}}, synth.snapshot())
	require.Equal(t, int32(1), player.plays.Load())
	require.False(t, c.Speaking())
}

func TestSpeakBlankTextIsNoop(t *testing.T) {
	synth := &fakeSynth{}
	c := NewController(nil, synth, &fakePlayer{}, nil, nil)

	c.Speak(context.Background(), "  ", "hi")
	c.Wait()
	require.Empty(t, synth.snapshot())
}

func TestSpeakWhileSpeakingIsIgnored(t *testing.T) {
	synth := &fakeSynth{}
	player := &fakePlayer{release: make(chan struct{})}
	recorder := &events.Recorder{}
	c := NewController(nil, synth, player, nil, recorder)

	c.Speak(context.Background(), "first", "hi")
	require.True(t, c.Speaking())

	c.Speak(context.Background(), "second", "hi")
	require.Len(t, recorder.OfKind(events.KindGuardRejected), 1)

	close(player.release)
	c.Wait()
	require.False(t, c.Speaking())
	require.Len(t, synth.snapshot(), 1)
}

func TestCuratedFailureFallsThroughToCatalog(t *testing.T) {
	synth := &fakeSynth{failFor: map[string]error{"hi-IN-SwaraNeural": errors.New("voice unavailable")}}
	player := &fakePlayer{}
	recorder := &events.Recorder{}
	c := NewController(nil, synth, player, &fakeVoices{voices: catalog}, recorder)

	c.Speak(context.Background(), "pani", "hi")
	c.Wait()

	calls := synth.snapshot()
	require.Len(t, calls, 2)
	require.Equal(t, "hi-IN-KavyaNeural", calls[1].voice)
	require.Equal(t, int32(1), player.plays.Load())
	require.Len(t, recorder.OfKind(events.KindTransportError), 1)
}

func TestSpeakFailuresAreReportedNotReturned(t *testing.T) {
	player := &fakePlayer{err: errors.New("pulse: connection refused")}
	recorder := &events.Recorder{}
	c := NewController(nil, &fakeSynth{}, player, nil, recorder)

	c.Speak(context.Background(), "hello", "bn")
	c.Wait()

	require.False(t, c.Speaking())
	require.Len(t, recorder.OfKind(events.KindTransportError), 1)
}

func TestSpeakOutlivesCallerContext(t *testing.T) {
	player := &fakePlayer{release: make(chan struct{})}
	c := NewController(nil, &fakeSynth{}, player, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	c.Speak(ctx, "hello", "hi")
	cancel()

	require.Eventually(t, func() bool { return player.plays.Load() == 1 }, time.Second, time.Millisecond)
	require.True(t, c.Speaking())
	close(player.release)
	c.Wait()
}

func TestCloseCancelsUtterance(t *testing.T) {
	player := &fakePlayer{release: make(chan struct{})}
	c := NewController(nil, &fakeSynth{}, player, nil, nil)

	c.Speak(context.Background(), "hello", "hi")
	c.Close()
	require.False(t, c.Speaking())

	c.Speak(context.Background(), "again", "hi")
	require.False(t, c.Speaking())
}
