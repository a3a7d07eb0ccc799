package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/yatra/internal/capture"
	"github.com/rbright/yatra/internal/conversation"
	"github.com/rbright/yatra/internal/events"
	"github.com/rbright/yatra/internal/fsm"
	"github.com/rbright/yatra/internal/ipc"
	"github.com/rbright/yatra/internal/lang"
)

type fakeSession struct {
	final    string
	closeErr error
	handlers capture.Handlers
}

func (s *fakeSession) Close(context.Context) error {
	if s.final != "" {
		s.handlers.Final(s.final)
	}
	return s.closeErr
}

type fakeTranslator struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (f *fakeTranslator) Translate(_ context.Context, text, from, to string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, from+">"+to+":"+text)
	if f.err != nil {
		return "", f.err
	}
	return "[" + to + "] " + text, nil
}

func (f *fakeTranslator) Detect(context.Context, string) (string, error) {
	return "mr", nil
}

type fakeSpeaker struct {
	mu       sync.Mutex
	speaking bool
	spoken   []string
	closed   bool
}

func (f *fakeSpeaker) Speak(_ context.Context, text string, code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, code+":"+text)
}

func (f *fakeSpeaker) Speaking() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.speaking
}

func (f *fakeSpeaker) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

type fakeOutput struct {
	delivered []string
	copied    []string
}

func (f *fakeOutput) Deliver(_ context.Context, text string) error {
	f.delivered = append(f.delivered, text)
	return nil
}

func (f *fakeOutput) Copy(_ context.Context, text string) error {
	f.copied = append(f.copied, text)
	return nil
}

type fakeIndicator struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeIndicator) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeIndicator) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeIndicator) ShowListening(_ context.Context, language string) {
	f.record("listening:" + language)
}
func (f *fakeIndicator) ShowTranslating(context.Context) { f.record("translating") }
func (f *fakeIndicator) ShowTranslation(_ context.Context, text string) {
	f.record("translation:" + text)
}
func (f *fakeIndicator) ShowFallback(_ context.Context, language string) {
	f.record("fallback:" + language)
}
func (f *fakeIndicator) ShowNotice(_ context.Context, text string) { f.record("notice:" + text) }
func (f *fakeIndicator) ShowError(_ context.Context, text string)  { f.record("error:" + text) }
func (f *fakeIndicator) Hide(context.Context)                      { f.record("hide") }

type harness struct {
	coord      *Coordinator
	capture    *capture.Controller
	session    *fakeSession
	translator *fakeTranslator
	speaker    *fakeSpeaker
	output     *fakeOutput
	indicator  *fakeIndicator
	recorder   *events.Recorder
}

func newHarness(t *testing.T, final string) *harness {
	t.Helper()
	h := &harness{
		session:    &fakeSession{final: final},
		translator: &fakeTranslator{},
		speaker:    &fakeSpeaker{},
		output:     &fakeOutput{},
		indicator:  &fakeIndicator{},
		recorder:   &events.Recorder{},
	}
	h.capture = capture.NewController(nil, capture.OpenerFunc(func(_ context.Context, _ string, handlers capture.Handlers) (capture.Session, error) {
		h.session.handlers = handlers
		return h.session, nil
	}), h.recorder)
	h.coord = New(Options{
		Capture:      h.capture,
		Conversation: conversation.NewOrchestrator(nil, h.translator, h.recorder),
		Speaker:      h.speaker,
		Output:       h.output,
		Indicator:    h.indicator,
		Observer:     h.recorder,
		Target:       lang.Resolve("hi"),
		Speak:        true,
	})
	return h
}

func TestPressReleaseTranslatesDeliversAndSpeaks(t *testing.T) {
	h := newHarness(t, "Where is the station?")

	resp := h.coord.Handle(context.Background(), ipc.Request{Command: "press"})
	require.True(t, resp.OK, resp.Error)
	require.Equal(t, string(fsm.StateListening), resp.State)

	resp = h.coord.Handle(context.Background(), ipc.Request{Command: "release"})
	require.True(t, resp.OK, resp.Error)
	require.Equal(t, "Where is the station?", resp.Transcript)
	require.Len(t, resp.Entries, 1)
	require.Equal(t, "[hi] Where is the station?", resp.Entries[0].TranslatedText)
	require.Equal(t, "en", resp.Entries[0].OriginalLanguage)

	require.Equal(t, []string{"en>hi:Where is the station?"}, h.translator.calls)
	require.Equal(t, []string{"[hi] Where is the station?"}, h.output.delivered)
	require.Equal(t, []string{"hi:[hi] Where is the station?"}, h.speaker.spoken)
	require.Equal(t, []string{
		"listening:English",
		"translating",
		"translation:[hi] Where is the station?",
	}, h.indicator.Calls())
	require.Equal(t, fsm.StateIdle, h.capture.State())
}

func TestPressRefusedWhileSpeaking(t *testing.T) {
	h := newHarness(t, "hello")
	h.speaker.speaking = true

	resp := h.coord.Handle(context.Background(), ipc.Request{Command: "press"})
	require.False(t, resp.OK)
	require.Equal(t, "speaking", resp.State)
	require.Contains(t, resp.Error, "cannot listen while speaking")
	require.True(t, IsSpeaking(h.coord.Press(context.Background(), capture.Gesture{})))
	require.Equal(t, fsm.StateIdle, h.capture.State())
	require.Len(t, h.recorder.OfKind(events.KindGuardRejected), 2)
}

func TestPressInTextEntryIsIgnored(t *testing.T) {
	h := newHarness(t, "hello")

	resp := h.coord.Handle(context.Background(), ipc.Request{Command: "press", Focus: true})
	require.True(t, resp.OK)
	require.Equal(t, string(fsm.StateIdle), resp.State)

	resp = h.coord.Handle(context.Background(), ipc.Request{Command: "release", Focus: true})
	require.True(t, resp.OK)
	require.Empty(t, resp.Entries)
	require.Empty(t, h.translator.calls)
	require.Empty(t, h.indicator.Calls())
}

func TestFallbackLanguageIsDisclosed(t *testing.T) {
	h := newHarness(t, "")

	require.True(t, h.coord.Handle(context.Background(), ipc.Request{Command: "source", Text: "bho"}).OK)
	require.NoError(t, h.coord.Press(context.Background(), capture.Gesture{}))

	calls := h.indicator.Calls()
	require.Len(t, calls, 2)
	require.Equal(t, "fallback:Hindi", calls[1])
	require.Len(t, h.recorder.OfKind(events.KindFallbackUsed), 1)
}

func TestReleaseWithoutSpeechShowsNotice(t *testing.T) {
	h := newHarness(t, "")

	require.NoError(t, h.coord.Press(context.Background(), capture.Gesture{}))
	result := h.coord.Release(context.Background(), capture.Gesture{})
	require.ErrorIs(t, result.Err, ErrEmptyTranscript)
	require.Empty(t, h.translator.calls)
	require.Contains(t, h.indicator.Calls(), "notice:No speech detected")
}

func TestCloseFailureIsReportedOnce(t *testing.T) {
	h := newHarness(t, "")
	h.session.closeErr = errors.New("websocket reset")

	require.NoError(t, h.coord.Press(context.Background(), capture.Gesture{}))
	result := h.coord.Release(context.Background(), capture.Gesture{})
	require.ErrorIs(t, result.Err, capture.ErrTransport)

	errorsShown := 0
	for _, call := range h.indicator.Calls() {
		if strings.HasPrefix(call, "error:") {
			errorsShown++
		}
	}
	require.Equal(t, 1, errorsShown)
}

func TestCloseFailureAfterFinalPhraseStillTranslates(t *testing.T) {
	h := newHarness(t, "Where is the station?")
	h.session.closeErr = context.DeadlineExceeded

	require.NoError(t, h.coord.Press(context.Background(), capture.Gesture{}))
	result := h.coord.Release(context.Background(), capture.Gesture{})
	require.NoError(t, result.Err)
	require.Equal(t, "Where is the station?", result.Transcript)
	require.Len(t, h.translator.calls, 1)
	require.Len(t, h.recorder.OfKind(events.KindTransportError), 1)

	resp := h.coord.Handle(context.Background(), ipc.Request{Command: "history"})
	require.True(t, resp.OK, resp.Error)
	require.Len(t, resp.Entries, 1)
	require.Equal(t, "[hi] Where is the station?", resp.Entries[0].TranslatedText)
	require.NotContains(t, h.indicator.Calls(), "error:Speech recognition failed")
}

func TestTranslationFailureKeepsMarker(t *testing.T) {
	h := newHarness(t, "")
	h.translator.err = errors.New("401")

	resp := h.coord.Handle(context.Background(), ipc.Request{Command: "translate", Text: "chai", To: "ta"})
	require.False(t, resp.OK)
	require.Len(t, resp.Entries, 1)
	require.True(t, resp.Entries[0].Failed)
	require.Equal(t, conversation.FailureMarker, resp.Entries[0].TranslatedText)
	require.Empty(t, h.speaker.spoken)
	require.Empty(t, h.output.delivered)
	require.Contains(t, h.indicator.Calls(), "error:")

	resp = h.coord.Handle(context.Background(), ipc.Request{Command: "speak"})
	require.False(t, resp.OK)
}

func TestTranslateCommandOverridesLanguages(t *testing.T) {
	h := newHarness(t, "")

	resp := h.coord.Handle(context.Background(), ipc.Request{Command: "translate", Text: "pani", From: "auto", To: "en"})
	require.True(t, resp.OK, resp.Error)
	require.Equal(t, []string{">en:pani"}, h.translator.calls)

	resp = h.coord.Handle(context.Background(), ipc.Request{Command: "translate", Text: "pani", To: "auto"})
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "target language must be concrete")

	resp = h.coord.Handle(context.Background(), ipc.Request{Command: "translate", Text: "pani", To: "klingon"})
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "unknown language code")
}

func TestRetranslateHistorySpeakAndCopy(t *testing.T) {
	h := newHarness(t, "")

	first := h.coord.Handle(context.Background(), ipc.Request{Command: "translate", Text: "thank you"})
	require.True(t, first.OK)
	id := first.Entries[0].ID

	resp := h.coord.Handle(context.Background(), ipc.Request{Command: "retranslate", ID: id, To: "ta"})
	require.True(t, resp.OK, resp.Error)
	require.Equal(t, "[ta] thank you", resp.Entries[0].TranslatedText)

	resp = h.coord.Handle(context.Background(), ipc.Request{Command: "history"})
	require.True(t, resp.OK)
	require.Len(t, resp.Entries, 2)
	require.Equal(t, "[hi] thank you", resp.Entries[0].TranslatedText)
	require.Equal(t, "ta", resp.Entries[1].TargetLanguage)

	resp = h.coord.Handle(context.Background(), ipc.Request{Command: "copy", ID: id})
	require.True(t, resp.OK)
	require.Equal(t, []string{"[hi] thank you"}, h.output.copied)

	h.speaker.spoken = nil
	resp = h.coord.Handle(context.Background(), ipc.Request{Command: "speak"})
	require.True(t, resp.OK)
	require.Equal(t, []string{"ta:[ta] thank you"}, h.speaker.spoken)

	resp = h.coord.Handle(context.Background(), ipc.Request{Command: "retranslate", ID: 42})
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "not found")
}

func TestSourceTargetAndSwap(t *testing.T) {
	h := newHarness(t, "")

	resp := h.coord.Handle(context.Background(), ipc.Request{Command: "target", Text: "auto"})
	require.False(t, resp.OK)

	resp = h.coord.Handle(context.Background(), ipc.Request{Command: "target", Text: "ta"})
	require.True(t, resp.OK)
	require.Equal(t, "ta", resp.Target)

	resp = h.coord.Handle(context.Background(), ipc.Request{Command: "swap"})
	require.True(t, resp.OK)
	require.Equal(t, "ta", resp.Source)
	require.Equal(t, "en", resp.Target)

	resp = h.coord.Handle(context.Background(), ipc.Request{Command: "source", Text: "auto"})
	require.True(t, resp.OK)
	resp = h.coord.Handle(context.Background(), ipc.Request{Command: "swap"})
	require.False(t, resp.OK)
	require.Equal(t, "auto", resp.Source)
	require.Equal(t, "en", resp.Target)
}

func TestDetectAndUnknownCommand(t *testing.T) {
	h := newHarness(t, "")

	resp := h.coord.Handle(context.Background(), ipc.Request{Command: "detect", Text: "pani kuthe aahe"})
	require.True(t, resp.OK)
	require.Equal(t, "mr", resp.Source)
	require.Contains(t, resp.Message, "Marathi")

	resp = h.coord.Handle(context.Background(), ipc.Request{Command: "definitely-unknown"})
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "unknown command")
}

func TestStopWhenIdle(t *testing.T) {
	h := newHarness(t, "")
	resp := h.coord.Handle(context.Background(), ipc.Request{Command: "stop"})
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "not listening")
}

func TestRunClosesControllersOnQuit(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.coord.Press(context.Background(), capture.Gesture{}))

	done := make(chan error, 1)
	go func() { done <- h.coord.Run(context.Background()) }()

	resp := h.coord.Handle(context.Background(), ipc.Request{Command: "quit"})
	require.True(t, resp.OK)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after quit")
	}
	require.Equal(t, fsm.StateIdle, h.capture.State())
	require.True(t, h.speaker.closed)
	require.ErrorIs(t, h.capture.Start(context.Background()), capture.ErrClosed)

	h.coord.Quit()
}

func TestRunReturnsOnContextCancel(t *testing.T) {
	h := newHarness(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, h.coord.Run(ctx))
	require.Contains(t, h.indicator.Calls(), "hide")
}
