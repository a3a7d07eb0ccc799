// Package pipeline connects the microphone to the cloud recognition stream
// and exposes the pair as capture sessions.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rbright/yatra/internal/audio"
	"github.com/rbright/yatra/internal/azure"
	"github.com/rbright/yatra/internal/capture"
	"github.com/rbright/yatra/internal/config"
	"github.com/rbright/yatra/internal/events"
	"github.com/rbright/yatra/internal/logging"
)

const component = "pipeline"

// closeTimeout bounds how long a session waits for trailing phrases.
const closeTimeout = 20 * time.Second

// frameSource is the microphone side of a session.
type frameSource interface {
	Source() audio.Source
	Frames() <-chan []byte
	Bytes() int64
	Recorded() []byte
	Stop() error
}

// recognitionStream is the cloud side of a session.
type recognitionStream interface {
	SendAudio(chunk []byte) error
	Close(ctx context.Context) error
	Cancel() error
}

type (
	selectFunc  func(ctx context.Context, preferred string, fallback string) (audio.Selection, error)
	captureFunc func(ctx context.Context, source audio.Source, opts audio.CaptureOptions) (frameSource, error)
	dialFunc    func(ctx context.Context, locale string, handlers azure.RecognitionHandlers, debug io.Writer) (recognitionStream, error)
)

// Recognition opens microphone-backed recognition sessions. It implements
// capture.Opener.
type Recognition struct {
	cfg      config.Config
	logger   *slog.Logger
	observer events.Observer

	selectSource selectFunc
	startCapture captureFunc
	dial         dialFunc
}

type tokenInvalidator interface {
	InvalidateToken()
}

// NewRecognition wires Pulse capture to recognizer. The recognizer is
// copied per session so its DebugSink can point at that session's dump.
func NewRecognition(cfg config.Config, logger *slog.Logger, recognizer *azure.Recognizer, observer events.Observer) *Recognition {
	if observer == nil {
		observer = events.Nop{}
	}
	return &Recognition{
		cfg:          cfg,
		logger:       logger,
		observer:     observer,
		selectSource: audio.SelectSource,
		startCapture: func(ctx context.Context, source audio.Source, opts audio.CaptureOptions) (frameSource, error) {
			return audio.StartCapture(ctx, source, opts)
		},
		dial: func(ctx context.Context, locale string, handlers azure.RecognitionHandlers, debug io.Writer) (recognitionStream, error) {
			if recognizer == nil {
				return nil, errors.New("no recognizer configured")
			}
			perSession := *recognizer
			perSession.DebugSink = debug
			stream, err := perSession.Dial(ctx, locale, handlers)
			if err != nil {
				// A rejected handshake usually means the cached token went stale.
				if cached, ok := perSession.Tokens.(tokenInvalidator); ok {
					cached.InvalidateToken()
				}
				return nil, err
			}
			return stream, nil
		},
	}
}

// Open selects an input source, dials recognition for locale, and starts
// streaming microphone frames.
func (r *Recognition) Open(ctx context.Context, locale string, handlers capture.Handlers) (capture.Session, error) {
	selection, err := r.selectSource(ctx, r.cfg.Audio.Input, r.cfg.Audio.Fallback)
	if err != nil {
		return nil, fmt.Errorf("select audio input: %w", err)
	}
	if selection.Warning != "" {
		r.logWarn(selection.Warning)
		r.observer.Observe(events.Notice(component, selection.Warning))
	}

	s := &recognitionSession{
		owner:   r,
		source:  selection.Source,
		locale:  locale,
		started: time.Now(),
		sendErr: make(chan error, 1),
	}

	if r.cfg.Debug.EnableEventDump {
		file, ferr := createDebugFile("events", "jsonl")
		if ferr != nil {
			return nil, ferr
		}
		s.eventDump = file
	}

	stream, err := r.dial(ctx, locale, azure.RecognitionHandlers{
		Hypothesis: handlers.Interim,
		Phrase:     handlers.Final,
		Error:      handlers.Error,
	}, s.debugSink())
	if err != nil {
		s.closeDebugArtifacts()
		return nil, err
	}
	s.stream = stream

	// Frames must keep flowing after the caller's request context ends;
	// the session is bounded by Close instead.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	mic, err := r.startCapture(runCtx, selection.Source, audio.CaptureOptions{KeepPCM: r.cfg.Debug.EnableAudioDump})
	if err != nil {
		cancel()
		_ = stream.Cancel()
		s.closeDebugArtifacts()
		return nil, err
	}
	s.mic = mic

	go s.sendLoop(handlers.Error)

	r.logDebug("recognition session open", "locale", locale, "source", describeSource(selection.Source))
	return s, nil
}

type recognitionSession struct {
	owner   *Recognition
	source  audio.Source
	locale  string
	started time.Time

	mic    frameSource
	stream recognitionStream
	cancel context.CancelFunc

	sendErr chan error

	mu        sync.Mutex
	eventDump *os.File
	closed    bool
}

// Close stops the microphone, drains pending frames, and waits for the
// service to deliver the trailing phrases.
func (s *recognitionSession) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	defer s.cancel()
	defer s.closeDebugArtifacts()

	_ = s.mic.Stop()
	sendErr := <-s.sendErr
	defer func() { s.writeDebugAudio(s.mic.Recorded()) }()

	if sendErr != nil {
		_ = s.stream.Cancel()
		s.logResult(0, sendErr)
		return fmt.Errorf("send audio stream: %w", sendErr)
	}

	closeCtx, cancel := context.WithTimeout(ctx, closeTimeout)
	defer cancel()
	finalizeStart := time.Now()
	err := s.stream.Close(closeCtx)
	s.logResult(time.Since(finalizeStart), err)
	if err != nil {
		return fmt.Errorf("finish recognition: %w", err)
	}
	return nil
}

// sendLoop forwards frames to the stream. A send failure is reported to
// onError immediately so the controller can tear the session down.
func (s *recognitionSession) sendLoop(onError func(error)) {
	var failure error
	defer func() { s.sendErr <- failure }()

	for frame := range s.mic.Frames() {
		if failure != nil || len(frame) == 0 {
			continue
		}
		if err := s.stream.SendAudio(frame); err != nil {
			failure = err
			_ = s.mic.Stop()
			if onError != nil {
				onError(fmt.Errorf("send audio stream: %w", err))
			}
		}
	}
}

func (s *recognitionSession) debugSink() io.Writer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eventDump == nil {
		return nil
	}
	return s.eventDump
}

func (s *recognitionSession) closeDebugArtifacts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eventDump != nil {
		_ = s.eventDump.Close()
		s.eventDump = nil
	}
}

// writeDebugAudio dumps the captured PCM as WAV when debug.audio_dump is on.
func (s *recognitionSession) writeDebugAudio(pcm []byte) {
	if !s.owner.cfg.Debug.EnableAudioDump || len(pcm) == 0 {
		return
	}
	file, err := createDebugFile("audio", "wav")
	if err != nil {
		s.owner.logWarn(fmt.Sprintf("unable to create debug audio dump: %v", err))
		return
	}
	defer file.Close()

	if err := audio.WriteWAV(file, pcm, audio.CaptureSampleRate, 1); err != nil {
		s.owner.logWarn(fmt.Sprintf("unable to write debug audio dump: %v", err))
	}
}

func (s *recognitionSession) logResult(finalize time.Duration, err error) {
	logger := s.owner.logger
	if logger == nil {
		return
	}
	fields := []any{
		"locale", s.locale,
		"source", describeSource(s.source),
		"bytes_captured", s.mic.Bytes(),
		"duration_ms", time.Since(s.started).Milliseconds(),
		"finalize_ms", finalize.Milliseconds(),
	}
	if err != nil {
		logger.Error("recognition session failed", append(fields, "error", err.Error())...)
		return
	}
	logger.Info("recognition session complete", fields...)
}

// describeSource formats source metadata for logs.
func describeSource(source audio.Source) string {
	description := strings.TrimSpace(source.Description)
	id := strings.TrimSpace(source.ID)
	switch {
	case description == "":
		return id
	case id == "":
		return description
	default:
		return fmt.Sprintf("%s (%s)", description, id)
	}
}

// createDebugFile creates a timestamped artifact under the state debug dir.
func createDebugFile(prefix string, extension string) (*os.File, error) {
	stateDir, err := logging.StateDir()
	if err != nil {
		return nil, err
	}
	debugDir := filepath.Join(stateDir, "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}

	name := fmt.Sprintf("%s-%s.%s", prefix, time.Now().Format("20060102-150405.000"), extension)
	path := filepath.Join(debugDir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open debug file %q: %w", path, err)
	}
	return file, nil
}

func (r *Recognition) logWarn(message string) {
	if r.logger == nil {
		return
	}
	r.logger.Warn(message)
}

func (r *Recognition) logDebug(msg string, args ...any) {
	if r.logger == nil {
		return
	}
	r.logger.Debug(msg, args...)
}
