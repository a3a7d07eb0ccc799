package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	// CaptureSampleRate is the recognition input rate.
	CaptureSampleRate = 16000
	// FrameBytes is one 20ms frame of 16-bit mono audio at CaptureSampleRate.
	FrameBytes = 640
)

// Capture records one source and delivers FrameBytes-sized frames.
type Capture struct {
	source Source

	client *pulse.Client
	stream *pulse.RecordStream

	frames chan []byte
	done   chan struct{}

	mu       sync.Mutex
	residual []byte
	recorded []byte
	keep     bool
	stopped  bool

	writers sync.WaitGroup
	total   atomic.Int64
}

// CaptureOptions tunes a capture.
type CaptureOptions struct {
	// KeepPCM retains every captured byte for Recorded.
	KeepPCM bool
}

// StartCapture opens a 16 kHz mono record stream on source. The capture
// stops itself when ctx is cancelled.
func StartCapture(ctx context.Context, source Source, opts CaptureOptions) (*Capture, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}

	pulseSource, err := client.SourceByID(source.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", source.ID, err)
	}

	c := newCapture(source, opts)
	c.client = client

	stream, err := client.NewRecord(
		pulse.NewWriter(writerFunc(c.write), pulseproto.FormatInt16LE),
		pulse.RecordSource(pulseSource),
		pulse.RecordMono,
		pulse.RecordSampleRate(CaptureSampleRate),
		pulse.RecordBufferFragmentSize(FrameBytes),
		pulse.RecordMediaName("yatra speech capture"),
	)
	if err != nil {
		_ = c.Stop()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}
	c.stream = stream
	stream.Start()

	context.AfterFunc(ctx, func() { _ = c.Stop() })
	return c, nil
}

func newCapture(source Source, opts CaptureOptions) *Capture {
	return &Capture{
		source: source,
		frames: make(chan []byte, 128),
		done:   make(chan struct{}),
		keep:   opts.KeepPCM,
	}
}

// Source returns the recorded source.
func (c *Capture) Source() Source {
	return c.source
}

// Frames yields captured audio. It is closed by Stop.
func (c *Capture) Frames() <-chan []byte {
	return c.frames
}

// Bytes reports how many bytes Pulse delivered.
func (c *Capture) Bytes() int64 {
	return c.total.Load()
}

// Recorded returns a copy of all captured PCM when KeepPCM was set.
func (c *Capture) Recorded() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.recorded...)
}

// Stop ends the stream, emits any partial frame, and closes Frames. It is
// safe to call more than once.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.done)
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}
	c.writers.Wait()

	c.mu.Lock()
	tail := c.residual
	c.residual = nil
	c.mu.Unlock()

	if len(tail) > 0 {
		select {
		case c.frames <- tail:
		default:
		}
	}
	close(c.frames)
	return nil
}

func (c *Capture) write(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return 0, io.EOF
	}
	// Add under mu so Stop's Wait never races a new writer.
	c.writers.Add(1)
	defer c.writers.Done()

	if c.keep {
		c.recorded = append(c.recorded, buffer...)
	}
	c.residual = append(c.residual, buffer...)
	var ready [][]byte
	for len(c.residual) >= FrameBytes {
		ready = append(ready, append([]byte(nil), c.residual[:FrameBytes]...))
		c.residual = c.residual[FrameBytes:]
	}
	c.mu.Unlock()

	c.total.Add(int64(len(buffer)))
	for _, frame := range ready {
		select {
		case <-c.done:
			return 0, io.EOF
		case c.frames <- frame:
		}
	}
	return len(buffer), nil
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
