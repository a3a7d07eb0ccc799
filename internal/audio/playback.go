package audio

import (
	"context"
	"errors"
	"fmt"

	"github.com/jfreymuth/pulse"
)

// Player plays synthesized WAV audio through the default Pulse sink.
type Player struct{}

// NewPlayer returns a Pulse-backed player.
func NewPlayer() *Player {
	return &Player{}
}

// Play decodes audio and blocks until it has drained or ctx is cancelled.
// Cancellation ends the stream early and returns ctx.Err().
func (p *Player) Play(ctx context.Context, audio []byte) error {
	pcm, err := DecodeWAV(audio)
	if err != nil {
		return err
	}
	if pcm.Channels != 1 {
		return fmt.Errorf("%w: %d channels", ErrUnsupportedWAV, pcm.Channels)
	}
	return PlaySamples(ctx, pcm.Samples(), pcm.SampleRate, "yatra speech")
}

// PlaySamples plays mono 16-bit samples at sampleRate and blocks until they
// drain or ctx is cancelled.
func PlaySamples(ctx context.Context, samples []int16, sampleRate int, mediaName string) error {
	if len(samples) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	stream, err := client.NewPlayback(
		sampleReader(ctx, samples),
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.05),
		pulse.PlaybackMediaName(mediaName),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := stream.Error(); err != nil && !errors.Is(err, pulse.EndOfData) {
		return fmt.Errorf("play %s stream: %w", mediaName, err)
	}
	return nil
}

// sampleReader feeds samples to Pulse and ends the stream once they are
// exhausted or ctx is done.
func sampleReader(ctx context.Context, samples []int16) pulse.Int16Reader {
	cursor := 0
	return pulse.Int16Reader(func(buf []int16) (int, error) {
		if ctx.Err() != nil || cursor >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})
}
