package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// PCM is decoded 16-bit little-endian audio.
type PCM struct {
	SampleRate int
	Channels   int
	Data       []byte
}

// Samples returns Data as signed 16-bit samples.
func (p PCM) Samples() []int16 {
	out := make([]int16, len(p.Data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(p.Data[2*i:]))
	}
	return out
}

// WriteWAV writes pcm behind a canonical 44-byte RIFF header.
func WriteWAV(w io.Writer, pcm []byte, sampleRate int, channels int) error {
	if _, err := w.Write(WAVHeader(sampleRate, channels, len(pcm))); err != nil {
		return err
	}
	_, err := w.Write(pcm)
	return err
}

// WAVHeader returns the 44-byte RIFF header for 16-bit PCM. A negative
// dataLen leaves both size fields zero, which streaming recognizers accept
// for audio of unknown length.
func WAVHeader(sampleRate int, channels int, dataLen int) []byte {
	if channels <= 0 {
		channels = 1
	}
	const bitsPerSample = 16
	blockAlign := channels * bitsPerSample / 8

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1)
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	if dataLen >= 0 {
		binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataLen))
		binary.LittleEndian.PutUint32(header[40:44], uint32(dataLen))
	}
	return header
}

// ErrUnsupportedWAV is returned for audio that is not 16-bit PCM RIFF.
var ErrUnsupportedWAV = errors.New("unsupported wav")

// DecodeWAV walks the RIFF chunks of a 16-bit PCM file. A data chunk whose
// declared size overruns the buffer is truncated to what is present, which
// is what streaming synthesizers emit.
func DecodeWAV(raw []byte) (PCM, error) {
	if len(raw) < 12 || string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		return PCM{}, fmt.Errorf("%w: missing RIFF/WAVE header", ErrUnsupportedWAV)
	}

	var (
		out       PCM
		sawFormat bool
	)
	offset := 12
	for offset+8 <= len(raw) {
		id := string(raw[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(raw[offset+4 : offset+8]))
		body := raw[offset+8:]
		if size < 0 || size > len(body) {
			size = len(body)
		}
		body = body[:size]

		switch id {
		case "fmt ":
			if len(body) < 16 {
				return PCM{}, fmt.Errorf("%w: short fmt chunk", ErrUnsupportedWAV)
			}
			format := binary.LittleEndian.Uint16(body[0:2])
			bits := binary.LittleEndian.Uint16(body[14:16])
			if format != 1 || bits != 16 {
				return PCM{}, fmt.Errorf("%w: format %d with %d bits", ErrUnsupportedWAV, format, bits)
			}
			out.Channels = int(binary.LittleEndian.Uint16(body[2:4]))
			out.SampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			sawFormat = true
		case "data":
			if !sawFormat {
				return PCM{}, fmt.Errorf("%w: data before fmt", ErrUnsupportedWAV)
			}
			out.Data = body[:len(body)-len(body)%2]
			return out, nil
		}

		offset += 8 + size + size%2
	}
	return PCM{}, fmt.Errorf("%w: no data chunk", ErrUnsupportedWAV)
}
