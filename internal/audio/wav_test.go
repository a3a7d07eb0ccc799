package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteWAVDecodesBack(t *testing.T) {
	pcm := []byte{0x01, 0x00, 0xff, 0x7f, 0x00, 0x80}
	var buf bytes.Buffer
	require.NoError(t, WriteWAV(&buf, pcm, 24000, 0))
	require.Equal(t, 44+len(pcm), buf.Len())

	decoded, err := DecodeWAV(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, 24000, decoded.SampleRate)
	require.Equal(t, 1, decoded.Channels)
	require.Equal(t, []int16{1, 32767, -32768}, decoded.Samples())
}

func TestWAVHeaderForStreams(t *testing.T) {
	header := WAVHeader(16000, 1, -1)
	require.Len(t, header, 44)
	require.Equal(t, uint32(16000), binary.LittleEndian.Uint32(header[24:28]))
	require.Equal(t, uint32(32000), binary.LittleEndian.Uint32(header[28:32]))
	require.Zero(t, binary.LittleEndian.Uint32(header[4:8]))
	require.Zero(t, binary.LittleEndian.Uint32(header[40:44]))

	sized := WAVHeader(16000, 1, 10)
	require.Equal(t, uint32(46), binary.LittleEndian.Uint32(sized[4:8]))
	require.Equal(t, uint32(10), binary.LittleEndian.Uint32(sized[40:44]))
	require.Equal(t, header[8:40], sized[8:40])
}

func TestDecodeWAVSkipsUnknownChunks(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWAV(&buf, []byte{0x02, 0x00}, 16000, 1))
	raw := buf.Bytes()

	list := []byte("LIST\x03\x00\x00\x00abc\x00")
	withList := append(append(append([]byte(nil), raw[:36]...), list...), raw[36:]...)

	decoded, err := DecodeWAV(withList)
	require.NoError(t, err)
	require.Equal(t, []int16{2}, decoded.Samples())
}

func TestDecodeWAVTruncatesOversizedData(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWAV(&buf, []byte{0x05, 0x00, 0x06}, 16000, 1))
	raw := buf.Bytes()
	binary.LittleEndian.PutUint32(raw[40:44], 0xffffffff)

	decoded, err := DecodeWAV(raw)
	require.NoError(t, err)
	require.Equal(t, []int16{5}, decoded.Samples())
}

func TestDecodeWAVRejectsNonPCM(t *testing.T) {
	_, err := DecodeWAV([]byte("ID3 not a wav"))
	require.ErrorIs(t, err, ErrUnsupportedWAV)

	var buf bytes.Buffer
	require.NoError(t, WriteWAV(&buf, []byte{0, 0}, 16000, 1))
	raw := buf.Bytes()
	binary.LittleEndian.PutUint16(raw[20:22], 3)
	_, err = DecodeWAV(raw)
	require.ErrorIs(t, err, ErrUnsupportedWAV)

	err = NewPlayer().Play(context.Background(), []byte("junk"))
	require.ErrorIs(t, err, ErrUnsupportedWAV)
}

func TestSampleReaderStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	read := sampleReader(ctx, []int16{1, 2, 3, 4})

	buf := make([]int16, 2)
	n, err := read(buf)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	cancel()
	n, err = read(buf)
	require.Zero(t, n)
	require.Error(t, err)
}
