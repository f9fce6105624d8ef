package transport

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrames_WriteThenRead(t *testing.T) {
	var buf bytes.Buffer
	for _, p := range [][]byte{[]byte("hello"), {}, bytes.Repeat([]byte{7}, 1024)} {
		require.NoError(t, WriteFrame(&buf, p, 0))
	}

	for _, want := range [][]byte{[]byte("hello"), {}, bytes.Repeat([]byte{7}, 1024)} {
		got, err := ReadFrame(&buf, 0)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := ReadFrame(&buf, 0)
	require.ErrorIs(t, err, io.EOF)
}

func TestFrames_Header(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte{1, 2, 3}, 0))
	require.Equal(t, []byte{0, 0, 0, 3, 1, 2, 3}, buf.Bytes())
}

func TestFrames_TooLarge(t *testing.T) {
	err := WriteFrame(io.Discard, make([]byte, 11), 10)
	require.ErrorIs(t, err, ErrFrameTooLarge)

	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, 11)
	_, err = ReadFrame(bytes.NewReader(header), 10)
	require.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestFrames_Truncated(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{0, 0, 0, 5, 1}), 0)
	require.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}
