package transport

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"{}",
		`{"type":"LIST_USERS","timestamp":1}`,
		"héllo wörld ✓ 你好",
		strings.Repeat("x", 70000),
	}
	for _, s := range cases {
		framed := EncodeFrame([]byte(s))
		n := binary.BigEndian.Uint32(framed[:4])
		assert.EqualValues(t, len([]byte(s)), n)

		got, err := ReadFrame(bytes.NewReader(framed), 0)
		require.NoError(t, err)
		assert.Equal(t, s, string(got))
	}
}

func TestReadFrameSequence(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("one")))
	require.NoError(t, WriteFrame(&buf, []byte("two")))

	a, err := ReadFrame(&buf, 16)
	require.NoError(t, err)
	b, err := ReadFrame(&buf, 16)
	require.NoError(t, err)
	assert.Equal(t, "one", string(a))
	assert.Equal(t, "two", string(b))

	_, err = ReadFrame(&buf, 16)
	assert.Equal(t, io.EOF, err)
}

func TestReadFrameEdgeCases(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		max  int
		want error
	}{
		{"clean eof", nil, 0, io.EOF},
		{"eof mid length", []byte{0, 0}, 0, ErrIncompleteFrame},
		{"eof mid payload", append([]byte{0, 0, 0, 5}, 'a', 'b'), 0, ErrIncompleteFrame},
		{"eof before payload", []byte{0, 0, 0, 5}, 0, ErrIncompleteFrame},
		{"negative length", []byte{0x80, 0, 0, 1}, 0, ErrBadLength},
		{"over cap", []byte{0, 0, 1, 0}, 255, ErrFrameTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFrame(bytes.NewReader(tt.in), tt.max)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestReadFrameDoesNotInterpretPayload(t *testing.T) {
	got, err := ReadFrame(bytes.NewReader(EncodeFrame([]byte("not json at all"))), 0)
	require.NoError(t, err)
	assert.Equal(t, "not json at all", string(got))
}

func TestFrameCodecConcurrentWriters(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	w := NewFrameCodec(c1, 0)
	r := NewFrameCodec(c2, 0)

	const writers, each = 4, 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < each; j++ {
				_ = w.WriteFrame([]byte(strings.Repeat("z", 100)))
			}
		}()
	}
	for i := 0; i < writers*each; i++ {
		got, err := r.ReadFrame()
		require.NoError(t, err)
		require.Len(t, got, 100)
	}
	wg.Wait()
}

func TestTpErrorIsByCode(t *testing.T) {
	err := withContext(ErrBadLength, "ctx %d", 1)
	assert.True(t, errors.Is(err, ErrBadLength))
	assert.False(t, errors.Is(err, ErrIncompleteFrame))
	assert.Contains(t, err.Error(), "context: ctx 1")
	assert.Equal(t, 1003, err.Code())
}
