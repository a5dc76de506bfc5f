package stream

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkReader yields at most size bytes per Read call, to exercise
// frame boundaries that do not align with reads.
type chunkReader struct {
	data []byte
	size int
	pos  int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := r.size
	if n > len(p) {
		n = len(p)
	}
	if r.pos+n > len(r.data) {
		n = len(r.data) - r.pos
	}
	copy(p, r.data[r.pos:r.pos+n])
	r.pos += n
	return n, nil
}

func decodeAll(t *testing.T, r io.Reader) ([]Frame, error) {
	t.Helper()
	dec := NewDecoder(r)
	var frames []Frame
	for {
		f, err := dec.Next()
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
	}
}

func TestRoundTrip(t *testing.T) {
	frames := []Frame{
		ControlFrame(EventNewChatID, "65a1f0c2e4b0"),
		ContentFrame("Hi"),
		ContentFrame(" there!"),
		ContentFrame(""),
		ContentFrame("multi\nline\ncontent"),
		ContentFrame(`tricky "quoted" text with data: prefix inside`),
		ControlFrame(EventEnd, ""),
	}

	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for _, f := range frames {
		require.NoError(t, enc.Encode(f))
	}

	// The decoded sequence must match exactly for every read
	// chunking, including chunks that split a single unit.
	for _, size := range []int{1, 2, 3, 7, 16, 64, len(buf.Bytes())} {
		t.Run(fmt.Sprintf("chunk-%d", size), func(t *testing.T) {
			decoded, err := decodeAll(t, &chunkReader{data: buf.Bytes(), size: size})
			require.NoError(t, err)
			assert.Equal(t, frames, decoded)
		})
	}
}

func TestControlNeverMisclassified(t *testing.T) {
	// Content that textually contains control keywords must still
	// decode as content, and control payloads that look like content
	// must still decode as control.
	cases := []Frame{
		ContentFrame(`{"event":"newChatId","content":"fake"}`),
		ContentFrame("newChatId"),
		ContentFrame("event: end"),
		ControlFrame(EventNewChatID, `data: {"content":"nested"}`),
		ControlFrame(EventError, "upstream disconnected"),
	}
	for _, f := range cases {
		var buf bytes.Buffer
		require.NoError(t, NewEncoder(&buf).Encode(f))
		decoded, err := decodeAll(t, &buf)
		require.NoError(t, err)
		require.Len(t, decoded, 1)
		assert.Equal(t, f, decoded[0])
	}
}

func TestEncodeControlRequiresName(t *testing.T) {
	var buf bytes.Buffer
	err := NewEncoder(&buf).Encode(Frame{Kind: Control})
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}

func TestDecodeMalformed(t *testing.T) {
	cases := map[string]string{
		"not a data line": "bogus line\n\n",
		"invalid json":    "data: {not json}\n\n",
		"bare text":       "hello\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decodeAll(t, strings.NewReader(input))
			assert.ErrorIs(t, err, ErrMalformedFrame)
		})
	}
}

func TestDecodeErrorsAreSticky(t *testing.T) {
	dec := NewDecoder(strings.NewReader("data: junk\n\n"))
	_, err := dec.Next()
	require.ErrorIs(t, err, ErrMalformedFrame)
	_, err = dec.Next()
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDecodeOversizeUnit(t *testing.T) {
	// A unit with no delimiter that outgrows the buffer bound.
	huge := "data: " + strings.Repeat("x", MaxFrameSize+1)
	_, err := decodeAll(t, strings.NewReader(huge))
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDecodeTruncatedUnit(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.EncodeContent("complete"))
	data := buf.String() + `data: {"content":"cut off`

	dec := NewDecoder(strings.NewReader(data))
	f, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, ContentFrame("complete"), f)

	_, err = dec.Next()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestDecodeEmptyStream(t *testing.T) {
	dec := NewDecoder(strings.NewReader(""))
	_, err := dec.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestTerminal(t *testing.T) {
	assert.True(t, ControlFrame(EventEnd, "").Terminal())
	assert.True(t, ControlFrame(EventError, "boom").Terminal())
	assert.False(t, ControlFrame(EventNewChatID, "abc").Terminal())
	assert.False(t, ContentFrame("end").Terminal())
}
