package chunked

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name   string
		pieces [][]byte
		want   string
	}{
		{"empty sequence", nil, "0\r\n\r\n"},
		{"single piece", [][]byte{[]byte("text")}, "4\r\ntext\r\n0\r\n\r\n"},
		{"three pieces", [][]byte{[]byte("a"), []byte("b"), []byte("c")}, "1\r\na\r\n1\r\nb\r\n1\r\nc\r\n0\r\n\r\n"},
		{"hex size", [][]byte{bytes.Repeat([]byte("x"), 26)}, "1a\r\n" + strings.Repeat("x", 26) + "\r\n0\r\n\r\n"},
		{"empty piece skipped", [][]byte{[]byte("a"), {}, []byte("b")}, "1\r\na\r\n1\r\nb\r\n0\r\n\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(Encode(tt.pieces)))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	binary := make([]byte, 512)
	for i := range binary {
		binary[i] = byte(i)
	}

	tests := []struct {
		name   string
		pieces [][]byte
	}{
		{"empty", [][]byte{}},
		{"letters", [][]byte{[]byte("a"), []byte("b"), []byte("c")}},
		{"embedded crlf", [][]byte{[]byte("newline\r\n")}},
		{"looks like framing", [][]byte{[]byte("0\r\n\r\n"), []byte("5\r\nhello\r\n")}},
		{"binary", [][]byte{binary}},
		{"bare lf payload", [][]byte{[]byte("\n"), []byte("\r")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(Encode(tt.pieces))
			require.NoError(t, err)
			assert.Equal(t, tt.pieces, got)
		})
	}
}

func TestDecode_Extensions(t *testing.T) {
	wire := "3;name=value\r\nabc\r\n2\r\nde\r\n0\r\nX-Trailer: yes\r\n\r\n"

	got, err := Decode([]byte(wire))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("abc"), []byte("de")}, got)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		wire    string
		wantErr error
	}{
		{"bad size", "zz\r\nabc\r\n0\r\n\r\n", ErrMalformed},
		{"signed size", "+3\r\nabc\r\n0\r\n\r\n", ErrMalformed},
		{"empty size", "\r\nabc\r\n", ErrMalformed},
		{"missing crlf after data", "3\r\nabcX0\r\n\r\n", ErrMalformed},
		{"truncated payload", "5\r\nab", io.ErrUnexpectedEOF},
		{"truncated size line", "5", io.ErrUnexpectedEOF},
		{"missing terminator", "1\r\na\r\n", io.ErrUnexpectedEOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.wire))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestReader_NextChunk(t *testing.T) {
	r := FromChunks([][]byte{[]byte("a"), []byte("b"), []byte("c")})

	var chunks [][]byte
	for {
		chunk, err := r.NextChunk()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		chunks = append(chunks, chunk)
	}

	assert.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, chunks)

	_, err := r.NextChunk()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_EmptyBodyYieldsNoChunks(t *testing.T) {
	r := FromChunks(nil)

	chunk, err := r.NextChunk()
	assert.Nil(t, chunk)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_Read(t *testing.T) {
	r := FromChunks([][]byte{[]byte("hello "), []byte("chunked "), []byte("world")})

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello chunked world", string(data))
}

func TestReader_MixedReadAndNextChunk(t *testing.T) {
	r := FromChunks([][]byte{[]byte("abcdef"), []byte("gh")})

	buf := make([]byte, 2)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(buf[:n]))

	rest, err := r.NextChunk()
	require.NoError(t, err)
	assert.Equal(t, "cdef", string(rest))

	next, err := r.NextChunk()
	require.NoError(t, err)
	assert.Equal(t, "gh", string(next))
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestReader_Close(t *testing.T) {
	src := &closeRecorder{Reader: bytes.NewReader(Encode([][]byte{[]byte("a")}))}
	r := NewReader(src)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.True(t, src.closed)

	_, err := r.NextChunk()
	assert.ErrorIs(t, err, ErrReaderClosed)
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	n, err := w.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, w.WriteChunk(nil))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	assert.Equal(t, "3\r\nabc\r\n0\r\n\r\n", buf.String())
	assert.ErrorIs(t, w.WriteChunk([]byte("x")), ErrWriterClosed)
}
