package chunked

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// crlf terminates every size line and every chunk payload.
const crlf = "\r\n"

// maxLineLength bounds a size line (including extensions) or a trailer line.
const maxLineLength = 4096

var (
	// ErrMalformed is returned when the input is not valid chunked framing.
	ErrMalformed = errors.New("chunked: malformed framing")

	// ErrWriterClosed is returned when writing to a closed Writer.
	ErrWriterClosed = errors.New("chunked: write after close")

	// ErrReaderClosed is returned when reading from a closed Reader.
	ErrReaderClosed = errors.New("chunked: read on closed body")
)

// ChunkReader is implemented by bodies that can hand out their chunks with
// the original boundaries preserved.
type ChunkReader interface {
	io.ReadCloser

	// NextChunk returns the next chunk, or io.EOF after the terminator.
	NextChunk() ([]byte, error)
}

// Encode renders pieces as chunked wire framing. Empty pieces are skipped:
// a zero-size chunk is the terminator and cannot carry payload.
func Encode(pieces [][]byte) []byte {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, p := range pieces {
		// bytes.Buffer writes never fail.
		_ = w.WriteChunk(p)
	}
	_ = w.Close()
	return buf.Bytes()
}

// Decode parses chunked wire framing and returns the pieces in order.
// Bytes after the terminating chunk and its trailer are ignored.
func Decode(wire []byte) ([][]byte, error) {
	r := NewReader(bytes.NewReader(wire))
	pieces := [][]byte{}
	for {
		chunk, err := r.NextChunk()
		if errors.Is(err, io.EOF) {
			return pieces, nil
		}
		if err != nil {
			return nil, err
		}
		pieces = append(pieces, chunk)
	}
}

// Writer writes chunk framing to an underlying writer.
type Writer struct {
	w      io.Writer
	closed bool
}

// NewWriter returns a Writer that frames every WriteChunk call as one chunk.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteChunk writes p as a single chunk. An empty p writes nothing.
func (w *Writer) WriteChunk(p []byte) error {
	if w.closed {
		return ErrWriterClosed
	}
	if len(p) == 0 {
		return nil
	}
	if _, err := io.WriteString(w.w, strconv.FormatInt(int64(len(p)), 16)+crlf); err != nil {
		return err
	}
	if _, err := w.w.Write(p); err != nil {
		return err
	}
	_, err := io.WriteString(w.w, crlf)
	return err
}

// Write implements io.Writer; each call becomes one chunk.
func (w *Writer) Write(p []byte) (int, error) {
	if err := w.WriteChunk(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close writes the terminating zero-size chunk and the empty trailer.
// It does not close the underlying writer. Close is idempotent.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	_, err := io.WriteString(w.w, "0"+crlf+crlf)
	return err
}

// Reader decodes chunked framing from an underlying reader.
type Reader struct {
	src    io.Reader
	br     *bufio.Reader
	cur    []byte
	err    error
	closed bool
}

var _ ChunkReader = (*Reader)(nil)

// NewReader returns a Reader decoding the chunked stream read from r.
// If r is an io.Closer it is closed by Close.
func NewReader(r io.Reader) *Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Reader{src: r, br: br}
}

// FromChunks returns a Reader over the wire encoding of pieces.
func FromChunks(pieces [][]byte) *Reader {
	return NewReader(bytes.NewReader(Encode(pieces)))
}

// NextChunk returns the next chunk. If a chunk was partially consumed through
// Read, the unread remainder is returned first. After the terminator it
// returns io.EOF.
func (r *Reader) NextChunk() ([]byte, error) {
	if len(r.cur) > 0 {
		chunk := r.cur
		r.cur = nil
		return chunk, nil
	}
	if r.err != nil {
		return nil, r.err
	}
	chunk, err := r.readChunk()
	if err != nil {
		r.err = err
		return nil, err
	}
	return chunk, nil
}

// Read implements io.Reader over the concatenated chunk payloads.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(r.cur) == 0 {
		chunk, err := r.NextChunk()
		if err != nil {
			return 0, err
		}
		r.cur = chunk
	}
	n := copy(p, r.cur)
	r.cur = r.cur[n:]
	return n, nil
}

// Close releases the underlying reader when it is an io.Closer.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.err == nil {
		r.err = ErrReaderClosed
	}
	r.cur = nil
	if c, ok := r.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (r *Reader) readChunk() ([]byte, error) {
	line, err := r.readLine()
	if err != nil {
		return nil, err
	}
	size, err := parseSize(line)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		if err := r.skipTrailer(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}

	var payload bytes.Buffer
	n, err := io.CopyN(&payload, r.br, size)
	if err != nil {
		if errors.Is(err, io.EOF) && n < size {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	if err := r.expectCRLF(); err != nil {
		return nil, err
	}
	return payload.Bytes(), nil
}

// readLine reads one line without its terminator. A bare LF is tolerated.
func (r *Reader) readLine() ([]byte, error) {
	line, err := r.br.ReadSlice('\n')
	switch {
	case errors.Is(err, bufio.ErrBufferFull):
		return nil, fmt.Errorf("%w: line too long", ErrMalformed)
	case errors.Is(err, io.EOF):
		return nil, io.ErrUnexpectedEOF
	case err != nil:
		return nil, err
	}
	if len(line) > maxLineLength {
		return nil, fmt.Errorf("%w: line too long", ErrMalformed)
	}
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	return line, nil
}

func (r *Reader) expectCRLF() error {
	b, err := r.br.ReadByte()
	if err != nil {
		return io.ErrUnexpectedEOF
	}
	if b == '\r' {
		if b, err = r.br.ReadByte(); err != nil {
			return io.ErrUnexpectedEOF
		}
	}
	if b != '\n' {
		return fmt.Errorf("%w: missing CRLF after chunk data", ErrMalformed)
	}
	return nil
}

func (r *Reader) skipTrailer() error {
	for {
		line, err := r.readLine()
		if err != nil {
			return err
		}
		if len(line) == 0 {
			return nil
		}
	}
}

// parseSize parses a chunk-size line, dropping any chunk extensions.
func parseSize(line []byte) (int64, error) {
	if i := bytes.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	line = bytes.TrimSpace(line)
	if len(line) == 0 || !isHex(line[0]) {
		return 0, fmt.Errorf("%w: invalid chunk size %q", ErrMalformed, line)
	}
	size, err := strconv.ParseInt(string(line), 16, 64)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("%w: invalid chunk size %q", ErrMalformed, line)
	}
	return size, nil
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
