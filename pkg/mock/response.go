package mock

import (
	"bytes"
	"net/http"
	"time"

	"github.com/getmockd/mocknet/pkg/httpmsg"
)

// Body is the payload of a Response: either FlatBody or ChunkedBody.
type Body interface {
	isBody()
}

// FlatBody is a body delivered as one contiguous byte sequence.
type FlatBody struct {
	Data []byte
}

// ChunkedBody is a body delivered as discrete chunks, in order.
type ChunkedBody struct {
	Chunks [][]byte
}

func (FlatBody) isBody()    {}
func (ChunkedBody) isBody() {}

// Response describes the response synthesized for a matched request.
type Response struct {
	// Status is the HTTP status code.
	Status int

	// Header holds every declared occurrence, in declaration order.
	Header httpmsg.Header

	// Body is nil for an empty body.
	Body Body

	// Delay is applied by interceptors before the response is returned.
	Delay time.Duration

	// Err, when set, is returned by interceptors instead of a response.
	Err error
}

// NewResponse returns a Response with the given status and no body.
func NewResponse(status int) *Response {
	return &Response{Status: status}
}

// StatusText returns the status line text, e.g. "200 OK".
func (r *Response) StatusText() string {
	text := http.StatusText(r.Status)
	if text == "" {
		return itoa(r.Status)
	}
	return itoa(r.Status) + " " + text
}

// IsChunked reports whether the body is a ChunkedBody.
func (r *Response) IsChunked() bool {
	_, ok := r.Body.(ChunkedBody)
	return ok
}

// Chunks returns the chunks of a chunked body, or nil for a flat body.
func (r *Response) Chunks() [][]byte {
	c, ok := r.Body.(ChunkedBody)
	if !ok {
		return nil
	}
	return cloneChunks(c.Chunks)
}

// BodyBytes returns the flat body or the concatenation of all chunks.
func (r *Response) BodyBytes() []byte {
	switch b := r.Body.(type) {
	case FlatBody:
		return bytes.Clone(b.Data)
	case ChunkedBody:
		return bytes.Join(b.Chunks, nil)
	default:
		return nil
	}
}

// Clone returns a deep copy.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	c := *r
	c.Header = r.Header.Clone()
	switch b := r.Body.(type) {
	case FlatBody:
		c.Body = FlatBody{Data: bytes.Clone(b.Data)}
	case ChunkedBody:
		c.Body = ChunkedBody{Chunks: cloneChunks(b.Chunks)}
	}
	return &c
}

func cloneChunks(chunks [][]byte) [][]byte {
	out := make([][]byte, len(chunks))
	for i, c := range chunks {
		out[i] = bytes.Clone(c)
	}
	return out
}
