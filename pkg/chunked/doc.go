// Package chunked implements chunked transfer-coding framing for bodies that
// are declared as discrete pieces.
//
// Encoding writes every piece as one chunk (hex size line, payload, CRLF)
// followed by the zero-size terminator. Decoding is driven by the declared
// sizes only, so CRLF sequences inside a payload are never mistaken for
// framing:
//
//	wire := chunked.Encode([][]byte{[]byte("a"), []byte("newline\r\n")})
//	pieces, err := chunked.Decode(wire)
//	// pieces == [][]byte{[]byte("a"), []byte("newline\r\n")}
//
// Reader exposes the chunks of a body one at a time through NextChunk while
// still satisfying io.Reader for consumers that only want the payload.
package chunked
