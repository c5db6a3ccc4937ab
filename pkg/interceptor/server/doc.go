// Package server serves mocks from a local HTTP listener, for code whose
// HTTP client cannot be swapped but whose base URL or proxy can.
//
// Point the code under test at URL(), or set URL() as its HTTP proxy. With
// WithUpstream the listener stands in for that upstream: a request for
// /users is resolved as upstream + /users, so mocks are declared with the
// real URL, and passthrough requests are reverse-proxied to it. Proxy-form
// requests carry their own absolute URL and are resolved and forwarded as
// such.
//
// No-match requests get a 501 with a JSON body listing, per pending mock,
// the matchers that failed. Chunked mock bodies are flushed piece by piece,
// so the client sees one chunk per declared piece.
package server
