package mock

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/getmockd/mocknet/pkg/httpmsg"
	"github.com/getmockd/mocknet/pkg/matching"
	"golang.org/x/net/http/httpguts"
)

var (
	// ErrInvalidHeader is recorded for header names or values that cannot be
	// sent on the wire.
	ErrInvalidHeader = errors.New("invalid header")

	// ErrInvalidTimes is recorded when Times is given a non-positive count.
	ErrInvalidTimes = errors.New("times must be positive")

	// ErrUnsupportedBody is recorded when a body value cannot be converted
	// to bytes.
	ErrUnsupportedBody = errors.New("unsupported body type")
)

// Builder declares the request side of a mock. Method and URL are fixed at
// creation; every other call appends a matcher. Errors are recorded on the
// mock (first error wins) and surface through Err and the engine.
type Builder struct {
	mock *Mock
}

// New starts a mock for method and rawURL. An empty method matches any
// method and an empty URL any URL.
func New(method, rawURL string) *Builder {
	m := newMock(method, rawURL)
	b := &Builder{mock: m}
	if method != "" {
		m.matchers.Add(matching.Method(method))
	}
	if rawURL != "" {
		u, err := matching.URL(rawURL)
		if err != nil {
			m.setErr("url", err)
		} else {
			m.matchers.Add(u)
		}
	}
	return b
}

// Mock returns the mock being built.
func (b *Builder) Mock() *Mock {
	return b.mock
}

// Err returns the first error recorded while building.
func (b *Builder) Err() error {
	return b.mock.Err()
}

// Name sets a human-readable name used in diagnostics.
func (b *Builder) Name(name string) *Builder {
	b.mock.update(func(m *Mock) { m.name = name })
	return b
}

// Match appends an arbitrary matcher.
func (b *Builder) Match(matcher matching.Matcher) *Builder {
	b.mock.update(func(m *Mock) { m.matchers.Add(matcher) })
	return b
}

// add appends the matcher built by a constructor, recording its error.
func (b *Builder) add(op string, matcher matching.Matcher, err error) *Builder {
	b.mock.update(func(m *Mock) {
		if err != nil {
			m.setErr(op, err)
			return
		}
		m.matchers.Add(matcher)
	})
	return b
}

// Header requires the joined values of the request header name to equal
// value. To match a header sent twice declare both values: "a, b".
func (b *Builder) Header(name, value string) *Builder {
	if err := validateHeader(name, value); err != nil {
		return b.add("header", nil, err)
	}
	return b.Match(matching.Header(name, value))
}

// HeaderPresent requires the request header to be present with any value.
func (b *Builder) HeaderPresent(name string) *Builder {
	if err := validateHeader(name, ""); err != nil {
		return b.add("headerPresent", nil, err)
	}
	return b.Match(matching.HeaderPresent(name))
}

// Query requires a query parameter value.
func (b *Builder) Query(name, value string) *Builder {
	return b.Match(matching.Query(name, value))
}

// Body requires the exact request body. data may be []byte, string or an
// io.Reader.
func (b *Builder) Body(data any) *Builder {
	raw, err := toBytes(data)
	if err != nil {
		return b.add("body", nil, err)
	}
	return b.Match(matching.Body(raw))
}

// BodyContains requires a substring in the request body.
func (b *Builder) BodyContains(substr string) *Builder {
	return b.Match(matching.BodyContains(substr))
}

// BodyMatches requires the request body to match a regular expression.
func (b *Builder) BodyMatches(pattern string) *Builder {
	m, err := matching.BodyPattern(pattern)
	return b.add("bodyMatches", m, err)
}

// JSON requires the request body to be JSON structurally equal to v.
func (b *Builder) JSON(v any) *Builder {
	m, err := matching.JSON(v)
	return b.add("json", m, err)
}

// JSONPath requires a JSONPath expression to select a value equal to want.
func (b *Builder) JSONPath(path string, want any) *Builder {
	m, err := matching.JSONPath(path, want)
	return b.add("jsonPath", m, err)
}

// JSONSchema requires the request body to validate against schema.
func (b *Builder) JSONSchema(schema any) *Builder {
	m, err := matching.JSONSchema(schema)
	return b.add("jsonSchema", m, err)
}

// XPath requires an XML body value selected by path to equal want.
func (b *Builder) XPath(path, want string) *Builder {
	m, err := matching.XPath(path, want)
	return b.add("xpath", m, err)
}

// Expr requires a boolean expression over the request to hold.
// See matching.ExprEnv for the available variables.
func (b *Builder) Expr(source string) *Builder {
	m, err := matching.Expr(source)
	return b.add("expr", m, err)
}

// PathGlob requires the URL path to match a ** glob.
func (b *Builder) PathGlob(pattern string) *Builder {
	m, err := matching.PathGlob(pattern)
	return b.add("pathGlob", m, err)
}

// URLMatches requires the full URL to match a regular expression.
func (b *Builder) URLMatches(pattern string) *Builder {
	m, err := matching.URLPattern(pattern)
	return b.add("urlMatches", m, err)
}

// Filter requires fn to accept the request.
func (b *Builder) Filter(name string, fn func(*httpmsg.Request) bool) *Builder {
	return b.Match(matching.Func(name, fn))
}

// Times lets the mock match n requests before it is consumed. The default
// is one.
func (b *Builder) Times(n int) *Builder {
	b.mock.update(func(m *Mock) {
		if n <= 0 {
			m.setErr("times", fmt.Errorf("%w: %d", ErrInvalidTimes, n))
			return
		}
		m.remaining = n
		m.persist = false
	})
	return b
}

// Persist lets the mock match any number of requests.
func (b *Builder) Persist() *Builder {
	b.mock.update(func(m *Mock) { m.persist = true })
	return b
}

// Reply sets the response status and switches to the response builder.
func (b *Builder) Reply(status int) *ResponseBuilder {
	b.mock.update(func(m *Mock) {
		if m.response == nil {
			m.response = NewResponse(status)
			return
		}
		m.response.Status = status
	})
	return &ResponseBuilder{mock: b.mock}
}

// ResponseBuilder declares the response side of a mock.
type ResponseBuilder struct {
	mock *Mock
}

// Mock returns the mock being built.
func (r *ResponseBuilder) Mock() *Mock {
	return r.mock
}

// Err returns the first error recorded while building.
func (r *ResponseBuilder) Err() error {
	return r.mock.Err()
}

// Matches returns the mock's match counter.
func (r *ResponseBuilder) Matches() int {
	return r.mock.Matches()
}

func (r *ResponseBuilder) update(fn func(resp *Response, m *Mock)) *ResponseBuilder {
	r.mock.update(func(m *Mock) { fn(m.response, m) })
	return r
}

// Status replaces the status code.
func (r *ResponseBuilder) Status(status int) *ResponseBuilder {
	return r.update(func(resp *Response, _ *Mock) { resp.Status = status })
}

// Header appends a header occurrence. Earlier values for the same name are
// kept, so calling Header twice produces a multi-value header.
func (r *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	return r.update(func(resp *Response, m *Mock) {
		if err := validateHeader(name, value); err != nil {
			m.setErr("response header", err)
			return
		}
		resp.Header.Add(name, value)
	})
}

// SetHeader replaces all occurrences of a header with one value.
func (r *ResponseBuilder) SetHeader(name, value string) *ResponseBuilder {
	return r.update(func(resp *Response, m *Mock) {
		if err := validateHeader(name, value); err != nil {
			m.setErr("response header", err)
			return
		}
		resp.Header.Set(name, value)
	})
}

// Type sets the Content-Type header.
func (r *ResponseBuilder) Type(contentType string) *ResponseBuilder {
	return r.SetHeader("Content-Type", contentType)
}

// JSON encodes v as the body and sets Content-Type to application/json
// unless one was already declared. JSON text ([]byte, string,
// json.RawMessage) is used as is.
func (r *ResponseBuilder) JSON(v any) *ResponseBuilder {
	return r.update(func(resp *Response, m *Mock) {
		data, err := encodeJSON(v)
		if err != nil {
			m.setErr("response json", err)
			return
		}
		resp.Body = FlatBody{Data: data}
		if !resp.Header.Has("Content-Type") {
			resp.Header.Add("Content-Type", "application/json")
		}
	})
}

// Body sets a flat body. data may be []byte, string or an io.Reader.
func (r *ResponseBuilder) Body(data any) *ResponseBuilder {
	return r.update(func(resp *Response, m *Mock) {
		raw, err := toBytes(data)
		if err != nil {
			m.setErr("response body", err)
			return
		}
		resp.Body = FlatBody{Data: raw}
	})
}

// ChunkedBody sets a chunked body. A []byte or string becomes a single
// chunk; [][]byte, []string or []any become one chunk per element, in order.
// Empty input yields zero chunks, and empty elements are dropped since a
// zero-length chunk terminates the body on the wire.
func (r *ResponseBuilder) ChunkedBody(data any) *ResponseBuilder {
	return r.update(func(resp *Response, m *Mock) {
		chunks, err := toChunks(data)
		if err != nil {
			m.setErr("response chunked body", err)
			return
		}
		resp.Body = ChunkedBody{Chunks: chunks}
	})
}

// Delay postpones the response.
func (r *ResponseBuilder) Delay(d time.Duration) *ResponseBuilder {
	return r.update(func(resp *Response, _ *Mock) { resp.Delay = d })
}

// Error makes interceptors fail the request with err instead of responding.
func (r *ResponseBuilder) Error(err error) *ResponseBuilder {
	return r.update(func(resp *Response, _ *Mock) { resp.Err = err })
}

func validateHeader(name, value string) error {
	if !httpguts.ValidHeaderFieldName(name) {
		return fmt.Errorf("%w: name %q", ErrInvalidHeader, name)
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return fmt.Errorf("%w: value for %q", ErrInvalidHeader, name)
	}
	return nil
}

func encodeJSON(v any) ([]byte, error) {
	switch t := v.(type) {
	case json.RawMessage:
		if !json.Valid(t) {
			return nil, fmt.Errorf("%w: invalid json", matching.ErrMalformedBody)
		}
		return []byte(t), nil
	case []byte:
		if !json.Valid(t) {
			return nil, fmt.Errorf("%w: invalid json", matching.ErrMalformedBody)
		}
		return append([]byte(nil), t...), nil
	case string:
		if !json.Valid([]byte(t)) {
			return nil, fmt.Errorf("%w: invalid json", matching.ErrMalformedBody)
		}
		return []byte(t), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", matching.ErrMalformedBody, err)
	}
	return data, nil
}

func toBytes(data any) ([]byte, error) {
	switch t := data.(type) {
	case nil:
		return nil, nil
	case []byte:
		return append([]byte(nil), t...), nil
	case json.RawMessage:
		return append([]byte(nil), t...), nil
	case string:
		return []byte(t), nil
	case io.Reader:
		raw, err := io.ReadAll(t)
		if err != nil {
			return nil, fmt.Errorf("reading body: %w", err)
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedBody, data)
	}
}

func toChunks(data any) ([][]byte, error) {
	var pieces []any
	switch t := data.(type) {
	case [][]byte:
		for _, p := range t {
			pieces = append(pieces, p)
		}
	case []string:
		for _, p := range t {
			pieces = append(pieces, p)
		}
	case []any:
		pieces = t
	default:
		pieces = []any{data}
	}

	chunks := [][]byte{}
	for _, p := range pieces {
		raw, err := toBytes(p)
		if err != nil {
			return nil, err
		}
		if len(raw) == 0 {
			continue
		}
		chunks = append(chunks, raw)
	}
	return chunks, nil
}
