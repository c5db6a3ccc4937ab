package httpmsg

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ErrInvalidRequest is returned when a Request cannot be built.
var ErrInvalidRequest = errors.New("invalid request")

// Request is the canonical form of one outgoing call. It is immutable:
// accessors return copies.
type Request struct {
	method  string
	url     *url.URL
	header  Header
	body    []byte
	hasBody bool
}

// NewRequest builds a Request. A nil body means the call carried no body.
func NewRequest(method, rawURL string, header Header, body []byte) (*Request, error) {
	if method == "" {
		return nil, fmt.Errorf("%w: empty method", ErrInvalidRequest)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return newRequest(method, u, header, body), nil
}

// MustRequest is like NewRequest but panics on error. Intended for tests.
func MustRequest(method, rawURL string, header Header, body []byte) *Request {
	r, err := NewRequest(method, rawURL, header, body)
	if err != nil {
		panic(err)
	}
	return r
}

func newRequest(method string, u *url.URL, header Header, body []byte) *Request {
	r := &Request{
		method: method,
		url:    cloneURL(u),
		header: header.Clone(),
	}
	if body != nil {
		r.body = bytes.Clone(body)
		r.hasBody = true
	}
	return r
}

// FromHTTP builds a Request from an *http.Request. The body is read fully
// and closed; r itself is not modified. Callers that send r on must attach
// a fresh body from Request.Body. Requests received by a server (no URL host) get their scheme and host from
// the connection and the Host header.
func FromHTTP(r *http.Request) (*Request, error) {
	if r == nil || r.URL == nil {
		return nil, fmt.Errorf("%w: nil request", ErrInvalidRequest)
	}

	var body []byte
	if r.Body != nil && r.Body != http.NoBody {
		data, err := io.ReadAll(r.Body)
		_ = r.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}
		body = data
	}

	u := cloneURL(r.URL)
	if u.Host == "" {
		u.Host = r.Host
		if u.Scheme == "" {
			u.Scheme = "http"
			if r.TLS != nil {
				u.Scheme = "https"
			}
		}
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	return newRequest(method, u, HeaderFromHTTP(r.Header), body), nil
}

// SetBody replaces the body of r with a reader over data. GetBody and
// ContentLength are set to match.
func SetBody(r *http.Request, data []byte) {
	if data == nil {
		r.Body = http.NoBody
		r.GetBody = nil
		r.ContentLength = 0
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	r.ContentLength = int64(len(data))
}

// Method returns the request method as sent.
func (r *Request) Method() string { return r.method }

// URL returns a copy of the request URL.
func (r *Request) URL() *url.URL { return cloneURL(r.url) }

// Host returns the URL host, including the port if present.
func (r *Request) Host() string { return r.url.Host }

// Hostname returns the URL host without the port.
func (r *Request) Hostname() string { return r.url.Hostname() }

// Path returns the URL path.
func (r *Request) Path() string { return r.url.Path }

// Query returns the parsed query string.
func (r *Request) Query() url.Values { return r.url.Query() }

// Header returns a copy of the headers.
func (r *Request) Header() Header { return r.header.Clone() }

// HeaderValue returns the joined value of a header and whether it is present.
func (r *Request) HeaderValue(name string) (string, bool) { return r.header.Lookup(name) }

// Body returns a copy of the body, or nil when the request had none.
func (r *Request) Body() []byte { return bytes.Clone(r.body) }

// HasBody reports whether the request carried a body.
func (r *Request) HasBody() bool { return r.hasBody }

// String summarizes the request as "METHOD URL".
func (r *Request) String() string {
	return strings.ToUpper(r.method) + " " + r.url.String()
}

func cloneURL(u *url.URL) *url.URL {
	if u == nil {
		return &url.URL{}
	}
	c := *u
	if u.User != nil {
		user := *u.User
		c.User = &user
	}
	return &c
}
