package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/getmockd/mocknet/pkg/chunked"
	"github.com/getmockd/mocknet/pkg/engine"
	"github.com/getmockd/mocknet/pkg/httpmsg"
	"github.com/getmockd/mocknet/pkg/mock"
)

// Sentinel errors.
var (
	ErrAlreadyInstalled = errors.New("transport interceptor already installed")
	ErrNotInstalled     = errors.New("transport interceptor not installed")
)

// Interceptor installs a RoundTripper on http.DefaultTransport or on one
// client.
type Interceptor struct {
	mu sync.Mutex

	client    *http.Client
	original  http.RoundTripper
	installed *RoundTripper
}

var _ engine.Interceptor = (*Interceptor)(nil)

// New returns an interceptor for http.DefaultTransport.
func New() *Interceptor {
	return &Interceptor{}
}

// ForClient returns an interceptor for client.Transport.
func ForClient(client *http.Client) *Interceptor {
	return &Interceptor{client: client}
}

// Name identifies the hook point.
func (i *Interceptor) Name() string {
	if i.client != nil {
		return "transport(client)"
	}
	return "transport(default)"
}

// Install replaces the hooked RoundTripper with one that consults r.
func (i *Interceptor) Install(r engine.Resolver) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.installed != nil {
		return ErrAlreadyInstalled
	}

	if i.client == nil {
		i.original = http.DefaultTransport
		i.installed = &RoundTripper{resolver: r, next: unwrap(i.original)}
		http.DefaultTransport = i.installed
		return nil
	}

	i.original = i.client.Transport
	i.installed = &RoundTripper{resolver: r, next: unwrap(i.original)}
	i.client.Transport = i.installed
	return nil
}

// Uninstall restores the RoundTripper that was in place before Install.
func (i *Interceptor) Uninstall() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.installed == nil {
		return ErrNotInstalled
	}

	if i.client == nil {
		http.DefaultTransport = i.original
	} else {
		i.client.Transport = i.original
	}
	i.original = nil
	i.installed = nil
	return nil
}

// unwrap returns the transport a passthrough is sent on. A nil transport
// means whatever http.DefaultTransport is at call time; another interceptor
// is skipped so a request is resolved once.
func unwrap(rt http.RoundTripper) http.RoundTripper {
	if own, ok := rt.(*RoundTripper); ok {
		return own.next
	}
	return rt
}

// RoundTripper resolves each request before it reaches the network.
type RoundTripper struct {
	resolver engine.Resolver

	// next handles passthrough; nil means http.DefaultTransport.
	next http.RoundTripper
}

// NewRoundTripper returns a RoundTripper resolving against r and passing
// through to next (http.DefaultTransport when nil).
func NewRoundTripper(r engine.Resolver, next http.RoundTripper) *RoundTripper {
	return &RoundTripper{resolver: r, next: unwrap(next)}
}

// RoundTrip implements http.RoundTripper.
func (t *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	r, err := httpmsg.FromHTTP(req)
	if err != nil {
		return nil, err
	}

	out := t.resolver.Resolve(r)
	switch out.Action {
	case engine.Matched:
		return respond(req, out.Response)
	case engine.PassThrough:
		return t.passthrough().RoundTrip(forwardable(req, r))
	default:
		return nil, out.Err
	}
}

// forwardable returns a copy of req carrying the buffered body, leaving the
// caller's request untouched.
func forwardable(req *http.Request, r *httpmsg.Request) *http.Request {
	out := req.Clone(req.Context())
	if r.HasBody() {
		httpmsg.SetBody(out, r.Body())
	}
	return out
}

func (t *RoundTripper) passthrough() http.RoundTripper {
	if t.next != nil {
		return t.next
	}
	return unwrapDefault()
}

func unwrapDefault() http.RoundTripper {
	rt := http.DefaultTransport
	for {
		own, ok := rt.(*RoundTripper)
		if !ok {
			return rt
		}
		if own.next == nil {
			// Nothing real left to delegate to.
			return &http.Transport{Proxy: http.ProxyFromEnvironment}
		}
		rt = own.next
	}
}

func respond(req *http.Request, spec *mock.Response) (*http.Response, error) {
	if spec.Delay > 0 {
		timer := time.NewTimer(spec.Delay)
		select {
		case <-timer.C:
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		}
	}
	if spec.Err != nil {
		return nil, fmt.Errorf("mocked transport error: %w", spec.Err)
	}

	resp := &http.Response{
		Status:     spec.StatusText(),
		StatusCode: spec.Status,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     spec.Header.Joined(),
		Request:    req,
	}

	switch body := spec.Body.(type) {
	case mock.ChunkedBody:
		resp.TransferEncoding = []string{"chunked"}
		resp.ContentLength = -1
		resp.Body = chunked.FromChunks(body.Chunks)
	default:
		data := spec.BodyBytes()
		resp.ContentLength = int64(len(data))
		resp.Body = io.NopCloser(bytes.NewReader(data))
	}

	if req.Method == http.MethodHead {
		resp.Body = http.NoBody
	}
	return resp, nil
}
