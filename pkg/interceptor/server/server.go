package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	stdhttputil "net/http/httputil"
	"net/url"
	"sync"
	"time"

	"github.com/getmockd/mocknet/pkg/engine"
	"github.com/getmockd/mocknet/pkg/httpmsg"
	"github.com/getmockd/mocknet/pkg/httputil"
	"github.com/getmockd/mocknet/pkg/logging"
)

// DefaultAddr binds an ephemeral loopback port.
const DefaultAddr = "127.0.0.1:0"

// shutdownTimeout bounds Uninstall.
const shutdownTimeout = 5 * time.Second

// Sentinel errors.
var (
	ErrAlreadyInstalled = errors.New("server interceptor already installed")
	ErrNotInstalled     = errors.New("server interceptor not installed")
)

// Interceptor runs a local HTTP server while installed.
type Interceptor struct {
	mu sync.Mutex

	addr     string
	upstream *url.URL
	log      *slog.Logger

	srv      *http.Server
	listener net.Listener
	done     chan struct{}
}

var _ engine.Interceptor = (*Interceptor)(nil)

// Option is a functional option for configuring an Interceptor.
type Option func(*Interceptor)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(i *Interceptor) { i.addr = addr }
}

// WithUpstream sets the service the listener stands in for.
func WithUpstream(u *url.URL) Option {
	return func(i *Interceptor) { i.upstream = u }
}

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(i *Interceptor) {
		if log != nil {
			i.log = log
		}
	}
}

// New creates an Interceptor. Nothing listens until Install.
func New(opts ...Option) *Interceptor {
	i := &Interceptor{addr: DefaultAddr, log: logging.Nop()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Name identifies the interceptor.
func (i *Interceptor) Name() string {
	return "server"
}

// URL returns the base URL of the running listener, or "" when not
// installed.
func (i *Interceptor) URL() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.listener == nil {
		return ""
	}
	return "http://" + i.listener.Addr().String()
}

// Install starts listening and serving requests resolved by r.
func (i *Interceptor) Install(r engine.Resolver) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.srv != nil {
		return ErrAlreadyInstalled
	}

	ln, err := net.Listen("tcp", i.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", i.addr, err)
	}

	srv := &http.Server{
		Handler:           Handler(r, i.upstream, i.log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			i.log.Error("mock server stopped", "error", err)
		}
	}()

	i.srv = srv
	i.listener = ln
	i.done = done
	i.log.Debug("mock server listening", "addr", ln.Addr().String())
	return nil
}

// Uninstall stops the server and waits for it to exit.
func (i *Interceptor) Uninstall() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.srv == nil {
		return ErrNotInstalled
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := i.srv.Shutdown(ctx)
	<-i.done

	i.srv = nil
	i.listener = nil
	i.done = nil
	return err
}

// Handler returns the http.Handler the server runs. It is exported so it
// can be mounted on an httptest.Server or an existing mux.
func Handler(r engine.Resolver, upstream *url.URL, log *slog.Logger) http.Handler {
	if log == nil {
		log = logging.Nop()
	}
	return &handler{resolver: r, upstream: upstream, log: log}
}

type handler struct {
	resolver engine.Resolver
	upstream *url.URL
	log      *slog.Logger
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target := h.target(r)

	req, err := httpmsg.FromHTTP(r)
	if err == nil && req.HasBody() {
		httpmsg.SetBody(r, req.Body())
	}
	if err == nil && target != nil && !r.URL.IsAbs() {
		req, err = rebase(req, target)
	}
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	out := h.resolver.Resolve(req)
	switch out.Action {
	case engine.Matched:
		h.respond(w, r, out)
	case engine.PassThrough:
		h.forward(w, r, target)
	default:
		httputil.WriteErrorWithDetails(w, http.StatusNotImplemented, "no_match", out.Err.Error(), out.Err.Candidates)
	}
}

// target is where the request is really meant to go: its own absolute URL
// for proxy-form requests, otherwise the upstream.
func (h *handler) target(r *http.Request) *url.URL {
	if r.URL.IsAbs() {
		return &url.URL{Scheme: r.URL.Scheme, Host: r.URL.Host}
	}
	return h.upstream
}

// rebase moves a request received on the listener onto the upstream it
// stands in for.
func rebase(req *httpmsg.Request, target *url.URL) (*httpmsg.Request, error) {
	u := req.URL()
	u.Scheme = target.Scheme
	u.Host = target.Host
	u.Path = singleJoiningSlash(target.Path, u.Path)
	u.RawPath = ""

	var body []byte
	if req.HasBody() {
		body = req.Body()
	}
	return httpmsg.NewRequest(req.Method(), u.String(), req.Header(), body)
}

func (h *handler) respond(w http.ResponseWriter, r *http.Request, out engine.Outcome) {
	spec := out.Response
	if spec.Delay > 0 {
		timer := time.NewTimer(spec.Delay)
		select {
		case <-timer.C:
		case <-r.Context().Done():
			timer.Stop()
			return
		}
	}
	if spec.Err != nil {
		h.log.Debug("aborting connection for mocked error", "mock", out.Mock.String(), "error", spec.Err)
		panic(http.ErrAbortHandler)
	}
	httputil.WriteMockResponse(w, spec)
}

func (h *handler) forward(w http.ResponseWriter, r *http.Request, target *url.URL) {
	if target == nil {
		httputil.WriteBadGateway(w, "no_upstream", "network mode allows "+r.Method+" "+r.URL.String()+" but no upstream is configured")
		return
	}
	proxy := &stdhttputil.ReverseProxy{
		Rewrite: func(pr *stdhttputil.ProxyRequest) {
			if r.URL.IsAbs() {
				pr.Out.URL = cloneURL(r.URL)
				pr.Out.Host = ""
				return
			}
			pr.SetURL(target)
		},
		ErrorHandler: func(w http.ResponseWriter, _ *http.Request, err error) {
			httputil.WriteBadGateway(w, "upstream_error", err.Error())
		},
	}
	proxy.ServeHTTP(w, r)
}

func cloneURL(u *url.URL) *url.URL {
	c := *u
	if u.User != nil {
		user := *u.User
		c.User = &user
	}
	return &c
}

func singleJoiningSlash(a, b string) string {
	switch {
	case a == "":
		return b
	case a[len(a)-1] == '/' && len(b) > 0 && b[0] == '/':
		return a + b[1:]
	case a[len(a)-1] != '/' && (len(b) == 0 || b[0] != '/'):
		return a + "/" + b
	}
	return a + b
}
