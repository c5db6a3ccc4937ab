package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/getmockd/mocknet/pkg/config"
	"github.com/getmockd/mocknet/pkg/httpmsg"
	"github.com/getmockd/mocknet/pkg/logging"
	"github.com/getmockd/mocknet/pkg/matching"
	"github.com/getmockd/mocknet/pkg/mock"
	"github.com/getmockd/mocknet/pkg/requestlog"
	"github.com/getmockd/mocknet/pkg/util"
)

// Engine matches intercepted requests against registered mocks.
type Engine struct {
	mu sync.Mutex

	// lifecycle serializes Enable and Disable. Interceptors are uninstalled
	// outside mu so in-flight resolutions can finish.
	lifecycle sync.Mutex

	cfg     *config.Config
	log     *slog.Logger
	history requestlog.Store

	interceptors []Interceptor
	installed    []Interceptor

	mocks []*mock.Mock

	enabled      bool
	network      bool
	networkHosts []string
}

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithConfig applies settings. The logger and history store it describes
// are used unless WithLogger or WithHistory are also given.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) {
		if cfg != nil {
			e.cfg = cfg.Clone()
		}
	}
}

// WithHistory sets the store every resolution is recorded in.
func WithHistory(store requestlog.Store) Option {
	return func(e *Engine) {
		e.history = store
	}
}

// WithInterceptors registers interceptors, installed in order on Enable.
func WithInterceptors(interceptors ...Interceptor) Option {
	return func(e *Engine) {
		e.interceptors = append(e.interceptors, interceptors...)
	}
}

// New creates a disabled Engine.
func New(opts ...Option) *Engine {
	e := &Engine{cfg: config.Default()}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = e.cfg.Logger()
	}
	if e.history == nil {
		e.history = requestlog.NewMemoryStore(e.cfg.HistorySize)
	}
	return e
}

var (
	defaultEngine     *Engine
	defaultEngineOnce sync.Once
)

// Default returns the process-wide engine, configured from MOCKNET_*
// environment variables. Invalid variables are logged and ignored.
func Default() *Engine {
	defaultEngineOnce.Do(func() {
		cfg, err := config.FromEnv()
		if err != nil {
			cfg = config.Default()
		}
		defaultEngine = New(WithConfig(cfg))
		if err != nil {
			defaultEngine.log.Warn("ignoring environment configuration", "error", err)
		}
	})
	return defaultEngine
}

// Config returns a copy of the engine settings.
func (e *Engine) Config() *config.Config {
	return e.cfg.Clone()
}

// Logger returns the operational logger.
func (e *Engine) Logger() *slog.Logger {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.log
}

// SetLogger replaces the operational logger. A nil logger discards output.
func (e *Engine) SetLogger(log *slog.Logger) {
	if log == nil {
		log = logging.Nop()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log = log
}

// Use registers an interceptor. When the engine is already enabled the
// interceptor is installed immediately. Registering the same interceptor
// twice is a no-op.
func (e *Engine) Use(ic Interceptor) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if slices.Contains(e.interceptors, ic) {
		return nil
	}
	if e.enabled {
		if err := ic.Install(e); err != nil {
			return fmt.Errorf("%w: installing %s: %w", ErrInterceptor, ic.Name(), err)
		}
		e.installed = append(e.installed, ic)
	}
	e.interceptors = append(e.interceptors, ic)
	return nil
}

// Register appends mocks to the sequence. Registration order is priority
// order. Nil mocks are ignored.
func (e *Engine) Register(mocks ...*mock.Mock) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, m := range mocks {
		if m == nil {
			continue
		}
		e.mocks = append(e.mocks, m)
		e.log.Debug("registered mock", "id", m.ID(), "mock", m.String())
	}
}

// Mock declares a mock and registers it.
func (e *Engine) Mock(method, rawURL string) *mock.Builder {
	b := mock.New(method, rawURL)
	e.Register(b.Mock())
	return b
}

// Get declares a GET mock.
func (e *Engine) Get(rawURL string) *mock.Builder { return e.Mock(http.MethodGet, rawURL) }

// Post declares a POST mock.
func (e *Engine) Post(rawURL string) *mock.Builder { return e.Mock(http.MethodPost, rawURL) }

// Put declares a PUT mock.
func (e *Engine) Put(rawURL string) *mock.Builder { return e.Mock(http.MethodPut, rawURL) }

// Patch declares a PATCH mock.
func (e *Engine) Patch(rawURL string) *mock.Builder { return e.Mock(http.MethodPatch, rawURL) }

// Delete declares a DELETE mock.
func (e *Engine) Delete(rawURL string) *mock.Builder { return e.Mock(http.MethodDelete, rawURL) }

// Head declares a HEAD mock.
func (e *Engine) Head(rawURL string) *mock.Builder { return e.Mock(http.MethodHead, rawURL) }

// Options declares an OPTIONS mock.
func (e *Engine) Options(rawURL string) *mock.Builder { return e.Mock(http.MethodOptions, rawURL) }

// Resolve decides how req is handled. The first registered mock that
// matches is consumed and returned. Otherwise the request passes through
// when network mode allows its host, or is rejected with diagnostics.
// A disabled engine passes everything through.
func (e *Engine) Resolve(req *httpmsg.Request) Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.enabled {
		return Outcome{Action: PassThrough}
	}

	for _, m := range e.mocks {
		resp, ok := m.Match(req)
		if !ok {
			continue
		}
		e.log.Debug("request matched", "request", req.String(), "mock", m.String(), "status", resp.Status)
		e.record(req, Outcome{Action: Matched, Response: resp, Mock: m})
		return Outcome{Action: Matched, Response: resp, Mock: m}
	}

	if e.network && e.hostAllowedLocked(req) {
		e.log.Debug("request passed through", "request", req.String())
		out := Outcome{Action: PassThrough}
		e.record(req, out)
		return out
	}

	out := Outcome{Action: NoMatch, Err: e.noMatchLocked(req)}
	e.log.Debug("request not matched", "request", req.String(), "candidates", len(out.Err.Candidates))
	e.record(req, out)
	return out
}

func (e *Engine) noMatchLocked(req *httpmsg.Request) *NoMatchError {
	nm := &NoMatchError{Method: req.Method(), URL: req.URL().String()}
	for _, m := range e.mocks {
		if !m.Pending() {
			continue
		}
		c := Candidate{MockID: m.ID(), Mock: m.String()}
		if err := m.Err(); err != nil {
			c.Invalid = err.Error()
			nm.Candidates = append(nm.Candidates, c)
			continue
		}
		for _, r := range m.Explain(req) {
			if r.Matched {
				c.Passed++
				continue
			}
			c.Failures = append(c.Failures, r)
		}
		nm.Candidates = append(nm.Candidates, c)
	}
	return nm
}

func (e *Engine) hostAllowedLocked(req *httpmsg.Request) bool {
	if len(e.networkHosts) == 0 {
		return true
	}
	host := strings.ToLower(req.Host())
	hostname := strings.ToLower(req.Hostname())
	for _, pattern := range e.networkHosts {
		pattern = strings.ToLower(pattern)
		if pattern == host || pattern == hostname {
			return true
		}
		if ok, _ := doublestar.Match(pattern, hostname); ok {
			return true
		}
	}
	return false
}

func (e *Engine) record(req *httpmsg.Request, out Outcome) {
	body := req.Body()
	entry := &requestlog.Entry{
		Method:   req.Method(),
		URL:      req.URL().String(),
		Host:     req.Host(),
		Path:     req.Path(),
		Headers:  req.Header().HTTP(),
		Body:     util.TruncateBody(body, util.MaxLogBodySize),
		BodySize: len(body),
		Outcome:  out.Action.String(),
	}
	switch out.Action {
	case Matched:
		entry.MatchedMockID = out.Mock.ID()
		entry.MatchedMockName = out.Mock.Name()
		entry.ResponseStatus = out.Response.Status
	case NoMatch:
		entry.Error = ErrNoMatch.Error()
		for _, c := range out.Err.Candidates {
			entry.NearMisses = append(entry.NearMisses, nearMiss(c))
		}
	}
	e.history.Log(entry)
}

func nearMiss(c Candidate) requestlog.NearMissInfo {
	info := requestlog.NearMissInfo{
		MockID:          c.MockID,
		MockName:        c.Mock,
		MatchPercentage: requestlog.MatchPercentage(c.Passed, c.Passed+len(c.Failures)),
	}
	if c.Invalid != "" {
		info.MatchPercentage = 0
		info.Reasons = []string{c.Invalid}
		return info
	}
	for _, f := range c.Failures {
		info.Reasons = append(info.Reasons, f.String())
	}
	return info
}

// Enable installs every interceptor in registration order. If one fails,
// those already installed are uninstalled and the engine stays disabled.
// Network mode starts as configured.
func (e *Engine) Enable() error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.enabled {
		return nil
	}

	installed := make([]Interceptor, 0, len(e.interceptors))
	for _, ic := range e.interceptors {
		if err := ic.Install(e); err != nil {
			rollback := uninstallAll(installed)
			return errors.Join(fmt.Errorf("%w: installing %s: %w", ErrInterceptor, ic.Name(), err), rollback)
		}
		installed = append(installed, ic)
	}

	e.installed = installed
	e.enabled = true
	if e.cfg.Network {
		e.network = true
		e.networkHosts = append(e.networkHosts, e.cfg.NetworkHosts...)
	}
	e.log.Info("engine enabled", "interceptors", len(installed), "network", e.network)
	return nil
}

// Disable uninstalls interceptors in reverse order and turns network mode
// off. It is idempotent. Requests resolved while interceptors shut down
// see a disabled engine and pass through.
func (e *Engine) Disable() error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	e.mu.Lock()
	if !e.enabled {
		e.mu.Unlock()
		return nil
	}
	installed := e.installed
	e.installed = nil
	e.enabled = false
	e.network = false
	e.networkHosts = nil
	log := e.log
	e.mu.Unlock()

	err := uninstallAll(installed)
	log.Info("engine disabled")
	return err
}

func uninstallAll(installed []Interceptor) error {
	var errs []error
	for i := len(installed) - 1; i >= 0; i-- {
		if err := installed[i].Uninstall(); err != nil {
			errs = append(errs, fmt.Errorf("%w: uninstalling %s: %w", ErrInterceptor, installed[i].Name(), err))
		}
	}
	return errors.Join(errs...)
}

// IsEnabled reports whether the engine intercepts requests.
func (e *Engine) IsEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// EnableNetwork lets unmatched requests reach the network. When hosts are
// given, only those hosts (exact names, host:port, or globs such as
// "*.example.com") pass through; calls accumulate. Declared mocks are
// always tried first.
func (e *Engine) EnableNetwork(hosts ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.network = true
	e.networkHosts = append(e.networkHosts, hosts...)
	e.log.Debug("network mode enabled", "hosts", e.networkHosts)
}

// IsNetworkEnabled reports whether network mode is on.
func (e *Engine) IsNetworkEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.network
}

// Reset discards all mocks and history. The enabled state is unchanged.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mocks = nil
	e.history.Clear()
}

// Mocks returns the registered mocks in priority order.
func (e *Engine) Mocks() []*mock.Mock {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.mocks)
}

// Pending returns the mocks still expecting requests, including invalid
// ones.
func (e *Engine) Pending() []*mock.Mock {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pendingLocked()
}

func (e *Engine) pendingLocked() []*mock.Mock {
	var out []*mock.Mock
	for _, m := range e.mocks {
		if m.Pending() {
			out = append(out, m)
		}
	}
	return out
}

// IsDone reports whether no mock is pending.
func (e *Engine) IsDone() bool {
	return len(e.Pending()) == 0
}

// History returns every recorded resolution, oldest first.
func (e *Engine) History() []*requestlog.Entry {
	return e.history.List(nil)
}

// Unmatched returns the requests that were rejected with NoMatch.
func (e *Engine) Unmatched() []*requestlog.Entry {
	return e.history.List(&requestlog.Filter{Outcome: requestlog.OutcomeNoMatch})
}

// Explain evaluates every matcher of every registered mock against req
// without changing any state.
func (e *Engine) Explain(req *httpmsg.Request) map[string][]matching.Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string][]matching.Result, len(e.mocks))
	for _, m := range e.mocks {
		out[m.ID()] = m.Explain(req)
	}
	return out
}

// Teardown checks for pending mocks. Mocks that were never exercised are
// reported unless allowPending is set; invalid mocks are always reported.
func (e *Engine) Teardown(allowPending bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var pending []PendingMock
	for _, m := range e.pendingLocked() {
		p := PendingMock{MockID: m.ID(), Mock: m.String(), Matches: m.Matches(), Remaining: m.Remaining()}
		if err := m.Err(); err != nil {
			p.Invalid = err.Error()
		} else if allowPending {
			continue
		}
		pending = append(pending, p)
	}
	if len(pending) == 0 {
		return nil
	}
	e.log.Debug("pending mocks at teardown", "count", len(pending))
	return &PendingMocksError{Mocks: pending}
}
