package testing

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/getmockd/mocknet/pkg/engine"
	"github.com/getmockd/mocknet/pkg/interceptor/transport"
	"github.com/getmockd/mocknet/pkg/logging"
	"github.com/getmockd/mocknet/pkg/mock"
	"github.com/getmockd/mocknet/pkg/requestlog"
)

var (
	defaultTransport     *transport.Interceptor
	defaultTransportOnce sync.Once
)

// defaultEngine returns engine.Default with http.DefaultTransport hooked.
func defaultEngine() (*engine.Engine, error) {
	e := engine.Default()
	defaultTransportOnce.Do(func() {
		defaultTransport = transport.New()
	})
	return e, e.Use(defaultTransport)
}

// Option configures Activate.
type Option func(*options)

type options struct {
	engine   *engine.Engine
	scope    []engine.ScopeOption
	logLevel *slog.Level
}

// WithEngine activates e instead of the process-wide engine.
func WithEngine(e *engine.Engine) Option {
	return func(o *options) { o.engine = e }
}

// AllowPendingMocks skips the pending-mock check at cleanup.
func AllowPendingMocks() Option {
	return func(o *options) { o.scope = append(o.scope, engine.AllowPendingMocks()) }
}

// WithNetwork starts in network mode, optionally restricted to hosts.
func WithNetwork(hosts ...string) Option {
	return func(o *options) { o.scope = append(o.scope, engine.WithNetwork(hosts...)) }
}

// WithMockFiles registers the mocks declared in files or ** globs.
func WithMockFiles(patterns ...string) Option {
	return func(o *options) { o.scope = append(o.scope, engine.WithMockFiles(patterns...)) }
}

// WithLogLevel mirrors engine logs at or above level into the test log.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) { o.logLevel = &level }
}

// Mocknet is an engine activated for the duration of one test. It embeds
// the engine, so mocks are declared on it directly:
//
//	mn := mocknettest.Activate(t)
//	mn.Get("https://api.example.com/users").Reply(200).JSON(users)
type Mocknet struct {
	*engine.Engine

	t     testing.TB
	scope *engine.Scope
}

// Activate enables interception until the test ends. By default the
// process-wide engine is used, intercepting every client that relies on
// http.DefaultTransport; such tests must not run in parallel. At cleanup
// the engine is disabled and pending mocks fail the test.
func Activate(t testing.TB, opts ...Option) *Mocknet {
	t.Helper()

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	e := o.engine
	if e == nil {
		var err error
		if e, err = defaultEngine(); err != nil {
			t.Fatalf("mocknet: %v", err)
			return nil
		}
	}

	if o.logLevel != nil {
		prev := e.Logger()
		e.SetLogger(logging.Tee(prev, logging.NewTestHandler(t, *o.logLevel)))
		t.Cleanup(func() { e.SetLogger(prev) })
	}

	scope, err := e.Activate(o.scope...)
	if err != nil {
		t.Fatalf("mocknet: activating: %v", err)
		return nil
	}

	m := &Mocknet{Engine: e, t: t, scope: scope}
	t.Cleanup(func() {
		if err := scope.Close(); err != nil {
			t.Errorf("mocknet: %v", err)
		}
	})
	return m
}

// Close ends the scope early and returns its result. Cleanup then has
// nothing left to report.
func (m *Mocknet) Close() error {
	return m.scope.Close()
}

// Requests returns every resolved request, oldest first.
func (m *Mocknet) Requests() []RequestLog {
	history := m.History()
	result := make([]RequestLog, len(history))
	for i, entry := range history {
		result[i] = newRequestLog(entry)
	}
	return result
}

// AssertDone fails the test if any mock is still pending.
func (m *Mocknet) AssertDone() {
	m.t.Helper()

	pending := m.Pending()
	if len(pending) == 0 {
		return
	}
	names := make([]string, len(pending))
	for i, p := range pending {
		names[i] = p.String()
	}
	m.t.Errorf("expected all mocks to be done, %d pending:\n  %s", len(pending), strings.Join(names, "\n  "))
}

// AssertNoUnmatched fails the test if any request was rejected for lack of
// a matching mock.
func (m *Mocknet) AssertNoUnmatched() {
	m.t.Helper()

	unmatched := m.Unmatched()
	if len(unmatched) == 0 {
		return
	}
	lines := make([]string, len(unmatched))
	for i, u := range unmatched {
		lines[i] = u.Method + " " + u.URL
	}
	m.t.Errorf("expected every request to match a mock, %d did not:\n  %s", len(unmatched), strings.Join(lines, "\n  "))
}

// AssertMatches fails the test unless mk matched exactly n requests.
func (m *Mocknet) AssertMatches(mk *mock.Mock, n int) {
	m.t.Helper()

	if got := mk.Matches(); got != n {
		m.t.Errorf("expected %s to match %d times, but matched %d times", mk, n, got)
	}
}

// AssertCalled asserts that an endpoint was called at least once.
func (m *Mocknet) AssertCalled(method, path string) {
	m.t.Helper()

	if m.countCalls(method, path) == 0 {
		m.t.Errorf("expected %s %s to be called, but it was not called", method, path)
	}
}

// AssertCalledTimes asserts that an endpoint was called exactly n times.
func (m *Mocknet) AssertCalledTimes(method, path string, times int) {
	m.t.Helper()

	count := m.countCalls(method, path)
	if count != times {
		m.t.Errorf("expected %s %s to be called %d times, but was called %d times",
			method, path, times, count)
	}
}

// AssertNotCalled asserts that an endpoint was not called.
func (m *Mocknet) AssertNotCalled(method, path string) {
	m.t.Helper()

	count := m.countCalls(method, path)
	if count > 0 {
		m.t.Errorf("expected %s %s to not be called, but it was called %d times",
			method, path, count)
	}
}

// countCalls counts the recorded requests with the given method whose path
// matches path. path may be a full URL, in which case host is compared too.
func (m *Mocknet) countCalls(method, path string) int {
	host := ""
	if u, err := url.Parse(path); err == nil && u.Host != "" {
		host, path = u.Host, u.Path
	}

	count := 0
	for _, entry := range m.History() {
		if !strings.EqualFold(entry.Method, method) {
			continue
		}
		if host != "" && !strings.EqualFold(entry.Host, host) {
			continue
		}
		if matchesPath(entry.Path, path) {
			count++
		}
	}
	return count
}

// matchesPath checks if a request path matches the expected path pattern.
// Supports exact matching and path parameters ({id} patterns).
func matchesPath(actual, expected string) bool {
	if actual == expected {
		return true
	}

	actualParts := strings.Split(actual, "/")
	expectedParts := strings.Split(expected, "/")

	if len(actualParts) != len(expectedParts) {
		return false
	}

	for i := range expectedParts {
		exp := expectedParts[i]
		if strings.HasPrefix(exp, "{") && strings.HasSuffix(exp, "}") {
			continue
		}
		if exp != actualParts[i] {
			return false
		}
	}
	return true
}

// Client returns a client whose transport goes through the engine even
// when the engine hooks no global transport.
func (m *Mocknet) Client() *http.Client {
	return &http.Client{Transport: transport.NewRoundTripper(m.Engine, nil)}
}

// Outcome values for RequestLog.Outcome.
const (
	OutcomeMatched     = requestlog.OutcomeMatched
	OutcomePassThrough = requestlog.OutcomePassThrough
	OutcomeNoMatch     = requestlog.OutcomeNoMatch
)
