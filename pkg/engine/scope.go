package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/getmockd/mocknet/pkg/loader"
)

// ScopeOption configures one activation scope.
type ScopeOption func(*scopeConfig)

type scopeConfig struct {
	allowPending bool
	network      bool
	networkHosts []string
	mockFiles    []string
}

// AllowPendingMocks suppresses the pending-mock check when the scope
// closes.
func AllowPendingMocks() ScopeOption {
	return func(c *scopeConfig) { c.allowPending = true }
}

// WithNetwork starts the scope in network mode, optionally restricted to
// hosts.
func WithNetwork(hosts ...string) ScopeOption {
	return func(c *scopeConfig) {
		c.network = true
		c.networkHosts = append(c.networkHosts, hosts...)
	}
}

// WithMockFiles registers the mocks declared in files (or ** globs) when
// the scope opens, after those configured on the engine.
func WithMockFiles(patterns ...string) ScopeOption {
	return func(c *scopeConfig) { c.mockFiles = append(c.mockFiles, patterns...) }
}

// Scope is an activation of an engine. Close must be called exactly once;
// further calls return the first result.
type Scope struct {
	engine       *Engine
	allowPending bool

	once sync.Once
	err  error
}

// Activate resets the engine, registers configured mock files and enables
// interception. The engine must not already be enabled.
func (e *Engine) Activate(opts ...ScopeOption) (*Scope, error) {
	cfg := scopeConfig{allowPending: e.cfg.AllowPendingMocks}
	for _, opt := range opts {
		opt(&cfg)
	}

	if e.IsEnabled() {
		return nil, ErrAlreadyActive
	}

	e.Reset()

	files := append(append([]string(nil), e.cfg.MockFiles...), cfg.mockFiles...)
	if len(files) > 0 {
		mocks, err := loader.LoadFiles(e.cfg.BaseDir, files...)
		if err != nil {
			return nil, fmt.Errorf("loading mock files: %w", err)
		}
		e.Register(mocks...)
	}

	if err := e.Enable(); err != nil {
		e.Reset()
		return nil, err
	}
	if cfg.network {
		e.EnableNetwork(cfg.networkHosts...)
	}
	return &Scope{engine: e, allowPending: cfg.allowPending}, nil
}

// Engine returns the engine the scope activated.
func (s *Scope) Engine() *Engine {
	return s.engine
}

// Close disables the engine, checks for pending mocks and discards all
// mocks. History is kept until the next activation.
func (s *Scope) Close() error {
	s.once.Do(func() {
		disableErr := s.engine.Disable()
		teardownErr := s.engine.Teardown(s.allowPending)
		s.engine.clearMocks()
		s.err = errors.Join(disableErr, teardownErr)
	})
	return s.err
}

// Run activates the engine, calls fn and closes the scope on every exit
// path. A panic in fn propagates after the scope is closed. The returned
// error joins fn's error with the scope's.
func (e *Engine) Run(fn func(e *Engine) error, opts ...ScopeOption) (err error) {
	scope, err := e.Activate(opts...)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, scope.Close())
	}()
	return fn(e)
}

func (e *Engine) clearMocks() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mocks = nil
}
