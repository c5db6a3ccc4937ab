// Package engine is the registry and lifecycle authority for declared mocks.
//
// An Engine holds an ordered sequence of mocks and a set of interceptors.
// Interceptors hook a transport (an http.RoundTripper, a local listener) and
// hand every outgoing request to Resolve, which returns one of three
// outcomes:
//
//   - Matched: the first registered mock whose matchers all accept the
//     request. Its use is consumed and its counter incremented.
//   - PassThrough: no mock matched, network mode is on and the host is
//     allowed; the interceptor forwards the request unmodified.
//   - NoMatch: no mock matched and the request may not reach the network.
//     The outcome carries a *NoMatchError explaining, per pending mock,
//     which matchers failed.
//
// # Lifecycle
//
//	Disabled → Enabled → Enabled+NetworkMode → Disabled
//
// Enable installs every interceptor in order and Disable uninstalls them in
// reverse, restoring each hook point exactly. A disabled engine never
// intercepts.
//
// Activate opens a scope: it resets mocks and history, loads configured mock
// files and enables the engine. Scope.Close disables the engine and fails
// with a *PendingMocksError when declared mocks were never exercised, unless
// the scope was opened with AllowPendingMocks. Run wraps a function in a
// scope and closes it on every exit path, panics included:
//
//	eng := engine.New(engine.WithInterceptors(transport.New()))
//	err := eng.Run(func(e *engine.Engine) error {
//	    e.Get("https://api.example.com/users").Reply(200).JSON(users)
//	    return callTheCodeUnderTest()
//	})
//
// # Concurrency
//
// One mutex serializes registration, resolution and state changes, so
// first-match-wins and exactly-once counting hold for concurrent requests.
// Enabling and disabling are expected to happen at test setup and teardown.
package engine
