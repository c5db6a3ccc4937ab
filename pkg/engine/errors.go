package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/getmockd/mocknet/pkg/matching"
)

// Sentinel errors.
var (
	// ErrNoMatch is matched by every *NoMatchError.
	ErrNoMatch = errors.New("no mock matches request")

	// ErrPendingMocks is matched by every *PendingMocksError.
	ErrPendingMocks = errors.New("pending mocks")

	// ErrAlreadyActive is returned when activating an enabled engine.
	ErrAlreadyActive = errors.New("engine is already active")

	// ErrInterceptor wraps interceptor install and uninstall failures.
	ErrInterceptor = errors.New("interceptor failure")
)

// Candidate explains why one pending mock did not match a request.
type Candidate struct {
	// MockID and Mock identify the mock.
	MockID string `json:"mockId"`
	Mock   string `json:"mock"`

	// Failures lists the matchers that rejected the request, in
	// declaration order.
	Failures []matching.Result `json:"failures,omitempty"`

	// Passed is the number of matchers that accepted the request.
	Passed int `json:"passed"`

	// Invalid holds the declaration error of a mock that can never match.
	Invalid string `json:"invalid,omitempty"`
}

// NoMatchError is returned to the caller of a request that no mock matched
// while network access was not allowed.
type NoMatchError struct {
	// Method and URL summarize the request.
	Method string `json:"method"`
	URL    string `json:"url"`

	// Candidates explains every pending mock, in registration order.
	Candidates []Candidate `json:"candidates"`
}

// Error renders the request summary followed by one block per candidate.
func (e *NoMatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s %s", ErrNoMatch, e.Method, e.URL)
	if len(e.Candidates) == 0 {
		b.WriteString(" (no pending mocks)")
		return b.String()
	}
	for _, c := range e.Candidates {
		fmt.Fprintf(&b, "\n  %s", c.Mock)
		if c.Invalid != "" {
			fmt.Fprintf(&b, "\n    invalid: %s", c.Invalid)
			continue
		}
		for _, f := range c.Failures {
			fmt.Fprintf(&b, "\n    %s", f)
		}
	}
	return b.String()
}

// Is reports whether target is ErrNoMatch.
func (e *NoMatchError) Is(target error) bool {
	return target == ErrNoMatch
}

// PendingMock describes a mock left pending at teardown.
type PendingMock struct {
	MockID    string `json:"mockId"`
	Mock      string `json:"mock"`
	Matches   int    `json:"matches"`
	Remaining int    `json:"remaining"`
	Invalid   string `json:"invalid,omitempty"`
}

// PendingMocksError is returned at teardown when declared mocks were never
// exercised or were invalid.
type PendingMocksError struct {
	Mocks []PendingMock `json:"mocks"`
}

// Error enumerates the pending mocks.
func (e *PendingMocksError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s", len(e.Mocks), ErrPendingMocks)
	for _, p := range e.Mocks {
		switch {
		case p.Invalid != "":
			fmt.Fprintf(&b, "\n  %s: %s", p.Mock, p.Invalid)
		case p.Remaining < 0:
			fmt.Fprintf(&b, "\n  %s (persistent, never matched)", p.Mock)
		default:
			fmt.Fprintf(&b, "\n  %s (matched %d, %d remaining)", p.Mock, p.Matches, p.Remaining)
		}
	}
	return b.String()
}

// Is reports whether target is ErrPendingMocks.
func (e *PendingMocksError) Is(target error) bool {
	return target == ErrPendingMocks
}
