package mock

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/getmockd/mocknet/pkg/httpmsg"
	"github.com/getmockd/mocknet/pkg/matching"
	"github.com/google/uuid"
)

// ErrInvalidMock wraps every error recorded while building a mock.
var ErrInvalidMock = errors.New("invalid mock")

// Mock is one declared expectation: a matcher set, the response to return,
// and its consumption state. A Mock is safe for concurrent use; builders may
// keep configuring it after it has been registered with an engine.
type Mock struct {
	mu sync.Mutex

	id     string
	name   string
	method string
	url    string

	matchers *matching.Set
	response *Response

	// remaining is the number of uses left; ignored when persist is set.
	remaining int
	persist   bool

	matches  int
	requests []*httpmsg.Request

	err error
}

func newMock(method, rawURL string) *Mock {
	return &Mock{
		id:        uuid.NewString(),
		method:    method,
		url:       rawURL,
		matchers:  matching.NewSet(),
		remaining: 1,
	}
}

// ID returns the mock's unique identifier.
func (m *Mock) ID() string {
	return m.id
}

// Name returns the name given with Builder.Name, if any.
func (m *Mock) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

// String identifies the mock in diagnostics.
func (m *Mock) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	decl := strings.TrimSpace(strings.ToUpper(m.method) + " " + m.url)
	if m.name != "" {
		return m.name + " (" + decl + ")"
	}
	return decl
}

// Matchers returns the declared matchers in order.
func (m *Mock) Matchers() []matching.Matcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchers.Matchers()
}

// Response returns a copy of the declared response. A mock without a reply
// responds 200 with an empty body.
func (m *Mock) Response() *Response {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.responseLocked()
}

func (m *Mock) responseLocked() *Response {
	if m.response == nil {
		return NewResponse(http.StatusOK)
	}
	return m.response.Clone()
}

// Matches returns how many requests this mock has been selected for.
func (m *Mock) Matches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matches
}

// Requests returns the requests this mock was selected for, in order.
func (m *Mock) Requests() []*httpmsg.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*httpmsg.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Persistent reports whether the mock never runs out of uses.
func (m *Mock) Persistent() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persist
}

// Remaining returns the uses left. It is -1 for persistent mocks.
func (m *Mock) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.persist {
		return -1
	}
	return m.remaining
}

// Done reports whether the mock has been consumed and will not match again.
func (m *Mock) Done() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doneLocked()
}

func (m *Mock) doneLocked() bool {
	return m.err == nil && !m.persist && m.remaining <= 0
}

// Pending reports whether the mock still expects requests: uses remain, or
// a persistent mock was never matched, or the declaration is invalid.
func (m *Mock) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return true
	}
	if m.persist {
		return m.matches == 0
	}
	return m.remaining > 0
}

// Err returns the first error recorded while building the mock.
func (m *Mock) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Match consumes one use and returns the response when the mock is
// available and every matcher accepts req. Consumed or invalid mocks never
// match. The engine serializes calls so that selection and counting happen
// exactly once per request.
func (m *Mock) Match(req *httpmsg.Request) (*Response, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil || m.doneLocked() {
		return nil, false
	}
	if !m.matchers.Matches(req) {
		return nil, false
	}

	m.matches++
	if !m.persist {
		m.remaining--
	}
	m.requests = append(m.requests, req)
	return m.responseLocked(), true
}

// Explain evaluates every matcher against req for diagnostics. It does not
// change any state.
func (m *Mock) Explain(req *httpmsg.Request) []matching.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchers.Explain(req)
}

func (m *Mock) setErr(op string, err error) {
	if m.err == nil {
		m.err = fmt.Errorf("%w: %s: %w", ErrInvalidMock, op, err)
	}
}

func (m *Mock) update(fn func(m *Mock)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
