package matching

import (
	"errors"
	"fmt"
	"strings"

	"github.com/getmockd/mocknet/pkg/httpmsg"
)

// ErrMalformedBody is carried by a Result when a structured-body matcher
// could not parse the request body. It makes the matcher fail, nothing more.
var ErrMalformedBody = errors.New("malformed body")

// Kind identifies a matcher variant.
type Kind string

// Matcher kinds.
const (
	KindMethod        Kind = "method"
	KindURL           Kind = "url"
	KindURLPattern    Kind = "urlPattern"
	KindPathGlob      Kind = "pathGlob"
	KindQuery         Kind = "query"
	KindHeader        Kind = "header"
	KindHeaderPresent Kind = "headerPresent"
	KindBody          Kind = "body"
	KindBodyContains  Kind = "bodyContains"
	KindBodyPattern   Kind = "bodyPattern"
	KindJSON          Kind = "json"
	KindJSONPath      Kind = "jsonPath"
	KindJSONSchema    Kind = "jsonSchema"
	KindXPath         Kind = "xpath"
	KindExpr          Kind = "expr"
	KindFunc          Kind = "func"
)

// Result is the outcome of evaluating one matcher against one request.
type Result struct {
	Kind     Kind   `json:"kind"`
	Field    string `json:"field,omitempty"`
	Matched  bool   `json:"matched"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
	Err      error  `json:"-"`
}

// String renders the result for failure messages.
func (r Result) String() string {
	label := string(r.Kind)
	if r.Field != "" {
		label += " " + r.Field
	}
	if r.Matched {
		return label + ": matched"
	}
	if r.Err != nil {
		return fmt.Sprintf("%s: expected %s, %v", label, r.Expected, r.Err)
	}
	return fmt.Sprintf("%s: expected %s, got %s", label, r.Expected, r.Actual)
}

// Matcher is a single predicate over a request. Match must be a pure
// function of the request and the matcher.
type Matcher interface {
	Kind() Kind
	Match(req *httpmsg.Request) Result

	// String describes what the matcher expects.
	String() string
}

// Set is an ordered AND-combination of matchers.
type Set struct {
	matchers []Matcher
}

// NewSet returns a Set holding the given matchers in order.
func NewSet(matchers ...Matcher) *Set {
	s := &Set{}
	for _, m := range matchers {
		s.Add(m)
	}
	return s
}

// Add appends a matcher. Nil matchers are ignored.
func (s *Set) Add(m Matcher) {
	if m == nil {
		return
	}
	s.matchers = append(s.matchers, m)
}

// Len returns the number of matchers.
func (s *Set) Len() int {
	return len(s.matchers)
}

// Matchers returns the matchers in declaration order.
func (s *Set) Matchers() []Matcher {
	out := make([]Matcher, len(s.matchers))
	copy(out, s.matchers)
	return out
}

// Matches reports whether every matcher accepts req. An empty set matches
// everything.
func (s *Set) Matches(req *httpmsg.Request) bool {
	for _, m := range s.matchers {
		if !m.Match(req).Matched {
			return false
		}
	}
	return true
}

// Explain evaluates every matcher without short-circuiting.
func (s *Set) Explain(req *httpmsg.Request) []Result {
	results := make([]Result, 0, len(s.matchers))
	for _, m := range s.matchers {
		results = append(results, m.Match(req))
	}
	return results
}

// Failures returns only the results that did not match.
func (s *Set) Failures(req *httpmsg.Request) []Result {
	var failed []Result
	for _, r := range s.Explain(req) {
		if !r.Matched {
			failed = append(failed, r)
		}
	}
	return failed
}

// String lists the matchers for display.
func (s *Set) String() string {
	parts := make([]string, 0, len(s.matchers))
	for _, m := range s.matchers {
		parts = append(parts, m.String())
	}
	return strings.Join(parts, " && ")
}

func quote(s string) string {
	return fmt.Sprintf("%q", s)
}
