package matching

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/getmockd/mocknet/pkg/httpmsg"
)

// MethodMatcher matches the request method case-insensitively.
type MethodMatcher struct {
	method string
}

// Method returns a matcher for the given method. An empty method or "*"
// matches any method.
func Method(method string) *MethodMatcher {
	return &MethodMatcher{method: method}
}

func (m *MethodMatcher) Kind() Kind { return KindMethod }

func (m *MethodMatcher) String() string { return "method(" + strings.ToUpper(m.method) + ")" }

func (m *MethodMatcher) Match(req *httpmsg.Request) Result {
	matched := m.method == "" || m.method == "*" || strings.EqualFold(m.method, req.Method())
	return Result{
		Kind:     KindMethod,
		Matched:  matched,
		Expected: strings.ToUpper(m.method),
		Actual:   strings.ToUpper(req.Method()),
	}
}

// URLMatcher compares scheme, host, path and any declared query parameters.
// Parts left out of the declared URL are not compared, so "/users" only
// constrains the path. Query parameters present on the request but not
// declared are ignored.
type URLMatcher struct {
	raw   string
	url   *url.URL
	query url.Values
}

// URL returns a matcher for the given URL.
func URL(raw string) (*URLMatcher, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", raw, err)
	}
	return &URLMatcher{raw: raw, url: u, query: u.Query()}, nil
}

func (m *URLMatcher) Kind() Kind { return KindURL }

func (m *URLMatcher) String() string { return "url(" + m.raw + ")" }

func (m *URLMatcher) Match(req *httpmsg.Request) Result {
	actual := req.URL()
	res := Result{Kind: KindURL, Expected: m.raw, Actual: actual.String()}

	if m.url.Scheme != "" && !strings.EqualFold(m.url.Scheme, actual.Scheme) {
		return res
	}
	if m.url.Host != "" && normalizeHost(m.url) != normalizeHost(actual) {
		return res
	}
	if m.url.Host != "" || m.url.Path != "" {
		if normalizePath(m.url.Path) != normalizePath(actual.Path) {
			return res
		}
	}
	got := actual.Query()
	for name, want := range m.query {
		if strings.Join(got[name], httpmsg.ValueSeparator) != strings.Join(want, httpmsg.ValueSeparator) {
			return res
		}
	}

	res.Matched = true
	return res
}

// normalizeHost lowercases the host and drops the default port for the scheme.
func normalizeHost(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	switch {
	case port == "":
	case port == "80" && (u.Scheme == "http" || u.Scheme == "ws"):
	case port == "443" && (u.Scheme == "https" || u.Scheme == "wss"):
	default:
		host += ":" + port
	}
	return host
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}

// URLPatternMatcher matches the full request URL against a regex.
type URLPatternMatcher struct {
	re *regexp.Regexp
}

// URLPattern returns a matcher for a regular expression (RE2 syntax).
func URLPattern(pattern string) (*URLPatternMatcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid url pattern %q: %w", pattern, err)
	}
	return &URLPatternMatcher{re: re}, nil
}

func (m *URLPatternMatcher) Kind() Kind { return KindURLPattern }

func (m *URLPatternMatcher) String() string { return "urlPattern(" + m.re.String() + ")" }

func (m *URLPatternMatcher) Match(req *httpmsg.Request) Result {
	actual := req.URL().String()
	return Result{
		Kind:     KindURLPattern,
		Matched:  m.re.MatchString(actual),
		Expected: m.re.String(),
		Actual:   actual,
	}
}

// PathGlobMatcher matches the URL path against a glob supporting **.
type PathGlobMatcher struct {
	pattern string
}

// PathGlob returns a matcher for a doublestar glob such as /api/**/items/*.
func PathGlob(pattern string) (*PathGlobMatcher, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid path glob %q", pattern)
	}
	return &PathGlobMatcher{pattern: pattern}, nil
}

func (m *PathGlobMatcher) Kind() Kind { return KindPathGlob }

func (m *PathGlobMatcher) String() string { return "pathGlob(" + m.pattern + ")" }

func (m *PathGlobMatcher) Match(req *httpmsg.Request) Result {
	path := normalizePath(req.Path())
	// The pattern was validated on construction.
	ok, _ := doublestar.Match(m.pattern, path)
	return Result{Kind: KindPathGlob, Matched: ok, Expected: m.pattern, Actual: path}
}

// QueryMatcher matches one query parameter. Repeated parameters are joined
// with ", " in order, like headers.
type QueryMatcher struct {
	name  string
	value string
}

// Query returns a matcher for a query parameter value.
func Query(name, value string) *QueryMatcher {
	return &QueryMatcher{name: name, value: value}
}

func (m *QueryMatcher) Kind() Kind { return KindQuery }

func (m *QueryMatcher) String() string { return "query(" + m.name + "=" + m.value + ")" }

func (m *QueryMatcher) Match(req *httpmsg.Request) Result {
	values, ok := req.Query()[m.name]
	actual := strings.Join(values, httpmsg.ValueSeparator)
	res := Result{
		Kind:     KindQuery,
		Field:    m.name,
		Matched:  ok && actual == m.value,
		Expected: quote(m.value),
		Actual:   quote(actual),
	}
	if !ok {
		res.Actual = "(missing)"
	}
	return res
}

// HeaderMatcher matches the joined value of a header exactly.
type HeaderMatcher struct {
	name  string
	value string
}

// Header returns a matcher comparing the joined values of name with value.
func Header(name, value string) *HeaderMatcher {
	return &HeaderMatcher{name: httpmsg.CanonicalName(name), value: value}
}

func (m *HeaderMatcher) Kind() Kind { return KindHeader }

func (m *HeaderMatcher) String() string { return "header(" + m.name + ": " + m.value + ")" }

func (m *HeaderMatcher) Match(req *httpmsg.Request) Result {
	actual, ok := req.HeaderValue(m.name)
	res := Result{
		Kind:     KindHeader,
		Field:    m.name,
		Matched:  ok && actual == m.value,
		Expected: quote(m.value),
		Actual:   quote(actual),
	}
	if !ok {
		res.Actual = "(missing)"
	}
	return res
}

// HeaderPresentMatcher only requires the header to be present.
type HeaderPresentMatcher struct {
	name string
}

// HeaderPresent returns a matcher that accepts any value of name.
func HeaderPresent(name string) *HeaderPresentMatcher {
	return &HeaderPresentMatcher{name: httpmsg.CanonicalName(name)}
}

func (m *HeaderPresentMatcher) Kind() Kind { return KindHeaderPresent }

func (m *HeaderPresentMatcher) String() string { return "headerPresent(" + m.name + ")" }

func (m *HeaderPresentMatcher) Match(req *httpmsg.Request) Result {
	_, ok := req.HeaderValue(m.name)
	res := Result{Kind: KindHeaderPresent, Field: m.name, Matched: ok, Expected: "(present)", Actual: "(present)"}
	if !ok {
		res.Actual = "(missing)"
	}
	return res
}

// FuncMatcher wraps a caller-supplied predicate.
type FuncMatcher struct {
	name string
	fn   func(*httpmsg.Request) bool
}

// Func returns a matcher backed by fn. The name is used in diagnostics.
// fn must not mutate shared state; it may be called more than once per
// request when diagnostics are produced.
func Func(name string, fn func(*httpmsg.Request) bool) *FuncMatcher {
	return &FuncMatcher{name: name, fn: fn}
}

func (m *FuncMatcher) Kind() Kind { return KindFunc }

func (m *FuncMatcher) String() string { return "func(" + m.name + ")" }

func (m *FuncMatcher) Match(req *httpmsg.Request) Result {
	ok := m.fn != nil && m.fn(req)
	res := Result{Kind: KindFunc, Field: m.name, Matched: ok, Expected: "true", Actual: "true"}
	if !ok {
		res.Actual = "false"
	}
	return res
}
