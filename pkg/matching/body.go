package matching

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"reflect"
	"regexp"
	"strings"

	"github.com/getmockd/mocknet/pkg/httpmsg"
	"github.com/getmockd/mocknet/pkg/util"
)

// maxDisplayBody bounds bodies rendered into diagnostics.
const maxDisplayBody = 200

func displayBody(body []byte) string {
	return quote(util.TruncateBody(body, maxDisplayBody))
}

// BodyMatcher matches the raw body byte for byte.
type BodyMatcher struct {
	body []byte
}

// Body returns a matcher for an exact body.
func Body(body []byte) *BodyMatcher {
	return &BodyMatcher{body: bytes.Clone(body)}
}

func (m *BodyMatcher) Kind() Kind { return KindBody }

func (m *BodyMatcher) String() string { return "body(" + displayBody(m.body) + ")" }

func (m *BodyMatcher) Match(req *httpmsg.Request) Result {
	body := req.Body()
	return Result{
		Kind:     KindBody,
		Matched:  bytes.Equal(body, m.body),
		Expected: displayBody(m.body),
		Actual:   displayBody(body),
	}
}

// BodyContainsMatcher requires a substring in the body.
type BodyContainsMatcher struct {
	substr string
}

// BodyContains returns a matcher for a body substring.
func BodyContains(substr string) *BodyContainsMatcher {
	return &BodyContainsMatcher{substr: substr}
}

func (m *BodyContainsMatcher) Kind() Kind { return KindBodyContains }

func (m *BodyContainsMatcher) String() string { return "bodyContains(" + quote(m.substr) + ")" }

func (m *BodyContainsMatcher) Match(req *httpmsg.Request) Result {
	body := req.Body()
	return Result{
		Kind:     KindBodyContains,
		Matched:  strings.Contains(string(body), m.substr),
		Expected: quote(m.substr),
		Actual:   displayBody(body),
	}
}

// BodyPatternMatcher matches the body against a regex.
type BodyPatternMatcher struct {
	re *regexp.Regexp
}

// BodyPattern returns a matcher for a regular expression (RE2 syntax).
func BodyPattern(pattern string) (*BodyPatternMatcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid body pattern %q: %w", pattern, err)
	}
	return &BodyPatternMatcher{re: re}, nil
}

func (m *BodyPatternMatcher) Kind() Kind { return KindBodyPattern }

func (m *BodyPatternMatcher) String() string { return "bodyPattern(" + m.re.String() + ")" }

func (m *BodyPatternMatcher) Match(req *httpmsg.Request) Result {
	body := req.Body()
	return Result{
		Kind:     KindBodyPattern,
		Matched:  m.re.Match(body),
		Expected: m.re.String(),
		Actual:   displayBody(body),
	}
}

// JSONMatcher compares the body with a declared JSON value structurally:
// object member order is irrelevant, array order is significant and scalar
// types must agree.
type JSONMatcher struct {
	want    any
	display string
}

// JSON returns a structural JSON matcher. v may be JSON text ([]byte,
// string or json.RawMessage) or any value encoding/json can marshal.
func JSON(v any) (*JSONMatcher, error) {
	want, err := NormalizeJSON(v)
	if err != nil {
		return nil, err
	}
	display, _ := json.Marshal(want)
	return &JSONMatcher{want: canonicalJSON(want), display: string(display)}, nil
}

func (m *JSONMatcher) Kind() Kind { return KindJSON }

func (m *JSONMatcher) String() string { return "json(" + m.display + ")" }

func (m *JSONMatcher) Match(req *httpmsg.Request) Result {
	body := req.Body()
	res := Result{Kind: KindJSON, Expected: m.display, Actual: displayBody(body)}

	got, err := parseJSONBody(body)
	if err != nil {
		res.Err = err
		return res
	}
	res.Matched = reflect.DeepEqual(canonicalJSON(got), m.want)
	return res
}

// NormalizeJSON converts v into the generic form produced by
// encoding/json (map[string]any, []any, string, bool, nil), except that
// numbers are kept as json.Number so no precision is lost. JSON text inputs
// are parsed rather than re-encoded as strings.
func NormalizeJSON(v any) (any, error) {
	var data []byte
	switch t := v.(type) {
	case json.RawMessage:
		data = t
	case []byte:
		data = t
	case string:
		data = []byte(t)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
		}
		data = encoded
	}

	out, err := decodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	return out, nil
}

// parseJSONBody parses a request body, reporting ErrMalformedBody for empty
// or invalid JSON.
func parseJSONBody(body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedBody)
	}
	out, err := decodeJSON(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	return out, nil
}

// decodeJSON decodes exactly one JSON value, keeping numbers as json.Number.
func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level value")
	}
	return out, nil
}

// jsonNumber is the exact rational form of a JSON number, so 1, 1.0 and
// 1e0 compare equal while 9007199254740993 and 9007199254740992 do not.
type jsonNumber string

// canonicalJSON rewrites decoded numbers into their jsonNumber form for
// structural comparison.
func canonicalJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = canonicalJSON(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = canonicalJSON(val)
		}
		return out
	case json.Number:
		r, ok := new(big.Rat).SetString(t.String())
		if !ok {
			return jsonNumber(t.String())
		}
		return jsonNumber(r.RatString())
	default:
		return v
	}
}
