package matching

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/beevik/etree"
	"github.com/getmockd/mocknet/pkg/httpmsg"
	"github.com/ohler55/ojg/jp"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// JSONPathMatcher evaluates a JSONPath expression against the JSON body and
// matches when any selected value equals the declared one.
type JSONPathMatcher struct {
	path    string
	expr    jp.Expr
	want    any
	display string
}

// JSONPath returns a JSONPath matcher such as JSONPath("$.user.id", 42).
func JSONPath(path string, want any) (*JSONPathMatcher, error) {
	x, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath %q: %w", path, err)
	}
	normalized, err := normalizeValue(want)
	if err != nil {
		return nil, err
	}
	display, _ := json.Marshal(normalized)
	return &JSONPathMatcher{path: path, expr: x, want: canonicalJSON(normalized), display: string(display)}, nil
}

func (m *JSONPathMatcher) Kind() Kind { return KindJSONPath }

func (m *JSONPathMatcher) String() string { return "jsonPath(" + m.path + "=" + m.display + ")" }

func (m *JSONPathMatcher) Match(req *httpmsg.Request) Result {
	res := Result{Kind: KindJSONPath, Field: m.path, Expected: m.display, Actual: "(no match)"}

	data, err := parseJSONBody(req.Body())
	if err != nil {
		res.Err = err
		return res
	}

	found := m.expr.Get(data)
	for _, v := range found {
		if reflect.DeepEqual(canonicalJSON(v), m.want) {
			res.Matched = true
			res.Actual = m.display
			return res
		}
	}
	if len(found) > 0 {
		actual, _ := json.Marshal(found[0])
		res.Actual = string(actual)
	}
	return res
}

// normalizeValue round-trips a Go value through JSON so it compares equal to
// values decoded from a body. Unlike NormalizeJSON, strings stay strings.
func normalizeValue(v any) (any, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	out, err := decodeJSON(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	return out, nil
}

// JSONSchemaMatcher validates the JSON body against a JSON Schema (draft
// 2020-12 unless the schema declares otherwise).
type JSONSchemaMatcher struct {
	schema *jsonschema.Schema
}

// JSONSchema compiles schema, given as JSON text or a marshalable value.
func JSONSchema(schema any) (*JSONSchemaMatcher, error) {
	doc, err := NormalizeJSON(schema)
	if err != nil {
		return nil, fmt.Errorf("invalid json schema: %w", err)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("invalid json schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("schema.json", bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("invalid json schema: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("invalid json schema: %w", err)
	}
	return &JSONSchemaMatcher{schema: compiled}, nil
}

func (m *JSONSchemaMatcher) Kind() Kind { return KindJSONSchema }

func (m *JSONSchemaMatcher) String() string { return "jsonSchema(valid)" }

func (m *JSONSchemaMatcher) Match(req *httpmsg.Request) Result {
	res := Result{Kind: KindJSONSchema, Expected: "valid document"}

	data, err := parseJSONBody(req.Body())
	if err != nil {
		res.Err = err
		return res
	}
	if err := m.schema.Validate(data); err != nil {
		res.Actual = schemaFailure(err)
		return res
	}
	res.Matched = true
	res.Actual = "valid document"
	return res
}

// schemaFailure reduces a validation error to its first leaf cause.
func schemaFailure(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := ve.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return fmt.Sprintf("%s: %s", loc, ve.Message)
}

// XPathMatcher extracts a value from an XML body and compares it with the
// declared string. A trailing /@name selects an attribute.
type XPathMatcher struct {
	raw  string
	path etree.Path
	attr string
	want string
}

// XPath returns a matcher such as XPath("//user/name", "alice") or
// XPath("/order/@id", "42").
func XPath(path, want string) (*XPathMatcher, error) {
	elemPath, attr := path, ""
	if i := strings.LastIndex(path, "/@"); i >= 0 {
		elemPath, attr = path[:i], path[i+2:]
		if elemPath == "" {
			elemPath = "."
		}
	}
	compiled, err := etree.CompilePath(elemPath)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath %q: %w", path, err)
	}
	return &XPathMatcher{raw: path, path: compiled, attr: attr, want: want}, nil
}

func (m *XPathMatcher) Kind() Kind { return KindXPath }

func (m *XPathMatcher) String() string { return "xpath(" + m.raw + "=" + m.want + ")" }

func (m *XPathMatcher) Match(req *httpmsg.Request) Result {
	res := Result{Kind: KindXPath, Field: m.raw, Expected: quote(m.want), Actual: "(missing)"}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(req.Body()); err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrMalformedBody, err)
		return res
	}
	if doc.Root() == nil {
		res.Err = fmt.Errorf("%w: no root element", ErrMalformedBody)
		return res
	}

	elem := doc.FindElementPath(m.path)
	if elem == nil {
		return res
	}

	var actual string
	if m.attr != "" {
		a := elem.SelectAttr(m.attr)
		if a == nil {
			return res
		}
		actual = a.Value
	} else {
		actual = strings.TrimSpace(elem.Text())
	}

	res.Actual = quote(actual)
	res.Matched = actual == m.want
	return res
}
