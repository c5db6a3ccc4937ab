package loader

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/getmockd/mocknet/pkg/httpmsg"
	"github.com/getmockd/mocknet/pkg/mock"
	"gopkg.in/yaml.v3"
)

// ErrInvalidDefinition is returned for definitions that cannot describe a
// mock.
var ErrInvalidDefinition = errors.New("invalid mock definition")

// Definition is the file form of one mock.
type Definition struct {
	Name     string      `yaml:"name,omitempty" json:"name,omitempty"`
	Request  RequestDef  `yaml:"request" json:"request"`
	Times    int         `yaml:"times,omitempty" json:"times,omitempty"`
	Persist  bool        `yaml:"persist,omitempty" json:"persist,omitempty"`
	Response ResponseDef `yaml:"response" json:"response"`
}

// RequestDef lists the matchers of a mock. Every field set adds one or more
// matchers; all must accept a request for the mock to match.
type RequestDef struct {
	Method        string            `yaml:"method,omitempty" json:"method,omitempty"`
	URL           string            `yaml:"url,omitempty" json:"url,omitempty"`
	Headers       map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	HeaderPresent []string          `yaml:"headerPresent,omitempty" json:"headerPresent,omitempty"`
	Query         map[string]string `yaml:"query,omitempty" json:"query,omitempty"`
	Body          *string           `yaml:"body,omitempty" json:"body,omitempty"`
	BodyContains  string            `yaml:"bodyContains,omitempty" json:"bodyContains,omitempty"`
	BodyMatches   string            `yaml:"bodyMatches,omitempty" json:"bodyMatches,omitempty"`
	JSON          any               `yaml:"json,omitempty" json:"json,omitempty"`
	JSONPath      map[string]any    `yaml:"jsonPath,omitempty" json:"jsonPath,omitempty"`
	JSONSchema    any               `yaml:"jsonSchema,omitempty" json:"jsonSchema,omitempty"`
	XPath         map[string]string `yaml:"xpath,omitempty" json:"xpath,omitempty"`
	Expr          string            `yaml:"expr,omitempty" json:"expr,omitempty"`
	PathGlob      string            `yaml:"pathGlob,omitempty" json:"pathGlob,omitempty"`
	URLMatches    string            `yaml:"urlMatches,omitempty" json:"urlMatches,omitempty"`
}

// ResponseDef describes the response. At most one of Body, JSON and Chunks
// may be set.
type ResponseDef struct {
	Status  int             `yaml:"status,omitempty" json:"status,omitempty"`
	Headers []httpmsg.Field `yaml:"headers,omitempty" json:"headers,omitempty"`
	Body    *string         `yaml:"body,omitempty" json:"body,omitempty"`
	JSON    any             `yaml:"json,omitempty" json:"json,omitempty"`
	Chunks  []string        `yaml:"chunks,omitempty" json:"chunks,omitempty"`
	Delay   time.Duration   `yaml:"delay,omitempty" json:"delay,omitempty"`
}

// Content is the decoded form of a mock file.
type Content struct {
	Mocks []Definition
}

// UnmarshalYAML accepts a single definition, a sequence of definitions, or
// a mapping with a mocks key.
func (c *Content) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		return node.Decode(&c.Mocks)
	}

	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == "mocks" {
				var wrapper struct {
					Mocks []Definition `yaml:"mocks"`
				}
				if err := node.Decode(&wrapper); err != nil {
					return err
				}
				c.Mocks = wrapper.Mocks
				return nil
			}
		}
	}

	var single Definition
	if err := node.Decode(&single); err != nil {
		return err
	}
	c.Mocks = []Definition{single}
	return nil
}

// Validate reports definition errors that do not depend on matcher syntax.
func (d *Definition) Validate() error {
	if d.Request.Method == "" && d.Request.URL == "" && d.Request.URLMatches == "" && d.Request.PathGlob == "" {
		return fmt.Errorf("%w: request needs a method, url, urlMatches or pathGlob", ErrInvalidDefinition)
	}
	if d.Times < 0 {
		return fmt.Errorf("%w: times must not be negative", ErrInvalidDefinition)
	}
	if d.Times > 0 && d.Persist {
		return fmt.Errorf("%w: times and persist are mutually exclusive", ErrInvalidDefinition)
	}
	bodies := 0
	if d.Response.Body != nil {
		bodies++
	}
	if d.Response.JSON != nil {
		bodies++
	}
	if d.Response.Chunks != nil {
		bodies++
	}
	if bodies > 1 {
		return fmt.Errorf("%w: response allows only one of body, json and chunks", ErrInvalidDefinition)
	}
	if d.Response.Status != 0 && (d.Response.Status < 100 || d.Response.Status > 599) {
		return fmt.Errorf("%w: status %d out of range", ErrInvalidDefinition, d.Response.Status)
	}
	if d.Response.Delay < 0 {
		return fmt.Errorf("%w: delay must not be negative", ErrInvalidDefinition)
	}
	return nil
}

// Build turns the definition into a mock. Matcher errors are returned as
// well as recorded on the mock.
func (d *Definition) Build() (*mock.Mock, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	req := d.Request
	b := mock.New(req.Method, req.URL)
	if d.Name != "" {
		b.Name(d.Name)
	}
	for _, name := range sortedKeys(req.Headers) {
		b.Header(name, req.Headers[name])
	}
	for _, name := range req.HeaderPresent {
		b.HeaderPresent(name)
	}
	for _, name := range sortedKeys(req.Query) {
		b.Query(name, req.Query[name])
	}
	if req.Body != nil {
		b.Body(*req.Body)
	}
	if req.BodyContains != "" {
		b.BodyContains(req.BodyContains)
	}
	if req.BodyMatches != "" {
		b.BodyMatches(req.BodyMatches)
	}
	if req.JSON != nil {
		b.JSON(req.JSON)
	}
	for _, path := range sortedKeys(req.JSONPath) {
		b.JSONPath(path, req.JSONPath[path])
	}
	if req.JSONSchema != nil {
		b.JSONSchema(req.JSONSchema)
	}
	for _, path := range sortedKeys(req.XPath) {
		b.XPath(path, req.XPath[path])
	}
	if req.Expr != "" {
		b.Expr(req.Expr)
	}
	if req.PathGlob != "" {
		b.PathGlob(req.PathGlob)
	}
	if req.URLMatches != "" {
		b.URLMatches(req.URLMatches)
	}
	switch {
	case d.Persist:
		b.Persist()
	case d.Times > 0:
		b.Times(d.Times)
	}

	resp := d.Response
	status := resp.Status
	if status == 0 {
		status = 200
	}
	r := b.Reply(status)
	for _, h := range resp.Headers {
		r.Header(h.Name, h.Value)
	}
	switch {
	case resp.Body != nil:
		r.Body(*resp.Body)
	case resp.JSON != nil:
		r.JSON(resp.JSON)
	case resp.Chunks != nil:
		r.ChunkedBody(resp.Chunks)
	}
	if resp.Delay > 0 {
		r.Delay(resp.Delay)
	}

	m := r.Mock()
	return m, m.Err()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
