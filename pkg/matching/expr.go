package matching

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/getmockd/mocknet/pkg/httpmsg"
)

// ExprEnv is the environment an Expr matcher is evaluated against.
//
//	method == "POST" && headers["Content-Type"] startsWith "application/json"
//	json.user.age >= 18
type ExprEnv struct {
	Method  string            `expr:"method"`
	URL     string            `expr:"url"`
	Host    string            `expr:"host"`
	Path    string            `expr:"path"`
	Query   map[string]string `expr:"query"`
	Headers map[string]string `expr:"headers"`
	Body    string            `expr:"body"`
	JSON    any               `expr:"json"`
}

// NewExprEnv builds the environment for req. Header names use canonical
// form and multi-value headers and query parameters are joined with ", ".
// JSON is nil when the body does not parse.
func NewExprEnv(req *httpmsg.Request) ExprEnv {
	env := ExprEnv{
		Method:  req.Method(),
		URL:     req.URL().String(),
		Host:    req.Host(),
		Path:    req.Path(),
		Query:   make(map[string]string),
		Headers: make(map[string]string),
		Body:    string(req.Body()),
	}
	for name, values := range req.Query() {
		env.Query[name] = strings.Join(values, httpmsg.ValueSeparator)
	}
	h := req.Header()
	for _, name := range h.Names() {
		env.Headers[name] = h.Get(name)
	}
	var parsed any
	if err := json.Unmarshal(req.Body(), &parsed); err == nil {
		env.JSON = parsed
	}
	return env
}

// ExprMatcher evaluates a boolean expression over ExprEnv.
type ExprMatcher struct {
	source  string
	program *vm.Program
}

// Expr compiles a boolean expression.
func Expr(source string) (*ExprMatcher, error) {
	program, err := expr.Compile(source, expr.Env(ExprEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", source, err)
	}
	return &ExprMatcher{source: source, program: program}, nil
}

func (m *ExprMatcher) Kind() Kind { return KindExpr }

func (m *ExprMatcher) String() string { return "expr(" + m.source + ")" }

func (m *ExprMatcher) Match(req *httpmsg.Request) Result {
	res := Result{Kind: KindExpr, Expected: m.source, Actual: "false"}

	out, err := expr.Run(m.program, NewExprEnv(req))
	if err != nil {
		res.Err = fmt.Errorf("eval %q: %w", m.source, err)
		return res
	}
	if ok, _ := out.(bool); ok {
		res.Matched = true
		res.Actual = "true"
	}
	return res
}
