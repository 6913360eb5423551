// Package expr evaluates navigation conditions and target expressions.
//
// An expression is delimited by #{...} or ${...}; its body is a JMESPath query
// over the variables of the current request. Text outside delimiters is
// literal, so "/orders/#{order.id}.xhtml" renders a page id and a bare "true"
// is a literal condition.
//
// A Compiler is shared process-wide and caches compiled queries. An Evaluator
// binds a Compiler to one request's variables; it is created per request and
// passed explicitly to the resolver and navigator.
package expr

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jmespath/go-jmespath"

	"github.com/solatis/waypoint/internal/types"
)

var (
	// ErrUnterminated indicates an expression opened with #{ or ${ but never closed.
	ErrUnterminated = errors.New("unterminated expression")

	// ErrEmptyExpression indicates #{} with nothing inside.
	ErrEmptyExpression = errors.New("empty expression")
)

// Compiler compiles and caches JMESPath queries. Safe for concurrent use.
type Compiler struct {
	cache sync.Map // body -> *jmespath.JMESPath
}

// NewCompiler creates an empty compiler.
func NewCompiler() *Compiler {
	return &Compiler{}
}

// Check parses every expression in text without evaluating it.
// Used at load time to reject broken conditions before serving.
func (c *Compiler) Check(text string) error {
	segs, err := split(text)
	if err != nil {
		return &types.ExpressionError{Expr: text, Err: err}
	}
	for _, s := range segs {
		if !s.isExpr {
			continue
		}
		if _, err := c.compile(s.text); err != nil {
			return &types.ExpressionError{Expr: text, Err: err}
		}
	}
	return nil
}

// Scope binds the compiler to one request's variables.
func (c *Compiler) Scope(vars map[string]any) *Evaluator {
	var data any
	if vars != nil {
		data = vars
	}
	return &Evaluator{compiler: c, vars: data}
}

func (c *Compiler) compile(body string) (*jmespath.JMESPath, error) {
	if cached, ok := c.cache.Load(body); ok {
		return cached.(*jmespath.JMESPath), nil
	}
	jp, err := jmespath.Compile(body)
	if err != nil {
		return nil, err
	}
	actual, _ := c.cache.LoadOrStore(body, jp)
	return actual.(*jmespath.JMESPath), nil
}

// Evaluator evaluates expressions against one request's variables.
type Evaluator struct {
	compiler *Compiler
	vars     any
}

// EvaluateBoolean evaluates text as a condition.
// A single expression is coerced from its result; literal text follows
// string-to-boolean rules ("true", any case, is true).
func (e *Evaluator) EvaluateBoolean(_ context.Context, text string) (bool, error) {
	v, err := e.evaluate(text)
	if err != nil {
		return false, &types.ExpressionError{Expr: text, Err: err}
	}
	b, err := toBoolean(v)
	if err != nil {
		return false, &types.ExpressionError{Expr: text, Err: err}
	}
	return b, nil
}

// EvaluateString evaluates text and renders the result as a string.
func (e *Evaluator) EvaluateString(_ context.Context, text string) (string, error) {
	v, err := e.evaluate(text)
	if err != nil {
		return "", &types.ExpressionError{Expr: text, Err: err}
	}
	s, err := toText(v)
	if err != nil {
		return "", &types.ExpressionError{Expr: text, Err: err}
	}
	return s, nil
}

// evaluate returns the raw query result for a lone expression, otherwise the
// concatenation of literal and rendered segments.
func (e *Evaluator) evaluate(text string) (any, error) {
	segs, err := split(text)
	if err != nil {
		return nil, err
	}
	if len(segs) == 1 && segs[0].isExpr {
		return e.search(segs[0].text)
	}

	var b strings.Builder
	for _, s := range segs {
		if !s.isExpr {
			b.WriteString(s.text)
			continue
		}
		v, err := e.search(s.text)
		if err != nil {
			return nil, err
		}
		rendered, err := toText(v)
		if err != nil {
			return nil, err
		}
		b.WriteString(rendered)
	}
	return b.String(), nil
}

func (e *Evaluator) search(body string) (any, error) {
	jp, err := e.compiler.compile(body)
	if err != nil {
		return nil, err
	}
	return jp.Search(e.vars)
}

// IsExpression reports whether text contains an expression delimiter.
func IsExpression(text string) bool {
	return strings.Contains(text, "#{") || strings.Contains(text, "${")
}

type segment struct {
	text   string
	isExpr bool
}

// split breaks text into literal and expression segments.
// Braces nest and quoted JMESPath literals may contain '}'.
func split(text string) ([]segment, error) {
	var segs []segment
	literalStart := 0
	i := 0
	for i < len(text) {
		if (text[i] != '#' && text[i] != '$') || i+1 >= len(text) || text[i+1] != '{' {
			i++
			continue
		}

		end, err := closingBrace(text, i+2)
		if err != nil {
			return nil, err
		}
		if i > literalStart {
			segs = append(segs, segment{text: text[literalStart:i]})
		}
		body := strings.TrimSpace(text[i+2 : end])
		if body == "" {
			return nil, ErrEmptyExpression
		}
		segs = append(segs, segment{text: body, isExpr: true})
		i = end + 1
		literalStart = i
	}
	if literalStart < len(text) || len(segs) == 0 {
		segs = append(segs, segment{text: text[literalStart:]})
	}
	return segs, nil
}

// closingBrace finds the '}' closing an expression body starting at from.
func closingBrace(text string, from int) (int, error) {
	depth := 0
	var quote byte
	for j := from; j < len(text); j++ {
		ch := text[j]
		switch {
		case quote != 0:
			if ch == '\\' {
				j++
			} else if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '`' || ch == '"':
			quote = ch
		case ch == '{':
			depth++
		case ch == '}':
			if depth == 0 {
				return j, nil
			}
			depth--
		}
	}
	return 0, ErrUnterminated
}
