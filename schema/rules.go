package schema

import (
	"fmt"
	"sort"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"
)

// Evaluator compiles and evaluates rule expressions over concept values.
// Compiled programs are cached per expression; an Evaluator is safe for
// concurrent use.
type Evaluator struct {
	cache sync.Map // expression string → compiled *vm.Program
}

// NewEvaluator creates an Evaluator backed by expr-lang/expr.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Eval evaluates expression with concept keys bound to values.
func (e *Evaluator) Eval(expression string, values map[string]float64) (float64, error) {
	env := make(map[string]any, len(values))
	for k, v := range values {
		env[k] = v
	}
	program, err := e.compile(expression, env)
	if err != nil {
		return 0, fmt.Errorf("compile rule %q: %w", expression, err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return 0, fmt.Errorf("evaluate rule %q: %w", expression, err)
	}
	f, ok := out.(float64)
	if !ok {
		return 0, fmt.Errorf("rule %q evaluated to %T, expected number", expression, out)
	}
	return f, nil
}

// Check compiles expression against the given variable names without running it.
func (e *Evaluator) Check(expression string, vars []string) error {
	env := make(map[string]any, len(vars))
	for _, v := range vars {
		env[v] = float64(0)
	}
	if _, err := e.compile(expression, env); err != nil {
		return fmt.Errorf("compile rule %q: %w", expression, err)
	}
	return nil
}

func (e *Evaluator) compile(expression string, env map[string]any) (*vm.Program, error) {
	if cached, ok := e.cache.Load(expression); ok {
		return cached.(*vm.Program), nil
	}
	program, err := expr.Compile(expression, expr.Env(env), expr.AllowUndefinedVariables(), expr.AsFloat64())
	if err != nil {
		return nil, err
	}
	e.cache.Store(expression, program)
	return program, nil
}

// Identifiers returns the sorted variable names referenced by expression.
// Function names are not included.
func Identifiers(expression string) ([]string, error) {
	tree, err := parser.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("parse rule %q: %w", expression, err)
	}
	v := &identVisitor{seen: map[string]bool{}, callees: map[string]bool{}}
	ast.Walk(&tree.Node, v)

	names := make([]string, 0, len(v.seen))
	for name := range v.seen {
		if !v.callees[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

type identVisitor struct {
	seen    map[string]bool
	callees map[string]bool
}

func (v *identVisitor) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		v.seen[n.Value] = true
	case *ast.CallNode:
		if id, ok := n.Callee.(*ast.IdentifierNode); ok {
			v.callees[id.Value] = true
		}
	}
}
