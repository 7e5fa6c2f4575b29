package handler

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/blastus/confabulator/proto"
	"github.com/blastus/confabulator/transport"
)

// mathV1 is the original math expression evaluator: floating-point
// only, whitespace-delimited tokens, ';' separates statements on one
// line, '#' starts a comment, and '=' introduces one or more
// right-to-left assignments.
type mathV1 struct {
	local map[string]float64
}

func newMathV1() proto.Handler {
	return &mathV1{local: make(map[string]float64)}
}

func (m *mathV1) Handle(conn *transport.Conn) (proto.Outcome, error) {
	for {
		line, err := conn.Input("Eval:")
		if err != nil {
			return proto.Outcome{}, err
		}
		if proto.StopWords[strings.TrimSpace(line)] {
			return proto.Pop(), nil
		}
		if err := m.run(conn, line); err != nil {
			if err := conn.Println(err.Error()); err != nil {
				return proto.Outcome{}, err
			}
		}
	}
}

func (m *mathV1) run(conn *transport.Conn, line string) error {
	for _, stmt := range strings.Split(line, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" || strings.HasPrefix(stmt, "#") {
			continue
		}
		expr, err := m.build(stmt, conn)
		if err != nil {
			return err
		}
		if _, err := expr.Evaluate(m.local); err != nil {
			return err
		}
	}
	return nil
}

var v1Operators = map[string]bool{
	"=": true, "+": true, "-": true, "*": true, "/": true, "//": true,
	"%": true, "**": true, "^": true, "and": true, "&": true, "or": true,
	"|": true, "==": true, "!=": true, ">": true, "<": true, ">=": true, "<=": true,
}

type v1Token struct {
	op     string
	expr   v1Expr
	isExpr bool
}

type v1Expr interface {
	Evaluate(env map[string]float64) (float64, error)
}

type v1Constant float64

func (c v1Constant) Evaluate(map[string]float64) (float64, error) { return float64(c), nil }

type v1Variable string

func (v v1Variable) Evaluate(env map[string]float64) (float64, error) {
	val, ok := env[string(v)]
	if !ok {
		return 0, fmt.Errorf("unknown variable: %s", string(v))
	}
	return val, nil
}

type v1Operation struct {
	left  v1Expr
	op    string
	right v1Expr
}

func (o v1Operation) Evaluate(env map[string]float64) (float64, error) {
	if o.op == "=" {
		name, ok := o.left.(v1Variable)
		if !ok {
			return 0, errors.New("must assign to variable")
		}
		value, err := o.right.Evaluate(env)
		if err != nil {
			return 0, err
		}
		env[string(name)] = value
		return value, nil
	}
	x, err := o.left.Evaluate(env)
	if err != nil {
		return 0, err
	}
	y, err := o.right.Evaluate(env)
	if err != nil {
		return 0, err
	}
	return runMathTimeout(5*time.Second, func() (float64, error) {
		return v1Apply(o.op, x, y)
	})
}

func v1Apply(op string, x, y float64) (float64, error) {
	switch op {
	case "+":
		return x + y, nil
	case "-":
		return x - y, nil
	case "*":
		return x * y, nil
	case "/":
		return x / y, nil
	case "//":
		return math.Floor(x / y), nil
	case "%":
		return math.Mod(x, y), nil
	case "**":
		return math.Pow(x, y), nil
	case "^":
		return float64(int64(x) ^ int64(y)), nil
	case "and":
		if x == 0 {
			return x, nil
		}
		return y, nil
	case "&":
		return float64(int64(x) & int64(y)), nil
	case "or":
		if x != 0 {
			return x, nil
		}
		return y, nil
	case "|":
		return float64(int64(x) | int64(y)), nil
	case "==":
		return boolToFloat(x == y), nil
	case "!=":
		return boolToFloat(x != y), nil
	case ">":
		return boolToFloat(x > y), nil
	case "<":
		return boolToFloat(x < y), nil
	case ">=":
		return boolToFloat(x >= y), nil
	case "<=":
		return boolToFloat(x <= y), nil
	default:
		return 0, fmt.Errorf("unknown operator: %s", op)
	}
}

// v1Print wraps an expression that is not part of an assignment: its
// value is printed to the client when evaluated.
type v1Print struct {
	expr v1Expr
	conn *transport.Conn
}

func (p v1Print) Evaluate(env map[string]float64) (float64, error) {
	v, err := p.expr.Evaluate(env)
	if err != nil {
		return 0, err
	}
	if err := p.conn.Println(strconv.FormatFloat(v, 'g', -1, 64)); err != nil {
		return 0, err
	}
	return v, nil
}

// build parses one statement into an expression tree: tokens are
// classified as operators, numeric constants, or variables, then
// grouped around any '=' signs into an assignment chain, or flattened
// into a single printable expression if there is none.
func (m *mathV1) build(stmt string, conn *transport.Conn) (v1Expr, error) {
	fields := strings.Fields(stmt)
	tokens := make([]v1Token, 0, len(fields))
	for _, f := range fields {
		if v1Operators[f] {
			tokens = append(tokens, v1Token{op: f})
			continue
		}
		if c, err := strconv.ParseFloat(f, 64); err == nil {
			tokens = append(tokens, v1Token{expr: v1Constant(c), isExpr: true})
			continue
		}
		tokens = append(tokens, v1Token{expr: v1Variable(f), isExpr: true})
	}

	hasAssign := false
	for _, t := range tokens {
		if t.op == "=" {
			hasAssign = true
			break
		}
	}
	if !hasAssign {
		expr, err := flattenV1(tokens)
		if err != nil {
			return nil, err
		}
		return v1Print{expr: expr, conn: conn}, nil
	}

	var sections [][]v1Token
	var cur []v1Token
	for _, t := range tokens {
		if t.op == "=" {
			sections = append(sections, cur)
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	sections = append(sections, cur)

	for _, sec := range sections[:len(sections)-1] {
		if len(sec) != 1 || !sec[0].isExpr {
			return nil, errors.New("must have single token")
		}
		if _, ok := sec[0].expr.(v1Variable); !ok {
			return nil, errors.New("must assign to variable")
		}
	}
	last, err := flattenV1(sections[len(sections)-1])
	if err != nil {
		return nil, err
	}
	expr := v1Expr(v1Operation{left: sections[len(sections)-2][0].expr, op: "=", right: last})
	for i := len(sections) - 3; i >= 0; i-- {
		expr = v1Operation{left: sections[i][0].expr, op: "=", right: expr}
	}
	return expr, nil
}

// flattenV1 reduces an alternating operand/operator/.../operand token
// run into a single left-associative expression tree.
func flattenV1(tokens []v1Token) (v1Expr, error) {
	if len(tokens) == 0 || len(tokens)%2 == 0 {
		return nil, errors.New("must have odd number of tokens")
	}
	for i, t := range tokens {
		if i%2 == 0 {
			if !t.isExpr {
				return nil, errors.New("must have constant or variable")
			}
		} else if t.isExpr {
			return nil, errors.New("must have operation")
		}
	}
	if len(tokens) == 1 {
		return tokens[0].expr, nil
	}
	expr := v1Expr(v1Operation{left: tokens[0].expr, op: tokens[1].op, right: tokens[2].expr})
	for i := 3; i < len(tokens); i += 2 {
		expr = v1Operation{left: expr, op: tokens[i].op, right: tokens[i+1].expr}
	}
	return expr, nil
}
