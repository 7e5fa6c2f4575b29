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

// mathV2 is the newer math expression evaluator: it adds bitwise
// shifts, logical '&&' and '||' operators yielding 1 or 0 (both
// operands are always evaluated), an explicit
// assignment arrow ('->', value flows right into a variable instead
// of left out of one), and prefixed integer literals (0x, 0d, 0o, 0q,
// 0b). Like v1, every token must be surrounded by whitespace and ';'
// separates statements on one line.
type mathV2 struct {
	local map[string]float64
}

func newMathV2() proto.Handler {
	return &mathV2{local: make(map[string]float64)}
}

func (m *mathV2) Handle(conn *transport.Conn) (proto.Outcome, error) {
	for {
		line, err := conn.Input(">>> ")
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

func (m *mathV2) run(conn *transport.Conn, line string) error {
	for _, stmt := range strings.Split(line, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" || strings.HasPrefix(stmt, "#") {
			continue
		}
		p := &v2Parser{tokens: strings.Fields(stmt)}
		expr, assign, err := p.parseAssign()
		if err != nil {
			return err
		}
		if !p.atEnd() {
			return errors.New("unexpected trailing tokens")
		}
		value, err := expr.Evaluate(m.local)
		if err != nil {
			return err
		}
		if !assign {
			if err := conn.Println(strconv.FormatFloat(value, 'g', -1, 64)); err != nil {
				return err
			}
		}
	}
	return nil
}

type v2Expr interface {
	Evaluate(env map[string]float64) (float64, error)
}

type v2Constant float64

func (c v2Constant) Evaluate(map[string]float64) (float64, error) { return float64(c), nil }

type v2Variable string

func (v v2Variable) Evaluate(env map[string]float64) (float64, error) {
	val, ok := env[string(v)]
	if !ok {
		return 0, fmt.Errorf("unknown variable: %s", string(v))
	}
	return val, nil
}

// v2Assign is the '->' operator: evaluate value, store it under
// target, and yield it.
type v2Assign struct {
	value  v2Expr
	target v2Variable
}

func (a v2Assign) Evaluate(env map[string]float64) (float64, error) {
	v, err := a.value.Evaluate(env)
	if err != nil {
		return 0, err
	}
	env[string(a.target)] = v
	return v, nil
}

type v2Operation struct {
	left  v2Expr
	op    string
	right v2Expr
}

func (o v2Operation) Evaluate(env map[string]float64) (float64, error) {
	x, err := o.left.Evaluate(env)
	if err != nil {
		return 0, err
	}
	y, err := o.right.Evaluate(env)
	if err != nil {
		return 0, err
	}
	return runMathTimeout(5*time.Second, func() (float64, error) {
		return v2Apply(o.op, x, y)
	})
}

func v2Apply(op string, x, y float64) (float64, error) {
	switch op {
	case "+":
		return x + y, nil
	case "-":
		return x - y, nil
	case "*":
		return x * y, nil
	case "/":
		return x / y, nil
	case "%":
		return math.Mod(x, y), nil
	case "**":
		return math.Pow(x, y), nil
	case "&":
		return float64(int64(x) & int64(y)), nil
	case "|":
		return float64(int64(x) | int64(y)), nil
	case "^":
		return float64(int64(x) ^ int64(y)), nil
	case "<<":
		return float64(int64(x) << uint(int64(y))), nil
	case ">>":
		return float64(int64(x) >> uint(int64(y))), nil
	case "&&":
		return boolToFloat(x != 0 && y != 0), nil
	case "||":
		return boolToFloat(x != 0 || y != 0), nil
	case "==":
		return boolToFloat(x == y), nil
	case "!=":
		return boolToFloat(x != y), nil
	case ">":
		return boolToFloat(x > y), nil
	case ">=":
		return boolToFloat(x >= y), nil
	case "<":
		return boolToFloat(x < y), nil
	case "<=":
		return boolToFloat(x <= y), nil
	default:
		return 0, fmt.Errorf("unknown operator: %s", op)
	}
}

// v2Precedence climbs from loosest to tightest binding. '->' binds
// loosest of all and is handled separately by parseAssign since its
// right operand must be a bare variable, not a sub-expression.
var v2Precedence = []struct {
	ops        []string
	rightAssoc bool
}{
	{ops: []string{"||"}},
	{ops: []string{"&&"}},
	{ops: []string{"==", "!="}},
	{ops: []string{">", ">=", "<", "<="}},
	{ops: []string{"|"}},
	{ops: []string{"^"}},
	{ops: []string{"&"}},
	{ops: []string{"<<", ">>"}},
	{ops: []string{"+", "-"}},
	{ops: []string{"*", "/", "%"}},
	{ops: []string{"**"}, rightAssoc: true},
}

type v2Parser struct {
	tokens []string
	pos    int
}

func (p *v2Parser) atEnd() bool { return p.pos >= len(p.tokens) }

func (p *v2Parser) peek() string {
	if p.atEnd() {
		return ""
	}
	return p.tokens[p.pos]
}

func (p *v2Parser) next() string {
	t := p.tokens[p.pos]
	p.pos++
	return t
}

// parseAssign parses a full statement, reporting whether its root
// operator is '->' so the caller knows not to print the result.
func (p *v2Parser) parseAssign() (v2Expr, bool, error) {
	left, err := p.parseLevel(0)
	if err != nil {
		return nil, false, err
	}
	if p.peek() != "->" {
		return left, false, nil
	}
	p.next()
	if p.atEnd() {
		return nil, false, errors.New("expected variable after ->")
	}
	name := p.next()
	if _, ok := parseV2Literal(name); ok {
		return nil, false, errors.New("must assign to variable")
	}
	return v2Assign{value: left, target: v2Variable(name)}, true, nil
}

func (p *v2Parser) parseLevel(level int) (v2Expr, error) {
	if level >= len(v2Precedence) {
		return p.parsePrimary()
	}
	spec := v2Precedence[level]
	left, err := p.parseLevel(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		if !containsOp(spec.ops, op) {
			return left, nil
		}
		p.next()
		var right v2Expr
		if spec.rightAssoc {
			right, err = p.parseLevel(level)
		} else {
			right, err = p.parseLevel(level + 1)
		}
		if err != nil {
			return nil, err
		}
		left = v2Operation{left: left, op: op, right: right}
		if spec.rightAssoc {
			return left, nil
		}
	}
}

func (p *v2Parser) parsePrimary() (v2Expr, error) {
	if p.atEnd() {
		return nil, errors.New("unexpected end of expression")
	}
	tok := p.next()
	if v, ok := parseV2Literal(tok); ok {
		return v2Constant(v), nil
	}
	return v2Variable(tok), nil
}

func containsOp(ops []string, s string) bool {
	for _, o := range ops {
		if o == s {
			return true
		}
	}
	return false
}

// parseV2Literal recognizes prefixed integer literals (0x hex, 0d
// decimal, 0o octal, 0q base-4, 0b binary) alongside plain integers
// and floats.
func parseV2Literal(tok string) (float64, bool) {
	prefixes := map[string]int{"0x": 16, "0d": 10, "0o": 8, "0q": 4, "0b": 2}
	if len(tok) > 2 {
		lower := strings.ToLower(tok[:2])
		if base, ok := prefixes[lower]; ok {
			n, err := strconv.ParseInt(tok[2:], base, 64)
			if err != nil {
				return 0, false
			}
			return float64(n), true
		}
	}
	if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return float64(n), true
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return f, true
	}
	return 0, false
}
