package tools

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// The calculator grammar (lowest binding first):
//
//	expr  = term { ("+" | "-") term }
//	term  = unary { ("*" | "/" | "//" | "%") unary }
//	unary = ("+" | "-") unary | power
//	power = atom [ "**" unary ]
//	atom  = number | name | name "(" args ")" | "(" args ")" | "[" args "]"
//
// Integers stay integers until an operation needs a float, so "2+2" is "4"
// and "sqrt(16)" is "4.0". Integer results that do not fit in int64 become
// floats instead of wrapping.

var errSyntax = errors.New("invalid syntax")

type valueKind int

const (
	intValue valueKind = iota
	floatValue
	listValue
)

type value struct {
	kind valueKind
	i    int64
	f    float64
	list []value
}

func intVal(i int64) value { return value{kind: intValue, i: i} }

// bigVal narrows an exact integer result to int64, or to the nearest float
// when it is out of range.
func bigVal(r *big.Int) value {
	if r.IsInt64() {
		return intVal(r.Int64())
	}
	f, _ := new(big.Float).SetInt(r).Float64()
	return floatVal(f)
}

func (v value) big() *big.Int { return big.NewInt(v.i) }
func floatVal(f float64) value { return value{kind: floatValue, f: f} }
func listVal(l []value) value { return value{kind: listValue, list: l} }

func (v value) float() float64 {
	if v.kind == intValue {
		return float64(v.i)
	}
	return v.f
}

func (v value) typeName() string {
	switch v.kind {
	case intValue:
		return "int"
	case floatValue:
		return "float"
	}
	return "list"
}

func (v value) String() string {
	switch v.kind {
	case intValue:
		return strconv.FormatInt(v.i, 10)
	case floatValue:
		return formatFloat(v.f)
	}
	parts := make([]string, len(v.list))
	for i, item := range v.list {
		parts[i] = item.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// formatFloat prints the shortest representation that round-trips, always
// with a fractional part or an exponent.
func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}
	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp, _ := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if exp < -4 || exp >= 16 {
		return sci
	}
	out := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(out, ".") {
		out += ".0"
	}
	return out
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokName
	tokOp
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokComma
)

type token struct {
	kind tokenKind
	text string
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func tokenize(s string) ([]token, error) {
	var toks []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c) || (c == '.' && i+1 < len(s) && isDigit(s[i+1])):
			start := i
			for i < len(s) && isDigit(s[i]) {
				i++
			}
			if i < len(s) && s[i] == '.' {
				i++
				for i < len(s) && isDigit(s[i]) {
					i++
				}
			}
			if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
				j := i + 1
				if j < len(s) && (s[j] == '+' || s[j] == '-') {
					j++
				}
				if j < len(s) && isDigit(s[j]) {
					i = j
					for i < len(s) && isDigit(s[i]) {
						i++
					}
				}
			}
			toks = append(toks, token{tokNumber, s[start:i]})
		case isLetter(c):
			start := i
			for i < len(s) && (isLetter(s[i]) || isDigit(s[i])) {
				i++
			}
			toks = append(toks, token{tokName, s[start:i]})
		case c == '*' || c == '/':
			if i+1 < len(s) && s[i+1] == c {
				toks = append(toks, token{tokOp, s[i : i+2]})
				i += 2
			} else {
				toks = append(toks, token{tokOp, s[i : i+1]})
				i++
			}
		case c == '+' || c == '-' || c == '%':
			toks = append(toks, token{tokOp, s[i : i+1]})
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case c == '[':
			toks = append(toks, token{tokLBracket, "["})
			i++
		case c == ']':
			toks = append(toks, token{tokRBracket, "]"})
			i++
		case c == ',':
			toks = append(toks, token{tokComma, ","})
			i++
		default:
			return nil, errSyntax
		}
	}
	return append(toks, token{kind: tokEOF}), nil
}

type exprParser struct {
	toks []token
	pos  int
}

func evaluate(expr string) (value, error) {
	toks, err := tokenize(expr)
	if err != nil {
		return value{}, err
	}
	p := &exprParser{toks: toks}
	v, err := p.expr()
	if err != nil {
		return value{}, err
	}
	if p.peek().kind != tokEOF {
		return value{}, errSyntax
	}
	return v, nil
}

func (p *exprParser) peek() token {
	return p.toks[p.pos]
}

func (p *exprParser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *exprParser) peekOp(ops ...string) (string, bool) {
	t := p.peek()
	if t.kind != tokOp {
		return "", false
	}
	for _, op := range ops {
		if t.text == op {
			return op, true
		}
	}
	return "", false
}

func (p *exprParser) expr() (value, error) {
	left, err := p.term()
	if err != nil {
		return value{}, err
	}
	for {
		op, ok := p.peekOp("+", "-")
		if !ok {
			return left, nil
		}
		p.next()
		right, err := p.term()
		if err != nil {
			return value{}, err
		}
		if left, err = binary(op, left, right); err != nil {
			return value{}, err
		}
	}
}

func (p *exprParser) term() (value, error) {
	left, err := p.unary()
	if err != nil {
		return value{}, err
	}
	for {
		op, ok := p.peekOp("*", "/", "//", "%")
		if !ok {
			return left, nil
		}
		p.next()
		right, err := p.unary()
		if err != nil {
			return value{}, err
		}
		if left, err = binary(op, left, right); err != nil {
			return value{}, err
		}
	}
}

func (p *exprParser) unary() (value, error) {
	if op, ok := p.peekOp("+", "-"); ok {
		p.next()
		v, err := p.unary()
		if err != nil {
			return value{}, err
		}
		switch v.kind {
		case listValue:
			return value{}, fmt.Errorf("bad operand type for unary %s: 'list'", op)
		case intValue:
			if op == "-" {
				return bigVal(new(big.Int).Neg(v.big())), nil
			}
		case floatValue:
			if op == "-" {
				return floatVal(-v.f), nil
			}
		}
		return v, nil
	}
	return p.power()
}

func (p *exprParser) power() (value, error) {
	base, err := p.atom()
	if err != nil {
		return value{}, err
	}
	if _, ok := p.peekOp("**"); !ok {
		return base, nil
	}
	p.next()
	exp, err := p.unary()
	if err != nil {
		return value{}, err
	}
	return binary("**", base, exp)
}

func (p *exprParser) atom() (value, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return parseNumber(t.text)
	case tokName:
		if p.peek().kind == tokLParen {
			p.next()
			args, _, err := p.items(tokRParen)
			if err != nil {
				return value{}, err
			}
			return callFunction(t.text, args)
		}
		if c, ok := constants[t.text]; ok {
			return floatVal(c), nil
		}
		if _, ok := functions[t.text]; ok {
			return value{}, fmt.Errorf("'%s' must be called", t.text)
		}
		return value{}, fmt.Errorf("name '%s' is not defined", t.text)
	case tokLParen:
		items, comma, err := p.items(tokRParen)
		if err != nil {
			return value{}, err
		}
		if len(items) == 1 && !comma {
			return items[0], nil
		}
		return listVal(items), nil
	case tokLBracket:
		items, _, err := p.items(tokRBracket)
		if err != nil {
			return value{}, err
		}
		return listVal(items), nil
	}
	return value{}, errSyntax
}

// items parses a comma separated list up to and including the closing token.
// It reports whether a comma was seen.
func (p *exprParser) items(closing tokenKind) ([]value, bool, error) {
	var out []value
	comma := false
	if p.peek().kind == closing {
		p.next()
		return out, false, nil
	}
	for {
		v, err := p.expr()
		if err != nil {
			return nil, false, err
		}
		out = append(out, v)
		switch p.next().kind {
		case tokComma:
			comma = true
			if p.peek().kind == closing {
				p.next()
				return out, comma, nil
			}
		case closing:
			return out, comma, nil
		default:
			return nil, false, errSyntax
		}
	}
}

func parseNumber(text string) (value, error) {
	if !strings.ContainsAny(text, ".eE") {
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return intVal(i), nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return value{}, errSyntax
	}
	return floatVal(f), nil
}

func binary(op string, a, b value) (value, error) {
	if a.kind == listValue || b.kind == listValue {
		if op == "+" && a.kind == listValue && b.kind == listValue {
			joined := append(append([]value{}, a.list...), b.list...)
			return listVal(joined), nil
		}
		return value{}, fmt.Errorf("unsupported operand type(s) for %s: '%s' and '%s'", op, a.typeName(), b.typeName())
	}
	ints := a.kind == intValue && b.kind == intValue
	x, y := a.float(), b.float()
	switch op {
	case "+":
		if ints {
			return bigVal(new(big.Int).Add(a.big(), b.big())), nil
		}
		return floatVal(x + y), nil
	case "-":
		if ints {
			return bigVal(new(big.Int).Sub(a.big(), b.big())), nil
		}
		return floatVal(x - y), nil
	case "*":
		if ints {
			return bigVal(new(big.Int).Mul(a.big(), b.big())), nil
		}
		return floatVal(x * y), nil
	case "/":
		if y == 0 {
			return value{}, errors.New("division by zero")
		}
		return floatVal(x / y), nil
	case "//":
		if ints {
			if b.i == 0 {
				return value{}, errors.New("integer division or modulo by zero")
			}
			if a.i == math.MinInt64 && b.i == -1 {
				return bigVal(new(big.Int).Neg(a.big())), nil
			}
			return intVal(floorDiv(a.i, b.i)), nil
		}
		if y == 0 {
			return value{}, errors.New("float floor division by zero")
		}
		return floatVal(math.Floor(x / y)), nil
	case "%":
		if ints {
			if b.i == 0 {
				return value{}, errors.New("integer division or modulo by zero")
			}
			return intVal(a.i - floorDiv(a.i, b.i)*b.i), nil
		}
		if y == 0 {
			return value{}, errors.New("float modulo")
		}
		r := math.Mod(x, y)
		if r != 0 && (r < 0) != (y < 0) {
			r += y
		}
		return floatVal(r), nil
	case "**":
		return power(a, b)
	}
	return value{}, errSyntax
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// maxIntExponent bounds exact integer exponentiation.
const maxIntExponent = 4096

func power(a, b value) (value, error) {
	if a.kind == intValue && b.kind == intValue && b.i >= 0 {
		if b.i <= maxIntExponent {
			r := new(big.Int).Exp(big.NewInt(a.i), big.NewInt(b.i), nil)
			if r.IsInt64() {
				return intVal(r.Int64()), nil
			}
		}
		return floatVal(math.Pow(a.float(), b.float())), nil
	}
	x, y := a.float(), b.float()
	if x == 0 && y < 0 {
		return value{}, errors.New("0.0 cannot be raised to a negative power")
	}
	if x < 0 && y != math.Trunc(y) {
		return value{}, errors.New("math domain error")
	}
	return floatVal(math.Pow(x, y)), nil
}

var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

type mathFunc func(name string, args []value) (value, error)

var functions = map[string]mathFunc{
	"abs":   fnAbs,
	"round": fnRound,
	"min":   fnMinMax,
	"max":   fnMinMax,
	"sum":   fnSum,
	"pow":   fnPow,
	"sqrt":  unaryFloat(math.Sqrt, func(x float64) bool { return x >= 0 }),
	"sin":   unaryFloat(math.Sin, finite),
	"cos":   unaryFloat(math.Cos, finite),
	"tan":   unaryFloat(math.Tan, finite),
	"exp":   unaryFloat(math.Exp, func(float64) bool { return true }),
	"log":   fnLog,
	"log10": unaryFloat(math.Log10, func(x float64) bool { return x > 0 }),
}

func callFunction(name string, args []value) (value, error) {
	fn, ok := functions[name]
	if !ok {
		if _, isConst := constants[name]; isConst {
			return value{}, fmt.Errorf("'float' object is not callable")
		}
		return value{}, fmt.Errorf("name '%s' is not defined", name)
	}
	return fn(name, args)
}

func finite(x float64) bool {
	return !math.IsInf(x, 0)
}

func number(name string, v value) (float64, error) {
	if v.kind == listValue {
		return 0, fmt.Errorf("%s(): must be real number, not list", name)
	}
	return v.float(), nil
}

func arity(name string, args []value, min, max int) error {
	if len(args) >= min && len(args) <= max {
		return nil
	}
	if min == max {
		return fmt.Errorf("%s() takes exactly %d argument(s) (%d given)", name, min, len(args))
	}
	return fmt.Errorf("%s() takes %d to %d arguments (%d given)", name, min, max, len(args))
}

func unaryFloat(f func(float64) float64, domain func(float64) bool) mathFunc {
	return func(name string, args []value) (value, error) {
		if err := arity(name, args, 1, 1); err != nil {
			return value{}, err
		}
		x, err := number(name, args[0])
		if err != nil {
			return value{}, err
		}
		if !domain(x) {
			return value{}, errors.New("math domain error")
		}
		r := f(x)
		if math.IsInf(r, 0) && !math.IsInf(x, 0) {
			return value{}, errors.New("math range error")
		}
		return floatVal(r), nil
	}
}

func fnAbs(name string, args []value) (value, error) {
	if err := arity(name, args, 1, 1); err != nil {
		return value{}, err
	}
	switch v := args[0]; v.kind {
	case intValue:
		if v.i < 0 {
			return bigVal(new(big.Int).Neg(v.big())), nil
		}
		return v, nil
	case floatValue:
		return floatVal(math.Abs(v.f)), nil
	}
	return value{}, errors.New("bad operand type for abs(): 'list'")
}

func fnRound(name string, args []value) (value, error) {
	if err := arity(name, args, 1, 2); err != nil {
		return value{}, err
	}
	x := args[0]
	if x.kind == listValue {
		return value{}, errors.New("type list doesn't define __round__ method")
	}
	if len(args) == 1 {
		if x.kind == intValue {
			return x, nil
		}
		if math.IsInf(x.f, 0) || math.IsNaN(x.f) {
			return value{}, errors.New("cannot convert float to integer")
		}
		r := math.RoundToEven(x.f)
		if r < -(1<<63) || r >= 1<<63 {
			return floatVal(r), nil
		}
		return intVal(int64(r)), nil
	}
	nd := args[1]
	if nd.kind != intValue {
		return value{}, fmt.Errorf("'%s' object cannot be interpreted as an integer", nd.typeName())
	}
	if x.kind == intValue {
		if nd.i >= 0 {
			return x, nil
		}
		return roundInt(x.big(), -nd.i), nil
	}
	scale := math.Pow(10, float64(nd.i))
	return floatVal(math.RoundToEven(x.f*scale) / scale), nil
}

// roundInt rounds n to a multiple of 10**digits, ties to even.
func roundInt(n *big.Int, digits int64) value {
	if digits < 0 || digits > 40 {
		// |n| < 10**19, so it rounds to zero; digits < 0 is a negated MinInt64
		return intVal(0)
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(digits), nil)
	q, r := new(big.Int).DivMod(n, scale, new(big.Int))
	// DivMod is Euclidean and scale is positive, so q is the floor and r >= 0
	switch new(big.Int).Lsh(r, 1).Cmp(scale) {
	case 1:
		q.Add(q, big.NewInt(1))
	case 0:
		if q.Bit(0) == 1 {
			q.Add(q, big.NewInt(1))
		}
	}
	return bigVal(q.Mul(q, scale))
}

func fnMinMax(name string, args []value) (value, error) {
	items := args
	if len(args) == 1 && args[0].kind == listValue {
		items = args[0].list
	}
	if len(items) == 0 {
		return value{}, fmt.Errorf("%s() arg is an empty sequence", name)
	}
	best := items[0]
	if best.kind == listValue {
		return value{}, fmt.Errorf("%s(): unsupported list comparison", name)
	}
	for _, v := range items[1:] {
		if v.kind == listValue {
			return value{}, fmt.Errorf("%s(): unsupported list comparison", name)
		}
		if (name == "min" && v.float() < best.float()) || (name == "max" && v.float() > best.float()) {
			best = v
		}
	}
	return best, nil
}

func fnSum(name string, args []value) (value, error) {
	if err := arity(name, args, 1, 2); err != nil {
		return value{}, err
	}
	if args[0].kind != listValue {
		return value{}, fmt.Errorf("'%s' object is not iterable", args[0].typeName())
	}
	total := intVal(0)
	if len(args) == 2 {
		total = args[1]
	}
	for _, v := range args[0].list {
		var err error
		if total, err = binary("+", total, v); err != nil {
			return value{}, err
		}
	}
	return total, nil
}

func fnPow(name string, args []value) (value, error) {
	if err := arity(name, args, 2, 3); err != nil {
		return value{}, err
	}
	if len(args) == 2 {
		return binary("**", args[0], args[1])
	}
	base, exp, mod := args[0], args[1], args[2]
	if base.kind != intValue || exp.kind != intValue || mod.kind != intValue {
		return value{}, errors.New("pow() 3rd argument not allowed unless all arguments are integers")
	}
	if mod.i == 0 {
		return value{}, errors.New("pow() 3rd argument cannot be 0")
	}
	if exp.i < 0 {
		return value{}, errors.New("pow() negative exponent with modulus is not supported")
	}
	m := big.NewInt(mod.i)
	r := new(big.Int).Exp(big.NewInt(base.i), big.NewInt(exp.i), m)
	// big.Int.Exp uses a non-negative modulus; match floor semantics for negative moduli
	if mod.i < 0 && r.Sign() != 0 {
		r.Add(r, m)
	}
	return intVal(r.Int64()), nil
}

func fnLog(name string, args []value) (value, error) {
	if err := arity(name, args, 1, 2); err != nil {
		return value{}, err
	}
	x, err := number(name, args[0])
	if err != nil {
		return value{}, err
	}
	if x <= 0 {
		return value{}, errors.New("math domain error")
	}
	if len(args) == 1 {
		return floatVal(math.Log(x)), nil
	}
	base, err := number(name, args[1])
	if err != nil {
		return value{}, err
	}
	if base <= 0 {
		return value{}, errors.New("math domain error")
	}
	if base == 1 {
		return value{}, errors.New("float division by zero")
	}
	return floatVal(math.Log(x) / math.Log(base)), nil
}
