package reactions

import (
	"math"
	"strconv"
)

type function struct {
	unary, binary, ternary Op
}

var functions = map[string]function{
	"sin":   {unary: OpSin},
	"cos":   {unary: OpCos},
	"tan":   {unary: OpTan},
	"asin":  {unary: OpAsin},
	"acos":  {unary: OpAcos},
	"atan":  {unary: OpAtan, binary: OpAtan2},
	"atan2": {binary: OpAtan2},
	"sinh":  {unary: OpSinh},
	"cosh":  {unary: OpCosh},
	"tanh":  {unary: OpTanh},
	"sqrt":  {unary: OpSqrt},
	"cbrt":  {unary: OpCbrt},
	"exp":   {unary: OpExp},
	"log":   {unary: OpLog},
	"ln":    {unary: OpLn},
	"log2":  {unary: OpLog2},
	"sgn":   {unary: OpSgn},
	"abs":   {unary: OpAbs},
	"gamma": {unary: OpGamma},
	"floor": {unary: OpFloor},
	"ceil":  {unary: OpCeil},
	"pow":   {binary: OpPow},
	"min":   {binary: OpMin},
	"max":   {binary: OpMax},
	"hill":  {binary: OpHill, ternary: OpHillK},
}

var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

// ParseExpression compiles an arithmetic expression. Identifiers must be
// constants, functions or declared parameters unless molecule references
// are enabled with WithMoleculeReferences(true).
func ParseExpression(src string, opts ...Option) (*Node, error) {
	p := NewParser(src, append([]Option{WithMoleculeReferences(false)}, opts...)...)
	n, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return n, nil
}

// ParseCondition compiles a boolean condition into its disjunctive normal
// form.
func ParseCondition(src string, opts ...Option) ([]Condition, error) {
	p := NewParser(src, opts...)
	n, err := p.parseConditionExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return NormalizeCondition(n), nil
}

func (p *Parser) expectEnd() error {
	switch p.cur.Type {
	case TokenEOF:
		return nil
	case TokenRParen:
		return p.fail(ErrUnmatchedParenthesis, "unexpected ')'")
	}
	return p.fail(ErrInvalidToken, "unexpected %s after expression", p.cur)
}

// parseConditionExpr parses "clause { or clause }".
func (p *Parser) parseConditionExpr() (*Node, error) {
	saved := p.condition
	p.condition = true
	defer func() { p.condition = saved }()
	return p.parseOr()
}

func (p *Parser) parseOr() (*Node, error) {
	return p.parseConnective(TokenOr, NodeOr, p.parseAnd)
}

func (p *Parser) parseAnd() (*Node, error) {
	return p.parseConnective(TokenAnd, NodeAnd, p.parseNot)
}

func (p *Parser) parseConnective(tok TokenType, kind NodeKind, next func() (*Node, error)) (*Node, error) {
	first, err := next()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != tok {
		return first, nil
	}
	args := []*Node{first}
	for p.cur.Type == tok {
		p.advance()
		n, err := next()
		if err != nil {
			return nil, err
		}
		args = append(args, n)
	}
	return &Node{Kind: kind, Args: args}, nil
}

func (p *Parser) parseNot() (*Node, error) {
	if p.cur.Type != TokenNot {
		return p.parseRelational()
	}
	p.advance()
	n, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	return &Node{Kind: NodeNot, Args: []*Node{n}}, nil
}

var relational = map[TokenType]CompareKind{
	TokenLess:         CompareLess,
	TokenLessEqual:    CompareLessEqual,
	TokenGreater:      CompareGreater,
	TokenGreaterEqual: CompareGreaterEqual,
	TokenEqual:        CompareEqual,
	TokenNotEqual:     CompareNotEqual,
}

// parseRelational parses a chain "a op b op c ..." into the conjunction of
// its pairwise comparisons.
func (p *Parser) parseRelational() (*Node, error) {
	left, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	var cmps []*Node
	for {
		kind, ok := relational[p.cur.Type]
		if !ok {
			break
		}
		pos := p.cur.Pos
		p.advance()
		right, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		cmp := &Node{Kind: NodeCompare, Compare: kind, Args: []*Node{left, right}}
		if err := checkRequirement(cmp, pos); err != nil {
			return nil, err
		}
		cmps = append(cmps, cmp)
		left = right
	}
	switch len(cmps) {
	case 0:
		return left, nil
	case 1:
		return cmps[0], nil
	}
	return &Node{Kind: NodeAnd, Args: cmps}, nil
}

// checkRequirement rejects guards that no molecule count can satisfy, such
// as "A < 0".
func checkRequirement(cmp *Node, pos Position) error {
	l, r := cmp.Args[0], cmp.Args[1]
	impossible := (cmp.Compare == CompareLess && l.Kind == NodeMolecule && r.Kind == NodeLiteral && r.Value == 0) ||
		(cmp.Compare == CompareGreater && r.Kind == NodeMolecule && l.Kind == NodeLiteral && l.Value == 0)
	if impossible {
		return newParseError(ErrInvalidRequirement, pos, "%s can never hold for a molecule count", cmp)
	}
	return nil
}

// parseAdd parses "mul { (+|-) mul }".
func (p *Parser) parseAdd() (*Node, error) {
	left, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenPlus || p.cur.Type == TokenMinus {
		op := OpAdd
		if p.cur.Type == TokenMinus {
			op = OpSub
		}
		p.advance()
		right, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		left = &Node{Kind: NodeBinary, Op: op, Args: []*Node{left, right}}
	}
	return left, nil
}

// parseMul parses "power { (*|/) power }".
func (p *Parser) parseMul() (*Node, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenStar || p.cur.Type == TokenSlash {
		op := OpMul
		if p.cur.Type == TokenSlash {
			op = OpDiv
		}
		p.advance()
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		left = &Node{Kind: NodeBinary, Op: op, Args: []*Node{left, right}}
	}
	return left, nil
}

// parsePower parses "unary [ ^ power ]"; ^ groups to the right.
func (p *Parser) parsePower() (*Node, error) {
	base, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != TokenCaret {
		return base, nil
	}
	p.advance()
	exp, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	return &Node{Kind: NodeBinary, Op: OpPow, Args: []*Node{base, exp}}, nil
}

func (p *Parser) parseUnary() (*Node, error) {
	switch p.cur.Type {
	case TokenMinus:
		p.advance()
		n, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if n.Kind == NodeLiteral {
			return Literal(-n.Value), nil
		}
		return &Node{Kind: NodeUnary, Op: OpNeg, Args: []*Node{n}}, nil
	case TokenPlus:
		p.advance()
		return p.parseUnary()
	}
	return p.parseAtom()
}

func (p *Parser) parseAtom() (*Node, error) {
	switch p.cur.Type {
	case TokenNumber:
		v, err := strconv.ParseFloat(p.cur.Literal, 64)
		if err != nil {
			return nil, p.fail(ErrInvalidToken, "bad number %q", p.cur.Literal)
		}
		p.advance()
		return Literal(v), nil

	case TokenLParen:
		open := p.cur.Pos
		p.advance()
		var inner *Node
		var err error
		if p.condition {
			inner, err = p.parseOr()
		} else {
			inner, err = p.parseAdd()
		}
		if err != nil {
			return nil, err
		}
		if p.cur.Type != TokenRParen {
			if p.cur.Type == TokenInvalid {
				return nil, p.fail(ErrInvalidToken, "")
			}
			return nil, newParseError(ErrUnmatchedParenthesis, open, "'(' is never closed")
		}
		p.advance()
		return inner, nil

	case TokenIdentifier:
		return p.parseIdentifier()

	case TokenRParen:
		return nil, p.fail(ErrUnmatchedParenthesis, "unexpected ')'")
	}
	return nil, p.fail(ErrEmptyExpression, "expected a value, got %s", p.cur)
}

func (p *Parser) parseIdentifier() (*Node, error) {
	tok := p.cur
	name := tok.Literal

	if v, ok := constants[name]; ok {
		p.advance()
		return Literal(v), nil
	}

	if p.peek.Type == TokenLParen {
		if isEnvironment(name) {
			return p.parseEnvironmentRef()
		}
		return p.parseCall()
	}

	p.advance()
	if p.parameters[name] {
		return &Node{Kind: NodeParameter, Name: name}, nil
	}
	if p.molecules {
		return MoleculeRef(name), nil
	}
	return nil, newParseError(ErrUnknownIdentifier, tok.Pos, "%q", name)
}

// parseEnvironmentRef parses "env ( NAME )".
func (p *Parser) parseEnvironmentRef() (*Node, error) {
	p.advance() // env
	open := p.cur.Pos
	p.advance() // (
	if p.cur.Type != TokenIdentifier {
		return nil, p.fail(ErrMissingIdentifier, "expected signal name in env(), got %s", p.cur)
	}
	name := p.cur.Literal
	p.advance()
	if p.cur.Type != TokenRParen {
		return nil, newParseError(ErrUnmatchedParenthesis, open, "env( is never closed")
	}
	p.advance()
	return &Node{Kind: NodeEnvironment, Name: name}, nil
}

// parseCall parses "name ( expr { , expr } )".
func (p *Parser) parseCall() (*Node, error) {
	tok := p.cur
	fn, known := functions[tok.Literal]
	p.advance() // name
	open := p.cur.Pos
	p.advance() // (

	saved := p.condition
	p.condition = false
	defer func() { p.condition = saved }()

	var args []*Node
	if p.cur.Type != TokenRParen {
		for {
			a, err := p.parseAdd()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if p.cur.Type != TokenComma {
				break
			}
			p.advance()
		}
	}
	if p.cur.Type != TokenRParen {
		if p.cur.Type == TokenInvalid {
			return nil, p.fail(ErrInvalidToken, "")
		}
		return nil, newParseError(ErrUnmatchedParenthesis, open, "call to %s is never closed", tok.Literal)
	}
	p.advance()

	if !known {
		return nil, newParseError(ErrUnknownFunction, tok.Pos, "%q", tok.Literal)
	}
	switch {
	case len(args) == 1 && fn.unary != OpNone:
		return &Node{Kind: NodeUnary, Op: fn.unary, Args: args}, nil
	case len(args) == 2 && fn.binary != OpNone:
		return &Node{Kind: NodeBinary, Op: fn.binary, Args: args}, nil
	case len(args) == 3 && fn.ternary != OpNone:
		return &Node{Kind: NodeTernary, Op: fn.ternary, Args: args}, nil
	}
	return nil, newParseError(ErrUnknownFunction, tok.Pos, "%s does not take %d arguments", tok.Literal, len(args))
}
