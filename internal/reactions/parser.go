package reactions

import "slices"

// Statement is one parsed reaction before it is placed in a Store.
// EnvReactants are taken from the environment and EnvProducts released
// into it.
type Statement struct {
	Reactants    []string
	Products     []string
	EnvReactants []string
	EnvProducts  []string
	Rate         *Node
	Condition    *Node // nil when unconditional
	Pos          Position
}

// Diffusive reports whether the statement exchanges molecules with the
// environment.
func (s Statement) Diffusive() bool {
	return len(s.EnvReactants) > 0 || len(s.EnvProducts) > 0
}

// Parser is a recursive-descent parser over reaction source text. The same
// parser serves rate expressions, conditions and whole programs.
type Parser struct {
	lex  *Lexer
	cur  Token
	peek Token

	parameters map[string]bool
	molecules  bool // identifiers may resolve to molecule counts
	condition  bool // parenthesised groups are boolean conditions
}

// Option configures a Parser.
type Option func(*Parser)

// WithParameters declares the simulation parameter names that identifiers
// in rates and conditions resolve to before falling back to molecules.
func WithParameters(names ...string) Option {
	return func(p *Parser) {
		for _, n := range names {
			p.parameters[n] = true
		}
	}
}

// WithParameterTable declares every key of table as a parameter name.
func WithParameterTable(table ParameterTable) Option {
	return func(p *Parser) {
		for n := range table {
			p.parameters[n] = true
		}
	}
}

// WithMoleculeReferences controls whether unknown identifiers become
// molecule-count references instead of an unknown-identifier error.
func WithMoleculeReferences(allow bool) Option {
	return func(p *Parser) {
		p.molecules = allow
	}
}

// NewParser creates a parser over src. Molecule references are allowed
// unless disabled by an option.
func NewParser(src string, opts ...Option) *Parser {
	p := &Parser{
		lex:        NewLexer(src),
		parameters: make(map[string]bool),
		molecules:  true,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.cur = p.lex.NextToken()
	p.peek = p.lex.NextToken()
	return p
}

func (p *Parser) advance() {
	p.cur = p.peek
	if p.cur.Type == TokenEOF || p.cur.Type == TokenInvalid {
		// Nothing past EOF or an invalid token is ever read.
		p.peek = p.cur
		return
	}
	p.peek = p.lex.NextToken()
}

// fail builds an error for the current token, reporting an invalid token
// in preference to the grammar expectation it broke.
func (p *Parser) fail(kind error, format string, args ...any) error {
	if p.cur.Type == TokenInvalid {
		return newParseError(ErrInvalidToken, p.cur.Pos, "unexpected character %q", p.cur.Literal)
	}
	return newParseError(kind, p.cur.Pos, format, args...)
}

// Parse parses a whole reaction program. On error no statement is returned.
func Parse(src string, opts ...Option) ([]Statement, error) {
	return NewParser(src, opts...).ParseProgram()
}

// ParseProgram parses statements until EOF.
func (p *Parser) ParseProgram() ([]Statement, error) {
	var out []Statement
	for p.cur.Type != TokenEOF {
		stmts, err := p.parseStatement(nil)
		if err != nil {
			return nil, err
		}
		out = append(out, stmts...)
	}
	return out, nil
}

// parseStatement parses an optionally conditional reaction or block.
// outer is the condition inherited from enclosing blocks.
func (p *Parser) parseStatement(outer *Node) ([]Statement, error) {
	cond := outer
	if p.cur.Type == TokenIf {
		p.advance()
		c, err := p.parseConditionExpr()
		if err != nil {
			return nil, err
		}
		if p.cur.Type != TokenColon {
			return nil, p.fail(ErrMissingColon, "expected ':' after condition, got %s", p.cur)
		}
		p.advance()
		cond = conjoin(outer, c)
	}

	if p.cur.Type != TokenLBrace {
		return p.parseBody(cond)
	}

	open := p.cur.Pos
	p.advance()
	var out []Statement
	for p.cur.Type != TokenRBrace {
		if p.cur.Type == TokenEOF {
			return nil, newParseError(ErrUnmatchedParenthesis, open, "block opened here is never closed")
		}
		stmts, err := p.parseStatement(cond)
		if err != nil {
			return nil, err
		}
		out = append(out, stmts...)
	}
	p.advance()
	if p.cur.Type == TokenSemicolon {
		p.advance()
	}
	return out, nil
}

func conjoin(a, b *Node) *Node {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return &Node{Kind: NodeAnd, Args: []*Node{a, b}}
}

// parseBody parses "list arrow rate [, rate] arrow list ;".
func (p *Parser) parseBody(cond *Node) ([]Statement, error) {
	pos := p.cur.Pos

	left, err := p.parseList()
	if err != nil {
		return nil, err
	}

	if !p.cur.Type.IsArrow() {
		return nil, p.fail(ErrMissingArrow, "expected arrow after reactants, got %s", p.cur)
	}
	reversible := p.cur.Type.reversesReaction()
	p.advance()

	first, err := p.parseRate()
	if err != nil {
		return nil, err
	}
	var second *Node
	if p.cur.Type == TokenComma {
		p.advance()
		if second, err = p.parseRate(); err != nil {
			return nil, err
		}
	}

	if !p.cur.Type.IsArrow() {
		return nil, p.fail(ErrMissingArrow, "expected arrow after rate, got %s", p.cur)
	}
	p.advance()

	right, err := p.parseList()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != TokenSemicolon {
		return nil, p.fail(ErrMissingSemicolon, "expected ';' after products, got %s", p.cur)
	}
	p.advance()

	switch {
	case reversible && second == nil:
		return nil, newParseError(ErrMissingRate, pos, "reversible reaction needs two rates: backward, forward")
	case !reversible && second != nil:
		return nil, newParseError(ErrMissingArrow, pos, "two rates given but the first arrow is not reversible")
	}

	if !reversible {
		st, err := makeStatement(left, right, first, cond, pos)
		if err != nil {
			return nil, err
		}
		return []Statement{st}, nil
	}

	// The backward rate is written first: "A < backward, forward > B".
	forward, err := makeStatement(left, right, second, cond, pos)
	if err != nil {
		return nil, err
	}
	backward, err := makeStatement(right, left, first, cond, pos)
	if err != nil {
		return nil, err
	}
	return []Statement{forward, backward}, nil
}

func (p *Parser) parseRate() (*Node, error) {
	switch p.cur.Type {
	case TokenComma, TokenSemicolon, TokenEOF, TokenArrowRight, TokenArrowLeft, TokenGreater, TokenLess:
		return nil, p.fail(ErrMissingRate, "expected rate expression, got %s", p.cur)
	}
	p.condition = false
	return p.parseAdd()
}

// parseList parses "ident { + ident }".
func (p *Parser) parseList() ([]string, error) {
	var names []string
	for {
		if p.cur.Type != TokenIdentifier {
			return nil, p.fail(ErrMissingIdentifier, "expected molecule name, got %s", p.cur)
		}
		names = append(names, p.cur.Literal)
		p.advance()
		if p.cur.Type != TokenPlus {
			return names, nil
		}
		p.advance()
	}
}

func isNull(name string) bool {
	return name == "null"
}

func isEnvironment(name string) bool {
	return name == "env" || name == "environment"
}

// makeStatement drops null, routes the env sentinel and rejects empty
// reactions. env on one side routes every molecule of the other side
// through the environment.
func makeStatement(left, right []string, rate, cond *Node, pos Position) (Statement, error) {
	envLeft := slices.ContainsFunc(left, isEnvironment)
	envRight := slices.ContainsFunc(right, isEnvironment)

	keep := func(names []string) []string {
		var out []string
		for _, n := range names {
			if !isNull(n) && !isEnvironment(n) {
				out = append(out, n)
			}
		}
		return out
	}

	st := Statement{
		Reactants: keep(left),
		Products:  keep(right),
		Rate:      rate,
		Condition: cond,
		Pos:       pos,
	}
	if len(st.Reactants) == 0 && len(st.Products) == 0 {
		return Statement{}, newParseError(ErrEmptyReaction, pos, "")
	}
	if envLeft {
		st.EnvReactants = slices.Clone(st.Products)
	}
	if envRight {
		st.EnvProducts = slices.Clone(st.Reactants)
	}
	return st, nil
}
