package reactions

import (
	"unicode/utf8"
)

// Lexer tokenizes reaction source text.
type Lexer struct {
	input   string
	pos     int  // offset of ch
	readPos int  // offset after ch
	ch      rune // current character, 0 at EOF
	line    int
	col     int
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0
		l.pos = len(l.input)
		l.readPos = len(l.input) + 1
		l.col++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
	l.col++
}

func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

func (l *Lexer) position() Position {
	return Position{Offset: l.pos, Line: l.line, Column: l.col}
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

// Tokenize returns every token of the input, ending with EOF or the first
// invalid token.
func (l *Lexer) Tokenize() []Token {
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenInvalid {
			return tokens
		}
	}
}

// NextToken returns the next token. It always consumes at least one
// character unless the input is exhausted.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.position()
	if l.atEOF() {
		return Token{Type: TokenEOF, Pos: pos}
	}

	single := func(t TokenType) Token {
		lit := string(l.ch)
		l.readChar()
		return Token{Type: t, Literal: lit, Pos: pos}
	}
	double := func(t TokenType, lit string) Token {
		l.readChar()
		l.readChar()
		return Token{Type: t, Literal: lit, Pos: pos}
	}

	switch {
	case l.ch == '-':
		if l.peekChar() == '>' {
			return double(TokenArrowRight, "->")
		}
		return single(TokenMinus)
	case l.ch == '<':
		switch l.peekChar() {
		case '-':
			return double(TokenArrowLeft, "<-")
		case '=':
			return double(TokenLessEqual, "<=")
		}
		return single(TokenLess)
	case l.ch == '>':
		if l.peekChar() == '=' {
			return double(TokenGreaterEqual, ">=")
		}
		return single(TokenGreater)
	case l.ch == '=':
		if l.peekChar() == '=' {
			return double(TokenEqual, "==")
		}
		return single(TokenEqual)
	case l.ch == '!':
		if l.peekChar() == '=' {
			return double(TokenNotEqual, "!=")
		}
		return single(TokenInvalid)
	case l.ch == '+':
		return single(TokenPlus)
	case l.ch == '*':
		return single(TokenStar)
	case l.ch == '/':
		return single(TokenSlash)
	case l.ch == '^':
		return single(TokenCaret)
	case l.ch == '(':
		return single(TokenLParen)
	case l.ch == ')':
		return single(TokenRParen)
	case l.ch == '{':
		return single(TokenLBrace)
	case l.ch == '}':
		return single(TokenRBrace)
	case l.ch == ',':
		return single(TokenComma)
	case l.ch == ':':
		return single(TokenColon)
	case l.ch == ';':
		return single(TokenSemicolon)
	case isLetter(l.ch):
		return l.readIdentifier(pos)
	case isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())):
		return l.readNumber(pos)
	}
	return single(TokenInvalid)
}

func (l *Lexer) skipWhitespaceAndComments() {
	for !l.atEOF() {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r':
			l.readChar()
		case l.ch == '#':
			for !l.atEOF() && l.ch != '\n' {
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readIdentifier(pos Position) Token {
	start := l.pos
	for !l.atEOF() && (isLetter(l.ch) || isDigit(l.ch) || l.ch == '_') {
		l.readChar()
	}
	lit := l.input[start:l.pos]
	if kw, ok := keywords[lit]; ok {
		return Token{Type: kw, Literal: lit, Pos: pos}
	}
	return Token{Type: TokenIdentifier, Literal: lit, Pos: pos}
}

// readNumber scans digits, an optional fraction, an optional exponent and an
// optional trailing f suffix. The literal excludes the suffix.
func (l *Lexer) readNumber(pos Position) Token {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	} else if l.ch == '.' && !isLetter(l.peekChar()) {
		// "2." is accepted as 2
		l.readChar()
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || ((next == '+' || next == '-') && l.readPos+1 < len(l.input) && isDigit(rune(l.input[l.readPos+1]))) {
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	lit := l.input[start:l.pos]
	if (l.ch == 'f' || l.ch == 'F') && !isIdentChar(l.peekChar()) {
		l.readChar()
	}
	return Token{Type: TokenNumber, Literal: lit, Pos: pos}
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentChar(r rune) bool {
	return isLetter(r) || isDigit(r) || r == '_'
}
