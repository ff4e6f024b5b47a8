package reactions

import "fmt"

// TokenType represents the type of a token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenInvalid

	TokenIdentifier // A, mRNA_1
	TokenNumber     // 12, 1.5, 1.5e-1, 2f

	// Arrows. Bare > and < double as relational operators inside conditions.
	TokenArrowRight // ->
	TokenArrowLeft  // <-
	TokenGreater    // >
	TokenLess       // <

	TokenGreaterEqual // >=
	TokenLessEqual    // <=
	TokenEqual        // = or ==
	TokenNotEqual     // !=

	TokenPlus      // +
	TokenMinus     // -
	TokenStar      // *
	TokenSlash     // /
	TokenCaret     // ^
	TokenLParen    // (
	TokenRParen    // )
	TokenLBrace    // {
	TokenRBrace    // }
	TokenComma     // ,
	TokenColon     // :
	TokenSemicolon // ;

	TokenIf
	TokenAnd
	TokenOr
	TokenNot
)

var tokenNames = map[TokenType]string{
	TokenEOF:          "EOF",
	TokenInvalid:      "INVALID",
	TokenIdentifier:   "IDENTIFIER",
	TokenNumber:       "NUMBER",
	TokenArrowRight:   "->",
	TokenArrowLeft:    "<-",
	TokenGreater:      ">",
	TokenLess:         "<",
	TokenGreaterEqual: ">=",
	TokenLessEqual:    "<=",
	TokenEqual:        "=",
	TokenNotEqual:     "!=",
	TokenPlus:         "+",
	TokenMinus:        "-",
	TokenStar:         "*",
	TokenSlash:        "/",
	TokenCaret:        "^",
	TokenLParen:       "(",
	TokenRParen:       ")",
	TokenLBrace:       "{",
	TokenRBrace:       "}",
	TokenComma:        ",",
	TokenColon:        ":",
	TokenSemicolon:    ";",
	TokenIf:           "if",
	TokenAnd:          "and",
	TokenOr:           "or",
	TokenNot:          "not",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// IsArrow reports whether t can separate a molecule list from a rate.
func (t TokenType) IsArrow() bool {
	switch t {
	case TokenArrowRight, TokenArrowLeft, TokenGreater, TokenLess:
		return true
	}
	return false
}

// reversesReaction reports whether an arrow opens a reversible reaction.
func (t TokenType) reversesReaction() bool {
	return t == TokenArrowLeft || t == TokenLess
}

// Position is a location in reaction source text.
type Position struct {
	Offset int
	Line   int // 1-based
	Column int // 1-based
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "EOF"
	case TokenIdentifier, TokenNumber, TokenInvalid:
		return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
	}
	return t.Type.String()
}

var keywords = map[string]TokenType{
	"if":  TokenIf,
	"and": TokenAnd,
	"or":  TokenOr,
	"not": TokenNot,
}
