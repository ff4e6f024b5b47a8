package reactions

import (
	"errors"
	"fmt"
)

// ErrParse is the kind shared by every reaction DSL parse failure.
var ErrParse = errors.New("reaction parse error")

var (
	ErrInvalidToken         = errors.New("invalid token")
	ErrMissingArrow         = errors.New("missing arrow")
	ErrMissingIdentifier    = errors.New("missing identifier")
	ErrMissingRate          = errors.New("missing rate")
	ErrMissingSemicolon     = errors.New("missing ';'")
	ErrMissingColon         = errors.New("missing ':'")
	ErrEmptyExpression      = errors.New("empty expression")
	ErrEmptyReaction        = errors.New("reaction has no reactants and no products")
	ErrUnmatchedParenthesis = errors.New("unmatched parenthesis")
	ErrUnknownIdentifier    = errors.New("unknown identifier")
	ErrUnknownFunction      = errors.New("unknown function")
	ErrInvalidRequirement   = errors.New("invalid requirement")
)

// ErrInvalidPropensity is returned by the executor when a rate expression
// produces a negative or NaN propensity.
var ErrInvalidPropensity = errors.New("invalid propensity")

// ParseError describes where and why reaction source failed to parse.
type ParseError struct {
	Kind   error
	Pos    Position
	Detail string
}

func (e *ParseError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s at %s: %s", ErrParse, e.Pos, e.Kind)
	}
	return fmt.Sprintf("%s at %s: %s: %s", ErrParse, e.Pos, e.Kind, e.Detail)
}

// Unwrap exposes both ErrParse and the specific kind to errors.Is.
func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Kind}
}

func newParseError(kind error, pos Position, format string, args ...any) *ParseError {
	return &ParseError{Kind: kind, Pos: pos, Detail: fmt.Sprintf(format, args...)}
}
