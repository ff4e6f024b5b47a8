package reactions

import (
	"errors"
	"math"
	"testing"
)

func TestParseExpression_Precedence(t *testing.T) {
	tests := []struct {
		src  string
		want float64
	}{
		{"3 * (1 + 2)", 9},
		{"2 * 5 + 3", 13},
		{"2 + 5 * 3", 17},
		{"10 - 4 - 3", 3},
		{"12 / 3 / 2", 2},
		{"2 ^ 3 ^ 2", 512},
		{"-2 ^ 2", 4},
		{"1.5e-1 * 10", 1.5},
		{"0.5f * 4", 2},
		{"2 * pi", 2 * math.Pi},
		{"e", math.E},
		{"sqrt(16) + abs(-3)", 7},
		{"log(100)", 2},
		{"ln(e)", 1},
		{"max(2, min(8, 5))", 5},
		{"hill(1, 2)", 0.5},
		{"hill(2, 2, 3)", 0.5},
		{"sgn(-4) * floor(2.7)", -2},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			n, err := ParseExpression(tt.src)
			if err != nil {
				t.Fatalf("ParseExpression error = %v", err)
			}
			if got := n.Eval(&Context{}); !almostEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseExpression_Parameters(t *testing.T) {
	params := ParameterTable{"k": 0.5, "vmax": 4}
	n, err := ParseExpression("vmax * k", WithParameterTable(params))
	if err != nil {
		t.Fatalf("ParseExpression error = %v", err)
	}
	if got := n.Eval(&Context{Parameters: params}); got != 2 {
		t.Errorf("got %v, want 2", got)
	}
	if n.IsConstant() {
		t.Errorf("parameter expression reported as constant")
	}
}

func TestParseExpression_MoleculeReferences(t *testing.T) {
	n, err := ParseExpression("0.3 * A", WithMoleculeReferences(true))
	if err != nil {
		t.Fatalf("ParseExpression error = %v", err)
	}
	ctx := &Context{Cell: mapCell{"A": 5}}
	if got := n.Eval(ctx); !almostEqual(got, 1.5) {
		t.Errorf("got %v, want 1.5", got)
	}
	mols, env := n.References()
	if len(mols) != 1 || mols[0] != "A" || len(env) != 0 {
		t.Errorf("References() = %v, %v", mols, env)
	}
}

func TestParseExpression_Environment(t *testing.T) {
	grid := newGridStub()
	grid.set("S", Coordinate{0, 0}, 2)
	grid.set("S", Coordinate{1, 0}, 4)

	n, err := ParseExpression("2 * env(S)")
	if err != nil {
		t.Fatalf("ParseExpression error = %v", err)
	}
	ctx := &Context{Diffusion: grid, Coordinates: []Coordinate{{0, 0}, {1, 0}}}
	if got := n.Eval(ctx); !almostEqual(got, 6) {
		t.Errorf("got %v, want 6 (twice the mean concentration)", got)
	}
}

func TestParseExpression_Errors(t *testing.T) {
	tests := []struct {
		src  string
		want error
	}{
		{"", ErrEmptyExpression},
		{"3 *", ErrEmptyExpression},
		{"(1 + 2", ErrUnmatchedParenthesis},
		{"1 + 2)", ErrUnmatchedParenthesis},
		{"foo", ErrUnknownIdentifier},
		{"foo(1)", ErrUnknownFunction},
		{"sin(1, 2)", ErrUnknownFunction},
		{"1 $ 2", ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := ParseExpression(tt.src)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, ErrParse) {
				t.Errorf("error %v does not wrap ErrParse", err)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Errorf("error %T is not a *ParseError", err)
			}
		})
	}
}

func TestParseCondition(t *testing.T) {
	cell := mapCell{"A": 5, "B": 0, "C": 2}
	ctx := &Context{Cell: cell}

	tests := []struct {
		src  string
		want bool
	}{
		{"C > 1 and A > 1", true},
		{"C > 1 and D > 1 or A > 8", false},
		{"C > 1 and D > 1 or A > 4", true},
		{"C", true},
		{"B", false},
		{"not B", true},
		{"C and not (B and A)", true},
		{"not (A or B)", false},
		{"1 < C < A < 6", true},
		{"1 < C < A < 5", false},
		{"A = 5 and C != 3", true},
		{"A >= 5 and C <= 1", false},
		{"(A > 8 or C > 1) and A > 1", true},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			conds, err := ParseCondition(tt.src)
			if err != nil {
				t.Fatalf("ParseCondition error = %v", err)
			}
			if got := EvalConditions(conds, ctx); got != tt.want {
				t.Errorf("got %v, want %v (conditions %+v)", got, tt.want, conds)
			}
		})
	}
}

func TestParseCondition_AndBindsTighterThanOr(t *testing.T) {
	conds, err := ParseCondition("A and B or C")
	if err != nil {
		t.Fatalf("ParseCondition error = %v", err)
	}
	var groups int
	for _, c := range conds {
		if c.GroupStart {
			groups++
		}
	}
	if len(conds) != 3 || groups != 2 {
		t.Fatalf("got %d terms in %d groups, want 3 terms in 2 groups", len(conds), groups)
	}
	if !conds[0].GroupStart || conds[1].GroupStart || !conds[2].GroupStart {
		t.Errorf("unexpected grouping %+v", conds)
	}
}

func TestParseCondition_InvalidRequirement(t *testing.T) {
	for _, src := range []string{"A < 0", "0 > A"} {
		_, err := ParseCondition(src)
		if !errors.Is(err, ErrInvalidRequirement) {
			t.Errorf("%q: error = %v, want ErrInvalidRequirement", src, err)
		}
	}
}

func TestEvalConditions_Empty(t *testing.T) {
	if !EvalConditions(nil, &Context{}) {
		t.Error("empty condition list should hold")
	}
}
