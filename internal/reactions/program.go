package reactions

import (
	"math/rand"
	"slices"
)

// Program is a compiled reaction source ready to run against cells.
// A Program is immutable once compiled and may be shared by many cells;
// each cell needs its own Executor.
type Program struct {
	source     string
	statements []Statement
	table      Table
	diffusive  bool
}

// Compile parses src and builds its reaction table. Programs that exchange
// molecules with the environment get a diffusive table. On error nothing
// is returned.
func Compile(src string, opts ...Option) (*Program, error) {
	stmts, err := Parse(src, opts...)
	if err != nil {
		return nil, err
	}

	prog := &Program{
		source:     src,
		statements: stmts,
		diffusive:  slices.ContainsFunc(stmts, Statement.Diffusive),
	}
	if prog.diffusive {
		prog.table, err = Build[DiffusiveReqProd](stmts)
	} else {
		prog.table, err = Build[ReqProd](stmts)
	}
	if err != nil {
		return nil, err
	}
	return prog, nil
}

// MustCompile is like Compile but panics on error. It is meant for
// programs fixed at build time.
func MustCompile(src string, opts ...Option) *Program {
	p, err := Compile(src, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Program) Source() string { return p.source }

// Molecules returns every molecule name the program mentions, in the order
// first seen.
func (p *Program) Molecules() []string { return p.table.Molecules() }

// Len returns the number of compiled reactions; a reversible statement
// counts twice.
func (p *Program) Len() int { return p.table.Len() }

// Diffusive reports whether any reaction exchanges with the environment.
func (p *Program) Diffusive() bool { return p.diffusive }

// Statements returns the parsed reactions in table order.
func (p *Program) Statements() []Statement { return slices.Clone(p.statements) }

// Table exposes the compiled reaction table.
func (p *Program) Table() Table { return p.table }

// NewExecutor returns an executor over the program with a stream seeded
// from seed.
func (p *Program) NewExecutor(seed int64) *Executor {
	return NewExecutor(p.table, rand.New(rand.NewSource(seed)))
}

// Invoke runs one step of length dt against ctx with a throwaway executor.
// Long-lived callers should keep an Executor per cell instead.
func (p *Program) Invoke(ctx *Context, dt float64, rng *rand.Rand) (StepResult, error) {
	return NewExecutor(p.table, rng).Step(ctx, dt)
}
