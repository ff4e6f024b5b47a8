package reactions

import (
	"fmt"
	"math"
	"math/rand"
)

// ExecState is the position of an Executor in its step cycle.
type ExecState int

const (
	StateIdle ExecState = iota
	StateStepping
	StateDone
)

func (s ExecState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStepping:
		return "stepping"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("ExecState(%d)", int(s))
}

// StepResult summarises one call to Executor.Step.
type StepResult struct {
	Fired       int
	PerReaction []int
	Elapsed     float64 // simulated time consumed by fired reactions
	Exhausted   bool    // stopped because every propensity was zero
}

// Executor runs Gillespie's direct method over a reaction table. It owns
// its random stream and is not safe for concurrent use.
type Executor struct {
	table        Table
	rng          *rand.Rand
	propensities []float64
	state        ExecState
	stale        []bool
}

// NewExecutor creates an executor drawing from rng.
func NewExecutor(table Table, rng *rand.Rand) *Executor {
	return &Executor{
		table:        table,
		rng:          rng,
		propensities: make([]float64, table.Len()),
		stale:        make([]bool, table.Len()),
	}
}

// State returns the executor state after the last call to Step.
func (x *Executor) State() ExecState { return x.state }

// Step advances ctx by at most dt units of simulated time. It returns once
// the next reaction would fire after dt or no reaction can fire at all.
func (x *Executor) Step(ctx *Context, dt float64) (StepResult, error) {
	x.state = StateStepping
	defer func() { x.state = StateDone }()

	res := StepResult{PerReaction: make([]int, x.table.Len())}
	for i := range x.propensities {
		if err := x.refresh(i, ctx); err != nil {
			return res, err
		}
	}

	elapsed := 0.0
	for elapsed < dt {
		a0 := 0.0
		for _, a := range x.propensities {
			a0 += a
		}
		if a0 == 0 {
			res.Exhausted = true
			break
		}
		tau := x.rng.ExpFloat64() / a0
		if elapsed+tau > dt {
			break
		}

		row := x.selectReaction(a0)
		changed := x.table.Fire(row, ctx, x.rng)
		res.Fired++
		res.PerReaction[row]++

		for _, col := range changed {
			for _, r := range x.table.DependentRows(col) {
				x.stale[r] = true
			}
		}
		for r, stale := range x.stale {
			if !stale {
				continue
			}
			x.stale[r] = false
			if err := x.refresh(r, ctx); err != nil {
				return res, err
			}
		}
		elapsed += tau
	}
	res.Elapsed = elapsed
	return res, nil
}

// selectReaction returns the first row whose cumulative propensity exceeds
// a uniform draw in [0, a0).
func (x *Executor) selectReaction(a0 float64) int {
	u := x.rng.Float64() * a0
	sum := 0.0
	last := -1
	for i, a := range x.propensities {
		if a == 0 {
			continue
		}
		sum += a
		last = i
		if sum > u {
			return i
		}
	}
	// Rounding can leave u at the very top of the sum.
	return last
}

func (x *Executor) refresh(row int, ctx *Context) error {
	a := x.table.Propensity(row, ctx)
	if a < 0 || math.IsNaN(a) || math.IsInf(a, 0) {
		x.propensities[row] = 0
		return fmt.Errorf("%w: reaction %d (rate %s) gave %g", ErrInvalidPropensity, row, x.table.Rate(row), a)
	}
	x.propensities[row] = a
	return nil
}
