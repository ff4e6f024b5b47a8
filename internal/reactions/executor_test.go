package reactions

import (
	"errors"
	"math/rand"
	"testing"
)

func TestExecutor_ProductionNeverDecreases(t *testing.T) {
	prog := mustCompile(t, "null > 10 > A;")

	const trials = 200
	total := 0
	for i := 0; i < trials; i++ {
		cell := mapCell{"A": 0}
		exec := prog.NewExecutor(int64(i))
		ctx := &Context{Cell: cell}
		prev := 0
		for step := 0; step < 5; step++ {
			res, err := exec.Step(ctx, 1)
			if err != nil {
				t.Fatalf("Step error = %v", err)
			}
			if cell["A"] < prev {
				t.Fatalf("trial %d step %d: A decreased from %d to %d", i, step, prev, cell["A"])
			}
			if res.Fired != cell["A"]-prev {
				t.Fatalf("fired %d reactions but A changed by %d", res.Fired, cell["A"]-prev)
			}
			prev = cell["A"]
		}
		total += cell["A"]
	}

	// Expected count after 5 time units at rate 10 is 50.
	mean := float64(total) / trials
	if mean < 45 || mean > 55 {
		t.Errorf("mean A = %v, want about 50", mean)
	}
}

func TestExecutor_Exhausted(t *testing.T) {
	prog := mustCompile(t, "A > 1 > B;")
	cell := mapCell{"A": 3}
	exec := prog.NewExecutor(1)

	res, err := exec.Step(&Context{Cell: cell}, 1000)
	if err != nil {
		t.Fatalf("Step error = %v", err)
	}
	if !res.Exhausted {
		t.Error("step should end with every propensity at zero")
	}
	if cell["A"] != 0 || cell["B"] != 3 {
		t.Errorf("A=%d B=%d, want A=0 B=3", cell["A"], cell["B"])
	}
	if res.Fired != 3 || res.PerReaction[0] != 3 {
		t.Errorf("fired = %d per reaction %v, want 3", res.Fired, res.PerReaction)
	}
	if exec.State() != StateDone {
		t.Errorf("state = %s, want done", exec.State())
	}
}

func TestExecutor_DeadlineStopsStep(t *testing.T) {
	prog := mustCompile(t, "null > 1 > A;")
	cell := mapCell{}
	exec := prog.NewExecutor(7)

	res, err := exec.Step(&Context{Cell: cell}, 1e-9)
	if err != nil {
		t.Fatalf("Step error = %v", err)
	}
	if res.Exhausted {
		t.Error("step with live propensity reported exhausted")
	}
	if res.Elapsed > 1e-9 {
		t.Errorf("elapsed %v exceeds dt", res.Elapsed)
	}
}

func TestExecutor_Deterministic(t *testing.T) {
	prog := mustCompile(t, "A < 1, 2 > B; B > 0.5 > C;")
	run := func() mapCell {
		cell := mapCell{"A": 100}
		exec := prog.NewExecutor(42)
		for i := 0; i < 10; i++ {
			if _, err := exec.Step(&Context{Cell: cell}, 0.1); err != nil {
				t.Fatalf("Step error = %v", err)
			}
		}
		return cell
	}
	a, b := run(), run()
	for _, m := range []string{"A", "B", "C"} {
		if a[m] != b[m] {
			t.Errorf("%s differs between runs with the same seed: %d vs %d", m, a[m], b[m])
		}
	}
	if a["A"]+a["B"]+a["C"] != 100 {
		t.Errorf("mass not conserved: %v", a)
	}
}

func TestExecutor_ConditionRefresh(t *testing.T) {
	// B only turns on once A has been consumed below 5, which happens
	// through firings of the first reaction within the same step.
	prog := mustCompile(t, "A > 1 > null; if A < 5: null > 100 > B;")
	cell := mapCell{"A": 10}
	exec := prog.NewExecutor(3)

	if _, err := exec.Step(&Context{Cell: cell}, 50); err != nil {
		t.Fatalf("Step error = %v", err)
	}
	if cell["B"] == 0 {
		t.Error("conditional reaction never fired after its guard became true")
	}
}

func TestExecutor_InvalidPropensity(t *testing.T) {
	prog := mustCompile(t, "null > -1 > A;")
	exec := prog.NewExecutor(1)
	_, err := exec.Step(&Context{Cell: mapCell{}}, 1)
	if !errors.Is(err, ErrInvalidPropensity) {
		t.Errorf("error = %v, want ErrInvalidPropensity", err)
	}

	prog = mustCompile(t, "null > 0 / 0 > A;")
	_, err = prog.NewExecutor(1).Step(&Context{Cell: mapCell{}}, 1)
	if !errors.Is(err, ErrInvalidPropensity) {
		t.Errorf("NaN rate: error = %v, want ErrInvalidPropensity", err)
	}
}

func TestExecutor_EnvironmentExchange(t *testing.T) {
	prog := mustCompile(t, "A > 1 > env;")
	grid := newGridStub()
	coords := []Coordinate{{0, 0}, {1, 0}}
	for _, c := range coords {
		grid.set("A", c, 0)
	}
	cell := mapCell{"A": 20}
	ctx := &Context{Cell: cell, Diffusion: grid, Coordinates: coords}

	if _, err := prog.Invoke(ctx, 1000, rand.New(rand.NewSource(5))); err != nil {
		t.Fatalf("Invoke error = %v", err)
	}
	if cell["A"] != 0 {
		t.Errorf("A = %d, want 0", cell["A"])
	}
	released := grid.get("A", coords[0]) + grid.get("A", coords[1])
	if released != 20 {
		t.Errorf("released into environment = %v, want 20", released)
	}
}

func TestExecutor_EnvironmentImport(t *testing.T) {
	prog := mustCompile(t, "env > 1 > S;")
	grid := newGridStub()
	grid.set("S", Coordinate{2, 2}, 5)
	cell := mapCell{}
	ctx := &Context{Cell: cell, Diffusion: grid, Coordinates: []Coordinate{{2, 2}}}

	res, err := prog.Invoke(ctx, 1000, rand.New(rand.NewSource(9)))
	if err != nil {
		t.Fatalf("Invoke error = %v", err)
	}
	if !res.Exhausted {
		t.Error("import should stop once the environment is empty")
	}
	if cell["S"] != 5 || grid.get("S", Coordinate{2, 2}) != 0 {
		t.Errorf("cell S=%d env S=%v, want 5 and 0", cell["S"], grid.get("S", Coordinate{2, 2}))
	}
}
