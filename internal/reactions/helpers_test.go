package reactions

import (
	"math"
	"testing"
)

type mapCell map[string]int

func (c mapCell) MoleculeCount(name string) int { return c[name] }

func (c mapCell) AddMolecules(name string, delta int) { c[name] += delta }

// gridStub is a single-signal-per-name grid keyed by coordinate.
type gridStub struct {
	ids    map[string]int
	values map[int]map[Coordinate]*float64
}

func newGridStub() *gridStub {
	return &gridStub{ids: map[string]int{}, values: map[int]map[Coordinate]*float64{}}
}

func (g *gridStub) set(name string, c Coordinate, v float64) {
	id, ok := g.ids[name]
	if !ok {
		id = len(g.ids)
		g.ids[name] = id
		g.values[id] = map[Coordinate]*float64{}
	}
	g.values[id][c] = &v
}

func (g *gridStub) get(name string, c Coordinate) float64 {
	v := g.values[g.ids[name]][c]
	if v == nil {
		return 0
	}
	return *v
}

func (g *gridStub) SignalID(name string) (int, bool) {
	id, ok := g.ids[name]
	return id, ok
}

func (g *gridStub) Signal(id int, c Coordinate) *float64 {
	return g.values[id][c]
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func mustCompile(t *testing.T, src string, opts ...Option) *Program {
	t.Helper()
	p, err := Compile(src, opts...)
	if err != nil {
		t.Fatalf("Compile(%q) error = %v", src, err)
	}
	return p
}
