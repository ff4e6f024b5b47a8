package reactions

import (
	"fmt"
	"math/rand"
	"slices"
)

// Table is the executable view of a reaction store used by the SSA
// executor.
type Table interface {
	Len() int
	Molecules() []string
	Rate(row int) *Node
	Propensity(row int, ctx *Context) float64
	Fire(row int, ctx *Context, rng *rand.Rand) []int
	DependentRows(col int) []int
}

// Store owns the molecule-name table, the stoichiometry matrix and each
// reaction's rate and conditions. Every row has exactly one entry per
// molecule column; a newly discovered molecule adds a zero column to all
// existing rows.
type Store[E Entry[E]] struct {
	molecules  []string
	index      map[string]int
	rows       [][]E
	rates      []*Node
	conditions [][]Condition

	// rows whose rate or conditions read a molecule count / env signal
	readers    map[string][]int
	envReaders map[string][]int

	dependents [][]int // per column, built lazily
}

// NewStore creates an empty store.
func NewStore[E Entry[E]]() *Store[E] {
	s := &Store[E]{}
	s.Reset()
	return s
}

// Reset drops every molecule and reaction.
func (s *Store[E]) Reset() {
	s.molecules = nil
	s.index = make(map[string]int)
	s.rows = nil
	s.rates = nil
	s.conditions = nil
	s.readers = make(map[string][]int)
	s.envReaders = make(map[string][]int)
	s.dependents = nil
}

// Build places parsed statements into a new store.
func Build[E Entry[E]](stmts []Statement) (*Store[E], error) {
	s := NewStore[E]()
	for _, st := range stmts {
		row, err := s.ExtendEnv(st.Products, st.Reactants, st.EnvProducts, st.EnvReactants, st.Rate)
		if err != nil {
			return nil, fmt.Errorf("reaction at %s: %w", st.Pos, err)
		}
		if st.Condition != nil {
			s.AddCondition(NormalizeCondition(st.Condition), row)
		}
	}
	return s, nil
}

// Extend appends a cell-local reaction and returns its row index.
func (s *Store[E]) Extend(products, reactants []string, rate *Node) int {
	row, _ := s.extend(products, reactants, nil, nil, rate)
	return row
}

// ExtendEnv appends a reaction that may also consume from or release into
// the environment. It fails when the entry shape cannot hold environment
// terms.
func (s *Store[E]) ExtendEnv(products, reactants, envProducts, envReactants []string, rate *Node) (int, error) {
	var zero E
	if (len(envProducts) > 0 || len(envReactants) > 0) && !zero.SupportsEnvironment() {
		return -1, fmt.Errorf("environment terms need a diffusive store")
	}
	return s.extend(products, reactants, envProducts, envReactants, rate)
}

func (s *Store[E]) extend(products, reactants, envProducts, envReactants []string, rate *Node) (int, error) {
	for _, names := range [][]string{reactants, products, envReactants, envProducts} {
		for _, n := range names {
			s.column(n)
		}
	}

	row := make([]E, len(s.molecules))
	for _, n := range reactants {
		i := s.index[n]
		row[i] = row[i].add(1, 0, 0, 0)
	}
	for _, n := range products {
		i := s.index[n]
		row[i] = row[i].add(0, 1, 0, 0)
	}
	for _, n := range envReactants {
		i := s.index[n]
		row[i] = row[i].add(0, 0, 1, 0)
	}
	for _, n := range envProducts {
		i := s.index[n]
		row[i] = row[i].add(0, 0, 0, 1)
	}

	idx := len(s.rows)
	s.rows = append(s.rows, row)
	s.rates = append(s.rates, rate)
	s.conditions = append(s.conditions, nil)
	if rate != nil {
		mols, env := rate.References()
		s.addReaders(idx, mols, env)
	}
	s.dependents = nil
	return idx, nil
}

// column returns the index of name, appending a zero column to every row
// the first time the name is seen.
func (s *Store[E]) column(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	i := len(s.molecules)
	s.molecules = append(s.molecules, name)
	s.index[name] = i
	var zero E
	for r := range s.rows {
		s.rows[r] = append(s.rows[r], zero)
	}
	return i
}

func (s *Store[E]) addReaders(row int, mols, env []string) {
	for _, m := range mols {
		if !slices.Contains(s.readers[m], row) {
			s.readers[m] = append(s.readers[m], row)
		}
	}
	for _, e := range env {
		if !slices.Contains(s.envReaders[e], row) {
			s.envReaders[e] = append(s.envReaders[e], row)
		}
	}
}

// AddCondition attaches conditions to an already extended row.
func (s *Store[E]) AddCondition(conds []Condition, row int) {
	s.conditions[row] = append(s.conditions[row], conds...)
	mols, env := conditionReferences(conds)
	s.addReaders(row, mols, env)
	s.dependents = nil
}

// SetStrict makes the reactant gate of (row, col) strict.
func (s *Store[E]) SetStrict(row, col int) {
	s.rows[row][col] = s.rows[row][col].withStrict()
}

// Len returns the number of reactions.
func (s *Store[E]) Len() int { return len(s.rows) }

// Molecules returns the molecule names in column order.
func (s *Store[E]) Molecules() []string { return slices.Clone(s.molecules) }

// MoleculeIndex returns the column of name.
func (s *Store[E]) MoleculeIndex(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Row returns the stoichiometry entries of a reaction.
func (s *Store[E]) Row(row int) []E { return s.rows[row] }

// Rate returns the rate expression of a reaction.
func (s *Store[E]) Rate(row int) *Node { return s.rates[row] }

// Conditions returns the guard of a reaction.
func (s *Store[E]) Conditions(row int) []Condition { return s.conditions[row] }

// DependentRows returns the reactions whose propensity can change when the
// molecule in column col changes, inside or outside the cell.
func (s *Store[E]) DependentRows(col int) []int {
	if s.dependents == nil {
		s.buildDependents()
	}
	return s.dependents[col]
}

func (s *Store[E]) buildDependents() {
	s.dependents = make([][]int, len(s.molecules))
	for col, name := range s.molecules {
		seen := make(map[int]bool)
		for r, row := range s.rows {
			if row[col].Requirement() != 0 || row[col].EnvRequirement() != 0 {
				seen[r] = true
			}
		}
		for _, r := range s.readers[name] {
			seen[r] = true
		}
		for _, r := range s.envReaders[name] {
			seen[r] = true
		}
		rows := make([]int, 0, len(seen))
		for r := range seen {
			rows = append(rows, r)
		}
		slices.Sort(rows)
		s.dependents[col] = rows
	}
}
