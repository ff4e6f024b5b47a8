package achem

import (
	"maps"
	"slices"

	"github.com/daniacca/cellchem/internal/reactions"
)

// CellID is a unique identifier for a cell.
type CellID string

// Cell is one simulated object running a reaction program. It holds the
// cell-local molecule counts and the grid coordinates the cell covers.
// A Cell is owned by its Environment and must not be mutated while the
// environment is stepping.
type Cell struct {
	ID          CellID
	Name        string
	Program     string
	counts      map[string]int
	coordinates []reactions.Coordinate
}

// NewCell creates a cell running the named program at the given
// coordinates. The cell is assigned a random ID.
func NewCell(name, program string, coordinates ...reactions.Coordinate) *Cell {
	return &Cell{
		ID:          CellID(NewRandomID()),
		Name:        name,
		Program:     program,
		counts:      make(map[string]int),
		coordinates: slices.Clone(coordinates),
	}
}

// WithMolecules sets initial counts and returns the cell for chaining.
func (c *Cell) WithMolecules(counts map[string]int) *Cell {
	for name, n := range counts {
		c.counts[name] = max(n, 0)
	}
	return c
}

// MoleculeCount returns the count of name, 0 when absent.
func (c *Cell) MoleculeCount(name string) int {
	return c.counts[name]
}

// AddMolecules changes the count of name by delta. Counts never go below
// zero.
func (c *Cell) AddMolecules(name string, delta int) {
	n := c.counts[name] + delta
	if n <= 0 {
		delete(c.counts, name)
		return
	}
	c.counts[name] = n
}

// Counts returns a copy of every nonzero molecule count.
func (c *Cell) Counts() map[string]int {
	return maps.Clone(c.counts)
}

// Coordinates returns the grid coordinates the cell occupies.
func (c *Cell) Coordinates() []reactions.Coordinate {
	return slices.Clone(c.coordinates)
}

// seedKey identifies the cell when deriving its random stream. Names are
// stable across runs, random IDs are not.
func (c *Cell) seedKey() string {
	if c.Name != "" {
		return c.Name
	}
	return string(c.ID)
}
