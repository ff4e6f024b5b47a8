package reactions

// Cell is the simulated object whose molecule counts a program reads and
// mutates.
type Cell interface {
	MoleculeCount(name string) int
	AddMolecules(name string, delta int)
}

// Coordinate addresses one cell of the diffusion grid.
type Coordinate struct {
	X int `json:"x" toml:"x"`
	Y int `json:"y" toml:"y"`
}

// Diffusion gives coordinate-indexed access to extracellular concentrations.
// Signal returns a pointer into the grid, or nil when the coordinate is
// outside it. Implementations own locking; every call is treated as a
// separate access.
type Diffusion interface {
	SignalID(name string) (int, bool)
	Signal(id int, c Coordinate) *float64
}

// Parameters is the simulation's named-parameter table.
type Parameters interface {
	Parameter(name string) (float64, bool)
}

// ParameterTable is a map backed Parameters.
type ParameterTable map[string]float64

func (t ParameterTable) Parameter(name string) (float64, bool) {
	v, ok := t[name]
	return v, ok
}

// Context is the read view handed to every rate and condition evaluation.
// Diffusion and Parameters may be nil.
type Context struct {
	Cell        Cell
	Diffusion   Diffusion
	Coordinates []Coordinate
	Parameters  Parameters
}

// MoleculeCount returns the cell-local count of a molecule.
func (c *Context) MoleculeCount(name string) float64 {
	if c.Cell == nil {
		return 0
	}
	return float64(c.Cell.MoleculeCount(name))
}

// Parameter returns a named parameter, 0 when unset.
func (c *Context) Parameter(name string) float64 {
	if c.Parameters == nil {
		return 0
	}
	v, _ := c.Parameters.Parameter(name)
	return v
}

// EnvConcentration returns the mean concentration of a signal over the
// coordinates the cell occupies, 0 without a diffusion grid.
func (c *Context) EnvConcentration(name string) float64 {
	if c.Diffusion == nil || len(c.Coordinates) == 0 {
		return 0
	}
	id, ok := c.Diffusion.SignalID(name)
	if !ok {
		return 0
	}
	var sum float64
	n := 0
	for _, coord := range c.Coordinates {
		if v := c.Diffusion.Signal(id, coord); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
