package achem

import (
	"fmt"
	"maps"
	"slices"

	"github.com/daniacca/cellchem/internal/reactions"
)

// Schema is the chemistry shared by every cell of an environment: the
// compiled reaction programs by name and the simulation parameters they
// may read.
type Schema struct {
	Name       string
	programs   map[string]*reactions.Program
	parameters reactions.ParameterTable
}

// NewSchema creates a new schema with the given name.
// The schema starts with no programs or parameters.
func NewSchema(name string) *Schema {
	return &Schema{
		Name:       name,
		programs:   make(map[string]*reactions.Program),
		parameters: make(reactions.ParameterTable),
	}
}

// WithParameters adds simulation parameters and returns the schema for
// method chaining. Programs compiled afterwards resolve these names as
// parameters rather than molecules.
func (s *Schema) WithParameters(params map[string]float64) *Schema {
	maps.Copy(s.parameters, params)
	return s
}

// WithProgram registers an already compiled program and returns the
// schema for method chaining.
func (s *Schema) WithProgram(name string, prog *reactions.Program) *Schema {
	s.programs[name] = prog
	return s
}

// Compile compiles src against the schema's parameters and registers it
// under name.
func (s *Schema) Compile(name, src string) error {
	prog, err := reactions.Compile(src, reactions.WithParameterTable(s.parameters))
	if err != nil {
		return fmt.Errorf("program %q: %w", name, err)
	}
	s.programs[name] = prog
	return nil
}

// Program retrieves a compiled program by name.
func (s *Schema) Program(name string) (*reactions.Program, bool) {
	p, ok := s.programs[name]
	return p, ok
}

// Programs returns the registered program names, sorted.
func (s *Schema) Programs() []string {
	return slices.Sorted(maps.Keys(s.programs))
}

// Parameters returns the schema's parameter table.
func (s *Schema) Parameters() reactions.ParameterTable {
	return s.parameters
}

// Diffusive reports whether any program exchanges with the environment.
func (s *Schema) Diffusive() bool {
	for _, p := range s.programs {
		if p.Diffusive() {
			return true
		}
	}
	return false
}
