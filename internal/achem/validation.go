package achem

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/daniacca/cellchem/internal/reactions"
)

// ValidationError collects multiple validation issues
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "invalid config: unknown validation error"
	}
	if len(e.Issues) == 1 {
		return e.Issues[0]
	}
	return "config validation errors: " + strings.Join(e.Issues, "; ")
}

func (e *ValidationError) Add(issue string) {
	e.Issues = append(e.Issues, issue)
}

func (e *ValidationError) Addf(format string, v ...any) {
	e.Add(fmt.Sprintf(format, v...))
}

func (e *ValidationError) HasIssues() bool {
	return len(e.Issues) > 0
}

// ValidateSimulationConfig performs comprehensive validation of a
// SimulationConfig, compiling every program against the configured
// parameters. All issues are reported together.
func ValidateSimulationConfig(cfg SimulationConfig) error {
	err := &ValidationError{}

	if cfg.Name == "" {
		err.Add("simulation name is required")
	}
	if cfg.Dt < 0 || math.IsNaN(cfg.Dt) || math.IsInf(cfg.Dt, 0) {
		err.Addf("dt must be a positive finite number, got %v", cfg.Dt)
	}

	for name, v := range cfg.Parameters {
		if name == "" {
			err.Add("parameter name is required")
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			err.Addf("parameter %q must be finite", name)
		}
	}

	if len(cfg.Programs) == 0 {
		err.Add("at least one program is required")
	}
	params := reactions.ParameterTable(cfg.Parameters)
	diffusive := false
	for _, name := range sortedKeys(cfg.Programs) {
		prog, cerr := reactions.Compile(cfg.Programs[name], reactions.WithParameterTable(params))
		if cerr != nil {
			err.Addf("program '%s': %v", name, cerr)
			continue
		}
		if prog.Len() == 0 {
			err.Addf("program '%s': no reactions", name)
		}
		diffusive = diffusive || prog.Diffusive()
	}

	if cfg.Grid != nil {
		validateGrid(*cfg.Grid, err)
	} else if diffusive {
		err.Add("programs exchange with the environment but no grid is configured")
	}

	cellNames := make(map[string]bool)
	for i, c := range cfg.Cells {
		prefix := fmt.Sprintf("cell at index %d", i)
		if c.Name != "" {
			prefix = "cell '" + c.Name + "'"
			if cellNames[c.Name] {
				err.Add("duplicate cell name: " + c.Name)
			}
			cellNames[c.Name] = true
		} else {
			err.Add(prefix + ": cell name is required")
		}

		if c.Program == "" {
			err.Add(prefix + ": program is required")
		} else if _, ok := cfg.Programs[c.Program]; !ok {
			err.Addf("%s: unknown program '%s'", prefix, c.Program)
		}

		for mol, n := range c.Molecules {
			if mol == "" {
				err.Add(prefix + ": molecule name is required")
			}
			if n < 0 {
				err.Addf("%s: molecule '%s' has negative count %d", prefix, mol, n)
			}
		}

		for _, coord := range c.Coordinates {
			if cfg.Grid == nil {
				err.Add(prefix + ": coordinates given but no grid is configured")
				break
			}
			if coord.X < 0 || coord.X >= cfg.Grid.Width || coord.Y < 0 || coord.Y >= cfg.Grid.Height {
				err.Addf("%s: coordinate (%d,%d) outside %dx%d grid", prefix, coord.X, coord.Y, cfg.Grid.Width, cfg.Grid.Height)
			}
		}
	}

	if cfg.Notify != nil && cfg.Notify.Every < 0 {
		err.Add("notify.every must not be negative")
	}

	if err.HasIssues() {
		return err
	}
	return nil
}

func validateGrid(g GridConfig, err *ValidationError) {
	if g.Width <= 0 || g.Height <= 0 {
		err.Addf("grid size must be positive, got %dx%d", g.Width, g.Height)
	}
	seen := make(map[string]bool)
	for i, s := range g.Signals {
		if s.Name == "" {
			err.Addf("signal at index %d: name is required", i)
			continue
		}
		if seen[s.Name] {
			err.Add("duplicate signal name: " + s.Name)
		}
		seen[s.Name] = true
		if s.Initial < 0 {
			err.Addf("signal '%s': initial concentration must not be negative", s.Name)
		}
		if s.Diffusion < 0 || s.Decay < 0 {
			err.Addf("signal '%s': diffusion and decay must not be negative", s.Name)
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
