package achem

import (
	"fmt"

	"github.com/daniacca/cellchem/internal/diffusion"
)

// BuildSchemaFromConfig validates cfg and compiles its programs into a Schema
func BuildSchemaFromConfig(cfg SimulationConfig) (*Schema, error) {
	// Validate the configuration first
	if err := ValidateSimulationConfig(cfg); err != nil {
		return nil, err
	}

	s := NewSchema(cfg.Name).WithParameters(cfg.Parameters)
	for _, name := range sortedKeys(cfg.Programs) {
		if err := s.Compile(name, cfg.Programs[name]); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// BuildGridFromConfig creates the diffusion grid described by cfg, or nil
// when cfg is nil.
func BuildGridFromConfig(cfg *GridConfig) (*diffusion.Grid, error) {
	if cfg == nil {
		return nil, nil
	}
	g, err := diffusion.New(cfg.Width, cfg.Height, cfg.Signals...)
	if err != nil {
		return nil, fmt.Errorf("grid: %w", err)
	}
	return g, nil
}

// BuildEnvironmentFromConfig builds a ready to step environment: schema,
// grid, seed, dt and the initial cells. Notifications are not wired here
// because the notification manager belongs to the caller; see
// SimulationConfig.Notify.
func BuildEnvironmentFromConfig(cfg SimulationConfig) (*Environment, error) {
	schema, err := BuildSchemaFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	grid, err := BuildGridFromConfig(cfg.Grid)
	if err != nil {
		return nil, err
	}

	env := NewEnvironment(schema)
	if cfg.Seed != 0 {
		env.SetSeed(cfg.Seed)
	}
	if cfg.Dt > 0 {
		env.SetDt(cfg.Dt)
	}
	if grid != nil {
		env.SetGrid(grid)
	}

	for _, cc := range cfg.Cells {
		cell := NewCell(cc.Name, cc.Program, cc.Coordinates...).WithMolecules(cc.Molecules)
		if err := env.AddCell(cell); err != nil {
			return nil, fmt.Errorf("cell '%s': %w", cc.Name, err)
		}
	}
	return env, nil
}
