package main

import (
	"github.com/daniacca/cellchem/internal/achem"
)

// model is a self-contained demo: a schema and the cells to run it on.
type model struct {
	name        string
	description string
	params      map[string]float64
	programs    map[string]string
	cells       func() []*achem.Cell
	dt          float64
}

var models = []model{
	{
		name:        "decay",
		description: "first-order decay of A into B",
		programs: map[string]string{
			"decay": "A > 0.5 > B;",
		},
		cells: func() []*achem.Cell {
			return []*achem.Cell{achem.NewCell("c1", "decay").WithMolecules(map[string]int{"A": 200})}
		},
		dt: 0.1,
	},
	{
		name:        "expression",
		description: "constitutive transcription and translation with degradation",
		params:      map[string]float64{"k_tx": 2, "k_tl": 5, "d_m": 0.2, "d_p": 0.05},
		programs: map[string]string{
			"gene": `
null > k_tx > mRNA;
mRNA > k_tl > mRNA + Protein;
mRNA > d_m > null;
Protein > d_p > null;
`,
		},
		cells: func() []*achem.Cell {
			return []*achem.Cell{achem.NewCell("cell", "gene")}
		},
		dt: 0.5,
	},
	{
		name:        "toggle",
		description: "mutually repressing genes; each cell stays where it started",
		params:      map[string]float64{"alpha": 40, "beta": 1},
		programs: map[string]string{
			"toggle": `
null > alpha / (1 + V ^ 2) > U;
null > alpha / (1 + U ^ 2) > V;
U > beta > null;
V > beta > null;
`,
		},
		cells: func() []*achem.Cell {
			return []*achem.Cell{
				achem.NewCell("u-high", "toggle").WithMolecules(map[string]int{"U": 40}),
				achem.NewCell("v-high", "toggle").WithMolecules(map[string]int{"V": 40}),
			}
		},
		dt: 0.5,
	},
}

// build compiles the model into a ready environment
func (m model) build(seed int64) (*achem.Environment, error) {
	schema := achem.NewSchema(m.name).WithParameters(m.params)
	for name, src := range m.programs {
		if err := schema.Compile(name, src); err != nil {
			return nil, err
		}
	}

	env := achem.NewEnvironment(schema)
	env.SetEnvironmentID(achem.EnvironmentID(m.name))
	env.SetSeed(seed)
	env.SetDt(m.dt)
	for _, c := range m.cells() {
		if err := env.AddCell(c); err != nil {
			return nil, err
		}
	}
	return env, nil
}

func findModel(name string) (model, bool) {
	for _, m := range models {
		if m.name == name {
			return m, true
		}
	}
	return model{}, false
}
