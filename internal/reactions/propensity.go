package reactions

import "math/rand"

// Propensity computes the firing intensity of a reaction: zero when its
// conditions fail or any reactant is short, otherwise the rate times the
// current count of every reactant. Columns with no requirement neither
// gate nor scale the result.
func (s *Store[E]) Propensity(row int, ctx *Context) float64 {
	if !EvalConditions(s.conditions[row], ctx) {
		return 0
	}
	scale := 1.0
	for col, e := range s.rows[row] {
		if req := e.Requirement(); req != 0 {
			count := ctx.MoleculeCount(s.molecules[col])
			if !satisfies(count, req, e.Strict()) {
				return 0
			}
			scale *= count
		}
		if req := e.EnvRequirement(); req != 0 {
			conc := ctx.EnvConcentration(s.molecules[col])
			if !satisfies(conc, req, e.Strict()) {
				return 0
			}
			scale *= conc
		}
	}
	return s.rates[row].Eval(ctx) * scale
}

// Fire applies one firing of a reaction and returns the columns whose
// amount changed. Environment terms go to one randomly chosen coordinate
// occupied by the cell.
func (s *Store[E]) Fire(row int, ctx *Context, rng *rand.Rand) []int {
	var changed []int
	for col, e := range s.rows[row] {
		name := s.molecules[col]
		touched := false
		if delta := e.Product() - e.Requirement(); delta != 0 && ctx.Cell != nil {
			ctx.Cell.AddMolecules(name, delta)
			touched = true
		}
		if delta := e.EnvProduct() - e.EnvRequirement(); delta != 0 && addEnvironment(ctx, rng, name, float64(delta)) {
			touched = true
		}
		if touched {
			changed = append(changed, col)
		}
	}
	return changed
}

func addEnvironment(ctx *Context, rng *rand.Rand, name string, delta float64) bool {
	if ctx.Diffusion == nil || len(ctx.Coordinates) == 0 {
		return false
	}
	id, ok := ctx.Diffusion.SignalID(name)
	if !ok {
		return false
	}
	coord := ctx.Coordinates[0]
	if len(ctx.Coordinates) > 1 {
		coord = ctx.Coordinates[rng.Intn(len(ctx.Coordinates))]
	}
	v := ctx.Diffusion.Signal(id, coord)
	if v == nil {
		return false
	}
	*v += delta
	return true
}
