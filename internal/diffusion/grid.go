// Package diffusion provides a 2-D extracellular signal grid that reaction
// programs read and write through reactions.Diffusion.
package diffusion

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/daniacca/cellchem/internal/reactions"
)

var (
	ErrUnknownSignal = errors.New("unknown signal")
	ErrOutOfBounds   = errors.New("coordinate outside grid")
)

// maxExplicitRate bounds D*dt per sub-step for the explicit scheme on a
// unit lattice.
const maxExplicitRate = 0.2

// SignalSpec declares one diffusing species.
type SignalSpec struct {
	Name      string  `json:"name" toml:"name"`
	Initial   float64 `json:"initial" toml:"initial"`
	Diffusion float64 `json:"diffusion" toml:"diffusion"` // lattice units squared per time unit
	Decay     float64 `json:"decay" toml:"decay"`         // first-order, per time unit
}

// Grid holds one concentration field per signal over a width x height
// lattice. Boundaries are closed (no flux).
type Grid struct {
	mu     sync.RWMutex
	width  int
	height int
	specs  []SignalSpec
	ids    map[string]int
	fields [][]float64
}

// New creates a grid with every field set to its signal's initial value.
func New(width, height int, signals ...SignalSpec) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("grid size must be positive, got %dx%d", width, height)
	}
	g := &Grid{
		width:  width,
		height: height,
		ids:    make(map[string]int, len(signals)),
	}
	for _, s := range signals {
		if s.Name == "" {
			return nil, errors.New("signal name is required")
		}
		if _, dup := g.ids[s.Name]; dup {
			return nil, fmt.Errorf("duplicate signal %q", s.Name)
		}
		if s.Diffusion < 0 || s.Decay < 0 {
			return nil, fmt.Errorf("signal %q: diffusion and decay must be non-negative", s.Name)
		}
		field := make([]float64, width*height)
		for i := range field {
			field[i] = math.Max(s.Initial, 0)
		}
		g.ids[s.Name] = len(g.specs)
		g.specs = append(g.specs, s)
		g.fields = append(g.fields, field)
	}
	return g, nil
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

// Signals returns the declared signals in id order.
func (g *Grid) Signals() []SignalSpec {
	out := make([]SignalSpec, len(g.specs))
	copy(out, g.specs)
	return out
}

// Contains reports whether c lies on the lattice.
func (g *Grid) Contains(c reactions.Coordinate) bool {
	return c.X >= 0 && c.X < g.width && c.Y >= 0 && c.Y < g.height
}

func (g *Grid) offset(c reactions.Coordinate) int {
	return c.Y*g.width + c.X
}

// SignalID implements reactions.Diffusion.
func (g *Grid) SignalID(name string) (int, bool) {
	id, ok := g.ids[name]
	return id, ok
}

// Signal implements reactions.Diffusion. The returned pointer aliases the
// grid; callers writing through it must hold the owning environment's lock
// so no Step runs concurrently.
func (g *Grid) Signal(id int, c reactions.Coordinate) *float64 {
	if id < 0 || id >= len(g.fields) || !g.Contains(c) {
		return nil
	}
	return &g.fields[id][g.offset(c)]
}

// Value returns the concentration of name at c.
func (g *Grid) Value(name string, c reactions.Coordinate) (float64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, err := g.lookup(name, c)
	if err != nil {
		return 0, err
	}
	return g.fields[id][g.offset(c)], nil
}

// Add changes the concentration of name at c by delta, clamping at zero.
func (g *Grid) Add(name string, c reactions.Coordinate, delta float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := g.lookup(name, c)
	if err != nil {
		return err
	}
	v := &g.fields[id][g.offset(c)]
	*v = math.Max(*v+delta, 0)
	return nil
}

func (g *Grid) lookup(name string, c reactions.Coordinate) (int, error) {
	id, ok := g.ids[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSignal, name)
	}
	if !g.Contains(c) {
		return 0, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, c.X, c.Y)
	}
	return id, nil
}

// Total returns the summed amount of name over the whole grid.
func (g *Grid) Total(name string) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.ids[name]
	if !ok {
		return 0
	}
	var sum float64
	for _, v := range g.fields[id] {
		sum += v
	}
	return sum
}

// Fields returns a copy of every field keyed by signal name, row-major.
func (g *Grid) Fields() map[string][]float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string][]float64, len(g.specs))
	for id, s := range g.specs {
		out[s.Name] = append([]float64(nil), g.fields[id]...)
	}
	return out
}

// Restore replaces the fields named in values. Every field must match the
// grid size.
func (g *Grid) Restore(values map[string][]float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for name, field := range values {
		_, ok := g.ids[name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownSignal, name)
		}
		if len(field) != g.width*g.height {
			return fmt.Errorf("signal %q: got %d values, want %d", name, len(field), g.width*g.height)
		}
	}
	for name, field := range values {
		copy(g.fields[g.ids[name]], field)
	}
	return nil
}

// Step advances every field by dt: explicit 5-point diffusion, then
// first-order decay. Negative concentrations are clamped to zero.
func (g *Grid) Step(dt float64) {
	if dt <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	scratch := make([]float64, g.width*g.height)
	for id, s := range g.specs {
		field := g.fields[id]
		if s.Diffusion > 0 {
			n := int(math.Ceil(s.Diffusion * dt / maxExplicitRate))
			h := dt / float64(n)
			for i := 0; i < n; i++ {
				g.diffuse(field, scratch, s.Diffusion*h)
				copy(field, scratch)
			}
		}
		if s.Decay > 0 {
			k := math.Exp(-s.Decay * dt)
			for i := range field {
				field[i] *= k
			}
		}
		for i, v := range field {
			if v < 0 {
				field[i] = 0
			}
		}
	}
}

// diffuse writes one explicit step of rate r = D*h from src into dst.
// Missing neighbours at the edge mirror the centre value.
func (g *Grid) diffuse(src, dst []float64, r float64) {
	w, h := g.width, g.height
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			c := src[i]
			lap := 0.0
			if x > 0 {
				lap += src[i-1] - c
			}
			if x < w-1 {
				lap += src[i+1] - c
			}
			if y > 0 {
				lap += src[i-w] - c
			}
			if y < h-1 {
				lap += src[i+w] - c
			}
			dst[i] = c + r*lap
		}
	}
}
