package achem

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/daniacca/cellchem/internal/diffusion"
	"github.com/daniacca/cellchem/internal/reactions"
)

var (
	ErrCellNotFound    = errors.New("cell not found")
	ErrUnknownProgram  = errors.New("unknown program")
	ErrInvalidPosition = errors.New("cell coordinate outside grid")
)

// CellStepReport is what happened inside one cell during a step.
type CellStepReport struct {
	CellID      CellID         `json:"cell_id"`
	Name        string         `json:"name"`
	Fired       int            `json:"fired"`
	PerReaction []int          `json:"per_reaction,omitempty"`
	Exhausted   bool           `json:"exhausted,omitempty"`
	Counts      map[string]int `json:"counts"`
}

// StepReport summarises one environment step.
type StepReport struct {
	Step  int64            `json:"step"`
	Time  float64          `json:"time"` // simulated time at the end of the step
	Cells []CellStepReport `json:"cells"`
}

// StepObserver is called after every step, outside the environment lock.
type StepObserver interface {
	ObserveStep(envID EnvironmentID, report StepReport) error
}

type Environment struct {
	mu        sync.RWMutex
	id        EnvironmentID
	schema    *Schema
	grid      *diffusion.Grid
	dt        float64
	seed      int64
	time      float64
	steps     int64
	cells     map[CellID]*Cell
	executors map[CellID]*reactions.Executor
	stopCh    chan struct{}
	isRunning bool

	logger       Logger
	notifier     *NotificationManager
	notifyConfig NotificationConfig
	observers    []StepObserver
}

func NewEnvironment(schema *Schema) *Environment {
	return &Environment{
		schema:    schema,
		dt:        1,
		seed:      time.Now().UnixNano(),
		cells:     make(map[CellID]*Cell),
		executors: make(map[CellID]*reactions.Executor),
		stopCh:    make(chan struct{}),
		isRunning: false,
		logger:    NewNoOpLogger(),
	}
}

func (e *Environment) SetEnvironmentID(id EnvironmentID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.id = id
}

func (e *Environment) ID() EnvironmentID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.id
}

func (e *Environment) SetLogger(logger Logger) {
	if logger == nil {
		logger = NewNoOpLogger()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logger = logger
}

// SetNotificationManager routes step events through nm according to cfg.
func (e *Environment) SetNotificationManager(nm *NotificationManager, cfg NotificationConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifier = nm
	e.notifyConfig = cfg
}

// AddObserver registers an observer for every subsequent step.
func (e *Environment) AddObserver(o StepObserver) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, o)
}

// SetSeed reseeds every cell's random stream.
func (e *Environment) SetSeed(seed int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seed = seed
	for id, c := range e.cells {
		e.executors[id] = e.newExecutor(c)
	}
}

func (e *Environment) Seed() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.seed
}

// SetDt sets the simulated time consumed by one Step. Non-positive values
// are ignored.
func (e *Environment) SetDt(dt float64) {
	if dt <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dt = dt
}

func (e *Environment) Dt() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dt
}

// SetGrid attaches the diffusion grid shared by all cells.
func (e *Environment) SetGrid(g *diffusion.Grid) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.grid = g
}

func (e *Environment) Grid() *diffusion.Grid {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.grid
}

// GridFields copies every signal field, row-major. Cells write the grid
// through pointers while stepping, so reads go through the environment lock.
// ok is false when the environment has no grid.
func (e *Environment) GridFields() (fields map[string][]float64, ok bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.grid == nil {
		return nil, false
	}
	return e.grid.Fields(), true
}

func (e *Environment) Schema() *Schema {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.schema
}

// Time returns the simulated time elapsed so far.
func (e *Environment) Time() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.time
}

// Steps returns the number of completed steps.
func (e *Environment) Steps() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.steps
}

// newExecutor seeds the cell's stream from the environment seed, the step
// count and the cell's seed key.
func (e *Environment) newExecutor(c *Cell) *reactions.Executor {
	prog, _ := e.schema.Program(c.Program)
	return prog.NewExecutor(deriveSeed(e.seed^e.steps, c.seedKey()))
}

func (e *Environment) checkCell(c *Cell) error {
	if e.schema == nil {
		return fmt.Errorf("%w: %q (no schema)", ErrUnknownProgram, c.Program)
	}
	if _, ok := e.schema.Program(c.Program); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProgram, c.Program)
	}
	if e.grid != nil {
		for _, coord := range c.coordinates {
			if !e.grid.Contains(coord) {
				return fmt.Errorf("%w: (%d,%d)", ErrInvalidPosition, coord.X, coord.Y)
			}
		}
	}
	return nil
}

// AddCell places a cell in the environment. Its program must exist in the
// schema and its coordinates must lie on the grid, if there is one.
func (e *Environment) AddCell(c *Cell) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c.ID == "" {
		c.ID = CellID(NewRandomID())
	}
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	if _, exists := e.cells[c.ID]; exists {
		return fmt.Errorf("cell with id %s already exists", c.ID)
	}
	if err := e.checkCell(c); err != nil {
		return fmt.Errorf("cell %s: %w", c.ID, err)
	}
	e.cells[c.ID] = c
	e.executors[c.ID] = e.newExecutor(c)
	return nil
}

// RemoveCell removes a cell and its executor.
func (e *Environment) RemoveCell(id CellID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.cells[id]; !ok {
		return fmt.Errorf("%w: %s", ErrCellNotFound, id)
	}
	delete(e.cells, id)
	delete(e.executors, id)
	return nil
}

// CellState is a read-only copy of a cell.
type CellState struct {
	ID          CellID                 `json:"id"`
	Name        string                 `json:"name"`
	Program     string                 `json:"program"`
	Molecules   map[string]int         `json:"molecules"`
	Coordinates []reactions.Coordinate `json:"coordinates,omitempty"`
}

func stateOf(c *Cell) CellState {
	return CellState{
		ID:          c.ID,
		Name:        c.Name,
		Program:     c.Program,
		Molecules:   c.Counts(),
		Coordinates: c.Coordinates(),
	}
}

// Cell returns a copy of the cell's current state.
func (e *Environment) Cell(id CellID) (CellState, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, ok := e.cells[id]
	if !ok {
		return CellState{}, false
	}
	return stateOf(c), true
}

// FindCell returns the first cell with the given name.
func (e *Environment) FindCell(name string) (CellState, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, id := range e.cellOrder() {
		if c := e.cells[id]; c.Name == name {
			return stateOf(c), true
		}
	}
	return CellState{}, false
}

// Cells returns a copy of every cell, ordered by ID.
func (e *Environment) Cells() []CellState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]CellState, 0, len(e.cells))
	for _, id := range e.cellOrder() {
		out = append(out, stateOf(e.cells[id]))
	}
	return out
}

// AddMolecules injects (or with a negative delta removes) molecules in a
// cell from outside the reaction program. Counts clamp at zero.
func (e *Environment) AddMolecules(id CellID, molecule string, delta int) error {
	if molecule == "" {
		return errors.New("molecule name is required")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.cells[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCellNotFound, id)
	}
	c.AddMolecules(molecule, delta)
	return nil
}

// Totals returns each molecule's count summed over all cells.
func (e *Environment) Totals() map[string]int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]int)
	for _, c := range e.cells {
		for name, n := range c.counts {
			out[name] += n
		}
	}
	return out
}

// cellOrder is the order cells step in: by seed key, then ID. It only
// depends on names, so runs with named cells are reproducible.
func (e *Environment) cellOrder() []CellID {
	ids := make([]CellID, 0, len(e.cells))
	for id := range e.cells {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b CellID) int {
		return cmp.Or(
			cmp.Compare(e.cells[a].seedKey(), e.cells[b].seedKey()),
			cmp.Compare(a, b),
		)
	})
	return ids
}

// Step advances the environment by one dt: every cell runs its reaction
// program in cell order (by name), then the grid diffuses. A cell whose program fails
// keeps the changes made before the failure and the step carries on with
// the next cell; the first failure is returned.
func (e *Environment) Step() (StepReport, error) {
	e.mu.Lock()

	var diff reactions.Diffusion
	if e.grid != nil {
		diff = e.grid
	}
	var params reactions.Parameters
	if e.schema != nil {
		params = e.schema.Parameters()
	}

	report := StepReport{Cells: make([]CellStepReport, 0, len(e.cells))}
	var firstErr error
	for _, id := range e.cellOrder() {
		c := e.cells[id]
		ctx := &reactions.Context{
			Cell:        c,
			Diffusion:   diff,
			Coordinates: c.coordinates,
			Parameters:  params,
		}
		res, err := e.executors[id].Step(ctx, e.dt)
		if err != nil {
			e.logger.Errorf("env %s cell %s: %v", e.id, id, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("cell %s: %w", id, err)
			}
		}
		report.Cells = append(report.Cells, CellStepReport{
			CellID:      id,
			Name:        c.Name,
			Fired:       res.Fired,
			PerReaction: res.PerReaction,
			Exhausted:   res.Exhausted,
			Counts:      c.Counts(),
		})
	}
	if e.grid != nil {
		e.grid.Step(e.dt)
	}

	e.steps++
	e.time += e.dt
	report.Step = e.steps
	report.Time = e.time

	envID := e.id
	notifier, cfg := e.notifier, e.notifyConfig
	observers := slices.Clone(e.observers)
	logger := e.logger
	e.mu.Unlock()

	if notifier != nil {
		event := CreateStepEvent(envID, report)
		if cfg.wants(report.Step, event.Fired) {
			notifier.Enqueue(event, cfg.Notifiers)
		}
	}
	for _, o := range observers {
		if err := o.ObserveStep(envID, report); err != nil {
			logger.Warnf("env %s step %d: observer failed: %v", envID, report.Step, err)
		}
	}
	logger.Debugf("env %s step %d t=%g cells=%d", envID, report.Step, report.Time, len(report.Cells))
	return report, firstErr
}

// Run will start the environment in a goroutine, starting it's own ticker that will
// run until the stop channel is closed. It can be called multiple times to restart
// after stopping.
func (e *Environment) Run(interval time.Duration) {
	e.mu.Lock()
	if e.isRunning {
		e.mu.Unlock()
		return
	}
	// Create a new stop channel for this run (allows restart after stop)
	e.stopCh = make(chan struct{})
	stopCh := e.stopCh
	e.isRunning = true
	e.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				// errors are already logged per cell
				_, _ = e.Step()
			case <-stopCh:
				e.mu.Lock()
				e.isRunning = false
				e.mu.Unlock()
				return
			}
		}
	}()
}

// Stop will stop the environment by closing the stop channel.
// After stopping, Run() can be called again to restart.
func (e *Environment) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.isRunning {
		return
	}

	select {
	case <-e.stopCh:
		// already signalled, the goroutine has not exited yet
	default:
		close(e.stopCh)
	}
}

// IsRunning reports whether the background ticker is active.
func (e *Environment) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.isRunning
}

// UpdateSchema swaps the schema, keeping cells and molecule counts. Every
// cell's program must exist in the new schema.
func (e *Environment) UpdateSchema(schema *Schema) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.cells {
		if _, ok := schema.Program(c.Program); !ok {
			return fmt.Errorf("cell %s: %w: %q", c.ID, ErrUnknownProgram, c.Program)
		}
	}
	e.schema = schema
	for id, c := range e.cells {
		e.executors[id] = e.newExecutor(c)
	}
	return nil
}

