package achem

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/daniacca/cellchem/internal/reactions"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("achem: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Snapshot represents a point-in-time capture of an environment's state:
// every cell's counts and coordinates plus the grid's signal fields.
type Snapshot struct {
	EnvironmentID EnvironmentID        `json:"environment_id"`
	Step          int64                `json:"step"`
	Time          float64              `json:"time"`
	Seed          int64                `json:"seed"`
	Dt            float64              `json:"dt"`
	Cells         []CellState          `json:"cells"`
	Grid          map[string][]float64 `json:"grid,omitempty"`
}

// ValidateSnapshot performs validation checks on a snapshot.
// It verifies that:
//   - All cell IDs are non-empty and unique
//   - No molecule count is negative
//   - All programs exist in the provided schema (if schema is not nil)
//
// If schema is nil, the program check is skipped.
func ValidateSnapshot(snapshot Snapshot, schema *Schema) error {
	seenIDs := make(map[CellID]struct{})

	for i, c := range snapshot.Cells {
		if c.ID == "" {
			return fmt.Errorf("cell at index %d has empty ID", i)
		}
		if _, exists := seenIDs[c.ID]; exists {
			return fmt.Errorf("duplicate cell ID: %s", c.ID)
		}
		seenIDs[c.ID] = struct{}{}

		for name, n := range c.Molecules {
			if n < 0 {
				return fmt.Errorf("cell %s: molecule %s has negative count %d", c.ID, name, n)
			}
		}

		if schema != nil {
			if _, exists := schema.Program(c.Program); !exists {
				return fmt.Errorf("cell %s has invalid program: %s (not found in schema)", c.ID, c.Program)
			}
		}
	}

	if snapshot.Dt < 0 {
		return fmt.Errorf("snapshot dt must not be negative, got %v", snapshot.Dt)
	}
	return nil
}

// EncodeSnapshotJSON encodes a snapshot to JSON format.
func EncodeSnapshotJSON(snapshot Snapshot) ([]byte, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshotJSON decodes a snapshot from JSON format.
func DecodeSnapshotJSON(data []byte) (Snapshot, error) {
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snapshot, nil
}

// EncodeSnapshotCBOR encodes a snapshot to canonical CBOR.
func EncodeSnapshotCBOR(snapshot Snapshot) ([]byte, error) {
	data, err := cborEncMode.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshotCBOR decodes a snapshot from CBOR.
func DecodeSnapshotCBOR(data []byte) (Snapshot, error) {
	var snapshot Snapshot
	if err := cbor.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snapshot, nil
}

// Snapshot captures the environment's current state.
func (e *Environment) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap := Snapshot{
		EnvironmentID: e.id,
		Step:          e.steps,
		Time:          e.time,
		Seed:          e.seed,
		Dt:            e.dt,
		Cells:         make([]CellState, 0, len(e.cells)),
	}
	for _, id := range e.cellOrder() {
		snap.Cells = append(snap.Cells, stateOf(e.cells[id]))
	}
	if e.grid != nil {
		snap.Grid = e.grid.Fields()
	}
	return snap
}

// Restore replaces every cell, the grid fields and the clock with the
// snapshot's. Executors are reseeded from the snapshot's seed and step, so
// two restores of the same snapshot continue identically.
func (e *Environment) Restore(snap Snapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ValidateSnapshot(snap, e.schema); err != nil {
		return err
	}
	if e.schema == nil {
		return fmt.Errorf("%w: environment has no schema", ErrUnknownProgram)
	}

	cells := make(map[CellID]*Cell, len(snap.Cells))
	for _, cs := range snap.Cells {
		c := &Cell{
			ID:          cs.ID,
			Name:        cs.Name,
			Program:     cs.Program,
			counts:      maps.Clone(cs.Molecules),
			coordinates: append([]reactions.Coordinate(nil), cs.Coordinates...),
		}
		if c.counts == nil {
			c.counts = make(map[string]int)
		}
		if err := e.checkCell(c); err != nil {
			return fmt.Errorf("cell %s: %w", c.ID, err)
		}
		cells[c.ID] = c
	}

	if len(snap.Grid) > 0 {
		if e.grid == nil {
			return fmt.Errorf("snapshot has grid fields but environment has no grid")
		}
		if err := e.grid.Restore(snap.Grid); err != nil {
			return fmt.Errorf("restore grid: %w", err)
		}
	}

	e.cells = cells
	e.steps = snap.Step
	e.time = snap.Time
	e.seed = snap.Seed
	if snap.Dt > 0 {
		e.dt = snap.Dt
	}
	e.executors = make(map[CellID]*reactions.Executor, len(cells))
	for id, c := range cells {
		e.executors[id] = e.newExecutor(c)
	}
	return nil
}

// SnapshotFormat selects the on-disk encoding of a snapshot.
type SnapshotFormat string

const (
	SnapshotJSON SnapshotFormat = "json"
	SnapshotCBOR SnapshotFormat = "cbor"
)

// ParseSnapshotFormat maps "", "json" and "cbor" to a format.
func ParseSnapshotFormat(s string) (SnapshotFormat, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return SnapshotJSON, nil
	case "cbor":
		return SnapshotCBOR, nil
	default:
		return "", fmt.Errorf("unknown snapshot format %q", s)
	}
}

// EncodeSnapshot encodes snapshot in the given format.
func EncodeSnapshot(snapshot Snapshot, format SnapshotFormat) ([]byte, error) {
	if format == SnapshotCBOR {
		return EncodeSnapshotCBOR(snapshot)
	}
	return EncodeSnapshotJSON(snapshot)
}

// DecodeSnapshot decodes data written in the given format.
func DecodeSnapshot(data []byte, format SnapshotFormat) (Snapshot, error) {
	if format == SnapshotCBOR {
		return DecodeSnapshotCBOR(data)
	}
	return DecodeSnapshotJSON(data)
}

// SnapshotPath is where an environment's snapshot lives inside dir:
// {dir}/{envID}.snapshot.{format}
func SnapshotPath(dir string, id EnvironmentID, format SnapshotFormat) string {
	return filepath.Join(dir, fmt.Sprintf("%s.snapshot.%s", id, format))
}

// SaveSnapshot writes the environment's snapshot into dir and returns the
// file path. The file is written to a temporary name first and renamed, so
// readers never observe a partial snapshot.
func (e *Environment) SaveSnapshot(dir string, format SnapshotFormat) (string, error) {
	snap := e.Snapshot()
	data, err := EncodeSnapshot(snap, format)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	path := SnapshotPath(dir, snap.EnvironmentID, format)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to move snapshot into place: %w", err)
	}
	return path, nil
}

// LoadSnapshotFile reads a snapshot file. Files ending in .cbor are decoded
// as CBOR, everything else as JSON.
func LoadSnapshotFile(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	format := SnapshotJSON
	if strings.EqualFold(filepath.Ext(path), ".cbor") {
		format = SnapshotCBOR
	}
	return DecodeSnapshot(data, format)
}

// SnapshotSaver is a StepObserver that saves the environment's snapshot
// every Every steps.
type SnapshotSaver struct {
	env    *Environment
	Dir    string
	Format SnapshotFormat
	Every  int64
}

var _ StepObserver = (*SnapshotSaver)(nil)

func NewSnapshotSaver(env *Environment, dir string, format SnapshotFormat, every int64) *SnapshotSaver {
	return &SnapshotSaver{env: env, Dir: dir, Format: format, Every: every}
}

func (s *SnapshotSaver) ObserveStep(_ EnvironmentID, report StepReport) error {
	if s.Every <= 0 || s.Dir == "" || report.Step%s.Every != 0 {
		return nil
	}
	_, err := s.env.SaveSnapshot(s.Dir, s.Format)
	return err
}
