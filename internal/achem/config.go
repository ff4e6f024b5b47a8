package achem

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/daniacca/cellchem/internal/diffusion"
	"github.com/daniacca/cellchem/internal/reactions"
)

// GridConfig describes the diffusion grid shared by the cells.
type GridConfig struct {
	Width   int                    `json:"width" toml:"width"`
	Height  int                    `json:"height" toml:"height"`
	Signals []diffusion.SignalSpec `json:"signals" toml:"signals"`
}

type CellConfig struct {
	Name        string                 `json:"name" toml:"name"`
	Program     string                 `json:"program" toml:"program"`
	Molecules   map[string]int         `json:"molecules,omitempty" toml:"molecules"`
	Coordinates []reactions.Coordinate `json:"coordinates,omitempty" toml:"coordinates"`
}

// SimulationConfig is the on-disk description of one environment: its
// reaction programs, parameters, grid and initial cells.
type SimulationConfig struct {
	Name string `json:"name" toml:"name"`
	// Seed 0 means seed from the clock
	Seed int64   `json:"seed,omitempty" toml:"seed"`
	Dt   float64 `json:"dt,omitempty" toml:"dt"`

	Parameters map[string]float64  `json:"parameters,omitempty" toml:"parameters"`
	Programs   map[string]string   `json:"programs" toml:"programs"`
	Grid       *GridConfig         `json:"grid,omitempty" toml:"grid"`
	Cells      []CellConfig        `json:"cells" toml:"cells"`
	Notify     *NotificationConfig `json:"notify,omitempty" toml:"notify"`
}

// ConfigFormat selects the decoder used by ParseSimulationConfig.
type ConfigFormat string

const (
	FormatTOML ConfigFormat = "toml"
	FormatJSON ConfigFormat = "json"
)

// ParseSimulationConfig decodes a config in the given format.
func ParseSimulationConfig(data []byte, format ConfigFormat) (SimulationConfig, error) {
	var cfg SimulationConfig
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return SimulationConfig{}, fmt.Errorf("parse error: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return SimulationConfig{}, fmt.Errorf("parse error: %w", err)
		}
	default:
		return SimulationConfig{}, fmt.Errorf("unsupported config format %q", format)
	}
	return cfg, nil
}

// LoadSimulationConfig reads a config file. Files ending in .json are
// decoded as JSON, everything else as TOML.
func LoadSimulationConfig(path string) (SimulationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SimulationConfig{}, fmt.Errorf("cannot read %s: %w", path, err)
	}

	format := FormatTOML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = FormatJSON
	}
	cfg, err := ParseSimulationConfig(data, format)
	if err != nil {
		return SimulationConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
