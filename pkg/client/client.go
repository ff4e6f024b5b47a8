package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/daniacca/cellchem/internal/achem"
	"github.com/daniacca/cellchem/internal/diffusion"
	"github.com/daniacca/cellchem/internal/reactions"
)

// ConfigBuilder provides a fluent API for building simulation configs.
// Use it to declare the reaction programs, parameters, diffusion grid and
// initial cells of an environment.
type ConfigBuilder struct {
	name       string
	seed       int64
	dt         float64
	parameters map[string]float64
	programs   map[string]string
	grid       *achem.GridConfig
	cells      []*CellBuilder
	notify     *NotificationBuilder
}

// NewConfig creates a new config builder with the given name.
func NewConfig(name string) *ConfigBuilder {
	return &ConfigBuilder{
		name:       name,
		parameters: make(map[string]float64),
		programs:   make(map[string]string),
		cells:      make([]*CellBuilder, 0),
	}
}

// Seed fixes the random seed. Runs with the same seed and config are
// identical; 0 seeds from the clock.
func (cb *ConfigBuilder) Seed(seed int64) *ConfigBuilder {
	cb.seed = seed
	return cb
}

// Dt sets the simulated time advanced by one step.
func (cb *ConfigBuilder) Dt(dt float64) *ConfigBuilder {
	cb.dt = dt
	return cb
}

// Parameter defines a named constant that rate expressions can use.
func (cb *ConfigBuilder) Parameter(name string, value float64) *ConfigBuilder {
	cb.parameters[name] = value
	return cb
}

// Program adds a reaction program built with a ProgramBuilder.
func (cb *ConfigBuilder) Program(name string, pb *ProgramBuilder) *ConfigBuilder {
	cb.programs[name] = pb.Build()
	return cb
}

// ProgramSource adds a reaction program from its source text.
func (cb *ConfigBuilder) ProgramSource(name, src string) *ConfigBuilder {
	cb.programs[name] = src
	return cb
}

// Grid declares the diffusion grid shared by all cells.
func (cb *ConfigBuilder) Grid(width, height int, signals ...*SignalBuilder) *ConfigBuilder {
	g := &achem.GridConfig{Width: width, Height: height}
	for _, sb := range signals {
		g.Signals = append(g.Signals, sb.Build())
	}
	cb.grid = g
	return cb
}

// Cell adds an initial cell.
func (cb *ConfigBuilder) Cell(c *CellBuilder) *ConfigBuilder {
	cb.cells = append(cb.cells, c)
	return cb
}

// Notify configures which notifiers receive the environment's step events.
func (cb *ConfigBuilder) Notify(nb *NotificationBuilder) *ConfigBuilder {
	cb.notify = nb
	return cb
}

// Build converts the builder to a SimulationConfig that can be used
// with ApplyConfig or achem.BuildEnvironmentFromConfig.
func (cb *ConfigBuilder) Build() achem.SimulationConfig {
	cfg := achem.SimulationConfig{
		Name:     cb.name,
		Seed:     cb.seed,
		Dt:       cb.dt,
		Programs: cb.programs,
		Grid:     cb.grid,
		Cells:    make([]achem.CellConfig, 0, len(cb.cells)),
	}
	if len(cb.parameters) > 0 {
		cfg.Parameters = cb.parameters
	}
	for _, c := range cb.cells {
		cfg.Cells = append(cfg.Cells, c.Build())
	}
	if cb.notify != nil {
		cfg.Notify = cb.notify.Build()
	}
	return cfg
}

// ProgramBuilder writes reaction program source. Each call appends one
// statement; Build returns the program text.
type ProgramBuilder struct {
	lines  []string
	indent string
}

// NewProgram creates an empty program builder.
func NewProgram() *ProgramBuilder {
	return &ProgramBuilder{lines: make([]string, 0)}
}

// side renders a molecule list, "null" when empty.
func side(molecules []string) string {
	if len(molecules) == 0 {
		return "null"
	}
	return strings.Join(molecules, " + ")
}

// React adds "reactants > rate > products;". Pass nil for an empty side.
// The rate is an expression and may reference molecules and parameters.
func (pb *ProgramBuilder) React(reactants []string, rate string, products []string) *ProgramBuilder {
	pb.lines = append(pb.lines, fmt.Sprintf("%s%s > %s > %s;", pb.indent, side(reactants), rate, side(products)))
	return pb
}

// Reversible adds a pair of reactions: left to right at forward, right to
// left at backward. In source the backward rate is written first.
func (pb *ProgramBuilder) Reversible(left []string, forward, backward string, right []string) *ProgramBuilder {
	pb.lines = append(pb.lines, fmt.Sprintf("%s%s < %s, %s > %s;", pb.indent, side(left), backward, forward, side(right)))
	return pb
}

// Export moves molecule into the grid signal of the same name at rate.
func (pb *ProgramBuilder) Export(molecule, rate string) *ProgramBuilder {
	return pb.React([]string{molecule}, rate, []string{"env"})
}

// Import takes molecule from the grid signal of the same name at rate.
func (pb *ProgramBuilder) Import(molecule, rate string) *ProgramBuilder {
	return pb.React([]string{"env"}, rate, []string{molecule})
}

// If adds a block of reactions that only fire while condition holds.
func (pb *ProgramBuilder) If(condition string, body func(*ProgramBuilder)) *ProgramBuilder {
	pb.lines = append(pb.lines, fmt.Sprintf("%sif %s: {", pb.indent, condition))
	outer := pb.indent
	pb.indent += "  "
	body(pb)
	pb.indent = outer
	pb.lines = append(pb.lines, pb.indent+"};")
	return pb
}

// Comment adds a "#" comment line.
func (pb *ProgramBuilder) Comment(text string) *ProgramBuilder {
	pb.lines = append(pb.lines, pb.indent+"# "+text)
	return pb
}

// Build returns the program source.
func (pb *ProgramBuilder) Build() string {
	return strings.Join(pb.lines, "\n") + "\n"
}

// Compile checks that the program compiles with the given parameters.
func (pb *ProgramBuilder) Compile(params map[string]float64) (*reactions.Program, error) {
	return reactions.Compile(pb.Build(), reactions.WithParameterTable(params))
}

// SignalBuilder provides a fluent API for declaring a grid signal.
type SignalBuilder struct {
	spec diffusion.SignalSpec
}

// NewSignal creates a signal builder. Diffusion and decay default to 0.
func NewSignal(name string) *SignalBuilder {
	return &SignalBuilder{spec: diffusion.SignalSpec{Name: name}}
}

// Initial sets the starting concentration of every grid cell.
func (sb *SignalBuilder) Initial(v float64) *SignalBuilder {
	sb.spec.Initial = v
	return sb
}

// Diffusion sets the diffusion coefficient.
func (sb *SignalBuilder) Diffusion(d float64) *SignalBuilder {
	sb.spec.Diffusion = d
	return sb
}

// Decay sets the first-order decay rate.
func (sb *SignalBuilder) Decay(k float64) *SignalBuilder {
	sb.spec.Decay = k
	return sb
}

// Build converts the builder to a SignalSpec.
func (sb *SignalBuilder) Build() diffusion.SignalSpec {
	return sb.spec
}

// CellBuilder provides a fluent API for declaring an initial cell.
type CellBuilder struct {
	cfg achem.CellConfig
}

// NewCell creates a cell builder running the named program.
func NewCell(name, program string) *CellBuilder {
	return &CellBuilder{cfg: achem.CellConfig{
		Name:      name,
		Program:   program,
		Molecules: make(map[string]int),
	}}
}

// Molecule sets the initial count of a molecule.
func (cb *CellBuilder) Molecule(name string, count int) *CellBuilder {
	cb.cfg.Molecules[name] = count
	return cb
}

// At places the cell on a grid coordinate. Call it repeatedly for cells
// covering several grid points.
func (cb *CellBuilder) At(x, y int) *CellBuilder {
	cb.cfg.Coordinates = append(cb.cfg.Coordinates, reactions.Coordinate{X: x, Y: y})
	return cb
}

// Build converts the builder to a CellConfig.
func (cb *CellBuilder) Build() achem.CellConfig {
	return cb.cfg
}

// NotificationBuilder provides a fluent API for building notification configurations.
// Notifications let external systems follow an environment step by step,
// through webhooks or the server's WebSocket stream.
type NotificationBuilder struct {
	enabled   bool
	notifiers []string
	every     int
	quiet     bool
}

// NewNotification creates a new notification builder with notifications
// enabled by default.
func NewNotification() *NotificationBuilder {
	return &NotificationBuilder{
		enabled:   true,
		notifiers: make([]string, 0),
	}
}

// Enabled sets whether notifications are enabled.
func (nb *NotificationBuilder) Enabled(enabled bool) *NotificationBuilder {
	nb.enabled = enabled
	return nb
}

// Notifier adds a notifier ID to the list of notifiers to use.
// Notifiers must be registered with the server separately.
func (nb *NotificationBuilder) Notifier(id string) *NotificationBuilder {
	nb.notifiers = append(nb.notifiers, id)
	return nb
}

// Notifiers adds multiple notifier IDs to the list.
func (nb *NotificationBuilder) Notifiers(ids ...string) *NotificationBuilder {
	nb.notifiers = append(nb.notifiers, ids...)
	return nb
}

// Every sends one event per n steps.
func (nb *NotificationBuilder) Every(n int) *NotificationBuilder {
	nb.every = n
	return nb
}

// Quiet skips steps in which no reaction fired.
func (nb *NotificationBuilder) Quiet(quiet bool) *NotificationBuilder {
	nb.quiet = quiet
	return nb
}

// Build converts the builder to a NotificationConfig.
func (nb *NotificationBuilder) Build() *achem.NotificationConfig {
	return &achem.NotificationConfig{
		Enabled:   nb.enabled,
		Notifiers: nb.notifiers,
		Every:     nb.every,
		Quiet:     nb.quiet,
	}
}

// Client talks to a cellchem server.
type Client struct {
	baseURL    string
	HTTPClient *http.Client
}

// New creates a client for the server at baseURL (e.g. "http://localhost:8080").
func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, HTTPClient: &http.Client{Timeout: 30 * time.Second}}
}

// do sends a request and decodes a JSON response into out when out is not nil.
func (c *Client) do(ctx context.Context, method string, query url.Values, body any, out any, path ...string) error {
	u, err := url.JoinPath(c.baseURL, path...)
	if err != nil {
		return fmt.Errorf("failed to build URL: %w", err)
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// StatusError is returned when the server answers with a non-success status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

// ApplyConfig creates the environment envID from the config, replacing any
// existing environment with that ID.
func (c *Client) ApplyConfig(ctx context.Context, envID string, config *ConfigBuilder) error {
	return c.do(ctx, http.MethodPost, nil, config.Build(), nil, "env", envID, "config")
}

// Tick runs steps steps and returns the report of the last one.
func (c *Client) Tick(ctx context.Context, envID string, steps int) (achem.StepReport, error) {
	var resp struct {
		Report achem.StepReport `json:"report"`
		Errors []string         `json:"errors"`
	}
	q := url.Values{"steps": {strconv.Itoa(steps)}}
	if err := c.do(ctx, http.MethodPost, q, nil, &resp, "env", envID, "tick"); err != nil {
		return achem.StepReport{}, err
	}
	if len(resp.Errors) > 0 {
		return resp.Report, fmt.Errorf("step errors: %s", strings.Join(resp.Errors, "; "))
	}
	return resp.Report, nil
}

// Start makes the server step the environment every interval.
func (c *Client) Start(ctx context.Context, envID string, interval time.Duration) error {
	q := url.Values{"interval": {strconv.FormatInt(interval.Milliseconds(), 10)}}
	return c.do(ctx, http.MethodPost, q, nil, nil, "env", envID, "start")
}

// Stop stops a running environment.
func (c *Client) Stop(ctx context.Context, envID string) error {
	return c.do(ctx, http.MethodPost, nil, nil, nil, "env", envID, "stop")
}

// Cells lists the environment's cells.
func (c *Client) Cells(ctx context.Context, envID string) ([]achem.CellState, error) {
	var resp struct {
		Cells []achem.CellState `json:"cells"`
	}
	if err := c.do(ctx, http.MethodGet, nil, nil, &resp, "env", envID, "cells"); err != nil {
		return nil, err
	}
	return resp.Cells, nil
}

// AddMolecules changes a molecule count of a cell, addressed by ID or name.
func (c *Client) AddMolecules(ctx context.Context, envID, cell, molecule string, delta int) (achem.CellState, error) {
	var state achem.CellState
	body := map[string]any{"molecule": molecule, "delta": delta}
	err := c.do(ctx, http.MethodPost, nil, body, &state, "env", envID, "cells", cell, "molecules")
	return state, err
}

// Totals returns each molecule's count summed over all cells.
func (c *Client) Totals(ctx context.Context, envID string) (map[string]int, error) {
	var totals map[string]int
	err := c.do(ctx, http.MethodGet, nil, nil, &totals, "env", envID, "totals")
	return totals, err
}

// Snapshot returns the environment's current state.
func (c *Client) Snapshot(ctx context.Context, envID string) (achem.Snapshot, error) {
	var snap achem.Snapshot
	q := url.Values{"live": {"true"}, "format": {string(achem.SnapshotJSON)}}
	err := c.do(ctx, http.MethodGet, q, nil, &snap, "env", envID, "snapshot")
	return snap, err
}

// SaveSnapshot asks the server to write a snapshot file and returns its path.
func (c *Client) SaveSnapshot(ctx context.Context, envID string) (string, error) {
	var resp map[string]string
	if err := c.do(ctx, http.MethodPost, nil, nil, &resp, "env", envID, "snapshot"); err != nil {
		return "", err
	}
	return resp["path"], nil
}

// Restore replaces the environment's state with snap.
func (c *Client) Restore(ctx context.Context, envID string, snap achem.Snapshot) error {
	q := url.Values{"format": {string(achem.SnapshotJSON)}}
	return c.do(ctx, http.MethodPost, q, snap, nil, "env", envID, "restore")
}

// DeleteEnvironment stops and removes an environment.
func (c *Client) DeleteEnvironment(ctx context.Context, envID string) error {
	return c.do(ctx, http.MethodDelete, nil, nil, nil, "env", envID)
}

// RegisterWebhook registers a webhook notifier. With summary set the hook
// receives per-molecule totals instead of the full step event.
func (c *Client) RegisterWebhook(ctx context.Context, id, hookURL string, summary bool) error {
	body := map[string]any{
		"type":   "webhook",
		"id":     id,
		"config": map[string]any{"url": hookURL, "summary": summary},
	}
	return c.do(ctx, http.MethodPost, nil, body, nil, "notifiers")
}

// ApplyConfig sends the config to the server at baseURL as environment envID.
func ApplyConfig(ctx context.Context, baseURL, envID string, config *ConfigBuilder) error {
	return New(baseURL).ApplyConfig(ctx, envID, config)
}
