package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/daniacca/cellchem/internal/achem"
	achemnotifiers "github.com/daniacca/cellchem/internal/achem/notifiers"
	"github.com/daniacca/cellchem/internal/trajectory"
)

// maxTickSteps caps the steps one tick request may run
const maxTickSteps = 10000

// extractEnvID extracts the environment ID from a path like "/env/{envID}/..."
// Returns the environment ID and the remaining path, or empty string if not found
func extractEnvID(path string) (achem.EnvironmentID, string) {
	if !strings.HasPrefix(path, "/env/") {
		return "", ""
	}

	rest := path[5:]

	idx := strings.Index(rest, "/")
	if idx == -1 {
		return achem.EnvironmentID(rest), ""
	}

	envID := achem.EnvironmentID(rest[:idx])
	remainingPath := rest[idx:]
	return envID, remainingPath
}

// extractCellRef splits "/cells/{ref}/rest" into ref and "/rest"
func extractCellRef(path string) (string, string) {
	rest, ok := strings.CutPrefix(path, "/cells/")
	if !ok {
		return "", ""
	}
	ref, tail, found := strings.Cut(rest, "/")
	if found {
		tail = "/" + tail
	}
	return ref, tail
}

// resolveCell finds a cell by ID, falling back to its name
func resolveCell(env *achem.Environment, ref string) (achem.CellState, bool) {
	if c, ok := env.Cell(achem.CellID(ref)); ok {
		return c, true
	}
	return env.FindCell(ref)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "cannot encode: "+err.Error(), http.StatusInternalServerError)
	}
}

// lookupEnv resolves the environment of the request or writes an error
func (s *Server) lookupEnv(w http.ResponseWriter, r *http.Request) (*achem.Environment, bool) {
	envID, _ := extractEnvID(r.URL.Path)
	if envID == "" {
		http.Error(w, "environment ID is required in path: /env/{envID}/...", http.StatusBadRequest)
		return nil, false
	}
	env, exists := s.manager.GetEnvironment(envID)
	if !exists {
		http.Error(w, "environment not found", http.StatusNotFound)
		return nil, false
	}
	return env, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// POST /env/{envID}/config
// Body: SimulationConfig as JSON, or TOML when Content-Type is application/toml
// or ?format=toml. Creates the environment or replaces an existing one.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	envID, _ := extractEnvID(r.URL.Path)
	if envID == "" {
		http.Error(w, "environment ID is required in path: /env/{envID}/config", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "cannot read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	format := achem.FormatJSON
	if r.URL.Query().Get("format") == "toml" || strings.HasPrefix(r.Header.Get("Content-Type"), "application/toml") {
		format = achem.FormatTOML
	}
	cfg, err := achem.ParseSimulationConfig(data, format)
	if err != nil {
		http.Error(w, "invalid config: "+err.Error(), http.StatusBadRequest)
		return
	}

	env, created, err := s.applyConfig(envID, cfg)
	if err != nil {
		http.Error(w, "cannot build environment: "+err.Error(), http.StatusBadRequest)
		return
	}
	if created {
		s.logger.Infof("Environment created: env_id=%s config=%s cells=%d", envID, cfg.Name, len(cfg.Cells))
	} else {
		s.logger.Infof("Environment replaced: env_id=%s config=%s cells=%d", envID, cfg.Name, len(cfg.Cells))
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(environmentInfo(env))
}

type environmentResponse struct {
	ID       achem.EnvironmentID `json:"id"`
	Step     int64               `json:"step"`
	Time     float64             `json:"time"`
	Seed     int64               `json:"seed"`
	Dt       float64             `json:"dt"`
	Running  bool                `json:"running"`
	Cells    int                 `json:"cells"`
	Programs []string            `json:"programs"`
	Signals  []string            `json:"signals,omitempty"`
}

func environmentInfo(env *achem.Environment) environmentResponse {
	info := environmentResponse{
		ID:      env.ID(),
		Step:    env.Steps(),
		Time:    env.Time(),
		Seed:    env.Seed(),
		Dt:      env.Dt(),
		Running: env.IsRunning(),
		Cells:   len(env.Cells()),
	}
	if schema := env.Schema(); schema != nil {
		info.Programs = schema.Programs()
	}
	if g := env.Grid(); g != nil {
		for _, sig := range g.Signals() {
			info.Signals = append(info.Signals, sig.Name)
		}
	}
	return info
}

// GET /env/{envID}
func (s *Server) handleGetEnvironment(w http.ResponseWriter, r *http.Request) {
	env, ok := s.lookupEnv(w, r)
	if !ok {
		return
	}
	writeJSON(w, environmentInfo(env))
}

// GET /env/{envID}/cells
func (s *Server) handleListCells(w http.ResponseWriter, r *http.Request) {
	env, ok := s.lookupEnv(w, r)
	if !ok {
		return
	}
	writeJSON(w, map[string]any{"cells": env.Cells()})
}

// POST /env/{envID}/cells
// Body: { "name": "...", "program": "...", "molecules": {...}, "coordinates": [...] }
func (s *Server) handleAddCell(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	env, ok := s.lookupEnv(w, r)
	if !ok {
		return
	}

	var req achem.CellConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name != "" {
		if _, taken := env.FindCell(req.Name); taken {
			http.Error(w, "cell name already in use: "+req.Name, http.StatusConflict)
			return
		}
	}

	cell := achem.NewCell(req.Name, req.Program, req.Coordinates...).WithMolecules(req.Molecules)
	if err := env.AddCell(cell); err != nil {
		http.Error(w, "cannot add cell: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.logger.Debugf("Cell added: env_id=%s cell_id=%s program=%s", env.ID(), cell.ID, cell.Program)

	state, _ := env.Cell(cell.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(state)
}

// GET /env/{envID}/cells/{cell}
func (s *Server) handleGetCell(w http.ResponseWriter, r *http.Request, ref string) {
	env, ok := s.lookupEnv(w, r)
	if !ok {
		return
	}
	cell, found := resolveCell(env, ref)
	if !found {
		http.Error(w, "cell not found", http.StatusNotFound)
		return
	}
	writeJSON(w, cell)
}

// DELETE /env/{envID}/cells/{cell}
func (s *Server) handleRemoveCell(w http.ResponseWriter, r *http.Request, ref string) {
	env, ok := s.lookupEnv(w, r)
	if !ok {
		return
	}
	cell, found := resolveCell(env, ref)
	if !found {
		http.Error(w, "cell not found", http.StatusNotFound)
		return
	}
	if err := env.RemoveCell(cell.ID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("cell removed"))
}

// POST /env/{envID}/cells/{cell}/molecules
// Body: { "molecule": "...", "delta": 10 }
type addMoleculesRequest struct {
	Molecule string `json:"molecule"`
	Delta    int    `json:"delta"`
}

func (s *Server) handleAddMolecules(w http.ResponseWriter, r *http.Request, ref string) {
	defer r.Body.Close()

	env, ok := s.lookupEnv(w, r)
	if !ok {
		return
	}
	cell, found := resolveCell(env, ref)
	if !found {
		http.Error(w, "cell not found", http.StatusNotFound)
		return
	}

	var req addMoleculesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := env.AddMolecules(cell.ID, req.Molecule, req.Delta); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, achem.ErrCellNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	s.logger.Debugf("Molecules added: env_id=%s cell_id=%s molecule=%s delta=%d", env.ID(), cell.ID, req.Molecule, req.Delta)
	updated, _ := env.Cell(cell.ID)
	writeJSON(w, updated)
}

// GET /env/{envID}/totals
func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	env, ok := s.lookupEnv(w, r)
	if !ok {
		return
	}
	writeJSON(w, env.Totals())
}

// GET /env/{envID}/grid
// Returns every signal field, row-major.
func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	env, ok := s.lookupEnv(w, r)
	if !ok {
		return
	}
	fields, ok := env.GridFields()
	if !ok {
		http.Error(w, "environment has no grid", http.StatusNotFound)
		return
	}
	writeJSON(w, fields)
}

// POST /env/{envID}/tick
// Manually run steps (useful when auto-running is disabled).
// Query param: steps (default: 1). Returns the report of the last step.
func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	env, ok := s.lookupEnv(w, r)
	if !ok {
		return
	}

	steps := 1
	if v := r.URL.Query().Get("steps"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxTickSteps {
			http.Error(w, "invalid steps: must be an integer between 1 and "+strconv.Itoa(maxTickSteps), http.StatusBadRequest)
			return
		}
		steps = n
	}

	var report achem.StepReport
	var errs []string
	for range steps {
		var err error
		report, err = env.Step()
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	writeJSON(w, map[string]any{"report": report, "errors": errs})
}

// POST /env/{envID}/start
// Start the environment auto-running with the specified interval (in milliseconds)
// Query param: interval (default: 1000ms)
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	env, ok := s.lookupEnv(w, r)
	if !ok {
		return
	}

	interval := 1000 * time.Millisecond
	if intervalStr := r.URL.Query().Get("interval"); intervalStr != "" {
		if ms, err := strconv.Atoi(intervalStr); err == nil && ms > 0 {
			interval = time.Duration(ms) * time.Millisecond
		} else {
			http.Error(w, "invalid interval: must be a positive integer (milliseconds)", http.StatusBadRequest)
			return
		}
	}

	env.Run(interval)
	s.logger.Infof("Environment started: env_id=%s interval=%v", env.ID(), interval)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("environment started"))
}

// POST /env/{envID}/stop
// Stop the environment auto-running
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	env, ok := s.lookupEnv(w, r)
	if !ok {
		return
	}

	env.Stop()
	s.logger.Infof("Environment stopped: env_id=%s", env.ID())

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("environment stopped"))
}

// GET /envs
// List all environment IDs
func (s *Server) handleListEnvironments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	envIDs := s.manager.ListEnvironments()

	ids := make([]string, len(envIDs))
	for i, id := range envIDs {
		ids[i] = string(id)
	}

	writeJSON(w, map[string][]string{"environments": ids})
}

// DELETE /env/{envID}
// Delete an environment
func (s *Server) handleDeleteEnvironment(w http.ResponseWriter, r *http.Request) {
	envID, _ := extractEnvID(r.URL.Path)
	if envID == "" {
		http.Error(w, "environment ID is required in path: /env/{envID}", http.StatusBadRequest)
		return
	}

	if err := s.manager.DeleteEnvironment(envID); err != nil {
		s.logger.Warnf("Failed to delete environment: env_id=%s error=%v", envID, err)
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	s.logger.Infof("Environment deleted: env_id=%s", envID)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("environment deleted"))
}

// requestFormat reads the ?format= query parameter, falling back to the
// server default
func (s *Server) requestFormat(r *http.Request) (achem.SnapshotFormat, error) {
	if v := r.URL.Query().Get("format"); v != "" {
		return achem.ParseSnapshotFormat(v)
	}
	return s.snapshotFormat, nil
}

func snapshotContentType(format achem.SnapshotFormat) string {
	if format == achem.SnapshotCBOR {
		return "application/cbor"
	}
	return "application/json"
}

// POST /env/{envID}/snapshot
// Triggers a synchronous snapshot save
func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	env, ok := s.lookupEnv(w, r)
	if !ok {
		return
	}

	if s.snapshotDir == "" {
		http.Error(w, "snapshot directory not configured", http.StatusInternalServerError)
		return
	}
	format, err := s.requestFormat(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	path, err := env.SaveSnapshot(s.snapshotDir, format)
	if err != nil {
		s.logger.Errorf("Failed to save snapshot: env_id=%s error=%v", env.ID(), err)
		http.Error(w, "failed to save snapshot: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.logger.Debugf("Snapshot saved: env_id=%s path=%s", env.ID(), path)

	writeJSON(w, map[string]string{
		"status": "ok",
		"path":   path,
	})
}

// GET /env/{envID}/snapshot
// Returns the raw snapshot file if it exists. With ?live=true the current
// state is encoded instead.
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	env, ok := s.lookupEnv(w, r)
	if !ok {
		return
	}
	format, err := s.requestFormat(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var data []byte
	if r.URL.Query().Get("live") == "true" {
		data, err = achem.EncodeSnapshot(env.Snapshot(), format)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	} else {
		if s.snapshotDir == "" {
			http.Error(w, "snapshot directory not configured", http.StatusInternalServerError)
			return
		}
		data, err = os.ReadFile(achem.SnapshotPath(s.snapshotDir, env.ID(), format))
		if err != nil {
			if os.IsNotExist(err) {
				http.Error(w, "snapshot not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to read snapshot: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", snapshotContentType(format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// POST /env/{envID}/restore
// Body: a snapshot in ?format= encoding. An empty body restores the saved
// snapshot file.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	env, ok := s.lookupEnv(w, r)
	if !ok {
		return
	}
	format, err := s.requestFormat(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "cannot read body: "+err.Error(), http.StatusBadRequest)
		return
	}

	var snap achem.Snapshot
	if len(bytes.TrimSpace(data)) == 0 {
		if s.snapshotDir == "" {
			http.Error(w, "snapshot directory not configured", http.StatusInternalServerError)
			return
		}
		snap, err = achem.LoadSnapshotFile(achem.SnapshotPath(s.snapshotDir, env.ID(), format))
		if err != nil {
			if os.IsNotExist(err) {
				http.Error(w, "snapshot not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to read snapshot: "+err.Error(), http.StatusInternalServerError)
			return
		}
	} else {
		snap, err = achem.DecodeSnapshot(data, format)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	if err := env.Restore(snap); err != nil {
		http.Error(w, "cannot restore snapshot: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.logger.Infof("Environment restored: env_id=%s step=%d", env.ID(), snap.Step)
	writeJSON(w, environmentInfo(env))
}

// GET /env/{envID}/trajectory?molecule=A&cell=name
func (s *Server) handleTrajectory(w http.ResponseWriter, r *http.Request) {
	env, ok := s.lookupEnv(w, r)
	if !ok {
		return
	}
	if s.recorder == nil {
		http.Error(w, "trajectory recording not configured", http.StatusInternalServerError)
		return
	}
	molecule := r.URL.Query().Get("molecule")
	if molecule == "" {
		http.Error(w, "molecule query parameter is required", http.StatusBadRequest)
		return
	}

	points, err := s.recorder.Series(env.ID(), r.URL.Query().Get("cell"), molecule)
	if err != nil {
		if errors.Is(err, trajectory.ErrNoTrajectory) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"molecule": molecule, "points": points})
}

// GET /env/{envID}/chart?molecules=A,B&cell=name
// Renders the recorded trajectory as a PNG.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	env, ok := s.lookupEnv(w, r)
	if !ok {
		return
	}
	if s.recorder == nil {
		http.Error(w, "trajectory recording not configured", http.StatusInternalServerError)
		return
	}

	var molecules []string
	if v := r.URL.Query().Get("molecules"); v != "" {
		molecules = strings.Split(v, ",")
	}

	var buf bytes.Buffer
	if err := s.recorder.Chart(&buf, env.ID(), r.URL.Query().Get("cell"), molecules); err != nil {
		switch {
		case errors.Is(err, trajectory.ErrNoTrajectory), errors.Is(err, trajectory.ErrNotEnoughData):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

// handleEnvironmentRoutes routes requests to environment-specific handlers
// Handles paths like /env/{envID}/config, /env/{envID}/cells, etc.
func (s *Server) handleEnvironmentRoutes(w http.ResponseWriter, r *http.Request) {
	envID, remainingPath := extractEnvID(r.URL.Path)
	if envID == "" {
		http.Error(w, "environment ID is required in path: /env/{envID}/...", http.StatusBadRequest)
		return
	}

	if ref, tail := extractCellRef(remainingPath); ref != "" {
		switch {
		case tail == "" && r.Method == http.MethodGet:
			s.handleGetCell(w, r, ref)
		case tail == "" && r.Method == http.MethodDelete:
			s.handleRemoveCell(w, r, ref)
		case tail == "/molecules" && r.Method == http.MethodPost:
			s.handleAddMolecules(w, r, ref)
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
		return
	}

	switch {
	case remainingPath == "/config" && r.Method == http.MethodPost:
		s.handleConfig(w, r)
	case remainingPath == "/cells" && r.Method == http.MethodGet:
		s.handleListCells(w, r)
	case remainingPath == "/cells" && r.Method == http.MethodPost:
		s.handleAddCell(w, r)
	case remainingPath == "/totals" && r.Method == http.MethodGet:
		s.handleTotals(w, r)
	case remainingPath == "/grid" && r.Method == http.MethodGet:
		s.handleGrid(w, r)
	case remainingPath == "/tick" && r.Method == http.MethodPost:
		s.handleTick(w, r)
	case remainingPath == "/start" && r.Method == http.MethodPost:
		s.handleStart(w, r)
	case remainingPath == "/stop" && r.Method == http.MethodPost:
		s.handleStop(w, r)
	case remainingPath == "/snapshot" && r.Method == http.MethodPost:
		s.handleSaveSnapshot(w, r)
	case remainingPath == "/snapshot" && r.Method == http.MethodGet:
		s.handleGetSnapshot(w, r)
	case remainingPath == "/restore" && r.Method == http.MethodPost:
		s.handleRestore(w, r)
	case remainingPath == "/trajectory" && r.Method == http.MethodGet:
		s.handleTrajectory(w, r)
	case remainingPath == "/chart" && r.Method == http.MethodGet:
		s.handleChart(w, r)
	case remainingPath == "" && r.Method == http.MethodGet:
		s.handleGetEnvironment(w, r)
	case remainingPath == "" && r.Method == http.MethodDelete:
		s.handleDeleteEnvironment(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// handleNotifiersRoutes handles notifier management endpoints
func (s *Server) handleNotifiersRoutes(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/notifiers" && r.Method == http.MethodGet:
		s.handleListNotifiers(w, r)
	case r.URL.Path == "/notifiers" && r.Method == http.MethodPost:
		s.handleRegisterNotifier(w, r)
	case strings.HasPrefix(r.URL.Path, "/notifiers/") && r.Method == http.MethodDelete:
		s.handleUnregisterNotifier(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// GET /notifiers
// List all registered notifiers
func (s *Server) handleListNotifiers(w http.ResponseWriter, _ *http.Request) {
	notifierIDs := s.notifiers.ListNotifiers()
	slices.Sort(notifierIDs)

	notifiers := make([]map[string]string, 0, len(notifierIDs))
	for _, id := range notifierIDs {
		notifier, exists := s.notifiers.GetNotifier(id)
		if exists {
			notifiers = append(notifiers, map[string]string{
				"id":   id,
				"type": notifier.Type(),
			})
		}
	}

	writeJSON(w, map[string]any{"notifiers": notifiers})
}

// POST /notifiers
// Register a new notifier
// Body: { "type": "webhook", "id": "my-webhook", "config": { "url": "http://...", "summary": true } }
type registerNotifierRequest struct {
	Type   string         `json:"type"`
	ID     string         `json:"id"`
	Config map[string]any `json:"config"`
}

func (s *Server) handleRegisterNotifier(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req registerNotifierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.ID == "" {
		http.Error(w, "notifier ID is required", http.StatusBadRequest)
		return
	}

	var notifier achem.Notifier

	switch req.Type {
	case "webhook":
		url, ok := req.Config["url"].(string)
		if !ok || url == "" {
			http.Error(w, "webhook URL is required", http.StatusBadRequest)
			return
		}
		wh := achemnotifiers.NewWebhookNotifier(req.ID, url)

		if headers, ok := req.Config["headers"].(map[string]any); ok {
			for k, v := range headers {
				if vStr, ok := v.(string); ok {
					wh.SetHeader(k, vStr)
				}
			}
		}
		if summary, ok := req.Config["summary"].(bool); ok {
			wh.SetSummary(summary)
		}

		notifier = wh
	default:
		http.Error(w, "unknown notifier type: "+req.Type, http.StatusBadRequest)
		return
	}

	if err := s.notifiers.RegisterNotifier(notifier); err != nil {
		http.Error(w, "cannot register notifier: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.logger.Infof("Notifier registered: id=%s type=%s", req.ID, req.Type)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("notifier registered"))
}

// DELETE /notifiers/{id}
// Unregister a notifier
func (s *Server) handleUnregisterNotifier(w http.ResponseWriter, r *http.Request) {
	notifierID := strings.TrimPrefix(r.URL.Path, "/notifiers/")
	if notifierID == "" {
		http.Error(w, "notifier ID is required", http.StatusBadRequest)
		return
	}
	if notifierID == streamNotifierID {
		http.Error(w, "the stream notifier cannot be removed", http.StatusBadRequest)
		return
	}

	if err := s.notifiers.UnregisterNotifier(notifierID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("notifier unregistered"))
}
