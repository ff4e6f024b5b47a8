package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/daniacca/cellchem/internal/achem"
	"github.com/daniacca/cellchem/internal/trajectory"
)

const decayConfigJSON = `{
	"name": "decay",
	"seed": 7,
	"dt": 1,
	"programs": {"decay": "A > 0.5 > B;"},
	"cells": [{"name": "c1", "program": "decay", "molecules": {"A": 100}}]
}`

const gridConfigJSON = `{
	"name": "secrete",
	"seed": 3,
	"programs": {"sender": "null > 4 > S; S > 1 > env;"},
	"grid": {"width": 4, "height": 4, "signals": [{"name": "S", "diffusion": 0.1}]},
	"cells": [{"name": "s", "program": "sender", "coordinates": [{"x": 1, "y": 1}]}]
}`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv := NewServer(achem.NewNoOpLogger())
	srv.SetSnapshotDir(t.TempDir())
	t.Cleanup(func() { srv.Close() })
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

// loadDecay installs decayConfigJSON as environment "test-env"
func loadDecay(t *testing.T, srv *Server) *achem.Environment {
	t.Helper()
	w := do(t, srv, http.MethodPost, "/env/test-env/config", decayConfigJSON)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	env, ok := srv.manager.GetEnvironment("test-env")
	if !ok {
		t.Fatal("Environment not found")
	}
	return env
}

func TestExtractEnvID(t *testing.T) {
	tests := []struct {
		path     string
		wantID   achem.EnvironmentID
		wantRest string
	}{
		{"/env/abc", "abc", ""},
		{"/env/abc/tick", "abc", "/tick"},
		{"/env/abc/cells/c1/molecules", "abc", "/cells/c1/molecules"},
		{"/envs", "", ""},
		{"/other/abc", "", ""},
	}
	for _, tt := range tests {
		id, rest := extractEnvID(tt.path)
		if id != tt.wantID || rest != tt.wantRest {
			t.Errorf("extractEnvID(%q) = %q, %q; want %q, %q", tt.path, id, rest, tt.wantID, tt.wantRest)
		}
	}
}

func TestExtractCellRef(t *testing.T) {
	tests := []struct {
		path     string
		wantRef  string
		wantTail string
	}{
		{"/cells/c1", "c1", ""},
		{"/cells/c1/molecules", "c1", "/molecules"},
		{"/cells", "", ""},
		{"/tick", "", ""},
	}
	for _, tt := range tests {
		ref, tail := extractCellRef(tt.path)
		if ref != tt.wantRef || tail != tt.wantTail {
			t.Errorf("extractCellRef(%q) = %q, %q; want %q, %q", tt.path, ref, tail, tt.wantRef, tt.wantTail)
		}
	}
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Errorf("Unexpected health response %d %q", w.Code, w.Body.String())
	}
}

func TestServer_HandleConfig_CreateThenReplace(t *testing.T) {
	srv := newTestServer(t)
	env := loadDecay(t, srv)
	if _, err := env.Step(); err != nil {
		t.Fatalf("Step failed: %v", err)
	}

	w := do(t, srv, http.MethodPost, "/env/test-env/config", decayConfigJSON)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on replace, got %d: %s", w.Code, w.Body.String())
	}
	var info environmentResponse
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if info.ID != "test-env" || info.Step != 0 || info.Seed != 7 || info.Cells != 1 {
		t.Errorf("Unexpected environment info: %+v", info)
	}
	if len(info.Programs) != 1 || info.Programs[0] != "decay" {
		t.Errorf("Expected programs [decay], got %v", info.Programs)
	}
}

func TestServer_HandleConfig_TOML(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodPost, "/env/toml-env/config?format=toml", decayTOML)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	env, _ := srv.manager.GetEnvironment("toml-env")
	if c, ok := env.FindCell("c1"); !ok || c.Molecules["A"] != 40 {
		t.Errorf("Expected cell c1 with 40 A, got %+v", c)
	}
}

func TestServer_HandleConfig_Invalid(t *testing.T) {
	srv := newTestServer(t)
	bodies := []string{
		"not json",
		`{"name": "x", "programs": {"p": "A > > B;"}, "cells": []}`,
		`{"name": "x", "programs": {"p": "A > 1 > B;"}, "cells": [{"name": "c", "program": "missing"}]}`,
	}
	for _, body := range bodies {
		w := do(t, srv, http.MethodPost, "/env/bad/config", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400 for %q, got %d", body, w.Code)
		}
	}
	if _, ok := srv.manager.GetEnvironment("bad"); ok {
		t.Error("Invalid config must not create an environment")
	}
}

func TestServer_UnknownEnvironment(t *testing.T) {
	srv := newTestServer(t)
	for _, req := range []struct{ method, path string }{
		{http.MethodGet, "/env/nope"},
		{http.MethodPost, "/env/nope/tick"},
		{http.MethodGet, "/env/nope/cells"},
		{http.MethodPost, "/env/nope/cells/c1/molecules"},
		{http.MethodDelete, "/env/nope"},
	} {
		w := do(t, srv, req.method, req.path, "{}")
		if w.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", req.method, req.path, w.Code)
		}
	}
}

func TestServer_Cells(t *testing.T) {
	srv := newTestServer(t)
	loadDecay(t, srv)

	w := do(t, srv, http.MethodGet, "/env/test-env/cells", "")
	var listed struct {
		Cells []achem.CellState `json:"cells"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("Failed to parse cells: %v", err)
	}
	if len(listed.Cells) != 1 || listed.Cells[0].Name != "c1" {
		t.Fatalf("Unexpected cells %+v", listed.Cells)
	}
	id := string(listed.Cells[0].ID)

	// by ID and by name
	for _, ref := range []string{id, "c1"} {
		w = do(t, srv, http.MethodGet, "/env/test-env/cells/"+ref, "")
		if w.Code != http.StatusOK {
			t.Errorf("GET cell %s: expected 200, got %d", ref, w.Code)
		}
	}

	w = do(t, srv, http.MethodPost, "/env/test-env/cells",
		`{"name": "c2", "program": "decay", "molecules": {"B": 5}}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201 adding cell, got %d: %s", w.Code, w.Body.String())
	}
	var added achem.CellState
	_ = json.Unmarshal(w.Body.Bytes(), &added)
	if added.ID == "" || added.Molecules["B"] != 5 {
		t.Errorf("Unexpected added cell %+v", added)
	}

	w = do(t, srv, http.MethodPost, "/env/test-env/cells", `{"name": "c2", "program": "decay"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 for a duplicate name, got %d", w.Code)
	}
	w = do(t, srv, http.MethodPost, "/env/test-env/cells", `{"name": "c3", "program": "missing"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an unknown program, got %d", w.Code)
	}

	w = do(t, srv, http.MethodDelete, "/env/test-env/cells/c2", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 removing cell, got %d", w.Code)
	}
	w = do(t, srv, http.MethodGet, "/env/test-env/cells/c2", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for removed cell, got %d", w.Code)
	}
}

func TestServer_AddMolecules(t *testing.T) {
	srv := newTestServer(t)
	env := loadDecay(t, srv)

	w := do(t, srv, http.MethodPost, "/env/test-env/cells/c1/molecules", `{"molecule": "X", "delta": 12}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	c, _ := env.FindCell("c1")
	if c.Molecules["X"] != 12 {
		t.Errorf("Expected 12 X, got %d", c.Molecules["X"])
	}

	w = do(t, srv, http.MethodPost, "/env/test-env/cells/c1/molecules", `{"molecule": "X", "delta": -50}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	c, _ = env.FindCell("c1")
	if c.Molecules["X"] != 0 {
		t.Errorf("Expected X clamped to 0, got %d", c.Molecules["X"])
	}

	w = do(t, srv, http.MethodPost, "/env/test-env/cells/c1/molecules", `{"delta": 1}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without a molecule name, got %d", w.Code)
	}
	w = do(t, srv, http.MethodPost, "/env/test-env/cells/ghost/molecules", `{"molecule": "X", "delta": 1}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown cell, got %d", w.Code)
	}
}

func TestServer_TickAndTotals(t *testing.T) {
	srv := newTestServer(t)
	loadDecay(t, srv)

	w := do(t, srv, http.MethodPost, "/env/test-env/tick?steps=3", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Report achem.StepReport `json:"report"`
		Errors []string         `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse tick response: %v", err)
	}
	if resp.Report.Step != 3 || resp.Report.Time != 3 {
		t.Errorf("Expected step 3 at t=3, got %d at %v", resp.Report.Step, resp.Report.Time)
	}
	if len(resp.Errors) != 0 {
		t.Errorf("Unexpected step errors %v", resp.Errors)
	}

	w = do(t, srv, http.MethodGet, "/env/test-env/totals", "")
	var totals map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &totals); err != nil {
		t.Fatalf("Failed to parse totals: %v", err)
	}
	if totals["A"]+totals["B"] != 100 {
		t.Errorf("Expected A+B to stay 100, got %v", totals)
	}

	for _, bad := range []string{"0", "-1", "abc", "10001"} {
		w = do(t, srv, http.MethodPost, "/env/test-env/tick?steps="+bad, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("steps=%s: expected 400, got %d", bad, w.Code)
		}
	}
}

func TestServer_Grid(t *testing.T) {
	srv := newTestServer(t)
	if w := do(t, srv, http.MethodPost, "/env/g/config", gridConfigJSON); w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	do(t, srv, http.MethodPost, "/env/g/tick?steps=5", "")

	w := do(t, srv, http.MethodGet, "/env/g/grid", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var fields map[string][]float64
	if err := json.Unmarshal(w.Body.Bytes(), &fields); err != nil {
		t.Fatalf("Failed to parse grid: %v", err)
	}
	total := 0.0
	for _, v := range fields["S"] {
		total += v
	}
	if len(fields["S"]) != 16 || total <= 0 {
		t.Errorf("Expected 16 S values with exported signal, got %d values totalling %v", len(fields["S"]), total)
	}

	w = do(t, srv, http.MethodGet, "/env/g", "")
	var info environmentResponse
	_ = json.Unmarshal(w.Body.Bytes(), &info)
	if len(info.Signals) != 1 || info.Signals[0] != "S" {
		t.Errorf("Expected signals [S], got %v", info.Signals)
	}

	loadDecay(t, srv)
	if w := do(t, srv, http.MethodGet, "/env/test-env/grid", ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for an environment without grid, got %d", w.Code)
	}
}

func TestServer_GridWhileRunning(t *testing.T) {
	srv := newTestServer(t)
	if w := do(t, srv, http.MethodPost, "/env/g/config", gridConfigJSON); w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if w := do(t, srv, http.MethodPost, "/env/g/start?interval=1", ""); w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	defer do(t, srv, http.MethodPost, "/env/g/stop", "")

	deadline := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(deadline) {
		w := do(t, srv, http.MethodGet, "/env/g/grid", "")
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
	}
}

func TestServer_StartStop(t *testing.T) {
	srv := newTestServer(t)
	env := loadDecay(t, srv)

	if w := do(t, srv, http.MethodPost, "/env/test-env/start?interval=abc", ""); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a bad interval, got %d", w.Code)
	}
	if w := do(t, srv, http.MethodPost, "/env/test-env/start?interval=10", ""); w.Code != http.StatusOK {
		t.Fatalf("Expected 200 on start, got %d", w.Code)
	}
	if !env.IsRunning() {
		t.Error("Expected environment to be running")
	}
	if w := do(t, srv, http.MethodPost, "/env/test-env/stop", ""); w.Code != http.StatusOK {
		t.Fatalf("Expected 200 on stop, got %d", w.Code)
	}
}

func TestServer_ListAndDeleteEnvironments(t *testing.T) {
	srv := newTestServer(t)
	loadDecay(t, srv)
	do(t, srv, http.MethodPost, "/env/another/config", decayConfigJSON)

	w := do(t, srv, http.MethodGet, "/envs", "")
	var listed map[string][]string
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("Failed to parse list: %v", err)
	}
	if got := listed["environments"]; len(got) != 2 || got[0] != "another" || got[1] != "test-env" {
		t.Errorf("Expected [another test-env], got %v", got)
	}

	if w := do(t, srv, http.MethodDelete, "/env/another", ""); w.Code != http.StatusOK {
		t.Errorf("Expected 200 on delete, got %d", w.Code)
	}
	if _, ok := srv.manager.GetEnvironment("another"); ok {
		t.Error("Expected environment to be deleted")
	}
}

func TestServer_HandleSaveSnapshot(t *testing.T) {
	srv := newTestServer(t)
	env := loadDecay(t, srv)
	for i := 0; i < 5; i++ {
		env.Step()
	}

	w := do(t, srv, http.MethodPost, "/env/test-env/snapshot", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response["status"] != "ok" {
		t.Errorf("Expected status 'ok', got '%s'", response["status"])
	}
	expectedPath := filepath.Join(srv.snapshotDir, "test-env.snapshot.json")
	if response["path"] != expectedPath {
		t.Errorf("Expected path %s, got %s", expectedPath, response["path"])
	}

	data, err := os.ReadFile(expectedPath)
	if err != nil {
		t.Fatalf("Failed to read snapshot file: %v", err)
	}
	snapshot, err := achem.DecodeSnapshotJSON(data)
	if err != nil {
		t.Fatalf("Failed to decode snapshot: %v", err)
	}
	if snapshot.EnvironmentID != "test-env" || snapshot.Step != 5 || len(snapshot.Cells) != 1 {
		t.Errorf("Unexpected snapshot %+v", snapshot)
	}
}

func TestServer_HandleGetSnapshot(t *testing.T) {
	srv := newTestServer(t)
	loadDecay(t, srv)

	if w := do(t, srv, http.MethodGet, "/env/test-env/snapshot", ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 before any snapshot was saved, got %d", w.Code)
	}

	do(t, srv, http.MethodPost, "/env/test-env/snapshot?format=cbor", "")
	w := do(t, srv, http.MethodGet, "/env/test-env/snapshot?format=cbor", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/cbor" {
		t.Errorf("Expected application/cbor, got %s", ct)
	}
	if _, err := achem.DecodeSnapshotCBOR(w.Body.Bytes()); err != nil {
		t.Errorf("Expected a CBOR snapshot, got %v", err)
	}

	w = do(t, srv, http.MethodGet, "/env/test-env/snapshot?live=true", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for live snapshot, got %d", w.Code)
	}
	if w = do(t, srv, http.MethodGet, "/env/test-env/snapshot?format=xml", ""); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown format, got %d", w.Code)
	}
}

func TestServer_SnapshotDirNotConfigured(t *testing.T) {
	srv := NewServer(achem.NewNoOpLogger())
	defer srv.Close()
	loadDecay(t, srv)

	if w := do(t, srv, http.MethodPost, "/env/test-env/snapshot", ""); w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d: %s", w.Code, w.Body.String())
	}
	if w := do(t, srv, http.MethodGet, "/env/test-env/snapshot", ""); w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
}

func TestServer_Restore(t *testing.T) {
	srv := newTestServer(t)
	env := loadDecay(t, srv)
	env.Step()
	env.Step()

	w := do(t, srv, http.MethodGet, "/env/test-env/snapshot?live=true", "")
	saved := w.Body.String()
	expected := env.Cells()[0].Molecules

	for i := 0; i < 5; i++ {
		env.Step()
	}

	w = do(t, srv, http.MethodPost, "/env/test-env/restore", saved)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if env.Steps() != 2 {
		t.Errorf("Expected step 2 after restore, got %d", env.Steps())
	}
	got := env.Cells()[0].Molecules
	if got["A"] != expected["A"] || got["B"] != expected["B"] {
		t.Errorf("Expected counts %v after restore, got %v", expected, got)
	}

	// empty body restores the saved file
	do(t, srv, http.MethodPost, "/env/test-env/snapshot", "")
	env.Step()
	if w = do(t, srv, http.MethodPost, "/env/test-env/restore", ""); w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 restoring from file, got %d: %s", w.Code, w.Body.String())
	}
	if env.Steps() != 2 {
		t.Errorf("Expected step 2 after file restore, got %d", env.Steps())
	}

	if w = do(t, srv, http.MethodPost, "/env/test-env/restore", "{bad"); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a malformed snapshot, got %d", w.Code)
	}
	bad := `{"environment_id": "test-env", "cells": [{"id": "x", "program": "missing"}]}`
	if w = do(t, srv, http.MethodPost, "/env/test-env/restore", bad); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an invalid snapshot, got %d", w.Code)
	}
}

func TestServer_PeriodicSnapshots(t *testing.T) {
	srv := newTestServer(t)
	srv.SetSnapshotEveryTicks(2)
	loadDecay(t, srv)

	do(t, srv, http.MethodPost, "/env/test-env/tick?steps=3", "")

	snap, err := achem.LoadSnapshotFile(achem.SnapshotPath(srv.snapshotDir, "test-env", achem.SnapshotJSON))
	if err != nil {
		t.Fatalf("Expected a periodic snapshot, got %v", err)
	}
	if snap.Step != 2 {
		t.Errorf("Expected snapshot of step 2, got %d", snap.Step)
	}
}

func TestServer_Trajectory(t *testing.T) {
	srv := newTestServer(t)
	loadDecay(t, srv)

	if w := do(t, srv, http.MethodGet, "/env/test-env/trajectory?molecule=A", ""); w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 without a recorder, got %d", w.Code)
	}

	rec, err := trajectory.Open(":memory:")
	if err != nil {
		t.Fatalf("trajectory.Open failed: %v", err)
	}
	srv.SetRecorder(rec)
	// the recorder only observes environments created after it is set
	if w := do(t, srv, http.MethodPost, "/env/test-env/config", decayConfigJSON); w.Code != http.StatusOK {
		t.Fatalf("Expected 200 on replace, got %d", w.Code)
	}
	do(t, srv, http.MethodPost, "/env/test-env/tick?steps=4", "")

	w := do(t, srv, http.MethodGet, "/env/test-env/trajectory?molecule=A&cell=c1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Molecule string             `json:"molecule"`
		Points   []trajectory.Point `json:"points"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse trajectory: %v", err)
	}
	if len(resp.Points) != 4 {
		t.Errorf("Expected 4 points, got %d", len(resp.Points))
	}

	if w = do(t, srv, http.MethodGet, "/env/test-env/trajectory", ""); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without molecule, got %d", w.Code)
	}

	w = do(t, srv, http.MethodGet, "/env/test-env/chart?molecules=A,B", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for chart, got %d: %s", w.Code, w.Body.String())
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("Expected PNG chart")
	}
}

func TestServer_Notifiers(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/notifiers",
		`{"type": "webhook", "id": "hook", "config": {"url": "http://127.0.0.1:1/hook", "summary": true, "headers": {"X-Token": "t"}}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, srv, http.MethodGet, "/notifiers", "")
	var listed struct {
		Notifiers []map[string]string `json:"notifiers"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("Failed to parse notifiers: %v", err)
	}
	if len(listed.Notifiers) != 2 ||
		listed.Notifiers[0]["id"] != "hook" || listed.Notifiers[0]["type"] != "webhook" ||
		listed.Notifiers[1]["id"] != "stream" || listed.Notifiers[1]["type"] != "websocket" {
		t.Errorf("Unexpected notifiers %v", listed.Notifiers)
	}

	for _, body := range []string{
		`{"type": "webhook", "id": "hook", "config": {"url": "http://x"}}`,
		`{"type": "webhook", "id": "nourl", "config": {}}`,
		`{"type": "pigeon", "id": "p"}`,
		`{"type": "webhook", "config": {"url": "http://x"}}`,
	} {
		if w := do(t, srv, http.MethodPost, "/notifiers", body); w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for %s, got %d", body, w.Code)
		}
	}

	if w := do(t, srv, http.MethodDelete, "/notifiers/stream", ""); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 deleting the stream notifier, got %d", w.Code)
	}
	if w := do(t, srv, http.MethodDelete, "/notifiers/hook", ""); w.Code != http.StatusOK {
		t.Errorf("Expected 200 deleting hook, got %d", w.Code)
	}
	if w := do(t, srv, http.MethodDelete, "/notifiers/hook", ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 deleting hook twice, got %d", w.Code)
	}
}
