package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/daniacca/cellchem/internal/achem"
)

func TestProgramBuilder(t *testing.T) {
	src := NewProgram().
		Comment("decay").
		React([]string{"A"}, "0.5", []string{"B"}).
		React(nil, "k", []string{"A"}).
		React([]string{"A", "B"}, "1", nil).
		Build()

	want := "# decay\nA > 0.5 > B;\nnull > k > A;\nA + B > 1 > null;\n"
	if src != want {
		t.Errorf("Expected source:\n%s\ngot:\n%s", want, src)
	}
}

func TestProgramBuilder_Reversible(t *testing.T) {
	src := NewProgram().Reversible([]string{"A", "B"}, "kf", "kb", []string{"C"}).Build()
	if src != "A + B < kb, kf > C;\n" {
		t.Errorf("Unexpected reversible source %q", src)
	}
}

func TestProgramBuilder_ExportImport(t *testing.T) {
	src := NewProgram().Export("S", "1").Import("S", "0.1").Build()
	if src != "S > 1 > env;\nenv > 0.1 > S;\n" {
		t.Errorf("Unexpected exchange source %q", src)
	}
}

func TestProgramBuilder_If(t *testing.T) {
	pb := NewProgram().If("A > 10", func(b *ProgramBuilder) {
		b.React([]string{"A"}, "1", []string{"B"})
	})
	src := pb.Build()

	want := "if A > 10: {\n  A > 1 > B;\n};\n"
	if src != want {
		t.Errorf("Expected source:\n%s\ngot:\n%s", want, src)
	}

	prog, err := pb.Compile(nil)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	stmts := prog.Statements()
	if len(stmts) != 1 {
		t.Fatalf("Expected 1 statement, got %d", len(stmts))
	}
}

func TestProgramBuilder_CompileWithParameters(t *testing.T) {
	pb := NewProgram().React(nil, "k_in", []string{"A"})
	if _, err := pb.Compile(map[string]float64{"k_in": 2}); err != nil {
		t.Errorf("Compile failed: %v", err)
	}

	bad := NewProgram().React([]string{"A"}, "(1", []string{"B"})
	if _, err := bad.Compile(nil); err == nil {
		t.Error("Expected error for an unbalanced rate expression")
	}
}

func TestSignalBuilder(t *testing.T) {
	spec := NewSignal("S").Initial(2).Diffusion(0.5).Decay(0.1).Build()
	if spec.Name != "S" || spec.Initial != 2 || spec.Diffusion != 0.5 || spec.Decay != 0.1 {
		t.Errorf("Unexpected signal spec %+v", spec)
	}
}

func TestCellBuilder(t *testing.T) {
	cfg := NewCell("c1", "decay").Molecule("A", 10).At(1, 2).At(2, 2).Build()

	if cfg.Name != "c1" || cfg.Program != "decay" {
		t.Errorf("Unexpected cell %+v", cfg)
	}
	if cfg.Molecules["A"] != 10 {
		t.Errorf("Expected A=10, got %d", cfg.Molecules["A"])
	}
	if len(cfg.Coordinates) != 2 || cfg.Coordinates[0].X != 1 || cfg.Coordinates[1].X != 2 {
		t.Errorf("Unexpected coordinates %+v", cfg.Coordinates)
	}
}

func TestNotificationBuilder(t *testing.T) {
	cfg := NewNotification().Notifier("hook").Notifiers("stream", "other").Every(5).Quiet(true).Build()

	if !cfg.Enabled {
		t.Error("Expected notifications enabled by default")
	}
	if len(cfg.Notifiers) != 3 || cfg.Notifiers[0] != "hook" {
		t.Errorf("Unexpected notifiers %v", cfg.Notifiers)
	}
	if cfg.Every != 5 || !cfg.Quiet {
		t.Errorf("Expected every=5 quiet=true, got %+v", cfg)
	}

	if NewNotification().Enabled(false).Build().Enabled {
		t.Error("Expected notifications disabled")
	}
}

func quorumConfig() *ConfigBuilder {
	sender := NewProgram().
		React(nil, "k_s", []string{"S"}).
		Export("S", "1")
	receiver := NewProgram().
		Import("S", "0.5").
		If("S > 3", func(b *ProgramBuilder) {
			b.React(nil, "10", []string{"GFP"})
		})

	return NewConfig("quorum").
		Seed(5).
		Dt(0.5).
		Parameter("k_s", 4).
		Program("sender", sender).
		Program("receiver", receiver).
		Grid(4, 4, NewSignal("S").Diffusion(0.2).Decay(0.05)).
		Cell(NewCell("s", "sender").At(0, 0)).
		Cell(NewCell("r", "receiver").At(3, 3))
}

func TestConfigBuilder_Build(t *testing.T) {
	cfg := quorumConfig().Notify(NewNotification().Notifier("stream")).Build()

	if cfg.Name != "quorum" || cfg.Seed != 5 || cfg.Dt != 0.5 {
		t.Errorf("Unexpected config header %+v", cfg)
	}
	if cfg.Parameters["k_s"] != 4 {
		t.Errorf("Expected k_s=4, got %v", cfg.Parameters["k_s"])
	}
	if len(cfg.Programs) != 2 {
		t.Errorf("Expected 2 programs, got %d", len(cfg.Programs))
	}
	if cfg.Grid == nil || cfg.Grid.Width != 4 || len(cfg.Grid.Signals) != 1 {
		t.Errorf("Unexpected grid %+v", cfg.Grid)
	}
	if len(cfg.Cells) != 2 {
		t.Errorf("Expected 2 cells, got %d", len(cfg.Cells))
	}
	if cfg.Notify == nil || cfg.Notify.Notifiers[0] != "stream" {
		t.Errorf("Unexpected notify %+v", cfg.Notify)
	}
}

func TestConfigBuilder_BuildsEnvironment(t *testing.T) {
	env, err := achem.BuildEnvironmentFromConfig(quorumConfig().Build())
	if err != nil {
		t.Fatalf("BuildEnvironmentFromConfig failed: %v", err)
	}
	if len(env.Cells()) != 2 {
		t.Errorf("Expected 2 cells, got %d", len(env.Cells()))
	}
	for i := 0; i < 5; i++ {
		if _, err := env.Step(); err != nil {
			t.Fatalf("Step failed: %v", err)
		}
	}
	if env.Steps() != 5 {
		t.Errorf("Expected 5 steps, got %d", env.Steps())
	}
}

func TestConfigBuilder_NoParameters(t *testing.T) {
	cfg := NewConfig("plain").ProgramSource("p", "A > 1 > B;").Build()
	if cfg.Parameters != nil {
		t.Errorf("Expected nil parameters, got %v", cfg.Parameters)
	}
	if cfg.Programs["p"] != "A > 1 > B;" {
		t.Errorf("Unexpected program source %q", cfg.Programs["p"])
	}
}

// request is what the fake server saw.
type request struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// recorder collects the requests a fake server received.
type recorder struct {
	mu   sync.Mutex
	reqs []request
}

func (r *recorder) requests() []request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.reqs)
}

func fakeServer(t *testing.T, status int, response string) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.reqs = append(rec.reqs, request{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(body)})
		rec.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestApplyConfig(t *testing.T) {
	srv, seen := fakeServer(t, http.StatusCreated, "")

	if err := ApplyConfig(context.Background(), srv.URL, "lab", quorumConfig()); err != nil {
		t.Fatalf("ApplyConfig failed: %v", err)
	}

	req := seen.requests()[0]
	if req.Method != http.MethodPost || req.Path != "/env/lab/config" {
		t.Errorf("Unexpected request %s %s", req.Method, req.Path)
	}
	var cfg achem.SimulationConfig
	if err := json.Unmarshal([]byte(req.Body), &cfg); err != nil {
		t.Fatalf("invalid request body: %v", err)
	}
	if cfg.Name != "quorum" || len(cfg.Cells) != 2 {
		t.Errorf("Unexpected config sent: %+v", cfg)
	}
}

func TestClient_ErrorStatus(t *testing.T) {
	srv, _ := fakeServer(t, http.StatusBadRequest, "invalid config: no programs\n")

	err := New(srv.URL).ApplyConfig(context.Background(), "lab", NewConfig("empty"))
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusBadRequest || se.Message != "invalid config: no programs" {
		t.Errorf("Unexpected status error %+v", se)
	}
}

func TestClient_Tick(t *testing.T) {
	srv, seen := fakeServer(t, http.StatusOK, `{"report":{"step":3,"time":1.5,"cells":[]},"errors":[]}`)

	report, err := New(srv.URL).Tick(context.Background(), "lab", 3)
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if report.Step != 3 || report.Time != 1.5 {
		t.Errorf("Unexpected report %+v", report)
	}
	if req := seen.requests()[0]; req.Path != "/env/lab/tick" || req.Query != "steps=3" {
		t.Errorf("Unexpected request %s?%s", req.Path, req.Query)
	}
}

func TestClient_TickErrors(t *testing.T) {
	srv, _ := fakeServer(t, http.StatusOK, `{"report":{"step":1},"errors":["cell c: boom"]}`)

	_, err := New(srv.URL).Tick(context.Background(), "lab", 1)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("Expected step error, got %v", err)
	}
}

func TestClient_AddMolecules(t *testing.T) {
	srv, seen := fakeServer(t, http.StatusOK, `{"id":"x","name":"c1","program":"p","molecules":{"A":15}}`)

	state, err := New(srv.URL).AddMolecules(context.Background(), "lab", "c1", "A", 5)
	if err != nil {
		t.Fatalf("AddMolecules failed: %v", err)
	}
	if state.Molecules["A"] != 15 {
		t.Errorf("Expected A=15, got %v", state.Molecules)
	}
	req := seen.requests()[0]
	if req.Path != "/env/lab/cells/c1/molecules" {
		t.Errorf("Unexpected path %s", req.Path)
	}
	if !strings.Contains(req.Body, `"delta":5`) {
		t.Errorf("Unexpected body %s", req.Body)
	}
}

func TestClient_Reads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/env/lab/cells":
			_, _ = w.Write([]byte(`{"cells":[{"id":"1","name":"a","program":"p","molecules":{"A":1}}]}`))
		case "/env/lab/totals":
			_, _ = w.Write([]byte(`{"A":1,"B":2}`))
		case "/env/lab/snapshot":
			if r.URL.Query().Get("live") != "true" {
				http.Error(w, "expected live", http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(`{"environment_id":"lab","step":4,"cells":[]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	c := New(srv.URL)
	ctx := context.Background()

	cells, err := c.Cells(ctx, "lab")
	if err != nil || len(cells) != 1 || cells[0].Name != "a" {
		t.Errorf("Cells = %+v, %v", cells, err)
	}
	totals, err := c.Totals(ctx, "lab")
	if err != nil || totals["B"] != 2 {
		t.Errorf("Totals = %v, %v", totals, err)
	}
	snap, err := c.Snapshot(ctx, "lab")
	if err != nil || snap.Step != 4 {
		t.Errorf("Snapshot = %+v, %v", snap, err)
	}
	if _, err := c.Cells(ctx, "missing"); err == nil {
		t.Error("Expected error for unknown environment")
	}
}

func TestClient_Lifecycle(t *testing.T) {
	srv, seen := fakeServer(t, http.StatusOK, `{"status":"ok","path":"/data/lab.snapshot.json"}`)
	c := New(srv.URL)
	ctx := context.Background()

	if err := c.Start(ctx, "lab", 250*time.Millisecond); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := c.Stop(ctx, "lab"); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	path, err := c.SaveSnapshot(ctx, "lab")
	if err != nil || path != "/data/lab.snapshot.json" {
		t.Errorf("SaveSnapshot = %q, %v", path, err)
	}
	if err := c.Restore(ctx, "lab", achem.Snapshot{EnvironmentID: "lab"}); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if err := c.DeleteEnvironment(ctx, "lab"); err != nil {
		t.Fatalf("DeleteEnvironment failed: %v", err)
	}

	want := []request{
		{Method: http.MethodPost, Path: "/env/lab/start", Query: "interval=250"},
		{Method: http.MethodPost, Path: "/env/lab/stop"},
		{Method: http.MethodPost, Path: "/env/lab/snapshot"},
		{Method: http.MethodPost, Path: "/env/lab/restore", Query: "format=json"},
		{Method: http.MethodDelete, Path: "/env/lab"},
	}
	reqs := seen.requests()
	if len(reqs) != len(want) {
		t.Fatalf("Expected %d requests, got %d", len(want), len(reqs))
	}
	for i, w := range want {
		got := reqs[i]
		if got.Method != w.Method || got.Path != w.Path || got.Query != w.Query {
			t.Errorf("request %d = %s %s?%s, want %s %s?%s", i, got.Method, got.Path, got.Query, w.Method, w.Path, w.Query)
		}
	}
}

func TestClient_RegisterWebhook(t *testing.T) {
	srv, seen := fakeServer(t, http.StatusOK, "notifier registered")

	if err := New(srv.URL).RegisterWebhook(context.Background(), "hook", "http://example.invalid/x", true); err != nil {
		t.Fatalf("RegisterWebhook failed: %v", err)
	}

	var body struct {
		Type   string         `json:"type"`
		ID     string         `json:"id"`
		Config map[string]any `json:"config"`
	}
	req := seen.requests()[0]
	if req.Path != "/notifiers" {
		t.Errorf("Unexpected path %s", req.Path)
	}
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body.Type != "webhook" || body.ID != "hook" || body.Config["summary"] != true {
		t.Errorf("Unexpected body %+v", body)
	}
}
