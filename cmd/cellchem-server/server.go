package main

import (
	"errors"
	"net/http"

	"github.com/daniacca/cellchem/internal/achem"
	achemnotifiers "github.com/daniacca/cellchem/internal/achem/notifiers"
	"github.com/daniacca/cellchem/internal/trajectory"
)

// streamNotifierID is the websocket notifier every server registers; clients
// connect to it at /ws.
const streamNotifierID = "stream"

// Server represents the HTTP server for cellchem
type Server struct {
	manager        *achem.EnvironmentManager
	notifiers      *achem.NotificationManager
	stream         *achemnotifiers.WebSocketNotifier
	recorder       *trajectory.Recorder
	snapshotDir    string
	snapshotEvery  int64
	snapshotFormat achem.SnapshotFormat
	logger         achem.Logger
}

// NewServer creates a new server instance
func NewServer(logger achem.Logger) *Server {
	nm := achem.NewNotificationManager()
	nm.SetLogger(logger)

	stream := achemnotifiers.NewWebSocketNotifier(streamNotifierID)
	if err := nm.RegisterNotifier(stream); err != nil {
		logger.Errorf("cannot register stream notifier: %v", err)
	}

	return &Server{
		manager:        achem.NewEnvironmentManager(),
		notifiers:      nm,
		stream:         stream,
		snapshotFormat: achem.SnapshotJSON,
		logger:         logger,
	}
}

// SetSnapshotDir sets the snapshot directory for all environments
func (s *Server) SetSnapshotDir(dir string) {
	s.snapshotDir = dir
}

// SetSnapshotEveryTicks sets the periodic snapshot frequency for
// environments created from now on
func (s *Server) SetSnapshotEveryTicks(ticks int) {
	s.snapshotEvery = int64(ticks)
}

// SetSnapshotFormat sets the encoding of snapshot files
func (s *Server) SetSnapshotFormat(format achem.SnapshotFormat) {
	s.snapshotFormat = format
}

// SetRecorder makes every environment created from now on record its steps
func (s *Server) SetRecorder(r *trajectory.Recorder) {
	s.recorder = r
}

// applyConfig builds an environment from cfg and registers it under envID,
// replacing (and stopping) any previous one. It reports whether the
// environment is new.
func (s *Server) applyConfig(envID achem.EnvironmentID, cfg achem.SimulationConfig) (*achem.Environment, bool, error) {
	env, err := achem.BuildEnvironmentFromConfig(cfg)
	if err != nil {
		return nil, false, err
	}
	env.SetLogger(s.logger)

	notify := achem.NotificationConfig{}
	if cfg.Notify != nil {
		notify = *cfg.Notify
	}
	env.SetNotificationManager(s.notifiers, notify)

	if s.snapshotDir != "" && s.snapshotEvery > 0 {
		env.AddObserver(achem.NewSnapshotSaver(env, s.snapshotDir, s.snapshotFormat, s.snapshotEvery))
	}
	if s.recorder != nil {
		env.AddObserver(s.recorder)
	}

	_, existed := s.manager.GetEnvironment(envID)
	s.manager.ReplaceEnvironment(envID, env)
	return env, !existed, nil
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/envs", s.handleListEnvironments)
	mux.HandleFunc("/env/", s.handleEnvironmentRoutes)
	mux.HandleFunc("/notifiers", s.handleNotifiersRoutes)
	mux.HandleFunc("/notifiers/", s.handleNotifiersRoutes)
	mux.Handle("/ws", s.stream)
	return mux
}

// Close stops every environment and releases notifiers and the recorder.
func (s *Server) Close() error {
	s.manager.StopAll()
	var errs []error
	if err := s.notifiers.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.recorder != nil {
		if err := s.recorder.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
