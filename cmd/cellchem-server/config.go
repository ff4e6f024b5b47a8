package main

import (
	"flag"
	"log"
	"os"
	"strconv"

	"github.com/daniacca/cellchem/internal/achem"
)

// ServerConfig holds the server configuration
type ServerConfig struct {
	Addr               string
	DefaultEnvID       string
	ConfigFile         string
	SnapshotDir        string
	SnapshotEveryTicks int
	SnapshotFormat     string
	TrajectoryDB       string
	LogLevel           string
}

// configResolver defines how to resolve a single configuration value
type configResolver struct {
	flagName    string
	envVarName  string
	defaultVal  string
	description string
	setter      func(*ServerConfig, string)
}

// loadServerConfig loads server configuration from CLI flags and environment variables.
// Flags win over environment variables, which win over defaults.
func loadServerConfig() ServerConfig {
	cfg := ServerConfig{}

	resolvers := []configResolver{
		{
			flagName:    "addr",
			envVarName:  "CELLCHEM_ADDR",
			defaultVal:  ":8080",
			description: "HTTP listen address (e.g. :8080, 0.0.0.0:8080)",
			setter:      func(c *ServerConfig, v string) { c.Addr = v },
		},
		{
			flagName:    "env-id",
			envVarName:  "CELLCHEM_ENV_ID",
			defaultVal:  "default",
			description: "environment ID used for the startup config file",
			setter:      func(c *ServerConfig, v string) { c.DefaultEnvID = v },
		},
		{
			flagName:    "config-file",
			envVarName:  "CELLCHEM_CONFIG_FILE",
			defaultVal:  "",
			description: "optional simulation config (TOML, or JSON with a .json extension) to load at startup",
			setter:      func(c *ServerConfig, v string) { c.ConfigFile = v },
		},
		{
			flagName:    "snapshot-dir",
			envVarName:  "CELLCHEM_SNAPSHOT_DIR",
			defaultVal:  "./data",
			description: "directory where environment snapshots are stored",
			setter:      func(c *ServerConfig, v string) { c.SnapshotDir = v },
		},
		{
			flagName:    "snapshot-every-ticks",
			envVarName:  "CELLCHEM_SNAPSHOT_EVERY_TICKS",
			defaultVal:  "1000",
			description: "how often to write snapshots (in steps); 0 disables periodic snapshots",
			setter: func(c *ServerConfig, v string) {
				if val, err := strconv.Atoi(v); err == nil && val >= 0 {
					c.SnapshotEveryTicks = val
				} else {
					log.Printf("Invalid value for snapshot-every-ticks: %s, using default 1000", v)
					c.SnapshotEveryTicks = 1000
				}
			},
		},
		{
			flagName:    "snapshot-format",
			envVarName:  "CELLCHEM_SNAPSHOT_FORMAT",
			defaultVal:  "json",
			description: "snapshot encoding: json or cbor",
			setter:      func(c *ServerConfig, v string) { c.SnapshotFormat = v },
		},
		{
			flagName:    "trajectory-db",
			envVarName:  "CELLCHEM_TRAJECTORY_DB",
			defaultVal:  "",
			description: "optional SQLite file recording every step's molecule counts",
			setter:      func(c *ServerConfig, v string) { c.TrajectoryDB = v },
		},
		{
			flagName:    "log-level",
			envVarName:  "CELLCHEM_LOG_LEVEL",
			defaultVal:  "info",
			description: "log level: debug, info, warn, error",
			setter:      func(c *ServerConfig, v string) { c.LogLevel = v },
		},
	}

	flagVars := make(map[string]*string)
	for _, resolver := range resolvers {
		flagVars[resolver.flagName] = flag.String(resolver.flagName, "", resolver.description)
	}

	flag.Parse()

	for _, resolver := range resolvers {
		var value string
		if *flagVars[resolver.flagName] != "" {
			value = *flagVars[resolver.flagName]
		} else if envValue := os.Getenv(resolver.envVarName); envValue != "" {
			value = envValue
		} else {
			value = resolver.defaultVal
		}
		resolver.setter(&cfg, value)
	}

	return cfg
}

// loadInitialConfigFromFile loads and validates a simulation config file.
func loadInitialConfigFromFile(path string) (achem.SimulationConfig, error) {
	cfg, err := achem.LoadSimulationConfig(path)
	if err != nil {
		return achem.SimulationConfig{}, err
	}
	if err := achem.ValidateSimulationConfig(cfg); err != nil {
		return achem.SimulationConfig{}, err
	}
	return cfg, nil
}

// applyInitialConfig loads a config file and installs it as environment envID,
// replacing any environment already registered under that ID.
func applyInitialConfig(srv *Server, path string, envID achem.EnvironmentID) error {
	cfg, err := loadInitialConfigFromFile(path)
	if err != nil {
		return err
	}
	_, _, err = srv.applyConfig(envID, cfg)
	return err
}
