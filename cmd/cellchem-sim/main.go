package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/daniacca/cellchem/internal/achem"
	"github.com/daniacca/cellchem/internal/trajectory"
)

type options struct {
	configFile     string
	steps          int
	envID          string
	seed           int64
	recordPath     string
	chartPath      string
	chartCell      string
	chartMolecules string
	snapshotDir    string
	snapshotFormat string
	verbose        int
}

func main() {
	var opts options
	flag.StringVar(&opts.configFile, "config", "", "path to simulation config, TOML or .json (required)")
	flag.IntVar(&opts.steps, "steps", 100, "number of steps to run")
	flag.StringVar(&opts.envID, "env-id", "simulation", "environment ID")
	flag.Int64Var(&opts.seed, "seed", 0, "override the config's random seed (0 keeps it)")
	flag.StringVar(&opts.recordPath, "record", "", "record every step's counts to this SQLite file")
	flag.StringVar(&opts.chartPath, "chart", "", "write a PNG chart of the run (implies recording)")
	flag.StringVar(&opts.chartCell, "chart-cell", "", "chart one cell instead of the totals")
	flag.StringVar(&opts.chartMolecules, "chart-molecules", "", "comma separated molecules to chart (default: all)")
	flag.StringVar(&opts.snapshotDir, "snapshot", "", "save the final snapshot into this directory")
	flag.StringVar(&opts.snapshotFormat, "snapshot-format", "json", "snapshot encoding: json or cbor")
	flag.IntVar(&opts.verbose, "v", 0, "log verbosity (1 info, 2 debug)")
	flag.Parse()

	if opts.configFile == "" {
		fmt.Fprintf(os.Stderr, "error: --config is required\n")
		flag.Usage()
		os.Exit(1)
	}

	commonlog.Configure(opts.verbose, nil)
	if err := run(opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options, out io.Writer) error {
	cfg, err := achem.LoadSimulationConfig(opts.configFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.seed != 0 {
		cfg.Seed = opts.seed
	}

	env, err := achem.BuildEnvironmentFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("building environment: %w", err)
	}
	env.SetEnvironmentID(achem.EnvironmentID(opts.envID))
	env.SetLogger(achem.NewCommonLogger("cellchem.sim"))

	var rec *trajectory.Recorder
	recordPath := opts.recordPath
	if recordPath == "" && opts.chartPath != "" {
		recordPath = ":memory:"
	}
	if recordPath != "" {
		rec, err = trajectory.Open(recordPath)
		if err != nil {
			return err
		}
		defer rec.Close()
		env.AddObserver(rec)
	}

	failed := 0
	for i := 0; i < opts.steps; i++ {
		if _, err := env.Step(); err != nil {
			failed++
		}
	}

	printSummary(out, cfg.Name, opts.steps, env)
	if failed > 0 {
		fmt.Fprintf(out, "%d steps reported reaction errors\n", failed)
	}

	if opts.chartPath != "" {
		var molecules []string
		if opts.chartMolecules != "" {
			molecules = strings.Split(opts.chartMolecules, ",")
		}
		f, err := os.Create(opts.chartPath)
		if err != nil {
			return err
		}
		if err := rec.Chart(f, env.ID(), opts.chartCell, molecules); err != nil {
			f.Close()
			return fmt.Errorf("chart: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(out, "chart written to %s\n", opts.chartPath)
	}

	if opts.snapshotDir != "" {
		format, err := achem.ParseSnapshotFormat(opts.snapshotFormat)
		if err != nil {
			return err
		}
		path, err := env.SaveSnapshot(opts.snapshotDir, format)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "snapshot written to %s\n", path)
	}
	return nil
}

func printSummary(out io.Writer, name string, steps int, env *achem.Environment) {
	fmt.Fprintf(out, "Simulation finished (config=%s, steps=%d, time=%g)\n", name, steps, env.Time())

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "cell\tprogram\tmolecules")
	for _, c := range env.Cells() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, c.Program, formatCounts(c.Molecules))
	}
	fmt.Fprintf(tw, "total\t\t%s\n", formatCounts(env.Totals()))
	tw.Flush()
}

// formatCounts renders counts as "A=1 B=2", sorted by molecule
func formatCounts(counts map[string]int) string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	slices.Sort(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, counts[name])
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}
