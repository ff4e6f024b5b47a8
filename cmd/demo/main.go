// Command demo runs a few built-in reaction models and prints how their
// molecule totals evolve.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

func main() {
	var (
		name  = flag.String("model", "all", "model to run: decay, expression, toggle or all")
		steps = flag.Int("steps", 50, "number of steps to run")
		every = flag.Int("every", 10, "print totals every N steps")
		seed  = flag.Int64("seed", 1, "random seed")
	)
	flag.Parse()

	selected := models
	if *name != "all" {
		m, ok := findModel(*name)
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown model %q\n", *name)
			os.Exit(1)
		}
		selected = []model{m}
	}

	for _, m := range selected {
		if err := runModel(os.Stdout, m, *seed, *steps, *every); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", m.name, err)
			os.Exit(1)
		}
	}
}

func runModel(out io.Writer, m model, seed int64, steps, every int) error {
	env, err := m.build(seed)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "== %s: %s\n", m.name, m.description)

	report := func() {
		totals := env.Totals()
		names := make([]string, 0, len(totals))
		for n := range totals {
			names = append(names, n)
		}
		slices.Sort(names)
		var b strings.Builder
		for _, n := range names {
			fmt.Fprintf(&b, " %s=%d", n, totals[n])
		}
		fmt.Fprintf(out, "t=%-6.2f%s\n", env.Time(), b.String())
	}

	report()
	for i := 1; i <= steps; i++ {
		if _, err := env.Step(); err != nil {
			return err
		}
		if every > 0 && i%every == 0 {
			report()
		}
	}
	for _, c := range env.Cells() {
		fmt.Fprintf(out, "  %s: %v\n", c.Name, c.Molecules)
	}
	return nil
}
