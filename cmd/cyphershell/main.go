// Package main provides the cyphershell CLI entry point: a small harness
// that loads a YAML query-graph fixture (see fixture.go) and either
// prints its plan (explain) or drains it against a fresh in-memory store
// (run). Grounded on the teacher's cmd/nornicdb Cobra wiring, trimmed to
// the two subcommands this engine's scope actually supports — there is
// no server, auth, or import/decay surface here (spec §6: "Persisted
// state: None").
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/orneryd/cypherengine/pkg/engine"
	"github.com/orneryd/cypherengine/pkg/graph"
	"github.com/orneryd/cypherengine/pkg/procedures"
	"github.com/orneryd/cypherengine/pkg/schema"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "cyphershell",
		Short: "Query-graph plan builder and executor",
		Long: `cyphershell builds and runs property-graph query plans from a
YAML-described pattern fixture, since this engine has no Cypher parser of
its own (see SPEC_FULL.md Non-goals) — it plays the role a dispatcher
normally would, handing a pre-built plan to the core engine.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cyphershell v%s\n", version)
		},
	})

	explainCmd := &cobra.Command{
		Use:   "explain [fixture.yaml]",
		Short: "Build a plan from a fixture and print its operator tree",
		Args:  cobra.ExactArgs(1),
		RunE:  runExplain,
	}
	rootCmd.AddCommand(explainCmd)

	runCmd := &cobra.Command{
		Use:   "run [fixture.yaml]",
		Short: "Build and execute a plan from a fixture",
		Args:  cobra.ExactArgs(1),
		RunE:  runExecute,
	}
	runCmd.Flags().String("config", "", "optional engine config YAML (batch size, result cap, timeout)")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runExplain(cmd *cobra.Command, args []string) error {
	reg := schema.NewRegistry()
	store := graph.NewMemoryStore(reg)
	procs := procedures.NewRegistry()
	procedures.RegisterBuiltins(procs, store)

	f, err := LoadFixture(args[0])
	if err != nil {
		return err
	}
	segments := f.Build(reg)

	e := engine.New(store, procs, nil)
	plan, err := e.BuildPlan(segments)
	if err != nil {
		return err
	}
	fmt.Print(engine.ExplainPlan(plan))
	return nil
}

func runExecute(cmd *cobra.Command, args []string) error {
	reg := schema.NewRegistry()
	store := graph.NewMemoryStore(reg)
	procs := procedures.NewRegistry()
	procedures.RegisterBuiltins(procs, store)

	f, err := LoadFixture(args[0])
	if err != nil {
		return err
	}
	segments := f.Build(reg)

	var cfg *engine.Config
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = engine.LoadConfig(path)
		if err != nil {
			return err
		}
	}

	e := engine.New(store, procs, cfg)
	plan, err := e.BuildPlan(segments)
	if err != nil {
		return err
	}
	result, err := e.ExecutePlan(context.Background(), plan, map[string]any{})
	if err != nil {
		return err
	}

	fmt.Println(result.Columns)
	for _, row := range result.Rows {
		fmt.Println(row)
	}
	fmt.Printf("stats: %+v\n", *result.Stats)
	return nil
}
