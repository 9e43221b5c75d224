// SPDX-License-Identifier: MIT

// Command solarsystem is the CLI host for the six-body symplectic Euler
// integrator example (spec.md §6/§8 item 6): it builds the graph, emits the
// generated Go source via codegen.Emit, and writes it to disk.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/siquus/dac-sub000/codegen"
	"github.com/siquus/dac-sub000/examples/solarsystem"
)

var (
	iterations uint32
	outPath    string
)

var rootCmd = &cobra.Command{
	Use:   "solarsystem",
	Short: "Emit the six-body symplectic Euler integrator as a standalone Go program",
	Long: `solarsystem builds the outer-solar-system N-body graph (Sun plus the
five outer planets, spec.md §8 item 6), advances it one symplectic Euler
step per round for the given iteration count, and writes the emitted Go
source to the given path.`,
	RunE: run,
}

func init() {
	rootCmd.Flags().Uint32VarP(&iterations, "iterations", "i", 1000, "number of integration steps")
	rootCmd.Flags().StringVarP(&outPath, "path", "p", "solarsystem_gen.go", "output path for the generated Go source")
	rootCmd.Example = `  ` + BinName() + ` -i 1000 -p ./out/solarsystem_gen.go`
}

// BinName returns the base name of the current executable, used in Example.
func BinName() string {
	return filepath.Base(os.Args[0])
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := solarsystem.Build(solarsystem.DefaultBodies(), 1.0/365.25, iterations, 0)
	if err != nil {
		return fmt.Errorf("solarsystem: build graph: %w", err)
	}

	src, err := codegen.Emit(cfg)
	if err != nil {
		return fmt.Errorf("solarsystem: emit source: %w", err)
	}

	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("solarsystem: create output dir: %w", err)
		}
	}

	if err := os.WriteFile(outPath, src, 0o644); err != nil {
		return fmt.Errorf("solarsystem: write %s: %w", outPath, err)
	}

	fmt.Printf("wrote %s (%d iterations, %d outputs)\n", outPath, iterations, len(cfg.Outputs))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
