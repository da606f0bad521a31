package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/circuit-synth/schsync/internal/config"
	"github.com/circuit-synth/schsync/pkg/circuit"
	"github.com/circuit-synth/schsync/pkg/sync"
)

var (
	syncSchematic  string
	syncConfigPath string
)

var syncCmd = &cobra.Command{
	Use:   "sync <circuit_file>",
	Short: "Synchronize a circuit description into a KiCad schematic",
	Long: `Reconcile a declarative circuit file with a hierarchical KiCad
schematic. If the schematic does not exist yet it is generated fresh;
otherwise matched components and sheets keep their positions and
identity, and only the differences are applied.

The target defaults to the circuit file's name with a .kicad_sch
extension. Every run prints an action summary; removals of target-side
entities are always reported, never silent.`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().StringVarP(&syncSchematic, "schematic", "s", "", "target schematic file (default: <circuit>.kicad_sch)")
	syncCmd.Flags().StringVarP(&syncConfigPath, "config", "c", "", "config file (power net classes, placement grid)")
}

func runSync(cmd *cobra.Command, args []string) error {
	circuitFile := args[0]

	root, err := circuit.ParseFile(circuitFile)
	if err != nil {
		return fmt.Errorf("error parsing circuit: %w", err)
	}

	cfg := config.Default()
	if syncConfigPath != "" {
		cfg, err = config.Load(syncConfigPath)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
	}

	target := syncSchematic
	if target == "" {
		target = strings.TrimSuffix(circuitFile, ".circuit") + ".kicad_sch"
	}

	ctx := sync.NewContext(cfg)
	ctx.Verbose = verbose

	summary, err := sync.Run(ctx, root, target)
	if err != nil {
		return err
	}

	fmt.Print(summary.Format())
	if summary.Clean() {
		fmt.Println("No changes.")
	}
	return nil
}
