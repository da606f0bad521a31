package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "schsync",
	Short: "schsync - declarative circuit to KiCad schematic synchronizer",
	Long: `schsync keeps a hierarchical KiCad schematic in step with a
declarative circuit description. Components and sheets carry persistent
identity, so repeated runs preserve manual placement and edit history.

Examples:
  schsync sync board.circuit                 # Sync into board.kicad_sch
  schsync sync board.circuit -s main.kicad_sch
  schsync info main.kicad_sch                # Show schematic summary`,
	Version: "0.3.0",
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
