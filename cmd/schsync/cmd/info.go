package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/circuit-synth/schsync/pkg/schematic"
)

var infoCmd = &cobra.Command{
	Use:   "info <schematic_file> [component]",
	Short: "Show schematic information",
	Long: `Display information about a KiCad schematic file.

Without component argument: shows schematic summary
With component argument: shows details for that specific component`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	filename := args[0]
	sch, err := schematic.ParseFile(filename)
	if err != nil {
		return fmt.Errorf("error parsing schematic: %w", err)
	}

	if len(args) >= 2 {
		return showComponentDetails(sch, args[1])
	}

	showSchemSummary(sch, filename)
	return nil
}

func showSchemSummary(sch *schematic.Schematic, filename string) {
	fmt.Printf("Schematic: %s\n", filename)
	fmt.Printf("Version: %d\n", sch.Version)
	fmt.Printf("Generator: %s", sch.Generator)
	if sch.GeneratorVer != "" {
		fmt.Printf(" v%s", sch.GeneratorVer)
	}
	fmt.Println()
	fmt.Printf("Paper: %s\n", sch.Paper)
	fmt.Println()

	if sch.TitleBlock.Title != "" || sch.TitleBlock.Revision != "" {
		fmt.Println("Title Block:")
		if sch.TitleBlock.Title != "" {
			fmt.Printf("  Title: %s\n", sch.TitleBlock.Title)
		}
		if sch.TitleBlock.Date != "" {
			fmt.Printf("  Date: %s\n", sch.TitleBlock.Date)
		}
		if sch.TitleBlock.Revision != "" {
			fmt.Printf("  Revision: %s\n", sch.TitleBlock.Revision)
		}
		if sch.TitleBlock.Company != "" {
			fmt.Printf("  Company: %s\n", sch.TitleBlock.Company)
		}
		fmt.Println()
	}

	fmt.Println("Statistics:")
	fmt.Printf("  Components: %d\n", len(sch.Symbols))
	fmt.Printf("  Library symbols: %d\n", len(sch.LibSymbols))
	fmt.Printf("  Wires: %d\n", len(sch.Wires))
	fmt.Printf("  Junctions: %d\n", len(sch.Junctions))
	fmt.Printf("  Labels: %d\n", len(sch.Labels))
	fmt.Printf("  Global labels: %d\n", len(sch.GlobalLabels))
	fmt.Printf("  Hierarchical labels: %d\n", len(sch.HierLabels))
	fmt.Printf("  Sheets: %d\n", len(sch.Sheets))
	fmt.Printf("  No-connects: %d\n", len(sch.NoConnects))
	fmt.Println()

	if len(sch.Symbols) > 0 {
		fmt.Println("Components:")

		byPrefix := make(map[string][]string)
		for i := range sch.Symbols {
			ref := sch.Symbols[i].Reference()
			if ref != "" {
				prefix := refPrefix(ref)
				byPrefix[prefix] = append(byPrefix[prefix], ref)
			}
		}

		var prefixes []string
		for p := range byPrefix {
			prefixes = append(prefixes, p)
		}
		sort.Strings(prefixes)

		for _, prefix := range prefixes {
			refs := byPrefix[prefix]
			sort.Strings(refs)
			fmt.Printf("  %s: %s\n", prefix, strings.Join(refs, ", "))
		}
		fmt.Println()
	}

	if len(sch.Sheets) > 0 {
		fmt.Println("Sheets:")
		for i := range sch.Sheets {
			sh := &sch.Sheets[i]
			fmt.Printf("  %s (%s), %d pins\n", sh.Name, sh.FileName, len(sh.Pins))
		}
	}
}

func showComponentDetails(sch *schematic.Schematic, ref string) error {
	for i := range sch.Symbols {
		sym := &sch.Symbols[i]
		if sym.Reference() != ref {
			continue
		}

		fmt.Printf("Component: %s\n", ref)
		fmt.Printf("  Library: %s\n", sym.LibID)
		fmt.Printf("  Position: (%.2f, %.2f) rotation %g\n", sym.Position.X, sym.Position.Y, float64(sym.Angle))
		fmt.Printf("  UUID: %s\n", sym.UUID)
		for _, prop := range sym.Properties {
			if prop.Key == "Reference" {
				continue
			}
			if prop.Value != "" {
				fmt.Printf("  %s: %s\n", prop.Key, prop.Value)
			}
		}

		if lib := sch.LibSymbol(sym.LibID); lib != nil && len(lib.Pins) > 0 {
			fmt.Println("  Pins:")
			for _, pin := range lib.Pins {
				pos, ok := sch.PinPosition(sym, pin.Number)
				if !ok {
					continue
				}
				fmt.Printf("    %s (%s) at (%.2f, %.2f)\n", pin.Number, pin.Name, pos.X, pos.Y)
			}
		}
		return nil
	}
	return fmt.Errorf("component %s not found", ref)
}

// refPrefix strips the trailing digits from a reference designator.
func refPrefix(ref string) string {
	end := len(ref)
	for end > 0 && ref[end-1] >= '0' && ref[end-1] <= '9' {
		end--
	}
	if end == 0 {
		return ref
	}
	return ref[:end]
}
