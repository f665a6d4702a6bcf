package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"quadc/pkg/compiler"
)

var genSymbols string

var GenCmd = &cobra.Command{
	Use:   "gen [quads.txt]",
	Short: "Generate assembly from the quadruple listing",
	Long: `gen reads quads.txt and symbol_table.json from the output directory,
or the given quadruple listing and --symbols dump, and writes
object_code.asm to the output directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE:  genRun,
}

func init() {
	GenCmd.Flags().StringVar(&genSymbols, "symbols", "", "read the symbol table dump from this file instead of the output directory")
}

func genRun(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		if err := importArtifact(st, compiler.QuadsFile, args[0]); err != nil {
			return err
		}
	}
	if genSymbols != "" {
		if err := importArtifact(st, compiler.SymbolsFile, genSymbols); err != nil {
			return err
		}
	}
	logf(cmd, "↪ generating from %s", compiler.QuadsFile)

	if err := compiler.GenStage(st); err != nil {
		return err
	}
	if err := st.PersistTo(outDir); err != nil {
		return fmt.Errorf("persist %s: %w", outDir, err)
	}
	logf(cmd, "✔︎ wrote %s/%s", outDir, compiler.AssemblyFile)
	listArtifacts(cmd, st)
	return nil
}
