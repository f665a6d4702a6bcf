package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"quadc/pkg/compiler"
)

var ParseCmd = &cobra.Command{
	Use:   "parse [tokens.txt]",
	Short: "Parse the token listing into quadruples and a symbol table",
	Long: `parse reads tokens.txt from the output directory, or the given token
listing, and writes its results back to the output directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE:  parseRun,
}

func parseRun(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		if err := importArtifact(st, compiler.TokensFile, args[0]); err != nil {
			return err
		}
	}
	if err := invalidate(st, compiler.AssemblyFile); err != nil {
		return err
	}
	logf(cmd, "↪ parsing %s", compiler.TokensFile)

	diags, err := compiler.ParseStage(st)
	if err != nil {
		return err
	}
	if dump {
		raw, err := st.Read(compiler.SymbolsFile)
		if err != nil {
			return err
		}
		symbols, err := compiler.DecodeDump(raw)
		if err != nil {
			return err
		}
		dumpValue(cmd.OutOrStdout(), "symbols", symbols)
	}
	if err := st.PersistTo(outDir); err != nil {
		return fmt.Errorf("persist %s: %w", outDir, err)
	}
	logf(cmd, "✔︎ wrote %s, %s and %s to %s",
		compiler.QuadsFile, compiler.SymbolsFile, compiler.SyntaxErrorsFile, outDir)
	listArtifacts(cmd, st)
	return reportDiagnostics(cmd.ErrOrStderr(), nil, diags)
}
