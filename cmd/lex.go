package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"quadc/pkg/compiler"
)

var LexCmd = &cobra.Command{
	Use:   "lex <file.c>",
	Short: "Tokenize a source file",
	Args:  cobra.ExactArgs(1),
	RunE:  lexRun,
}

func lexRun(cmd *cobra.Command, args []string) error {
	src, err := readSource(args[0])
	if err != nil {
		return err
	}
	logf(cmd, "↪ lexing %s", args[0])

	st, err := openStore()
	if err != nil {
		return err
	}
	// Everything downstream of the token listing is stale now.
	if err := invalidate(st, compiler.QuadsFile, compiler.SymbolsFile, compiler.SyntaxErrorsFile, compiler.AssemblyFile); err != nil {
		return err
	}
	lexErrs, err := compiler.LexStage(st, src)
	if err != nil {
		return err
	}
	if dump {
		tokens, _ := compiler.Tokenize(src)
		dumpValue(cmd.OutOrStdout(), "tokens", tokens)
	}
	if err := st.PersistTo(outDir); err != nil {
		return fmt.Errorf("persist %s: %w", outDir, err)
	}
	logf(cmd, "✔︎ wrote %s and %s to %s", compiler.TokensFile, compiler.LexErrorsFile, outDir)
	listArtifacts(cmd, st)
	return reportDiagnostics(cmd.ErrOrStderr(), lexErrs, nil)
}
