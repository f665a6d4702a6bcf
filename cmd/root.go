package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sanity-io/litter"
	"github.com/spf13/cobra"

	"quadc/pkg/artifact"
	"quadc/pkg/compiler"
)

// ErrFailed is returned when a stage reported error-level diagnostics.
var ErrFailed = errors.New("compilation failed")

var (
	outDir  string
	dump    bool
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "quadc",
	Short: "quadc: staged compiler from a C subset to 8086 assembly",
	Long: `quadc compiles a small C-like teaching language in three stages, each
reading the artifacts the previous stage wrote to the output directory.

Commands:
  lex    Tokenize a source file (tokens.txt, lex_errors.txt)
  parse  Analyse tokens.txt (quads.txt, symbol_table.json, syntax_errors.txt)
  gen    Lower quads.txt to assembly (object_code.asm)
  build  Run all three stages for one or more source files
  run    Compile a source file and interpret its quadruples
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outDir, "out", "o", "out", "output directory for stage artifacts")
	rootCmd.PersistentFlags().BoolVar(&dump, "dump", false, "pretty-print stage data structures")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "report per-stage progress")

	rootCmd.AddCommand(LexCmd, ParseCmd, GenCmd, BuildCmd, RunCmd)
}

// logf reports progress on stderr when --verbose is set.
func logf(cmd *cobra.Command, format string, args ...any) {
	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
	}
}

// dumpValue pretty-prints v when --dump is set.
func dumpValue(w io.Writer, label string, v any) {
	if !dump {
		return
	}
	fmt.Fprintf(w, "%s:\n%s\n", label, litter.Sdump(v))
}

// openStore loads the artifacts already present in the output directory.
func openStore() (*artifact.Store, error) {
	st := artifact.NewStore()
	if err := st.LoadFrom(outDir); err != nil {
		return nil, fmt.Errorf("load %s: %w", outDir, err)
	}
	return st, nil
}

// invalidate drops the given artifacts, if present, so a rerun of an early
// stage does not leave stale output of a later one behind.
func invalidate(st *artifact.Store, names ...string) error {
	for _, name := range names {
		if err := st.Delete(name); err != nil && !errors.Is(err, artifact.ErrNotFound) {
			return fmt.Errorf("delete %s: %w", name, err)
		}
	}
	return nil
}

// listArtifacts logs the content of st when --verbose is set.
func listArtifacts(cmd *cobra.Command, st *artifact.Store) {
	if !verbose {
		return
	}
	for _, name := range st.List() {
		size, err := st.Size(name)
		if err != nil {
			continue
		}
		mod, _ := st.ModTime(name)
		logf(cmd, "  %-18s %7d bytes  %s", name, size, mod.Format("2006-01-02 15:04:05"))
	}
	logf(cmd, "  %d bytes total", st.Used())
}

// importArtifact copies a host file into st under the given artifact name.
func importArtifact(st *artifact.Store, name, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read error: %w", err)
	}
	if err := st.Write(name, data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read error: %w", err)
	}
	return string(data), nil
}

// reportDiagnostics prints lexical errors and parser diagnostics and
// returns ErrFailed if any of them is an error.
func reportDiagnostics(w io.Writer, lexErrs []compiler.LexError, diags *compiler.Diagnostics) error {
	fmt.Fprint(w, compiler.FormatLexErrors(lexErrs))
	if diags != nil {
		fmt.Fprint(w, compiler.FormatDiagnostics(diags.Items()))
	}
	if len(lexErrs) > 0 || (diags != nil && diags.HasErrors()) {
		return ErrFailed
	}
	return nil
}
