package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"quadc/pkg/compiler"
	"quadc/pkg/quadvm"
)

var (
	runInput    []int
	runMaxSteps int
)

var RunCmd = &cobra.Command{
	Use:   "run <file.c>",
	Short: "Compile a source file and interpret its quadruples",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	RunCmd.Flags().IntSliceVar(&runInput, "input", nil, "values returned by successive read() calls")
	RunCmd.Flags().IntVar(&runMaxSteps, "max-steps", quadvm.DefaultMaxSteps, "abort after this many quadruples")
}

func runRun(cmd *cobra.Command, args []string) error {
	src, err := readSource(args[0])
	if err != nil {
		return err
	}
	res, err := compiler.Compile(src)
	if err != nil {
		return err
	}
	if err := reportDiagnostics(cmd.ErrOrStderr(), res.LexErrors, res.Diags); err != nil {
		return err
	}
	dumpValue(cmd.OutOrStdout(), "quads", res.Quads)

	input := make([]int64, len(runInput))
	for i, v := range runInput {
		input[i] = int64(v)
	}
	m := quadvm.New(res.Quads, res.Symbols, quadvm.Options{Input: input, MaxSteps: runMaxSteps})
	runErr := m.Run()
	for _, v := range m.Output {
		fmt.Fprintln(cmd.OutOrStdout(), v)
	}
	if runErr != nil {
		return fmt.Errorf("run %s: %w", args[0], runErr)
	}
	logf(cmd, "✔︎ %s returned %v after %d quadruples", args[0], m.Return, len(m.Trace))
	return nil
}
