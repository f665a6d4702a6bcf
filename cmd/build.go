package cmd

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"quadc/pkg/artifact"
	"quadc/pkg/compiler"
	"quadc/pkg/utils"
)

var jobs int

var BuildCmd = &cobra.Command{
	Use:   "build <file.c>...",
	Short: "Run lex, parse and gen for one or more source files",
	Long: `build runs every stage for each file. With a single file the artifacts
land in the output directory; with several, each file gets its own
subdirectory named after the source file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: buildRun,
}

func init() {
	BuildCmd.Flags().IntVarP(&jobs, "jobs", "j", 4, "number of files compiled concurrently")
}

// buildReport is the outcome of building one source file.
type buildReport struct {
	path   string
	dir    string
	log    bytes.Buffer
	failed bool
}

func buildRun(cmd *cobra.Command, args []string) error {
	reports := make([]*buildReport, len(args))
	for i, path := range args {
		dir := outDir
		if len(args) > 1 {
			_, stem, err := utils.SourceInfo(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			dir = filepath.Join(outDir, stem)
		}
		reports[i] = &buildReport{path: path, dir: dir}
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	g, ctx := errgroup.WithContext(parent)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for _, r := range reports {
		r := r
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return buildOne(r)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for _, r := range reports {
		fmt.Fprint(cmd.ErrOrStderr(), r.log.String())
		if r.failed {
			failed++
			continue
		}
		logf(cmd, "✔︎ %s -> %s", r.path, filepath.Join(r.dir, compiler.AssemblyFile))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d file(s): %w", failed, len(reports), ErrFailed)
	}
	return nil
}

// buildOne compiles a single file through its own artifact store. Only I/O
// and stage failures are returned; diagnostics go to the report.
func buildOne(r *buildReport) error {
	src, err := readSource(r.path)
	if err != nil {
		return fmt.Errorf("%s: %w", r.path, err)
	}
	st := artifact.NewStore()
	lexErrs, diags, err := compiler.Build(st, src)
	if err != nil {
		return fmt.Errorf("%s: %w", r.path, err)
	}
	if err := st.PersistTo(r.dir); err != nil {
		return fmt.Errorf("%s: persist %s: %w", r.path, r.dir, err)
	}
	if len(lexErrs) > 0 || diags.HasErrors() || diags.HasWarnings() {
		fmt.Fprintf(&r.log, "%s:\n", r.path)
	}
	if reportDiagnostics(&r.log, lexErrs, diags) != nil {
		r.failed = true
	}
	return nil
}
