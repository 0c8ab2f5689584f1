package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/svg2avd/pkg/pipeline"

	errs "github.com/matzehuels/svg2avd/pkg/errors"
)

// convertOpts holds the flags of the convert command.
type convertOpts struct {
	output      string
	concurrency int
	noCache     bool
	refresh     bool
	progress    bool
	stdout      bool
}

// convertCommand creates the convert command.
func (c *CLI) convertCommand() *cobra.Command {
	var opts convertOpts

	cmd := &cobra.Command{
		Use:   "convert <file.svg|dir>...",
		Short: "Convert SVG files to Android vector drawables",
		Long: `Convert SVG files to Android Vector Drawable XML.

Directories are searched recursively for .svg files. Each result is written
to the output directory as an Android resource name (Arrow-Left.svg becomes
arrow_left.xml). Conversions that report warnings, such as unsupported
gradients, are treated as failures.`,
		Example: `  svg2avd convert icons/ -o app/src/main/res/drawable
  svg2avd convert arrow.svg --stdout`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConvert(cmd.Context(), args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", ".", "output directory")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "j", 0, "conversions in flight (default from config)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the artifact cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "convert again even if cached")
	cmd.Flags().BoolVar(&opts.progress, "progress", false, "show an interactive progress view")
	cmd.Flags().BoolVar(&opts.stdout, "stdout", false, "write a single result to stdout")

	return cmd
}

func (c *CLI) runConvert(ctx context.Context, args []string, opts convertOpts) error {
	paths, err := collectSources(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errs.New(errs.ErrCodeInvalidInput, "no .svg files found")
	}
	if opts.stdout && len(paths) != 1 {
		return errs.New(errs.ErrCodeInvalidInput, "--stdout needs exactly one file, got %d", len(paths))
	}
	if !opts.stdout {
		if err := os.MkdirAll(opts.output, 0o755); err != nil {
			return errs.Wrap(errs.ErrCodeIO, err, "create output directory")
		}
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if opts.concurrency <= 0 {
		opts.concurrency = cfg.Batch.Concurrency
	}

	spinner := newSpinner(ctx, os.Stderr, "Starting render session...")
	spinner.Start()
	conv, err := c.openSession(ctx, cfg)
	if err != nil {
		spinner.StopWithError("Render session failed to start")
		return err
	}
	spinner.StopWithSuccess("Render session ready")
	defer conv.End()

	runner, err := c.newRunner(ctx, cfg, conv, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()
	runner.Refresh = opts.refresh

	prog := newProgress(c.Logger)
	var results []*pipeline.Result
	if opts.progress {
		results, err = runWithProgress(ctx, runner, paths, opts.concurrency)
	} else {
		results, err = runner.ConvertAll(ctx, paths, opts.concurrency)
	}
	if err != nil {
		return err
	}

	if opts.stdout {
		res := results[0]
		if res.Err != nil {
			return res.Err
		}
		fmt.Println(res.Code)
		return nil
	}

	summary := writeResults(results, opts.output)
	prog.done(fmt.Sprintf("converted %d of %d files", summary.converted, len(results)))
	printSummary(results, summary)

	if summary.failed > 0 {
		return fmt.Errorf("%d of %d conversions failed", summary.failed, len(results))
	}
	return nil
}

// convertSummary counts the outcomes of a batch.
type convertSummary struct {
	converted int
	cached    int
	failed    int
	outputs   map[string]string // source -> written file
}

// writeResults writes every successful result to dir. Sources whose
// resource names collide with an earlier source fail instead of overwriting
// its output.
func writeResults(results []*pipeline.Result, dir string) convertSummary {
	s := convertSummary{outputs: make(map[string]string)}
	owners := make(map[string]string) // output name -> source
	for _, res := range results {
		if res.Err != nil {
			s.failed++
			continue
		}
		name := pipeline.OutputName(res.Source)
		if prev, ok := owners[name]; ok {
			res.Err = errs.New(errs.ErrCodeInvalidInput, "output name %s already used by %s", name, prev)
			s.failed++
			continue
		}
		owners[name] = res.Source
		out := filepath.Join(dir, name)
		if err := os.WriteFile(out, []byte(res.Code), 0o644); err != nil {
			res.Err = errs.Wrap(errs.ErrCodeIO, err, "write %s", out)
			s.failed++
			continue
		}
		s.converted++
		if res.Cached {
			s.cached++
		}
		s.outputs[res.Source] = out
	}
	return s
}

// collectSources expands directories into the .svg files below them and
// validates every path.
func collectSources(args []string) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)
	add := func(p string) error {
		if err := errs.ValidateSourcePath(p); err != nil {
			return err
		}
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
		return nil
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			// Missing files are reported per file by the runner.
			if err := add(arg); err != nil {
				return nil, err
			}
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".svg") {
				return nil
			}
			return add(path)
		})
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeIO, err, "scan %s", arg)
		}
	}
	return paths, nil
}
