// Command luadox generates an HTML documentation site from documentation
// comments in Lua source files.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"luadox/internal/config"
	"luadox/internal/crawl"
	"luadox/internal/diag"
	"luadox/internal/parse"
	"luadox/internal/render"
	"luadox/internal/resolve"
)

const version = "1.0.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configPath string
	name       string
	hometext   string
	outdir     string
	manual     []string
	css        string
	favicon    string
	nofollow   bool
	strict     bool
	verbose    bool
}

// run is the testable entry point: it wires the CLI to the pipeline and
// returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "luadox [flags] [[MODNAME=]PATH ...]",
		Short:         "Generate HTML documentation from Lua source comments",
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, files []string) error {
			return generate(opts, files, stdout, stderr)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "config file (default luadox.conf if present)")
	f.StringVarP(&opts.name, "name", "n", "", "project name shown in page titles")
	f.StringVar(&opts.hometext, "hometext", "", "markdown for the landing page")
	f.StringVarP(&opts.outdir, "outdir", "o", "", "output directory (default out)")
	f.StringArrayVarP(&opts.manual, "manual", "m", nil, "manual page as id=file.md (repeatable)")
	f.StringVar(&opts.css, "css", "", "custom stylesheet copied into the output")
	f.StringVar(&opts.favicon, "favicon", "", "favicon copied into the output")
	f.BoolVar(&opts.nofollow, "nofollow", false, "do not follow require() statements")
	f.BoolVar(&opts.strict, "strict", false, "exit non-zero when warnings were emitted")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log progress for every file and page")

	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func generate(opts *options, files []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	applyFlags(cfg, opts)

	specs := append(append([]string{}, cfg.Project.Files...), files...)
	if len(specs) == 0 && len(cfg.Manual) == 0 {
		return fmt.Errorf("no input files; pass [MODNAME=]PATH arguments or set files in %s", config.DefaultFile)
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelInfo
	}
	sink := diag.NewSink(diag.NewLogger(stderr, level))

	p := parse.New(sink)
	c := crawl.New(sink)
	var queue []crawl.File
	for _, spec := range specs {
		found, err := c.Add(spec)
		if err != nil {
			return err
		}
		queue = append(queue, found...)
	}
	for i := 0; i < len(queue); i++ {
		f := queue[i]
		sink.Infof("parsing %s", f.Path)
		requires, err := p.ParseFile(f.Path, f.Alias)
		if err != nil {
			sink.Warnf(diag.Crawl, f.Path, 0, "could not read file: %v", err)
			continue
		}
		if !cfg.Project.Follow {
			continue
		}
		for _, mod := range requires {
			if next, ok := c.Require(mod); ok {
				queue = append(queue, next)
			}
		}
	}
	for _, page := range cfg.Manual {
		sink.Infof("parsing manual page %s", page.Path)
		if _, err := p.ParseManualFile(page.ID, page.Path); err != nil {
			return fmt.Errorf("manual page %s: %w", page.ID, err)
		}
	}
	if len(p.Tops) == 0 {
		return fmt.Errorf("no documented elements found in %d file(s)", len(queue))
	}

	res := resolve.New(sink, p)
	r := render.New(sink, p, res, cfg)
	if err := r.WriteSite(cfg.Project.OutDir); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "generated documentation in %s from %d file(s)\n", cfg.Project.OutDir, len(queue))
	if n := sink.Count(); n > 0 {
		fmt.Fprintf(stdout, "%d warning(s) emitted\n", n)
		if opts.strict {
			return fmt.Errorf("%d warning(s) with --strict", n)
		}
	}
	return nil
}

// applyFlags overlays CLI flags on the file config. Flags win.
func applyFlags(cfg *config.Config, opts *options) {
	if opts.name != "" {
		cfg.Project.Name = opts.name
	}
	if opts.hometext != "" {
		cfg.Project.HomeText = opts.hometext
	}
	if opts.outdir != "" {
		cfg.Project.OutDir = opts.outdir
	}
	if opts.css != "" {
		cfg.Project.CSS = opts.css
	}
	if opts.favicon != "" {
		cfg.Project.Favicon = opts.favicon
	}
	if opts.nofollow {
		cfg.Project.Follow = false
	}
	for _, m := range opts.manual {
		id, path, ok := strings.Cut(m, "=")
		if !ok || id == "" || path == "" {
			continue
		}
		replaced := false
		for i, page := range cfg.Manual {
			if page.ID == id {
				cfg.Manual[i].Path = path
				replaced = true
				break
			}
		}
		if !replaced {
			cfg.Manual = append(cfg.Manual, config.Page{ID: id, Path: path})
		}
	}
}
