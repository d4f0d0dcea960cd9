package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/joseph-ayodele/pdfjson/internal/app"
	"github.com/joseph-ayodele/pdfjson/internal/common"
	"github.com/joseph-ayodele/pdfjson/internal/export"
	"github.com/joseph-ayodele/pdfjson/internal/ingest"
	"github.com/joseph-ayodele/pdfjson/internal/ocr/tesseract"
	"github.com/joseph-ayodele/pdfjson/internal/output"
	"github.com/joseph-ayodele/pdfjson/internal/pipeline"
	"github.com/joseph-ayodele/pdfjson/internal/schema"
	"github.com/joseph-ayodele/pdfjson/internal/utils"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

type options struct {
	in, out    string
	configPath string
	jsonl      string
	xlsx       string
	watch      string
	dir        string
	verify     bool
	quiet      bool
}

var errColor = color.New(color.FgRed)

func failf(format string, args ...any) {
	_, _ = errColor.Fprintf(os.Stderr, format+"\n", args...)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("pdfjson", flag.ContinueOnError)
	fs.StringVar(&o.in, "in", "", "input PDF (default input.pdf)")
	fs.StringVar(&o.out, "out", "", "output JSON (default output.json)")
	fs.StringVar(&o.configPath, "config", "", "path to YAML config file")
	fs.StringVar(&o.jsonl, "jsonl", "", "also write JSON Lines to this path (any value in -watch/-dir mode writes <name>.jsonl)")
	fs.StringVar(&o.xlsx, "xlsx", "", "also write an XLSX workbook to this path (any value in -watch/-dir mode writes <name>.xlsx)")
	fs.StringVar(&o.watch, "watch", "", "watch a directory and convert PDFs as they appear")
	fs.StringVar(&o.dir, "dir", "", "convert every PDF under a directory and exit")
	fs.BoolVar(&o.verify, "verify", false, "validate written JSON against the output schema")
	fs.BoolVar(&o.quiet, "quiet", false, "disable the progress bar")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if o.watch != "" && o.dir != "" {
		return o, errors.New("-watch and -dir are mutually exclusive")
	}
	return o, nil
}

// applyFlags layers explicit flags over file and environment values.
func applyFlags(cfg *common.Config, o options) {
	if o.in != "" {
		cfg.Input.Path = o.in
	}
	if o.out != "" {
		cfg.Input.Output = o.out
	}
	if o.jsonl != "" {
		cfg.Input.JSONL = o.jsonl
	}
	if o.xlsx != "" {
		cfg.Input.XLSX = o.xlsx
	}
}

func run(args []string) int {
	o, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		failf("%v", err)
		return exitUsage
	}

	cfg, err := common.LoadConfig(o.configPath)
	if err == nil {
		applyFlags(cfg, o)
		err = cfg.Validate()
	}
	if err != nil {
		failf("config: %v", err)
		return exitUsage
	}

	logger := app.NewLogger(os.Stderr, cfg.SlogLevel(), false)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := tesseract.NewEngine(tesseract.Config{Lang: cfg.OCR.Lang, TessdataDir: cfg.OCR.TessdataDir})
	a, err := app.Build(ctx, cfg, engine, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return exitFailure
	}
	defer a.Close()

	switch {
	case o.watch != "":
		return watch(ctx, a, o)
	case o.dir != "":
		return batch(ctx, a, o)
	default:
		return single(ctx, a, o)
	}
}

func single(ctx context.Context, a *app.App, o options) int {
	cfg := a.Config.Input
	a.Driver.Extra = func(string) []output.Sink {
		var sinks []output.Sink
		if cfg.JSONL != "" {
			sinks = append(sinks, output.NewJSONLWriter(cfg.JSONL))
		}
		if cfg.XLSX != "" {
			sinks = append(sinks, export.NewXLSXWriter(cfg.XLSX, a.Logger))
		}
		return sinks
	}
	if !o.quiet {
		a.Driver.Progress = &barProgress{}
	}

	res, err := a.Driver.Run(ctx, cfg.Path, cfg.Output)
	if err != nil {
		failf("✗ %s: %v", cfg.Path, err)
		return exitFailure
	}
	if o.verify && !verify(res) {
		return exitFailure
	}
	color.Green("✓ Wrote %d pages (%d via OCR) to %s", res.Pages, res.OCRPages, res.OutputPath)
	return exitOK
}

func verify(res pipeline.Result) bool {
	n, err := schema.ValidateFile(res.OutputPath)
	if err == nil && n != res.Pages {
		err = fmt.Errorf("document has %d pages, run wrote %d", n, res.Pages)
	}
	if err != nil {
		failf("✗ verify %s: %v", res.OutputPath, err)
		return false
	}
	return true
}

// siblingSinks writes <name>.jsonl / <name>.xlsx next to each output in
// directory modes.
func siblingSinks(a *app.App) pipeline.SinkFactory {
	cfg := a.Config.Input
	return func(out string) []output.Sink {
		var sinks []output.Sink
		if cfg.JSONL != "" {
			sinks = append(sinks, output.NewJSONLWriter(utils.SiblingPath(out, ".jsonl")))
		}
		if cfg.XLSX != "" {
			sinks = append(sinks, export.NewXLSXWriter(utils.SiblingPath(out, ".xlsx"), a.Logger))
		}
		return sinks
	}
}

func report(o options) func(ingest.FileResult) {
	return func(r ingest.FileResult) {
		if r.Err != "" {
			failf("✗ %s: %s", r.Path, r.Err)
			return
		}
		if o.verify && !verify(pipeline.Result{OutputPath: r.Output, Pages: r.Pages}) {
			return
		}
		color.Green("✓ %s -> %s (%d pages, %d via OCR)", r.Path, r.Output, r.Pages, r.OCRPages)
	}
}

func batch(ctx context.Context, a *app.App, o options) int {
	a.Driver.Extra = siblingSinks(a)
	results, stats, err := ingest.NewProcessor(a.Driver, a.Logger).ProcessDirectory(ctx, o.dir, true)
	show := report(o)
	for _, r := range results {
		show(r)
	}
	if err != nil {
		failf("✗ %s: %v", o.dir, err)
		return exitFailure
	}
	color.Cyan("%d converted, %d failed", stats.Succeeded, stats.Failed)
	if stats.Failed > 0 {
		return exitFailure
	}
	return exitOK
}

func watch(ctx context.Context, a *app.App, o options) int {
	a.Driver.Extra = siblingSinks(a)
	color.Cyan("Watching %s (Ctrl+C to stop)", o.watch)
	stats, err := ingest.NewProcessor(a.Driver, a.Logger).Watch(ctx, ingest.WatchConfig{
		Roots:       []string{o.watch},
		InitialScan: true,
		SkipHidden:  true,
	}, report(o))
	if err != nil {
		failf("✗ watch %s: %v", o.watch, err)
		return exitFailure
	}
	color.Cyan("%d converted, %d failed", stats.Succeeded, stats.Failed)
	return exitOK
}
