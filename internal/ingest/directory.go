package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/pdfjson/internal/pipeline"
	"github.com/joseph-ayodele/pdfjson/internal/utils"
)

// Converter turns one PDF into its JSON document. *pipeline.Driver satisfies it.
type Converter interface {
	Run(ctx context.Context, in, out string) (pipeline.Result, error)
}

type FileResult struct {
	Path     string
	Output   string
	RunID    string
	Pages    int
	OCRPages int
	Err      string
}

type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Failed    uint32
}

func (s *DirStats) add(r FileResult) {
	s.Matched++
	if r.Err != "" {
		s.Failed++
	} else {
		s.Succeeded++
	}
}

// Processor converts PDFs one at a time, writing <name>.json next to each.
type Processor struct {
	conv   Converter
	logger *slog.Logger
}

func NewProcessor(conv Converter, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{conv: conv, logger: logger}
}

// ProcessPath converts a single PDF. Failures are reported in the result.
func (p *Processor) ProcessPath(ctx context.Context, path string) FileResult {
	out := utils.SiblingPath(path, ".json")
	r := FileResult{Path: path, Output: out}

	res, err := p.conv.Run(ctx, path, out)
	r.RunID = res.RunID.String()
	r.Pages, r.OCRPages = res.Pages, res.OCRPages
	if err != nil {
		r.Err = err.Error()
		p.logger.Error("ingest.file.failed", "path", path, "error", err)
		return r
	}
	p.logger.Info("ingest.file.ok", "path", path, "output", out, "pages", res.Pages)
	return r
}

// ProcessDirectory walks root, skips hidden entries if requested, and converts
// every PDF in walk order. Per-file failures do not stop the walk.
func (p *Processor) ProcessDirectory(ctx context.Context, root string, skipHidden bool) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}

	var results []FileResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil // continue walking
		}
		// skip hidden dirs/files if requested
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !allowed(path) {
			return nil
		}

		r := p.ProcessPath(ctx, path)
		results = append(results, r)
		stats.add(r)
		return nil
	})
	if err != nil {
		return results, stats, err
	}
	p.logger.Info("ingest.directory.done",
		"root", root,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
	)
	return results, stats, nil
}

// Watch converts PDFs as the watcher reports them until ctx is done.
// onResult, if set, sees every outcome.
func (p *Processor) Watch(ctx context.Context, cfg WatchConfig, onResult func(FileResult)) (DirStats, error) {
	var stats DirStats
	events, errs, err := StartWatcher(ctx, cfg, p.logger)
	if err != nil {
		return stats, err
	}
	for events != nil || errs != nil {
		select {
		case path, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			stats.Scanned++
			r := p.ProcessPath(ctx, path)
			stats.add(r)
			if onResult != nil {
				onResult(r)
			}
		case _, ok := <-errs:
			// already logged by the watcher
			if !ok {
				errs = nil
			}
		}
	}
	return stats, nil
}
