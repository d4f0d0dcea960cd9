// Package app wires configuration into the extraction driver and its optional ledger.
package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/joseph-ayodele/pdfjson/internal/common"
	"github.com/joseph-ayodele/pdfjson/internal/ocr"
	"github.com/joseph-ayodele/pdfjson/internal/pdf"
	"github.com/joseph-ayodele/pdfjson/internal/pipeline"
	"github.com/joseph-ayodele/pdfjson/internal/repository"
)

type App struct {
	Config *common.Config
	Driver *pipeline.Driver
	OCR    *ocr.Extractor
	DB     *repository.DB // nil when the ledger is disabled
	Runs   repository.RunRepository
	Logger *slog.Logger
}

// NewLogger builds the process logger. Daemons log JSON, the CLI logs text.
func NewLogger(w io.Writer, level slog.Level, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func LedgerConfig(cfg common.LedgerConfig) repository.Config {
	return repository.Config{
		DSN:             cfg.DSN,
		MaxConns:        cfg.MaxConns,
		MinConns:        cfg.MinConns,
		MaxConnLifetime: cfg.MaxConnLifetime,
		MaxConnIdleTime: cfg.MaxConnIdleTime,
		DialTimeout:     cfg.DialTimeout,
	}
}

// Build assembles the driver around the given recognition engine. The ledger
// is opened only when a DSN is configured.
func Build(ctx context.Context, cfg *common.Config, engine ocr.Recognizer, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}
	a.OCR = ocr.NewExtractor(ocr.Config{Pdftoppm: cfg.OCR.Pdftoppm}, engine, logger)
	a.Driver = pipeline.NewDriver(pdf.OpenDocument, a.OCR, logger)

	if cfg.Ledger.DSN != "" {
		db, err := repository.Open(ctx, LedgerConfig(cfg.Ledger), logger)
		if err != nil {
			return nil, common.WrapError(err, "open ledger")
		}
		a.DB = db
		a.Runs = repository.NewRunRepository(db, logger)
		a.Driver.Recorder = a.Runs
	}
	return a, nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}
