// Package pipeline drives one PDF through structured-text extraction, the OCR
// fallback and the output sinks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/pdfjson/internal/common"
	"github.com/joseph-ayodele/pdfjson/internal/extract"
	"github.com/joseph-ayodele/pdfjson/internal/output"
	"github.com/joseph-ayodele/pdfjson/internal/repository"
	"github.com/joseph-ayodele/pdfjson/internal/utils"
)

// Recorder persists run lifecycle rows. repository.RunRepository satisfies it.
type Recorder interface {
	Start(ctx context.Context, run repository.Run) error
	Finish(ctx context.Context, id uuid.UUID, pages, ocrPages int, finishedAt time.Time) error
	Fail(ctx context.Context, id uuid.UUID, message string, finishedAt time.Time) error
}

// Progress is told about each page as it is written.
type Progress interface {
	Start(total int)
	Page(number int, scanned bool)
	Done()
}

// SinkFactory returns sinks to run next to the JSON output at outPath.
type SinkFactory func(outPath string) []output.Sink

// Result summarizes a completed run.
type Result struct {
	RunID      uuid.UUID
	InputPath  string
	OutputPath string
	Pages      int
	OCRPages   int
	SHA256     string
	StartedAt  time.Time
	FinishedAt time.Time
}

type Driver struct {
	Open     extract.Opener
	OCR      extract.PageOCR
	Extra    SinkFactory
	Recorder Recorder
	Progress Progress
	Logger   *slog.Logger
}

func NewDriver(open extract.Opener, ocr extract.PageOCR, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{Open: open, OCR: ocr, Logger: logger}
}

// Run converts the PDF at in to the JSON document at out. Pages are handled
// strictly in order; the first failure aborts the run.
func (d *Driver) Run(ctx context.Context, in, out string) (Result, error) {
	res := Result{
		RunID:      uuid.New(),
		InputPath:  in,
		OutputPath: out,
		StartedAt:  time.Now().UTC(),
	}
	log := common.LoggerFromContext(ctx, d.Logger).With("run_id", res.RunID, "input", in)

	sum, err := utils.HashFile(in)
	if err != nil {
		log.Debug("hash input failed", "error", err)
	}
	res.SHA256 = sum

	d.recordStart(ctx, log, res)
	if err := d.run(ctx, log, &res); err != nil {
		res.FinishedAt = time.Now().UTC()
		log.Error("pipeline.run.failed", "error", err)
		d.recordFail(ctx, log, res, err)
		return res, err
	}
	res.FinishedAt = time.Now().UTC()
	log.Info("pipeline.run.ok",
		"output", out,
		"pages", res.Pages,
		"ocr_pages", res.OCRPages,
		"elapsed_ms", res.FinishedAt.Sub(res.StartedAt).Milliseconds(),
	)
	d.recordFinish(ctx, log, res)
	return res, nil
}

func (d *Driver) run(ctx context.Context, log *slog.Logger, res *Result) error {
	doc, err := d.Open(res.InputPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := doc.Close(); err != nil {
			log.Warn("close document failed", "error", err)
		}
	}()

	sink := output.MultiSink{output.NewJSONWriter(res.OutputPath)}
	if d.Extra != nil {
		sink = append(sink, d.Extra(res.OutputPath)...)
	}
	if err := sink.Begin(); err != nil {
		return outputError(res.OutputPath, err)
	}

	total := doc.NumPages()
	log.Info("pipeline.run.start", "pages", total)
	if d.Progress != nil {
		d.Progress.Start(total)
	}

	for i := 0; i < total; i++ {
		rec, err := d.page(ctx, log, doc, res.InputPath, i)
		if err != nil {
			return errors.Join(err, sink.Abort())
		}
		if err := sink.WritePage(rec); err != nil {
			return errors.Join(outputError(res.OutputPath, err), sink.Abort())
		}
		res.Pages++
		if rec.OCRApplied {
			res.OCRPages++
		}
		if d.Progress != nil {
			d.Progress.Page(rec.PageNumber, rec.OCRApplied)
		}
	}

	if err := sink.Close(); err != nil {
		return outputError(res.OutputPath, err)
	}
	if d.Progress != nil {
		d.Progress.Done()
	}
	return nil
}

func outputError(path string, err error) error {
	return fmt.Errorf("%w: write %s: %w", common.ErrInternal, path, err)
}

// page builds the record for the zero-based page index.
func (d *Driver) page(ctx context.Context, log *slog.Logger, doc extract.Document, path string, index int) (output.PageRecord, error) {
	rec := output.PageRecord{PageNumber: index + 1}
	if err := ctx.Err(); err != nil {
		return rec, err
	}

	text, err := doc.PageText(index)
	if err != nil {
		return rec, fmt.Errorf("page %d: %w", rec.PageNumber, err)
	}
	rec.StructuredText = text
	if strings.TrimSpace(text) != "" {
		return rec, nil
	}

	log.Debug("page is scanned", "page", rec.PageNumber)
	ocrText, err := d.OCR.OCRPage(ctx, path, index)
	if err != nil {
		return rec, fmt.Errorf("page %d: ocr: %w", rec.PageNumber, err)
	}
	rec.OCRText = ocrText
	rec.OCRApplied = true
	return rec, nil
}

// recordStart and friends log ledger failures; they never fail the run.
func (d *Driver) recordStart(ctx context.Context, log *slog.Logger, res Result) {
	if d.Recorder == nil {
		return
	}
	err := d.Recorder.Start(ctx, repository.Run{
		ID:          res.RunID,
		InputPath:   res.InputPath,
		OutputPath:  res.OutputPath,
		InputSHA256: res.SHA256,
		StartedAt:   res.StartedAt,
	})
	if err != nil {
		log.Warn("ledger start failed", "error", err)
	}
}

func (d *Driver) recordFinish(ctx context.Context, log *slog.Logger, res Result) {
	if d.Recorder == nil {
		return
	}
	if err := d.Recorder.Finish(ctx, res.RunID, res.Pages, res.OCRPages, res.FinishedAt); err != nil {
		log.Warn("ledger finish failed", "error", err)
	}
}

func (d *Driver) recordFail(ctx context.Context, log *slog.Logger, res Result, cause error) {
	if d.Recorder == nil {
		return
	}
	// the run context may be the reason we failed
	ctx = context.WithoutCancel(ctx)
	if err := d.Recorder.Fail(ctx, res.RunID, cause.Error(), res.FinishedAt); err != nil {
		log.Warn("ledger fail failed", "error", err)
	}
}
