package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/pdfjson/constants"
	"github.com/joseph-ayodele/pdfjson/internal/common"
)

const runsTable = "extract_runs"

// Run is one row of the extraction ledger.
type Run struct {
	ID           uuid.UUID
	InputPath    string
	OutputPath   string
	InputSHA256  string
	Status       constants.RunStatus
	Pages        int
	OCRPages     int
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

type RunRepository interface {
	Start(ctx context.Context, run Run) error
	Finish(ctx context.Context, id uuid.UUID, pages, ocrPages int, finishedAt time.Time) error
	Fail(ctx context.Context, id uuid.UUID, message string, finishedAt time.Time) error
	Recent(ctx context.Context, limit int) ([]Run, error)
}

type runRepo struct {
	db  *DB
	log *slog.Logger
}

func NewRunRepository(db *DB, log *slog.Logger) RunRepository {
	if log == nil {
		log = slog.Default()
	}
	return &runRepo{db: db, log: log}
}

func (r *runRepo) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.db.dialect)
}

// Start inserts the run with status RUNNING.
func (r *runRepo) Start(ctx context.Context, run Run) error {
	if run.ID == uuid.Nil {
		return fmt.Errorf("%w: run id is required", common.ErrInvalidInput)
	}
	q, args := r.builder().Insert(runsTable).
		Columns("id", "input_path", "output_path", "input_sha256", "status", "started_at").
		Values(run.ID.String(), run.InputPath, run.OutputPath, run.InputSHA256, string(constants.RunStatusRunning), run.StartedAt.UTC()).
		Query()
	if err := r.db.drv.Exec(ctx, q, args, nil); err != nil {
		r.log.Error("extract_run start failed", "run_id", run.ID, "err", err)
		return dbError("start run", err)
	}
	r.log.Info("extract_run started", "run_id", run.ID, "input", run.InputPath)
	return nil
}

func (r *runRepo) Finish(ctx context.Context, id uuid.UUID, pages, ocrPages int, finishedAt time.Time) error {
	q, args := r.builder().Update(runsTable).
		Set("status", string(constants.RunStatusOK)).
		Set("pages", pages).
		Set("ocr_pages", ocrPages).
		Set("finished_at", finishedAt.UTC()).
		Where(entsql.EQ("id", id.String())).
		Query()
	if err := r.update(ctx, id, q, args); err != nil {
		r.log.Error("extract_run finish(OK) failed", "run_id", id, "err", err)
		return err
	}
	r.log.Info("extract_run finished (OK)", "run_id", id, "pages", pages, "ocr_pages", ocrPages)
	return nil
}

func (r *runRepo) Fail(ctx context.Context, id uuid.UUID, message string, finishedAt time.Time) error {
	q, args := r.builder().Update(runsTable).
		Set("status", string(constants.RunStatusFailed)).
		Set("error_message", message).
		Set("finished_at", finishedAt.UTC()).
		Where(entsql.EQ("id", id.String())).
		Query()
	if err := r.update(ctx, id, q, args); err != nil {
		r.log.Error("extract_run finish(FAILED) failed", "run_id", id, "err", err)
		return err
	}
	r.log.Warn("extract_run finished (FAILED)", "run_id", id, "error", message)
	return nil
}

func (r *runRepo) update(ctx context.Context, id uuid.UUID, q string, args []any) error {
	var res sql.Result
	if err := r.db.drv.Exec(ctx, q, args, &res); err != nil {
		return dbError("update run", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbError("update run", err)
	}
	if n == 0 {
		return fmt.Errorf("run %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// Recent lists runs, newest first.
func (r *runRepo) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", common.ErrInvalidInput)
	}
	b := r.builder()
	q, args := b.Select("id", "input_path", "output_path", "input_sha256", "status",
		"pages", "ocr_pages", "error_message", "started_at", "finished_at").
		From(b.Table(runsTable)).
		OrderBy(entsql.Desc("started_at")).
		Limit(limit).
		Query()

	rows := &entsql.Rows{}
	if err := r.db.drv.Query(ctx, q, args, rows); err != nil {
		return nil, dbError("list runs", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			run      Run
			id       string
			status   string
			finished sql.NullTime
		)
		if err := rows.Scan(&id, &run.InputPath, &run.OutputPath, &run.InputSHA256, &status,
			&run.Pages, &run.OCRPages, &run.ErrorMessage, &run.StartedAt, &finished); err != nil {
			return nil, dbError("scan run", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, dbError("scan run id", err)
		}
		run.ID = parsed
		run.Status = constants.RunStatus(status)
		if finished.Valid {
			t := finished.Time
			run.FinishedAt = &t
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("list runs", err)
	}
	return out, nil
}

func dbError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, common.ErrDatabase, err)
}
