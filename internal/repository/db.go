package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// DB is an ent SQL driver over either a pgx pool or a SQLite file.
type DB struct {
	drv     *entsql.Driver
	db      *sql.DB
	pool    *pgxpool.Pool
	dialect string
	logger  *slog.Logger
}

// Dialect returns the ent dialect name of the connection.
func (d *DB) Dialect() string { return d.dialect }

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Open connects to the ledger database and creates its schema.
// Postgres DSNs get a pgx pool wrapped for ent; anything else is a SQLite path.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DSN == "" {
		return nil, errors.New("ledger dsn is empty")
	}

	var (
		d   *DB
		err error
	)
	if isPostgres(cfg.DSN) {
		d, err = openPostgres(ctx, cfg, logger)
	} else {
		d, err = openSQLite(cfg, logger)
	}
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	if err := d.migrate(ctx); err != nil {
		d.Close()
		logger.Error("failed to create ledger schema", "error", err)
		return nil, err
	}
	logger.Info("successfully connected to database", "dialect", d.dialect)
	return d, nil
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "driver", "pgx")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "pdfjson"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, err
	}

	// Wrap pool as *sql.DB for Ent
	db := stdlib.OpenDBFromPool(pool)
	return &DB{
		drv:     entsql.OpenDB(dialect.Postgres, db),
		db:      db,
		pool:    pool,
		dialect: dialect.Postgres,
		logger:  logger,
	}, nil
}

func openSQLite(cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "driver", "sqlite", "path", cfg.DSN)
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	// single writer; also keeps ":memory:" on one connection
	db.SetMaxOpenConns(1)
	return &DB{
		drv:     entsql.OpenDB(dialect.SQLite, db),
		db:      db,
		dialect: dialect.SQLite,
		logger:  logger,
	}, nil
}

// Close closes the database connections gracefully
func (d *DB) Close() {
	if d == nil {
		return
	}
	d.logger.Info("closing database connections")
	if err := d.drv.Close(); err != nil {
		d.logger.Error("failed to close ent driver", "error", err)
	}
	if d.pool != nil {
		d.pool.Close()
	}
	d.logger.Info("database connections closed")
}

// HealthCheck pings the database to catch DSN issues early.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	d.logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var err error
	if d.pool != nil {
		err = d.pool.Ping(ctx)
	} else {
		err = d.db.PingContext(ctx)
	}
	if err != nil {
		return err
	}
	d.logger.Debug("database ping successful")
	return nil
}

func (d *DB) timeType() string {
	if d.dialect == dialect.Postgres {
		return "TIMESTAMPTZ"
	}
	return "DATETIME"
}

func (d *DB) migrate(ctx context.Context) error {
	b := entsql.Dialect(d.dialect)
	columns := []entsql.Querier{
		b.Column("id").Type("TEXT PRIMARY KEY"),
		b.Column("input_path").Type("TEXT NOT NULL"),
		b.Column("output_path").Type("TEXT NOT NULL"),
		b.Column("input_sha256").Type("TEXT NOT NULL DEFAULT ''"),
		b.Column("status").Type("TEXT NOT NULL"),
		b.Column("pages").Type("INTEGER NOT NULL DEFAULT 0"),
		b.Column("ocr_pages").Type("INTEGER NOT NULL DEFAULT 0"),
		b.Column("error_message").Type("TEXT NOT NULL DEFAULT ''"),
		b.Column("started_at").Type(d.timeType() + " NOT NULL"),
		b.Column("finished_at").Type(d.timeType()),
	}
	q := b.String(func(sb *entsql.Builder) {
		sb.WriteString("CREATE TABLE IF NOT EXISTS ").
			Ident(runsTable).
			Wrap(func(sb *entsql.Builder) { sb.JoinComma(columns...) })
	})
	return d.drv.Exec(ctx, q, []any{}, nil)
}
