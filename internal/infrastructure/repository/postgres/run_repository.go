// Package postgres persists batch-run audit records.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/clauseq/clauseq/internal/core/domain"
)

type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS qa_runs (
	id TEXT PRIMARY KEY,
	document_url TEXT NOT NULL,
	question_count INTEGER NOT NULL,
	answered_count INTEGER NOT NULL,
	failed_count INTEGER NOT NULL,
	duration_ms BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS qa_run_answers (
	run_id TEXT NOT NULL REFERENCES qa_runs(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	question TEXT NOT NULL,
	status TEXT NOT NULL,
	decision TEXT,
	answer TEXT,
	error_message TEXT,
	PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_qa_runs_created_at ON qa_runs(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// SaveRun writes the run header and its per-question answers in one
// transaction.
func (r *RunRepository) SaveRun(ctx context.Context, run *domain.Run, results []domain.QuestionResult) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO qa_runs (id, document_url, question_count, answered_count, failed_count, duration_ms, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
		run.ID, run.DocumentURL, run.QuestionCount, run.AnsweredCount, run.FailedCount,
		run.Duration.Milliseconds(), run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, result := range results {
		var decision string
		if result.Answer != nil {
			decision = result.Answer.Decision
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO qa_run_answers (run_id, position, question, status, decision, answer, error_message)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
			run.ID, i, result.Question, string(result.Status), decision, result.GeneratedAnswer, result.Error,
		)
		if err != nil {
			return fmt.Errorf("insert run answer %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run tx: %w", err)
	}
	return nil
}
