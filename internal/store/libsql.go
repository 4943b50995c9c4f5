package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/flowmorph/flowmorph/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return applyMigrations(ctx, s.db)
}

// Vacuum runs VACUUM on the database.
func (s *LibSQLStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// SaveRun inserts a conversion run. The run's ID must be set by the caller.
func (s *LibSQLStore) SaveRun(ctx context.Context, run *ConversionRun) error {
	if run == nil || run.ID == "" {
		return schema.NewError(schema.ErrCodeValidation, "conversion run requires an id")
	}

	var report sql.NullString
	if run.Report != nil {
		b, err := json.Marshal(run.Report)
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		report = sql.NullString{String: string(b), Valid: true}
	}

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversion_runs
		   (id, direction, workflow_name, node_count, flag_count, needs_review, report, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Direction), run.WorkflowName, run.NodeCount, run.FlagCount,
		boolToInt(run.NeedsReview), report, run.Duration.Milliseconds(), createdAt,
	)
	return err
}

// GetRun returns one run by id.
func (s *LibSQLStore) GetRun(ctx context.Context, id string) (*ConversionRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, direction, workflow_name, node_count, flag_count, needs_review, report, duration_ms, created_at
		 FROM conversion_runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "conversion run %q not found", id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns runs matching the filter, newest first.
func (s *LibSQLStore) ListRuns(ctx context.Context, filter RunFilter) ([]*ConversionRun, error) {
	query := `SELECT id, direction, workflow_name, node_count, flag_count, needs_review, report, duration_ms, created_at
		 FROM conversion_runs`
	var conds []string
	var args []any

	if filter.Direction != "" {
		conds = append(conds, "direction = ?")
		args = append(args, string(filter.Direction))
	}
	if filter.NeedsReview != nil {
		conds = append(conds, "needs_review = ?")
		args = append(args, boolToInt(*filter.NeedsReview))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*ConversionRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun removes one run by id.
func (s *LibSQLStore) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversion_runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return schema.NewErrorf(schema.ErrCodeNotFound, "conversion run %q not found", id)
	}
	return nil
}

var _ Store = (*LibSQLStore)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*ConversionRun, error) {
	run := &ConversionRun{}
	var direction string
	var needsReview int
	var report sql.NullString
	var durationMS int64

	err := row.Scan(&run.ID, &direction, &run.WorkflowName, &run.NodeCount,
		&run.FlagCount, &needsReview, &report, &durationMS, &run.CreatedAt)
	if err != nil {
		return nil, err
	}

	run.Direction = schema.Direction(direction)
	run.NeedsReview = needsReview != 0
	run.Duration = time.Duration(durationMS) * time.Millisecond
	if report.Valid && report.String != "" {
		var r schema.ConversionReport
		if err := json.Unmarshal([]byte(report.String), &r); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
		run.Report = &r
	}
	return run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
