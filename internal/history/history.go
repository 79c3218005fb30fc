// Package history records tailoring runs in SQLite. Only scores and counts
// are stored, never résumé or job text.
package history

import (
	"context"
	"crypto/sha256"
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"atstailor/internal/errors"
	"atstailor/internal/keywords"
	"atstailor/internal/tailor"
)

// Source says which surface started a run.
type Source string

const (
	SourceCLI    Source = "cli"
	SourceHTTP   Source = "http"
	SourceWorker Source = "worker"
)

// Run is one recorded tailoring run.
type Run struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"createdAt"`
	Source        Source    `json:"source"`
	JobHash       string    `json:"jobHash"`
	KeywordCount  int       `json:"keywordCount"`
	OriginalScore int       `json:"originalScore"`
	MatchScore    int       `json:"matchScore"`
	Insertions    int       `json:"insertions"`
	Passes        int       `json:"passes"`
	Warnings      []string  `json:"warnings"`
}

// Summary aggregates every recorded run.
type Summary struct {
	Runs             int     `json:"runs"`
	AverageOriginal  float64 `json:"averageOriginalScore"`
	AverageMatch     float64 `json:"averageMatchScore"`
	TotalInsertions  int     `json:"totalInsertions"`
	RunsWithWarnings int     `json:"runsWithWarnings"`
}

// NewRun summarizes a tailoring result.
func NewRun(source Source, jobText string, res *tailor.Result) Run {
	warnings := make([]string, 0, len(res.InjectionReport.Warnings))
	for _, w := range res.InjectionReport.Warnings {
		warnings = append(warnings, string(w))
	}
	return Run{
		Source:        source,
		JobHash:       JobHash(jobText),
		KeywordCount:  res.KeywordSet.Len(),
		OriginalScore: res.OriginalScore,
		MatchScore:    res.MatchScore,
		Insertions:    len(res.InjectionReport.Insertions),
		Passes:        res.InjectionReport.Passes,
		Warnings:      warnings,
	}
}

// JobHash identifies a job description without storing it.
func JobHash(jobText string) string {
	sum := sha256.Sum256([]byte(keywords.Normalize(jobText)))
	return fmt.Sprintf("%x", sum[:8])
}

// Store is a SQLite-backed run log.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to create history directory", err).
				WithContext("dir", dir)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to open history database", err).
			WithContext("path", path)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to initialize history schema", err).
			WithContext("path", path)
	}
	return &Store{db: db, now: time.Now}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id             TEXT PRIMARY KEY,
		created_at     TEXT NOT NULL,
		source         TEXT NOT NULL,
		job_hash       TEXT NOT NULL,
		keyword_count  INTEGER NOT NULL,
		original_score INTEGER NOT NULL,
		match_score    INTEGER NOT NULL,
		insertions     INTEGER NOT NULL,
		passes         INTEGER NOT NULL,
		warnings       TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at)`)
	return err
}

// Record stores run, assigning an ID and timestamp when missing.
func (s *Store) Record(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.now().UTC()
	}
	if run.Warnings == nil {
		run.Warnings = []string{}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, source, job_hash, keyword_count, original_score,
		                   match_score, insertions, passes, warnings)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().Format(timeLayout), string(run.Source), run.JobHash,
		run.KeywordCount, run.OriginalScore, run.MatchScore, run.Insertions, run.Passes,
		strings.Join(run.Warnings, ","),
	)
	if err != nil {
		return Run{}, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to record run", err)
	}
	return run, nil
}

// timeLayout has a fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const selectRuns = `SELECT id, created_at, source, job_hash, keyword_count, original_score,
	match_score, insertions, passes, warnings FROM runs`

// List returns the most recent runs first. limit is clamped to 1..500, default 50.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	rows, err := s.db.QueryContext(ctx, selectRuns+` ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to list runs", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to read run", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to list runs", err)
	}
	return runs, nil
}

// Get returns one run by ID.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return Run{}, errors.NewValidationError(errors.ErrCodeNotFound, "run not found", err).WithContext("id", id)
	}
	if err != nil {
		return Run{}, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to read run", err).WithContext("id", id)
	}
	return run, nil
}

// Summary aggregates all runs.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	var sum Summary
	var avgOriginal, avgMatch sql.NullFloat64
	var insertions sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), AVG(original_score), AVG(match_score),
		SUM(insertions), COUNT(CASE WHEN warnings != '' THEN 1 END) FROM runs`).
		Scan(&sum.Runs, &avgOriginal, &avgMatch, &insertions, &sum.RunsWithWarnings)
	if err != nil {
		return Summary{}, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to summarize runs", err)
	}
	sum.AverageOriginal = avgOriginal.Float64
	sum.AverageMatch = avgMatch.Float64
	sum.TotalInsertions = int(insertions.Int64)
	return sum, nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.NewStorageError(errors.ErrCodeHistoryFailed, "history database unreachable", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var createdAt, source, warnings string
	err := row.Scan(&run.ID, &createdAt, &source, &run.JobHash, &run.KeywordCount,
		&run.OriginalScore, &run.MatchScore, &run.Insertions, &run.Passes, &warnings)
	if err != nil {
		return Run{}, err
	}
	run.Source = Source(source)
	run.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("bad created_at %q: %w", createdAt, err)
	}
	run.Warnings = []string{}
	if warnings != "" {
		run.Warnings = strings.Split(warnings, ",")
	}
	return run, nil
}
