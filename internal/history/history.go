// Package history persists composition runs to a local sqlite database so
// past validation outcomes can be listed and inspected from the CLI.
package history

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kestrelworks/loom/internal/compose"
)

// Run is one recorded composition attempt.
type Run struct {
	ID           string
	BaseTemplate string
	Strategy     string
	Status       compose.Status
	CreatedAt    time.Time
	Errors       []compose.Issue
	Warnings     []compose.Issue
}

type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		base_template TEXT NOT NULL,
		strategy TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS issues (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		severity TEXT NOT NULL,
		code TEXT NOT NULL,
		message TEXT NOT NULL,
		suggestion TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	CREATE INDEX IF NOT EXISTS idx_issues_run ON issues(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Record stores one completed run with all its findings.
func (s *Store) Record(baseTemplate, strategy string, result compose.Result) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (id, base_template, strategy, status) VALUES (?, ?, ?, ?)`,
		result.RunID, baseTemplate, strategy, string(result.Status),
	)
	if err != nil {
		return err
	}

	insert := func(severity string, issues []compose.Issue) error {
		for _, issue := range issues {
			_, err := tx.Exec(
				`INSERT INTO issues (run_id, severity, code, message, suggestion) VALUES (?, ?, ?, ?, ?)`,
				result.RunID, severity, string(issue.Code), issue.Message, issue.Suggestion,
			)
			if err != nil {
				return err
			}
		}
		return nil
	}
	if err := insert("error", result.Errors); err != nil {
		return err
	}
	if err := insert("warning", result.Warnings); err != nil {
		return err
	}

	return tx.Commit()
}

// Get returns one run with its issues attached.
func (s *Store) Get(runID string) (*Run, error) {
	row := s.db.QueryRow(
		`SELECT id, base_template, strategy, status, created_at FROM runs WHERE id = ?`, runID,
	)

	var run Run
	var status string
	if err := row.Scan(&run.ID, &run.BaseTemplate, &run.Strategy, &status, &run.CreatedAt); err != nil {
		return nil, err
	}
	run.Status = compose.Status(status)

	if err := s.loadIssues(&run); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	rows, err := s.db.Query(
		`SELECT id, base_template, strategy, status, created_at
		 FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var status string
		if err := rows.Scan(&run.ID, &run.BaseTemplate, &run.Strategy, &status, &run.CreatedAt); err != nil {
			return nil, err
		}
		run.Status = compose.Status(status)
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

func (s *Store) loadIssues(run *Run) error {
	rows, err := s.db.Query(
		`SELECT severity, code, message, suggestion FROM issues WHERE run_id = ? ORDER BY id`, run.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var severity, code string
		var issue compose.Issue
		var suggestion sql.NullString
		if err := rows.Scan(&severity, &code, &issue.Message, &suggestion); err != nil {
			return err
		}
		issue.Code = compose.Code(code)
		if suggestion.Valid {
			issue.Suggestion = suggestion.String
		}
		if severity == "error" {
			run.Errors = append(run.Errors, issue)
		} else {
			run.Warnings = append(run.Warnings, issue)
		}
	}

	return rows.Err()
}
