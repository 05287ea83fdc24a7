package reportdb

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	framecull "github.com/anatolykoptev/go-framecull"
)

// DB stores run reports so selection drift can be tracked across pool and
// policy changes.
type DB struct {
	*sql.DB
}

// schema.sql defines tables for runs, per-candidate audit lines, input
// defects and failed categories.
//
//go:embed schema.sql
var schemaSQL string

// Open opens the report database at path, creating the schema if needed.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %v", err)
	}
	return &DB{db}, nil
}

// RecordRun stores a full report in one transaction, so an interrupted write
// never leaves a half-recorded run behind.
func (db *DB) RecordRun(rep framecull.Report) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (run_id, created_at, categories) VALUES (?, ?, ?)`,
		rep.RunID, rep.CreatedAt.Format(time.RFC3339Nano), len(rep.Categories),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %v", err)
	}

	for _, cat := range rep.Categories {
		if cat.Error != "" {
			_, err = tx.Exec(
				`INSERT INTO category_errors (run_id, category, error) VALUES (?, ?, ?)`,
				rep.RunID, cat.Category, cat.Error,
			)
			if err != nil {
				return fmt.Errorf("failed to insert category error: %v", err)
			}
			continue
		}
		for _, c := range cat.Candidates {
			var rank any
			if c.Rank > 0 {
				rank = c.Rank
			}
			_, err = tx.Exec(
				`INSERT INTO candidates
					(run_id, category, candidate_id, source, frame_index,
					 timeline_position, selection_rank, score, hash, status, reason)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				rep.RunID, cat.Category, c.ID, c.Source, c.FrameIndex,
				c.TimelinePosition, rank, c.Score, c.Hash, c.Status, c.Reason,
			)
			if err != nil {
				return fmt.Errorf("failed to insert candidate: %v", err)
			}
		}
		for _, d := range cat.Defects {
			_, err = tx.Exec(
				`INSERT INTO defects (run_id, category, candidate_id, path, reason)
				 VALUES (?, ?, ?, ?, ?)`,
				rep.RunID, cat.Category, d.ID, d.Path, d.Reason,
			)
			if err != nil {
				return fmt.Errorf("failed to insert defect: %v", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %v", err)
	}
	return nil
}

// RunSummary is one stored run with its headline counts.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	CreatedAt  time.Time `json:"created_at"`
	Categories int       `json:"categories"`
	Selected   int       `json:"selected"`
	Defects    int       `json:"defects"`
}

// RunSummaries returns the most recent runs, newest first.
func (db *DB) RunSummaries(limit int) ([]RunSummary, error) {
	rows, err := db.Query(`
		SELECT r.run_id, r.created_at, r.categories,
		       (SELECT COUNT(*) FROM candidates c WHERE c.run_id = r.run_id AND c.status = 'selected'),
		       (SELECT COUNT(*) FROM defects d WHERE d.run_id = r.run_id)
		FROM runs r
		ORDER BY r.created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %v", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		var created string
		if err := rows.Scan(&s.RunID, &created, &s.Categories, &s.Selected, &s.Defects); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %v", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			s.CreatedAt = t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// StatusCounts returns how many candidates of a run landed in each status,
// the first thing to look at when a selection changes size between runs.
func (db *DB) StatusCounts(runID string) (map[string]int, error) {
	rows, err := db.Query(
		`SELECT status, COUNT(*) FROM candidates WHERE run_id = ? GROUP BY status`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query status counts: %v", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status row: %v", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
