// Package store is the local results journal: every analysis result the
// client received, kept in SQLite for the history command. It never holds
// live session state.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/abelbrown/stagewatch/internal/stage"
)

// Source names where a journaled result came from.
type Source string

const (
	SourceChat       Source = "chat"
	SourceAnalyze    Source = "analyze"
	SourceUpload     Source = "analyze_file"
	SourceTeamInfo   Source = "teaminfo"
	SourceMemberInfo Source = "memberinfo"
)

// Result is one journaled analysis result.
type Result struct {
	ID           int64
	Team         string
	Member       string // empty for team-level results
	Source       Source
	FinalStage   string
	Feedback     string
	Distribution stage.Distribution
	At           time.Time
}

// TeamSummary aggregates a team's journal entries.
type TeamSummary struct {
	Team      string
	Results   int
	LastStage string
	LastAt    time.Time
}

// Store handles SQLite persistence. Safe for concurrent use: Cmd
// goroutines record results while the UI reads history.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (or creates) the journal at dbPath. ":memory:" gives a
// private in-memory journal, used by tests.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection: a second one would see a different :memory: database,
	// and for files it serializes writers without SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		team TEXT NOT NULL,
		member TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL,
		final_stage TEXT NOT NULL,
		feedback TEXT NOT NULL DEFAULT '',
		distribution TEXT NOT NULL,
		recorded_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_results_team ON results(team, recorded_at DESC);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Record appends r and returns its row ID. A zero At means now.
func (s *Store) Record(r Result) (int64, error) {
	if r.Team == "" {
		return 0, fmt.Errorf("record result: team is required")
	}
	if r.At.IsZero() {
		r.At = time.Now()
	}
	dist := r.Distribution
	if dist == nil {
		dist = stage.Distribution{}
	}
	distJSON, err := json.Marshal(dist)
	if err != nil {
		return 0, fmt.Errorf("encode distribution: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		INSERT INTO results (team, member, source, final_stage, feedback, distribution, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Team, r.Member, string(r.Source), r.FinalStage, r.Feedback, string(distJSON), r.At.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert result: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit results for team, newest first. An empty
// team returns results across all teams.
func (s *Store) Recent(team string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, team, member, source, final_stage, feedback, distribution, recorded_at FROM results`
	args := []any{}
	if team != "" {
		query += ` WHERE team = ?`
		args = append(args, team)
	}
	query += ` ORDER BY recorded_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		var source, distJSON string
		if err := rows.Scan(&r.ID, &r.Team, &r.Member, &source, &r.FinalStage, &r.Feedback, &distJSON, &r.At); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Source = Source(source)
		var raw map[string]float64
		if err := json.Unmarshal([]byte(distJSON), &raw); err != nil {
			return nil, fmt.Errorf("decode distribution %d: %w", r.ID, err)
		}
		r.Distribution = stage.FromMap(raw)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Teams summarizes every journaled team, most recently active first.
func (s *Store) Teams() ([]TeamSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT r.team, c.n, r.final_stage, r.recorded_at
		FROM results r
		JOIN (SELECT team, COUNT(*) AS n, MAX(id) AS last_id FROM results GROUP BY team) c
		  ON r.id = c.last_id
		ORDER BY r.recorded_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query teams: %w", err)
	}
	defer rows.Close()

	var out []TeamSummary
	for rows.Next() {
		var t TeamSummary
		if err := rows.Scan(&t.Team, &t.Results, &t.LastStage, &t.LastAt); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ForgetTeam deletes a team's entries and returns how many were removed.
func (s *Store) ForgetTeam(team string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM results WHERE team = ?`, team)
	if err != nil {
		return 0, fmt.Errorf("delete team: %w", err)
	}
	return res.RowsAffected()
}
