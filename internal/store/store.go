// Package store persists published decisions and light observations to
// SQLite so the debug API and offline analysis can replay what the
// detector decided and why.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/stopline.report/internal/detect"
)

// Store wraps the detector database.
type Store struct {
	*sql.DB
}

// NewStore opens (creating if needed) the detector database at path.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS detector_sessions (
			session_id        TEXT PRIMARY KEY,
			started_unix      DOUBLE,
			config_path       TEXT,
			timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS published_decisions (
			session_id        TEXT,
			seq               BIGINT,
			stop_waypoint     BIGINT,
			state             TEXT,
			unix_nanos        BIGINT,
			timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(session_id) REFERENCES detector_sessions(session_id)
		);
		CREATE TABLE IF NOT EXISTS light_observations (
			session_id        TEXT,
			unix_nanos        BIGINT,
			light_waypoint    BIGINT,
			stop_waypoint     BIGINT,
			raw_state         TEXT,
			timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(session_id) REFERENCES detector_sessions(session_id)
		);
		CREATE INDEX IF NOT EXISTS idx_decisions_session_seq
			ON published_decisions(session_id, seq);
	`)
	if err != nil {
		return nil, err
	}

	return &Store{db}, nil
}

// NewSession registers a new detector session and returns its ID.
func (s *Store) NewSession(configPath string) (string, error) {
	sessionID := uuid.NewString()
	_, err := s.Exec(
		`INSERT INTO detector_sessions (session_id, started_unix, config_path) VALUES (?, ?, ?)`,
		sessionID, float64(time.Now().UnixNano())/1e9, configPath,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert session: %w", err)
	}
	return sessionID, nil
}

// RecordDecision persists one published decision.
func (s *Store) RecordDecision(sessionID string, d detect.Decision) error {
	_, err := s.Exec(
		`INSERT INTO published_decisions (session_id, seq, stop_waypoint, state, unix_nanos) VALUES (?, ?, ?, ?, ?)`,
		sessionID, d.Seq, d.StopWaypoint, string(d.State), d.UnixNanos,
	)
	if err != nil {
		return fmt.Errorf("failed to insert decision: %w", err)
	}
	return nil
}

// RecordObservation persists the raw per-frame candidate before
// debouncing, for offline comparison against the published output.
func (s *Store) RecordObservation(sessionID string, unixNanos int64, c detect.Candidate) error {
	_, err := s.Exec(
		`INSERT INTO light_observations (session_id, unix_nanos, light_waypoint, stop_waypoint, raw_state) VALUES (?, ?, ?, ?, ?)`,
		sessionID, unixNanos, c.LightWaypoint, c.StopWaypoint, string(c.State),
	)
	if err != nil {
		return fmt.Errorf("failed to insert observation: %w", err)
	}
	return nil
}

// StoredDecision is one row of published_decisions as served by the API.
type StoredDecision struct {
	SessionID    string `json:"session_id"`
	Seq          int64  `json:"seq"`
	StopWaypoint int    `json:"stop_waypoint"`
	State        string `json:"state"`
	UnixNanos    int64  `json:"unix_nanos"`
}

// ListDecisions returns recent decisions, newest first. An empty
// sessionID matches all sessions; limit <= 0 applies no limit.
func (s *Store) ListDecisions(sessionID string, limit int) ([]StoredDecision, error) {
	query := `
		SELECT session_id, seq, stop_waypoint, state, unix_nanos
		FROM published_decisions
		WHERE 1=1
	`
	args := []interface{}{}

	if sessionID != "" {
		query += " AND session_id = ?"
		args = append(args, sessionID)
	}

	query += " ORDER BY unix_nanos DESC, seq DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	decisions := []StoredDecision{}
	for rows.Next() {
		var d StoredDecision
		if err := rows.Scan(&d.SessionID, &d.Seq, &d.StopWaypoint, &d.State, &d.UnixNanos); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

// DecisionSummary aggregates published decisions for one session.
type DecisionSummary struct {
	TotalCount int            `json:"total_count"`
	StopCount  int            `json:"stop_count"` // decisions with an active stop waypoint
	ByState    map[string]int `json:"by_state"`
}

// SummariseDecisions aggregates decision counts, optionally scoped to a
// session.
func (s *Store) SummariseDecisions(sessionID string) (*DecisionSummary, error) {
	query := `SELECT state, stop_waypoint FROM published_decisions`
	args := []interface{}{}
	if sessionID != "" {
		query += " WHERE session_id = ?"
		args = append(args, sessionID)
	}

	rows, err := s.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query decision summary: %w", err)
	}
	defer rows.Close()

	summary := &DecisionSummary{ByState: map[string]int{}}
	for rows.Next() {
		var state string
		var stopWP int
		if err := rows.Scan(&state, &stopWP); err != nil {
			return nil, fmt.Errorf("failed to scan decision summary: %w", err)
		}
		summary.TotalCount++
		summary.ByState[state]++
		if stopWP >= 0 {
			summary.StopCount++
		}
	}
	return summary, rows.Err()
}
