// Package history provides SQLite persistence for concluded game sessions:
// one row per session plus a row per reveal, for later inspection.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"minegem/internal/game"
)

// Session is one recorded playthrough. Money columns are stored as decimal
// strings to keep them exact.
type Session struct {
	ID           string          `json:"id"`
	GridSize     int             `json:"grid_size"`
	MineCount    int             `json:"mine_count"`
	Difficulty   string          `json:"difficulty"`
	BetAmount    decimal.Decimal `json:"bet_amount"`
	Phase        string          `json:"phase"`
	Multiplier   decimal.Decimal `json:"multiplier"`
	Earnings     decimal.Decimal `json:"earnings"`
	FinalBalance decimal.Decimal `json:"final_balance"`
	SafeReveals  int             `json:"safe_reveals"`
	CreatedAt    time.Time       `json:"created_at"`
	EndedAt      *time.Time      `json:"ended_at,omitempty"`
}

// Reveal is one recorded reveal within a session, in command order.
type Reveal struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Seq       int       `json:"seq"`
	Row       int       `json:"row"`
	Col       int       `json:"col"`
	Mine      bool      `json:"mine"`
	CreatedAt time.Time `json:"created_at"`
}

// Store provides SQLite persistence for session history.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the history database at the given path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("history: enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("history: enable foreign keys: %w", err)
	}
	return &Store{db: db}, nil
}

// NewFromDB wraps an existing sql.DB.
func NewFromDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate runs the session history migrations.
func (s *Store) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			grid_size INTEGER NOT NULL,
			mine_count INTEGER NOT NULL,
			difficulty TEXT NOT NULL DEFAULT 'medium',
			bet_amount TEXT NOT NULL,
			phase TEXT NOT NULL DEFAULT 'playing',
			multiplier TEXT NOT NULL DEFAULT '1',
			earnings TEXT NOT NULL DEFAULT '0',
			final_balance TEXT NOT NULL DEFAULT '0',
			safe_reveals INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			ended_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS reveals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			row INTEGER NOT NULL,
			col INTEGER NOT NULL,
			mine BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reveals_session ON reveals(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reveals_session_seq ON reveals(session_id, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at DESC)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("history: migrate: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateSession inserts a new playing session and returns its ID.
func (s *Store) CreateSession(sess *Session) (string, error) {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, grid_size, mine_count, difficulty, bet_amount, phase)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.GridSize, sess.MineCount, sess.Difficulty, sess.BetAmount.String(), string(game.PhasePlaying),
	)
	if err != nil {
		return "", fmt.Errorf("history: create session: %w", err)
	}
	return sess.ID, nil
}

// Outcome holds the terminal state recorded when a session ends.
type Outcome struct {
	Phase        game.Phase
	Multiplier   decimal.Decimal
	Earnings     decimal.Decimal
	FinalBalance decimal.Decimal
	SafeReveals  int
}

// EndSession marks a session as concluded with its terminal outcome.
func (s *Store) EndSession(id string, out Outcome) error {
	_, err := s.db.Exec(
		`UPDATE sessions SET
			ended_at = ?, phase = ?, multiplier = ?, earnings = ?,
			final_balance = ?, safe_reveals = ?
		 WHERE id = ?`,
		time.Now(), string(out.Phase), out.Multiplier.String(), out.Earnings.String(),
		out.FinalBalance.String(), out.SafeReveals,
		id,
	)
	if err != nil {
		return fmt.Errorf("history: end session: %w", err)
	}
	return nil
}

// InsertReveal records a single reveal command.
func (s *Store) InsertReveal(sessionID string, seq, row, col int, mine bool) error {
	_, err := s.db.Exec(
		`INSERT INTO reveals (session_id, seq, row, col, mine) VALUES (?, ?, ?, ?, ?)`,
		sessionID, seq, row, col, mine,
	)
	if err != nil {
		return fmt.Errorf("history: insert reveal: %w", err)
	}
	return nil
}

// GetSession fetches one session by ID.
func (s *Store) GetSession(id string) (*Session, error) {
	row := s.db.QueryRow(
		`SELECT id, grid_size, mine_count, difficulty, bet_amount, phase,
		        multiplier, earnings, final_balance, safe_reveals, created_at, ended_at
		 FROM sessions WHERE id = ?`, id,
	)
	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("history: get session: %w", err)
	}
	return sess, nil
}

// ListRecent returns the most recent sessions, newest first.
func (s *Store) ListRecent(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, grid_size, mine_count, difficulty, bet_amount, phase,
		        multiplier, earnings, final_balance, safe_reveals, created_at, ended_at
		 FROM sessions ORDER BY created_at DESC, id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history: list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("history: list sessions: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

// Reveals returns a session's reveals in command order.
func (s *Store) Reveals(sessionID string) ([]Reveal, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, seq, row, col, mine, created_at
		 FROM reveals WHERE session_id = ? ORDER BY seq`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("history: list reveals: %w", err)
	}
	defer rows.Close()

	var reveals []Reveal
	for rows.Next() {
		var r Reveal
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Seq, &r.Row, &r.Col, &r.Mine, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: scan reveal: %w", err)
		}
		reveals = append(reveals, r)
	}
	return reveals, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		sess    Session
		bet     string
		multi   string
		earn    string
		final   string
		endedAt sql.NullTime
	)
	err := row.Scan(
		&sess.ID, &sess.GridSize, &sess.MineCount, &sess.Difficulty, &bet, &sess.Phase,
		&multi, &earn, &final, &sess.SafeReveals, &sess.CreatedAt, &endedAt,
	)
	if err != nil {
		return nil, err
	}
	if sess.BetAmount, err = decimal.NewFromString(bet); err != nil {
		return nil, err
	}
	if sess.Multiplier, err = decimal.NewFromString(multi); err != nil {
		return nil, err
	}
	if sess.Earnings, err = decimal.NewFromString(earn); err != nil {
		return nil, err
	}
	if sess.FinalBalance, err = decimal.NewFromString(final); err != nil {
		return nil, err
	}
	if endedAt.Valid {
		t := endedAt.Time
		sess.EndedAt = &t
	}
	return &sess, nil
}
