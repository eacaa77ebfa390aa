package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists genomes in a SQLite database file.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sqlx.DB
}

// genomeRow is the table layout of a GenomeRecord.
type genomeRow struct {
	ID         string  `db:"id"`
	RunID      string  `db:"run_id"`
	AgentID    int64   `db:"agent_id"`
	Generation int     `db:"generation"`
	TimeAlive  float64 `db:"time_alive"`
	Reason     string  `db:"reason"`
	Structure  string  `db:"structure"`
	Weights    string  `db:"weights"`
	CreatedAt  int64   `db:"created_at"` // Unix milliseconds
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sqlx.Open("sqlite", s.path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping db: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("migrate: %w", err)
	}

	s.db = db
	return nil
}

func migrate(ctx context.Context, db *sqlx.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS genomes (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		agent_id INTEGER NOT NULL,
		generation INTEGER NOT NULL,
		time_alive REAL NOT NULL,
		reason TEXT NOT NULL,
		structure TEXT NOT NULL,
		weights TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_genomes_run ON genomes(run_id, created_at);
	`
	_, err := db.ExecContext(ctx, schema)
	return err
}

func (s *SQLiteStore) SaveGenome(ctx context.Context, rec GenomeRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	structure, err := json.Marshal(rec.Structure)
	if err != nil {
		return fmt.Errorf("encode structure: %w", err)
	}
	row := genomeRow{
		ID:         rec.ID,
		RunID:      rec.RunID,
		AgentID:    int64(rec.AgentID),
		Generation: rec.Generation,
		TimeAlive:  rec.TimeAlive,
		Reason:     rec.Reason,
		Structure:  string(structure),
		Weights:    rec.Weights,
		CreatedAt:  rec.CreatedAt.UnixMilli(),
	}

	_, err = db.NamedExecContext(ctx, `
		INSERT INTO genomes (id, run_id, agent_id, generation, time_alive, reason, structure, weights, created_at)
		VALUES (:id, :run_id, :agent_id, :generation, :time_alive, :reason, :structure, :weights, :created_at)
		ON CONFLICT(id) DO UPDATE SET
			time_alive = excluded.time_alive,
			reason = excluded.reason,
			weights = excluded.weights
	`, row)
	if err != nil {
		return fmt.Errorf("save genome %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetGenome(ctx context.Context, id string) (GenomeRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return GenomeRecord{}, err
	}

	var row genomeRow
	err = db.GetContext(ctx, &row, `SELECT * FROM genomes WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return GenomeRecord{}, ErrNotFound
		}
		return GenomeRecord{}, fmt.Errorf("get genome %s: %w", id, err)
	}
	return row.record()
}

// ListGenomes returns a run's genomes oldest first.
func (s *SQLiteStore) ListGenomes(ctx context.Context, runID string) ([]GenomeRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	var rows []genomeRow
	err = db.SelectContext(ctx, &rows, `SELECT * FROM genomes WHERE run_id = ? ORDER BY created_at, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list genomes: %w", err)
	}

	out := make([]GenomeRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sqlx.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("sqlite store is not initialized")
	}
	return s.db, nil
}

func (r genomeRow) record() (GenomeRecord, error) {
	var structure []int
	if err := json.Unmarshal([]byte(r.Structure), &structure); err != nil {
		return GenomeRecord{}, fmt.Errorf("decode structure of %s: %w", r.ID, err)
	}
	return GenomeRecord{
		ID:         r.ID,
		RunID:      r.RunID,
		AgentID:    uint64(r.AgentID),
		Generation: r.Generation,
		TimeAlive:  r.TimeAlive,
		Reason:     r.Reason,
		Structure:  structure,
		Weights:    r.Weights,
		CreatedAt:  time.UnixMilli(r.CreatedAt),
	}, nil
}
