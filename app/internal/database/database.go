package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"statuspage/app/internal/models"
)

// Store persists probe samples in sqlite.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the database at dbPath and ensures the schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One connection: sqlite serialises writers anyway, and ":memory:"
	// databases are per-connection.
	db.SetMaxOpenConns(1)

	s := &Store{DB: db}
	if err := s.EnsureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// EnsureSchema creates all necessary database tables
func (s *Store) EnsureSchema() error {
	_, err := s.DB.Exec(`
CREATE TABLE IF NOT EXISTS samples (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  taken_at TEXT NOT NULL,
  service_key TEXT NOT NULL,
  ok INTEGER NOT NULL,
  http_status INTEGER,
  latency_ms INTEGER
);
CREATE INDEX IF NOT EXISTS idx_samples_taken ON samples(taken_at);
CREATE INDEX IF NOT EXISTS idx_samples_service ON samples(service_key);
`)
	return err
}

// InsertSample records a service check sample
func (s *Store) InsertSample(ctx context.Context, sm models.Sample) error {
	okInt := 0
	if sm.OK {
		okInt = 1
	}
	var msVal any
	if sm.LatencyMS != nil {
		msVal = *sm.LatencyMS
	}

	_, err := s.DB.ExecContext(ctx, `INSERT INTO samples (taken_at,service_key,ok,http_status,latency_ms)
		VALUES (?,?,?,?,?)`,
		sm.TakenAt.UTC().Format(time.RFC3339), sm.ServiceKey, okInt, sm.HTTPStatus, msVal)
	if err != nil {
		return fmt.Errorf("insert sample %s: %w", sm.ServiceKey, err)
	}
	return nil
}

// Samples returns every stored sample for key, oldest first.
func (s *Store) Samples(ctx context.Context, key string) ([]models.Sample, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT taken_at, ok, COALESCE(http_status, 0), latency_ms
		FROM samples WHERE service_key = ? ORDER BY taken_at ASC, id ASC`, key)
	if err != nil {
		return nil, fmt.Errorf("query samples %s: %w", key, err)
	}
	defer rows.Close()

	var out []models.Sample
	for rows.Next() {
		var (
			takenAt string
			ok      int
			status  int
			latency sql.NullInt64
		)
		if err := rows.Scan(&takenAt, &ok, &status, &latency); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, takenAt)
		if err != nil {
			continue
		}
		sm := models.Sample{
			TakenAt:    t,
			ServiceKey: key,
			OK:         ok != 0,
			HTTPStatus: status,
		}
		if latency.Valid {
			ms := int(latency.Int64)
			sm.LatencyMS = &ms
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

// PruneSamples removes samples taken before cutoff and reports how many went.
func (s *Store) PruneSamples(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM samples WHERE taken_at < ?`, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
