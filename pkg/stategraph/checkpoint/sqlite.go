package checkpoint

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists checkpoints to SQLite.
// It is suitable for single-process production use. Each thread is one
// row; the upsert on Save makes the overwrite atomic at the row level.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite checkpoint store.
// The path should be a file path (e.g., "./threads.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS threads (
			thread_id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			next_node TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			data BLOB NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Create implements Store.
func (s *SQLiteStore) Create(threadID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	// Pre-check under the write lock; the primary key still backstops a
	// race from another process.
	var exists int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM threads WHERE thread_id = ?`, threadID).Scan(&exists); err != nil {
		return fmt.Errorf("check thread: %w", err)
	}
	if exists > 0 {
		return ErrThreadExists
	}

	status, nextNode, updatedAt := envelopeMeta(data)
	_, err := s.db.Exec(`
		INSERT INTO threads (thread_id, status, next_node, updated_at, data)
		VALUES (?, ?, ?, ?, ?)
	`, threadID, string(status), nextNode, updatedAt.Format(time.RFC3339Nano), data)
	if err != nil {
		return fmt.Errorf("create thread: %w", err)
	}
	return nil
}

// Save implements Store.
func (s *SQLiteStore) Save(threadID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	status, nextNode, updatedAt := envelopeMeta(data)
	res, err := s.db.Exec(`
		UPDATE threads
		SET status = ?, next_node = ?, updated_at = ?, data = ?
		WHERE thread_id = ?
	`, string(status), nextNode, updatedAt.Format(time.RFC3339Nano), data, threadID)
	if err != nil {
		return fmt.Errorf("save thread: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save thread: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(threadID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var data []byte
	err := s.db.QueryRow(`
		SELECT data FROM threads WHERE thread_id = ?
	`, threadID).Scan(&data)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load thread: %w", err)
	}
	return data, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(`DELETE FROM threads WHERE thread_id = ?`, threadID)
	if err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	return nil
}

// List implements Store.
func (s *SQLiteStore) List() ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT thread_id, status, next_node, updated_at, LENGTH(data)
		FROM threads
		ORDER BY thread_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	var infos []Info
	for rows.Next() {
		var info Info
		var status, updatedAt string
		if err := rows.Scan(&info.ThreadID, &status, &info.NextNode, &updatedAt, &info.Size); err != nil {
			return nil, fmt.Errorf("scan thread info: %w", err)
		}
		info.Status = Status(status)
		info.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		infos = append(infos, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threads: %w", err)
	}
	return infos, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

// envelopeMeta extracts indexed columns from checkpoint bytes.
// Falls back to zero values for non-envelope payloads.
func envelopeMeta(data []byte) (Status, string, time.Time) {
	cp, err := Unmarshal(data)
	if err != nil {
		return "", "", time.Now().UTC()
	}
	updatedAt := cp.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	return cp.Status, cp.NextNode, updatedAt
}
