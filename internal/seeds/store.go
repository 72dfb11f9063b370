// Package seeds persists the demo's funded account seeds in SQLite. The
// list is tiny and churns rarely; the store favors the same robustness
// conveniences as the rest of the service (WAL, busy timeout, change
// notification) over performance.
package seeds

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	defaultDBFile    = "seeds.db"
	maxBusyTimeoutMs = 5000
)

// ErrNotFound reports a seed absent from the store.
var ErrNotFound = errors.New("seed not found")

// Entry is one stored demo credential: the raw seed and the address it
// derives to, kept alongside so the dashboard can list accounts without
// re-deriving.
type Entry struct {
	Seed    string    `json:"seed"`
	Address string    `json:"address"`
	AddedAt time.Time `json:"added_at"`
}

// Store manages the seed list and its persistence to a SQLite file.
type Store struct {
	mu      sync.RWMutex
	db      *sql.DB
	file    string
	updates chan struct{}
}

// NewStore opens (or creates) the seed database at filePath.
func NewStore(filePath string) (*Store, error) {
	if filePath == "" {
		filePath = defaultDBFile
	}
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}

	s := &Store{
		file:    absPath,
		updates: make(chan struct{}, 1),
	}
	if err := s.openDB(); err != nil {
		return nil, err
	}
	if err := s.ensureSchema(); err != nil {
		_ = s.db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) openDB() error {
	if err := os.MkdirAll(filepath.Dir(s.file), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s", filepath.Clean(s.file)))
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", maxBusyTimeoutMs)); err != nil {
		db.Close()
		return fmt.Errorf("set busy timeout: %w", err)
	}

	s.db = db
	return nil
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS seeds (
		seed TEXT PRIMARY KEY,
		address TEXT NOT NULL,
		added_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create seeds table: %w", err)
	}

	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode=WAL").Scan(&mode); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}
	return nil
}

// Updates returns a channel that receives a value whenever the seed list
// changes.
func (s *Store) Updates() <-chan struct{} {
	return s.updates
}

func (s *Store) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Add stores a seed with its derived address. Adding a seed that is
// already present is a no-op.
func (s *Store) Add(seed, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO seeds (seed, address, added_at) VALUES (?, ?, ?)`,
		seed, address, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert seed: %w", err)
	}
	s.notify()
	return nil
}

// Remove deletes a seed from the store.
func (s *Store) Remove(seed string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM seeds WHERE seed = ?`, seed)
	if err != nil {
		return fmt.Errorf("delete seed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.notify()
	return nil
}

// All returns every stored entry in insertion order.
func (s *Store) All() ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT seed, address, added_at FROM seeds ORDER BY added_at, seed`)
	if err != nil {
		return nil, fmt.Errorf("query seeds: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var added string
		if err := rows.Scan(&e.Seed, &e.Address, &added); err != nil {
			return nil, fmt.Errorf("scan seed row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, added); err == nil {
			e.AddedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the entry for one seed.
func (s *Store) Get(seed string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var e Entry
	var added string
	err := s.db.QueryRow(`SELECT seed, address, added_at FROM seeds WHERE seed = ?`, seed).
		Scan(&e.Seed, &e.Address, &added)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query seed: %w", err)
	}
	if t, err := time.Parse(time.RFC3339, added); err == nil {
		e.AddedAt = t
	}
	return &e, nil
}
