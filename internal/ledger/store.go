package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages ledger persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// URLEntry is one row of the URL keyspace.
type URLEntry struct {
	URL       string
	CreatedAt time.Time
}

// ContentEntry is one row of the content keyspace.
type ContentEntry struct {
	Hash      string
	Path      string
	CreatedAt time.Time
}

// Stats summarizes both keyspaces.
type Stats struct {
	Path         string
	URLCount     int
	ContentCount int
	LastURLAt    time.Time
}

// pragmas are applied per connection through the DSN so every pooled
// connection shares the same busy and journal behaviour.
var pragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

// Open initializes or connects to the ledger database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("ledger path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func dsn(path string) string {
	var b strings.Builder
	b.WriteString(path)
	for i, p := range pragmas {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString("_pragma=")
		b.WriteString(p)
	}
	return b.String()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// NormalizeURL produces the URL keyspace key.
func NormalizeURL(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// HasURL reports whether the URL keyspace contains url.
func (s *Store) HasURL(ctx context.Context, url string) (bool, error) {
	key := NormalizeURL(url)
	if key == "" {
		return false, nil
	}
	var count int
	err := s.queryRowWithRetry(ctx, func(row *sql.Row) error {
		return row.Scan(&count)
	}, "SELECT COUNT(1) FROM urls WHERE url = ?", key)
	if err != nil {
		return false, fmt.Errorf("lookup url: %w", err)
	}
	return count > 0, nil
}

// MarkURL records url. Marking an existing URL is a no-op.
func (s *Store) MarkURL(ctx context.Context, url string) error {
	key := NormalizeURL(url)
	if key == "" {
		return errors.New("mark url: empty url")
	}
	if _, err := s.execWithRetry(ctx,
		"INSERT OR IGNORE INTO urls (url, created_at) VALUES (?, ?)",
		key, nowStamp(),
	); err != nil {
		return fmt.Errorf("mark url: %w", err)
	}
	return nil
}

// RegisterContent claims hash for path. It returns false without modifying
// anything when another path already holds the claim.
func (s *Store) RegisterContent(ctx context.Context, hash, path string) (bool, error) {
	hash = strings.ToLower(strings.TrimSpace(hash))
	if hash == "" {
		return false, errors.New("register content: empty hash")
	}
	res, err := s.execWithRetry(ctx,
		"INSERT INTO contents (hash, path, created_at) VALUES (?, ?, ?) ON CONFLICT(hash) DO NOTHING",
		hash, path, nowStamp(),
	)
	if err != nil {
		return false, fmt.Errorf("register content: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("register content rows affected: %w", err)
	}
	return affected == 1, nil
}

// ContentPath returns the path that claimed hash.
func (s *Store) ContentPath(ctx context.Context, hash string) (string, bool, error) {
	var path string
	err := s.queryRowWithRetry(ctx, func(row *sql.Row) error {
		return row.Scan(&path)
	}, "SELECT path FROM contents WHERE hash = ?", strings.ToLower(strings.TrimSpace(hash)))
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup content: %w", err)
	}
	return path, true, nil
}

// Stats counts entries in both keyspaces.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Path: s.path}
	var last sql.NullString
	err := s.queryRowWithRetry(ctx, func(row *sql.Row) error {
		return row.Scan(&stats.URLCount, &stats.ContentCount, &last)
	}, `SELECT
            (SELECT COUNT(1) FROM urls),
            (SELECT COUNT(1) FROM contents),
            (SELECT MAX(created_at) FROM urls)`)
	if err != nil {
		return Stats{}, fmt.Errorf("ledger stats: %w", err)
	}
	stats.LastURLAt = parseStamp(last.String)
	return stats, nil
}

// ListURLs returns the most recent URL entries, newest first. A limit <= 0
// returns every entry.
func (s *Store) ListURLs(ctx context.Context, limit int) ([]URLEntry, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT url, created_at FROM urls ORDER BY created_at DESC, url LIMIT ?", sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list urls: %w", err)
	}
	defer rows.Close()

	var entries []URLEntry
	for rows.Next() {
		var (
			entry   URLEntry
			created string
		)
		if err := rows.Scan(&entry.URL, &created); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		entry.CreatedAt = parseStamp(created)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ListContents returns the most recent content claims, newest first. A
// limit <= 0 returns every entry.
func (s *Store) ListContents(ctx context.Context, limit int) ([]ContentEntry, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT hash, path, created_at FROM contents ORDER BY created_at DESC, hash LIMIT ?", sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list contents: %w", err)
	}
	defer rows.Close()

	var entries []ContentEntry
	for rows.Next() {
		var (
			entry   ContentEntry
			created string
		)
		if err := rows.Scan(&entry.Hash, &entry.Path, &created); err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		entry.CreatedAt = parseStamp(created)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
