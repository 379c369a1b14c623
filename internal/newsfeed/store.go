package newsfeed

import (
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tidings/internal/core"
	"tidings/internal/logger"
)

const (
	// writeRetries is how many times a contended write is retried before the
	// operation is skipped for this cycle.
	writeRetries = 10

	retryBackoffMin = 500 * time.Millisecond
	retryBackoffMax = 2 * time.Second
)

// Store is the embedded news cache. The news worker is its only writer;
// readers are concurrent and non-mutating.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the news database at dataDir/file with WAL
// journaling and a 60s busy timeout.
func NewStore(dataDir, file string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, file)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=60000")
	if err != nil {
		return nil, fmt.Errorf("failed to open news database: %w", err)
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize news database: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	table := `
	CREATE TABLE IF NOT EXISTS news (
		id TEXT PRIMARY KEY,
		title TEXT,
		url TEXT,
		published TEXT,
		source TEXT,
		image TEXT,
		guid TEXT,
		timestamp REAL,
		snippet TEXT,
		is_approved INTEGER DEFAULT 1
	);`
	if _, err := s.db.Exec(table); err != nil {
		return fmt.Errorf("failed to create news table: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// retryWrite runs fn, retrying locked-database failures with random backoff.
// After exhaustion the error wraps ErrStoreContention; callers log and skip.
func retryWrite(fn func() error) error {
	var err error
	for attempt := 0; attempt < writeRetries; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !isLocked(err) {
			return err
		}
		jitter := retryBackoffMin + time.Duration(rand.Int63n(int64(retryBackoffMax-retryBackoffMin)))
		time.Sleep(jitter)
	}
	return fmt.Errorf("%w: %v", core.ErrStoreContention, err)
}

func isLocked(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}

// Upsert writes articles by id, refreshing the content columns of existing
// rows. The approval flag is set only on first insert; re-ingest never undoes
// an admin decision. The whole batch runs in one transaction to minimize the
// lock window.
func (s *Store) Upsert(articles []core.CachedArticle) error {
	return s.writeBatch(articles, `INSERT INTO news
		(id, title, url, published, source, image, guid, timestamp, snippet, is_approved)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			url = excluded.url,
			published = excluded.published,
			source = excluded.source,
			image = excluded.image,
			guid = excluded.guid,
			timestamp = excluded.timestamp,
			snippet = excluded.snippet`)
}

// InsertIgnore writes only novel rows; live searches use it to warm the
// cache without clobbering worker-maintained rows.
func (s *Store) InsertIgnore(articles []core.CachedArticle) error {
	return s.writeBatch(articles, `INSERT OR IGNORE INTO news
		(id, title, url, published, source, image, guid, timestamp, snippet, is_approved)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
}

func (s *Store) writeBatch(articles []core.CachedArticle, query string) error {
	if len(articles) == 0 {
		return nil
	}
	return retryWrite(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		stmt, err := tx.Prepare(query)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		defer func() { _ = stmt.Close() }()

		for _, a := range articles {
			approved := 0
			if a.IsApproved {
				approved = 1
			}
			if _, err := stmt.Exec(a.ID, a.Title, a.URL, a.Published, a.Source,
				a.Image, a.GUID, a.Timestamp, a.Snippet, approved); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
}

// Cleanup deletes rows past retention: 3 days normally, 7 days when the
// title carries a pinned token.
func (s *Store) Cleanup(now time.Time, retentionDays, pinnedDays int) error {
	cutoff := float64(now.Add(-time.Duration(retentionDays) * 24 * time.Hour).Unix())
	pinnedCutoff := float64(now.Add(-time.Duration(pinnedDays) * 24 * time.Hour).Unix())

	conds := make([]string, 0, len(core.PinnedTokens))
	args := []any{cutoff}
	for _, token := range core.PinnedTokens {
		conds = append(conds, "LOWER(title) NOT LIKE ?")
		args = append(args, "%"+token+"%")
	}
	query := "DELETE FROM news WHERE (timestamp < ? AND " + strings.Join(conds, " AND ") + ")"
	query += " OR timestamp < ?"
	args = append(args, pinnedCutoff)

	return retryWrite(func() error {
		res, err := s.db.Exec(query, args...)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			logger.Debug("news cleanup removed rows", "rows", n)
		}
		return nil
	})
}

// List returns approved rows newest first.
func (s *Store) List(limit int) ([]core.CachedArticle, error) {
	rows, err := s.db.Query(`SELECT id, title, url, published, source, image, guid,
		timestamp, snippet, is_approved FROM news
		WHERE is_approved = 1 ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read news: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanArticles(rows)
}

// ListAll returns every row regardless of approval, for admin moderation.
func (s *Store) ListAll(limit int) ([]core.CachedArticle, error) {
	rows, err := s.db.Query(`SELECT id, title, url, published, source, image, guid,
		timestamp, snippet, is_approved FROM news
		ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read news: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanArticles(rows)
}

func scanArticles(rows *sql.Rows) ([]core.CachedArticle, error) {
	var articles []core.CachedArticle
	for rows.Next() {
		var a core.CachedArticle
		var image sql.NullString
		var approved int
		if err := rows.Scan(&a.ID, &a.Title, &a.URL, &a.Published, &a.Source,
			&image, &a.GUID, &a.Timestamp, &a.Snippet, &approved); err != nil {
			return nil, fmt.Errorf("failed to scan news row: %w", err)
		}
		if image.Valid && image.String != "" {
			a.Image = &image.String
		}
		a.IsApproved = approved == 1
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// SetApproved toggles moderation state for one row.
func (s *Store) SetApproved(id string, approved bool) error {
	v := 0
	if approved {
		v = 1
	}
	return retryWrite(func() error {
		_, err := s.db.Exec(`UPDATE news SET is_approved = ? WHERE id = ?`, v, id)
		return err
	})
}

// Count returns the total row count.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM news`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count news: %w", err)
	}
	return n, nil
}
