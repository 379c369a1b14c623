package videofeed

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
	"tidings/internal/fuzzy"
	"tidings/internal/logger"
)

const (
	// maxRows is the hard cap; the oldest rows are evicted past it.
	maxRows = 200

	fuzzyThreshold = 0.85

	writeRetries    = 10
	retryBackoffMin = 500 * time.Millisecond
	retryBackoffMax = 2 * time.Second
)

// Store is the embedded video cache. Rows are insert-only from the worker's
// point of view, so moderation state survives re-ingest of the same id.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the video database at dataDir/file.
func NewStore(dataDir, file string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, file)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=60000")
	if err != nil {
		return nil, fmt.Errorf("failed to open video database: %w", err)
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize video database: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	table := `
	CREATE TABLE IF NOT EXISTS videos (
		id TEXT PRIMARY KEY,
		title TEXT,
		url TEXT,
		thumbnail TEXT,
		channel TEXT,
		views TEXT,
		published TEXT,
		timestamp REAL,
		is_approved INTEGER DEFAULT 1
	);`
	if _, err := s.db.Exec(table); err != nil {
		return fmt.Errorf("failed to create videos table: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

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

// Insert writes candidates that are genuinely new: existing ids are skipped,
// and a title within the fuzzy threshold of any stored title rejects the
// later arrival. Returns how many rows landed.
func (s *Store) Insert(videos []core.CachedVideo) (int, error) {
	if len(videos) == 0 {
		return 0, nil
	}

	existing, err := s.titles()
	if err != nil {
		return 0, err
	}

	saved := 0
	err = retryWrite(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO videos
			(id, title, url, thumbnail, channel, views, published, timestamp, is_approved)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		defer func() { _ = stmt.Close() }()

		saved = 0
		for _, v := range videos {
			if isFuzzyDuplicate(v.Title, existing) {
				continue
			}
			approved := 0
			if v.IsApproved {
				approved = 1
			}
			res, err := stmt.Exec(v.ID, v.Title, v.URL, v.Thumbnail, v.Channel,
				v.Views, v.Published, v.Timestamp, approved)
			if err != nil {
				_ = tx.Rollback()
				return err
			}
			if n, err := res.RowsAffected(); err == nil && n > 0 {
				existing = append(existing, v.Title)
				saved++
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}

	if err := s.enforceCap(); err != nil {
		logger.Warn("video cap enforcement skipped", "error", err.Error())
	}
	return saved, nil
}

// isFuzzyDuplicate reports whether title is a near-duplicate of any existing
// title after normalization.
func isFuzzyDuplicate(title string, existing []string) bool {
	if fuzzy.NormalizeTitle(title) == "" {
		return false
	}
	for _, t := range existing {
		if fuzzy.TitlesSimilar(title, t, fuzzyThreshold) {
			return true
		}
	}
	return false
}

// enforceCap deletes the oldest rows past the cap.
func (s *Store) enforceCap() error {
	n, err := s.Count()
	if err != nil {
		return err
	}
	if n <= maxRows {
		return nil
	}
	excess := n - maxRows
	return retryWrite(func() error {
		_, err := s.db.Exec(`DELETE FROM videos WHERE id IN
			(SELECT id FROM videos ORDER BY timestamp ASC LIMIT ?)`, excess)
		return err
	})
}

func (s *Store) titles() ([]string, error) {
	rows, err := s.db.Query(`SELECT title FROM videos`)
	if err != nil {
		return nil, fmt.Errorf("failed to read video titles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

// List returns approved rows newest first.
func (s *Store) List(limit int) ([]core.CachedVideo, error) {
	rows, err := s.db.Query(`SELECT id, title, url, thumbnail, channel, views,
		published, timestamp, is_approved FROM videos
		WHERE is_approved = 1 ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read videos: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanVideos(rows)
}

// ListAll returns every row regardless of approval, for admin moderation.
func (s *Store) ListAll(limit int) ([]core.CachedVideo, error) {
	rows, err := s.db.Query(`SELECT id, title, url, thumbnail, channel, views,
		published, timestamp, is_approved FROM videos
		ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read videos: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanVideos(rows)
}

func scanVideos(rows *sql.Rows) ([]core.CachedVideo, error) {
	var videos []core.CachedVideo
	for rows.Next() {
		var v core.CachedVideo
		var approved int
		if err := rows.Scan(&v.ID, &v.Title, &v.URL, &v.Thumbnail, &v.Channel,
			&v.Views, &v.Published, &v.Timestamp, &approved); err != nil {
			return nil, fmt.Errorf("failed to scan video row: %w", err)
		}
		v.IsApproved = approved == 1
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

// SetApproved toggles moderation state for one row.
func (s *Store) SetApproved(id string, approved bool) error {
	v := 0
	if approved {
		v = 1
	}
	return retryWrite(func() error {
		_, err := s.db.Exec(`UPDATE videos SET is_approved = ? WHERE id = ?`, v, id)
		return err
	})
}

// Count returns the total row count.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM videos`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count videos: %w", err)
	}
	return n, nil
}
