package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/jmoiron/sqlx"
	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/leynos/hoover/app/logcache"
)

// ErrNotFound is returned when a snapshot doesn't exist
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is one archived materialization of a stream
type Snapshot struct {
	ID        int64     `db:"id"`
	Stream    string    `db:"stream"`
	CreatedAt time.Time `db:"-"`
	Lines     int       `db:"lines"`
	Index     bool      `db:"with_index"`
	Timestamp bool      `db:"with_timestamp"`
	Text      string    `db:"-"`
}

// Options returns materialization options the snapshot was made with
func (s Snapshot) Options() logcache.Options {
	return logcache.Options{Index: s.Index, Timestamp: s.Timestamp}
}

// snapshotRow is the storage shape of Snapshot, time kept as unix millis and text zstd compressed
type snapshotRow struct {
	Snapshot
	CreatedAtMs int64  `db:"created_at"`
	Data        []byte `db:"text"`
}

func (r snapshotRow) snapshot() Snapshot {
	s := r.Snapshot
	s.CreatedAt = time.UnixMilli(r.CreatedAtMs)
	return s
}

// SQLiteStore keeps snapshots in SQLite
type SQLiteStore struct {
	db  *sqlx.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewSQLiteStore opens (or creates) the database at dbPath and makes the schema
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to set WAL mode: %w (also failed to close db: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	// EncodeAll and DecodeAll are safe for concurrent use, one pair serves the store
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to make compressor: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		_ = enc.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to make decompressor: %w", err)
	}

	s := &SQLiteStore{db: db, enc: enc, dec: dec}
	if err := s.initialize(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			stream TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			lines INTEGER NOT NULL,
			with_index BOOLEAN NOT NULL DEFAULT 0,
			with_timestamp BOOLEAN NOT NULL DEFAULT 0,
			text BLOB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_stream ON snapshots(stream, created_at)`,
	}
	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Save stores a snapshot and returns its id. Zero CreatedAt means now.
func (s *SQLiteStore) Save(snap Snapshot) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}
	res, err := s.db.NamedExecContext(ctx, `
		INSERT INTO snapshots (stream, created_at, lines, with_index, with_timestamp, text)
		VALUES (:stream, :created_at, :lines, :with_index, :with_timestamp, :text)`,
		snapshotRow{Snapshot: snap, CreatedAtMs: snap.CreatedAt.UnixMilli(),
			Data: s.enc.EncodeAll([]byte(snap.Text), nil)})
	if err != nil {
		return 0, fmt.Errorf("failed to save snapshot of %s: %w", snap.Stream, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get snapshot id: %w", err)
	}
	return id, nil
}

// List returns up to limit most recent snapshots of a stream, newest first, without text
func (s *SQLiteStore) List(stream string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows := []snapshotRow{}
	err := s.db.Select(&rows, `
		SELECT id, stream, created_at, lines, with_index, with_timestamp
		FROM snapshots WHERE stream = ? ORDER BY created_at DESC, id DESC LIMIT ?`, stream, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots of %s: %w", stream, err)
	}
	res := make([]Snapshot, 0, len(rows))
	for _, r := range rows {
		res = append(res, r.snapshot())
	}
	return res, nil
}

// Get returns a snapshot with its text
func (s *SQLiteStore) Get(id int64) (Snapshot, error) {
	var row snapshotRow
	err := s.db.Get(&row, `
		SELECT id, stream, created_at, lines, with_index, with_timestamp, text
		FROM snapshots WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to get snapshot %d: %w", id, err)
	}
	text, err := s.dec.DecodeAll(row.Data, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to decompress snapshot %d: %w", id, err)
	}
	snap := row.snapshot()
	snap.Text = string(text)
	return snap, nil
}

// Cleanup removes all but the keep most recent snapshots of a stream
func (s *SQLiteStore) Cleanup(stream string, keep int) error {
	if keep <= 0 {
		return nil
	}
	_, err := s.db.Exec(`
		DELETE FROM snapshots WHERE stream = ? AND id NOT IN (
			SELECT id FROM snapshots WHERE stream = ? ORDER BY created_at DESC, id DESC LIMIT ?
		)`, stream, stream, keep)
	if err != nil {
		return fmt.Errorf("failed to cleanup snapshots of %s: %w", stream, err)
	}
	return nil
}

// Close closes the database connection and releases the codecs
func (s *SQLiteStore) Close() error {
	s.dec.Close()
	if err := s.enc.Close(); err != nil {
		log.Printf("[WARN] failed to close compressor: %v", err)
	}
	return s.db.Close()
}
