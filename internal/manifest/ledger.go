package manifest

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"ServicerFeed/internal/feed"

	"github.com/allisson/go-pglock/v3"
	"github.com/pkg/errors"
)

// Attempt outcomes persisted per filename.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ledgerLockID is the advisory-lock key guarding the whole ingestion run.
// Two overlapping runs against the same database must not both proceed; the
// second fails fast instead of interleaving ledger writes.
const ledgerLockID int64 = 7420241

// Entry is the durable record of one processed remote filename. A filename
// maps to at most one entry; a re-appearing file with different content is
// recorded as a fresh attempt over the old row.
type Entry struct {
	Filename     string
	RunID        string
	ContentHash  string
	DownloadedAt time.Time
	Kind         feed.Kind
	AsOfDate     string
	Status       string
	RowsRead     int
	RowsInserted int
	RowsSkipped  int
	Errors       []string
}

// Ledger persists import outcomes in the ingest_manifest table.
type Ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// AcquireRunLock takes the run-wide advisory lock. ok=false means another
// run holds it; callers must exit without touching the ledger. The returned
// release func is safe to defer.
func (l *Ledger) AcquireRunLock(ctx context.Context) (ok bool, release func(), err error) {
	lock, err := pglock.NewLock(ctx, ledgerLockID, l.db)
	if err != nil {
		return false, nil, errors.Wrap(err, "creating ledger lock")
	}
	locked, err := lock.Lock(ctx)
	if err != nil {
		return false, nil, errors.Wrap(err, "acquiring ledger lock")
	}
	if !locked {
		return false, func() {}, nil
	}
	return true, func() { _ = lock.Unlock(context.Background()) }, nil
}

// HasProcessed reports whether filename already has a completed entry. A
// failed attempt does not count: the next run retries it.
func (l *Ledger) HasProcessed(ctx context.Context, filename string) (bool, error) {
	var status string
	err := l.db.QueryRowContext(ctx,
		`SELECT status FROM ingest_manifest WHERE filename = $1`, filename).Scan(&status)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "looking up manifest entry for %s", filename)
	}
	return status == StatusCompleted, nil
}

// Get returns the entry for filename, or nil when none exists.
func (l *Ledger) Get(ctx context.Context, filename string) (*Entry, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT filename, run_id, content_hash, downloaded_at, kind, as_of_date,
		       status, rows_read, rows_inserted, rows_skipped, errors
		FROM ingest_manifest WHERE filename = $1`, filename)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "loading manifest entry for %s", filename)
	}
	return e, nil
}

// RecordAttempt upserts the outcome for one filename. The filename key keeps
// the one-entry-per-file invariant; a repeat attempt replaces the prior
// outcome and bumps updated_at.
func (l *Ledger) RecordAttempt(ctx context.Context, e Entry) error {
	errJSON, err := json.Marshal(e.Errors)
	if err != nil {
		return errors.Wrap(err, "encoding manifest errors")
	}
	_, err = l.db.ExecContext(ctx, `
		INSERT INTO ingest_manifest
			(filename, run_id, content_hash, downloaded_at, kind, as_of_date,
			 status, rows_read, rows_inserted, rows_skipped, errors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (filename) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			content_hash = EXCLUDED.content_hash,
			downloaded_at = EXCLUDED.downloaded_at,
			kind = EXCLUDED.kind,
			as_of_date = EXCLUDED.as_of_date,
			status = EXCLUDED.status,
			rows_read = EXCLUDED.rows_read,
			rows_inserted = EXCLUDED.rows_inserted,
			rows_skipped = EXCLUDED.rows_skipped,
			errors = EXCLUDED.errors,
			updated_at = now()`,
		e.Filename, e.RunID, e.ContentHash, e.DownloadedAt, string(e.Kind), e.AsOfDate,
		e.Status, e.RowsRead, e.RowsInserted, e.RowsSkipped, errJSON)
	if err != nil {
		return errors.Wrapf(err, "recording manifest attempt for %s", e.Filename)
	}
	return nil
}

// List returns the most recent entries, newest first.
func (l *Ledger) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT filename, run_id, content_hash, downloaded_at, kind, as_of_date,
		       status, rows_read, rows_inserted, rows_skipped, errors
		FROM ingest_manifest ORDER BY downloaded_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "listing manifest entries")
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning manifest entry")
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "reading manifest entries")
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var e Entry
	var kind string
	var errJSON []byte
	err := row.Scan(&e.Filename, &e.RunID, &e.ContentHash, &e.DownloadedAt, &kind,
		&e.AsOfDate, &e.Status, &e.RowsRead, &e.RowsInserted, &e.RowsSkipped, &errJSON)
	if err != nil {
		return nil, err
	}
	e.Kind = feed.Kind(kind)
	if len(errJSON) > 0 {
		if err := json.Unmarshal(errJSON, &e.Errors); err != nil {
			return nil, errors.Wrap(err, "decoding manifest errors")
		}
	}
	return &e, nil
}
