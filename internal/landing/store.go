package landing

import (
	"context"
	"fmt"
	"strings"

	"ServicerFeed/internal/feed"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// keySep joins natural-key components into one comparable string. Unit
// separator cannot appear in cleaned cell text.
const keySep = "\x1f"

// NaturalKey builds the comparable key for one row under a kind's spec.
// Returns false when any component is empty; such rows must never be
// inserted.
func NaturalKey(spec *feed.Spec, row map[string]string) (string, bool) {
	parts := make([]string, 0, len(spec.KeyColumns))
	for _, col := range spec.KeyColumns {
		v := strings.TrimSpace(row[col])
		if v == "" {
			return "", false
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, keySep), true
}

// Store is the per-kind raw landing surface the batch loader writes through.
// No update or delete: raw rows are created once and owned by downstream
// transformation after that.
type Store interface {
	ExistingKeys(ctx context.Context, spec *feed.Spec, asOfDate string) (map[string]bool, error)
	InsertBatch(ctx context.Context, spec *feed.Spec, asOfDate string, rows []map[string]string) (int64, error)
}

// PGStore lands rows into the per-kind Postgres tables.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// ExistingKeys loads every natural key already landed for (kind, as-of date).
// The loader consults this before inserting so duplicates are counted as
// skips instead of silently swallowed by the unique index.
func (s *PGStore) ExistingKeys(ctx context.Context, spec *feed.Spec, asOfDate string) (map[string]bool, error) {
	cols := strings.Join(spec.KeyColumns, ", ")
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE as_of_date = $1`, cols, spec.Table)
	rows, err := s.pool.Query(ctx, q, asOfDate)
	if err != nil {
		return nil, errors.Wrapf(err, "querying existing keys for %s", spec.Table)
	}
	defer rows.Close()

	keys := make(map[string]bool)
	vals := make([]*string, len(spec.KeyColumns))
	scan := make([]interface{}, len(spec.KeyColumns))
	for i := range vals {
		vals[i] = new(string)
		scan[i] = vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return nil, errors.Wrapf(err, "scanning existing keys for %s", spec.Table)
		}
		parts := make([]string, len(vals))
		for i, v := range vals {
			parts[i] = *v
		}
		keys[strings.Join(parts, keySep)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading existing keys for %s", spec.Table)
	}
	return keys, nil
}

// InsertBatch writes one batch with ON CONFLICT DO NOTHING so a re-run after
// a partial prior failure completes the remainder instead of aborting. The
// unique natural-key index is the second line of defense beneath the
// loader's pre-check.
func (s *PGStore) InsertBatch(ctx context.Context, spec *feed.Spec, asOfDate string, rows []map[string]string) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	sql, args := buildInsertSQL(spec, asOfDate, rows)
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, errors.Wrapf(err, "inserting batch into %s", spec.Table)
	}
	return tag.RowsAffected(), nil
}

func buildInsertSQL(spec *feed.Spec, asOfDate string, rows []map[string]string) (string, []interface{}) {
	cols := append([]string{"as_of_date"}, spec.Columns...)
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", spec.Table, strings.Join(cols, ", "))

	args := make([]interface{}, 0, len(rows)*len(cols))
	n := 1
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		ph := make([]string, len(cols))
		for j := range cols {
			ph[j] = fmt.Sprintf("$%d", n)
			n++
		}
		sb.WriteString("(" + strings.Join(ph, ", ") + ")")
		args = append(args, asOfDate)
		for _, col := range spec.Columns {
			args = append(args, row[col])
		}
	}
	sb.WriteString(" ON CONFLICT DO NOTHING")
	return sb.String(), args
}
