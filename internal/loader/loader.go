package loader

import (
	"context"
	"fmt"

	"ServicerFeed/internal/feed"
	"ServicerFeed/internal/landing"
)

// DefaultBatchSize is the insert batch size when the caller sets none.
const DefaultBatchSize = 2000

// Options control one file's load.
type Options struct {
	BatchSize int
	// DryRun counts what would be inserted without writing.
	DryRun bool
	// ReportSkips collects a per-row reason for every skipped row.
	ReportSkips bool
}

// Result is the aggregate outcome of loading one file.
type Result struct {
	RowsRead     int
	RowsInserted int
	RowsSkipped  int
	// Errors are row-level failures (missing natural-key components).
	Errors []string
	// Skips holds per-row skip reasons when Options.ReportSkips is set.
	Skips []string
}

// Loader lands normalized rows through a landing.Store, enforcing the
// natural-key uniqueness rules ahead of the storage constraint.
type Loader struct {
	store landing.Store
}

func New(store landing.Store) *Loader {
	return &Loader{store: store}
}

// Load deduplicates and inserts one file's normalized rows.
//
// Rows with an empty key component are skipped and recorded as errors.
// Within the file, the first occurrence of a natural key wins; later rows
// are skipped so re-runs stay deterministic. Keys already landed for this
// (kind, as-of date) are skipped as routine duplicates. Remaining rows go
// in fixed-size batches with conflict-ignoring inserts, so a crash between
// batches re-runs cleanly.
func (l *Loader) Load(ctx context.Context, spec *feed.Spec, asOfDate string, rows []map[string]string, opts Options) (Result, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	res := Result{RowsRead: len(rows)}

	seen := map[string]int{}
	type keyed struct {
		key string
		row map[string]string
	}
	candidates := make([]keyed, 0, len(rows))
	// record indices are 1-based over the normalized rows; blank source
	// lines are already gone, so file line numbers would drift
	for i, row := range rows {
		key, ok := landing.NaturalKey(spec, row)
		if !ok {
			res.RowsSkipped++
			res.Errors = append(res.Errors, fmt.Sprintf("record %d: missing natural key component (%v)", i+1, spec.KeyColumns))
			continue
		}
		if first, dup := seen[key]; dup {
			res.RowsSkipped++
			if opts.ReportSkips {
				res.Skips = append(res.Skips, fmt.Sprintf("record %d: duplicate of record %d within file", i+1, first))
			}
			continue
		}
		seen[key] = i + 1
		candidates = append(candidates, keyed{key: key, row: row})
	}

	existing, err := l.store.ExistingKeys(ctx, spec, asOfDate)
	if err != nil {
		return res, err
	}

	insertSet := make([]map[string]string, 0, len(candidates))
	for _, c := range candidates {
		if existing[c.key] {
			res.RowsSkipped++
			if opts.ReportSkips {
				res.Skips = append(res.Skips, fmt.Sprintf("key %q: already landed for %s", c.key, asOfDate))
			}
			continue
		}
		insertSet = append(insertSet, c.row)
	}

	if opts.DryRun {
		res.RowsInserted = len(insertSet)
		return res, nil
	}

	for start := 0; start < len(insertSet); start += opts.BatchSize {
		end := start + opts.BatchSize
		if end > len(insertSet) {
			end = len(insertSet)
		}
		batch := insertSet[start:end]
		inserted, err := l.store.InsertBatch(ctx, spec, asOfDate, batch)
		if err != nil {
			return res, err
		}
		res.RowsInserted += int(inserted)
		// conflicts swallowed by the storage constraint count as skips
		if lost := len(batch) - int(inserted); lost > 0 {
			res.RowsSkipped += lost
			if opts.ReportSkips {
				res.Skips = append(res.Skips, fmt.Sprintf("batch %d-%d: %d rows already present at insert time", start, end, lost))
			}
		}
	}
	return res, nil
}
