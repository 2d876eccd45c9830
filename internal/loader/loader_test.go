package loader

import (
	"context"
	"fmt"
	"testing"

	"ServicerFeed/internal/feed"
	"ServicerFeed/internal/landing"

	"github.com/stretchr/testify/assert"
)

// memStore is an in-memory landing.Store for loader tests.
type memStore struct {
	keys       map[string]bool
	batchSizes []int
	failInsert error
}

func newMemStore(existing ...string) *memStore {
	keys := map[string]bool{}
	for _, k := range existing {
		keys[k] = true
	}
	return &memStore{keys: keys}
}

func (m *memStore) ExistingKeys(_ context.Context, _ *feed.Spec, _ string) (map[string]bool, error) {
	out := make(map[string]bool, len(m.keys))
	for k, v := range m.keys {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) InsertBatch(_ context.Context, spec *feed.Spec, _ string, rows []map[string]string) (int64, error) {
	if m.failInsert != nil {
		return 0, m.failInsert
	}
	m.batchSizes = append(m.batchSizes, len(rows))
	var inserted int64
	for _, row := range rows {
		key, ok := landing.NaturalKey(spec, row)
		if !ok {
			continue
		}
		if !m.keys[key] {
			m.keys[key] = true
			inserted++
		}
	}
	return inserted, nil
}

func loanRow(id string) map[string]string {
	return map[string]string{"loan_id": id, "principal_balance": "100.00"}
}

func TestLoadInsertsAllFreshRows(t *testing.T) {
	store := newMemStore()
	l := New(store)
	spec := feed.SpecFor(feed.KindEOMTrialBalance)

	rows := []map[string]string{loanRow("1001"), loanRow("1002"), loanRow("1003")}
	res, err := l.Load(context.Background(), spec, "2024-01-31", rows, Options{})
	assert.NoError(t, err)
	assert.Equal(t, 3, res.RowsRead)
	assert.Equal(t, 3, res.RowsInserted)
	assert.Equal(t, 0, res.RowsSkipped)
	assert.Empty(t, res.Errors)
}

func TestLoadWithinFileDuplicateFirstWins(t *testing.T) {
	store := newMemStore()
	l := New(store)
	spec := feed.SpecFor(feed.KindEOMTrialBalance)

	first := loanRow("1001")
	first["principal_balance"] = "111.11"
	second := loanRow("1001")
	second["principal_balance"] = "222.22"

	res, err := l.Load(context.Background(), spec, "2024-01-31", []map[string]string{first, second}, Options{ReportSkips: true})
	assert.NoError(t, err)
	assert.Equal(t, 1, res.RowsInserted)
	assert.Equal(t, 1, res.RowsSkipped)
	assert.Len(t, res.Skips, 1)
	assert.Contains(t, res.Skips[0], "record 2: duplicate of record 1 within file")
}

func TestLoadSkipsKeysAlreadyLanded(t *testing.T) {
	store := newMemStore("1001")
	l := New(store)
	spec := feed.SpecFor(feed.KindEOMTrialBalance)

	rows := []map[string]string{loanRow("1001"), loanRow("1002")}
	res, err := l.Load(context.Background(), spec, "2024-01-31", rows, Options{})
	assert.NoError(t, err)
	assert.Equal(t, 1, res.RowsInserted)
	assert.Equal(t, 1, res.RowsSkipped)
}

func TestLoadMissingKeyComponentIsRowError(t *testing.T) {
	store := newMemStore()
	l := New(store)
	spec := feed.SpecFor(feed.KindEOMTrialBalance)

	rows := []map[string]string{loanRow("1001"), {"loan_id": "", "principal_balance": "5"}}
	res, err := l.Load(context.Background(), spec, "2024-01-31", rows, Options{})
	assert.NoError(t, err)
	assert.Equal(t, 1, res.RowsInserted)
	assert.Equal(t, 1, res.RowsSkipped)
	assert.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "missing natural key")
}

func TestLoadPartialFailureIsolation(t *testing.T) {
	store := newMemStore()
	l := New(store)
	spec := feed.SpecFor(feed.KindEOMTrialBalance)

	rows := make([]map[string]string, 0, 1000)
	for i := 0; i < 999; i++ {
		rows = append(rows, loanRow(fmt.Sprintf("%d", 1000+i)))
	}
	rows = append(rows, map[string]string{"loan_id": ""})

	res, err := l.Load(context.Background(), spec, "2024-01-31", rows, Options{})
	assert.NoError(t, err)
	assert.Equal(t, 1000, res.RowsRead)
	assert.Equal(t, 999, res.RowsInserted)
	assert.Len(t, res.Errors, 1)
}

func TestLoadBatchSizing(t *testing.T) {
	store := newMemStore()
	l := New(store)
	spec := feed.SpecFor(feed.KindEOMTrialBalance)

	rows := make([]map[string]string, 0, 5)
	for i := 0; i < 5; i++ {
		rows = append(rows, loanRow(fmt.Sprintf("%d", 1000+i)))
	}
	res, err := l.Load(context.Background(), spec, "2024-01-31", rows, Options{BatchSize: 2})
	assert.NoError(t, err)
	assert.Equal(t, 5, res.RowsInserted)
	assert.Equal(t, []int{2, 2, 1}, store.batchSizes)
}

func TestLoadDryRunWritesNothing(t *testing.T) {
	store := newMemStore("1001")
	l := New(store)
	spec := feed.SpecFor(feed.KindEOMTrialBalance)

	rows := []map[string]string{loanRow("1001"), loanRow("1002")}
	res, err := l.Load(context.Background(), spec, "2024-01-31", rows, Options{DryRun: true})
	assert.NoError(t, err)
	assert.Equal(t, 1, res.RowsInserted)
	assert.Equal(t, 1, res.RowsSkipped)
	assert.Empty(t, store.batchSizes)
	assert.False(t, store.keys["1002"])
}

func TestLoadIdempotentSecondRun(t *testing.T) {
	store := newMemStore()
	l := New(store)
	spec := feed.SpecFor(feed.KindEOMTrialBalance)

	rows := []map[string]string{loanRow("1001"), loanRow("1002")}
	first, err := l.Load(context.Background(), spec, "2024-01-31", rows, Options{})
	assert.NoError(t, err)
	assert.Equal(t, 2, first.RowsInserted)

	second, err := l.Load(context.Background(), spec, "2024-01-31", rows, Options{})
	assert.NoError(t, err)
	assert.Equal(t, 0, second.RowsInserted)
	assert.Equal(t, 2, second.RowsSkipped)
}

func TestLoadConflictSwallowedCountsAsSkip(t *testing.T) {
	// simulate a row landing between the pre-check and the insert
	spec := feed.SpecFor(feed.KindEOMTrialBalance)
	race := &racingStore{memStore: newMemStore(), sneakKey: "1002"}

	res, err := New(race).Load(context.Background(), spec, "2024-01-31",
		[]map[string]string{loanRow("1001"), loanRow("1002")}, Options{ReportSkips: true})
	assert.NoError(t, err)
	assert.Equal(t, 1, res.RowsInserted)
	assert.Equal(t, 1, res.RowsSkipped)
}

type racingStore struct {
	*memStore
	sneakKey string
}

func (r *racingStore) ExistingKeys(ctx context.Context, spec *feed.Spec, asOf string) (map[string]bool, error) {
	keys, err := r.memStore.ExistingKeys(ctx, spec, asOf)
	if err == nil {
		// insert the racing row after the pre-check snapshot is taken
		r.memStore.keys[r.sneakKey] = true
	}
	return keys, err
}
