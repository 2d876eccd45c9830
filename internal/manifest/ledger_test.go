package manifest

import (
	"context"
	"testing"
	"time"

	"ServicerFeed/internal/feed"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

var entryColumns = []string{
	"filename", "run_id", "content_hash", "downloaded_at", "kind", "as_of_date",
	"status", "rows_read", "rows_inserted", "rows_skipped", "errors",
}

func TestHasProcessed(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	ledger := NewLedger(db)

	mock.ExpectQuery(`SELECT status FROM ingest_manifest`).
		WithArgs("a.xlsx").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(StatusCompleted))
	done, err := ledger.HasProcessed(context.Background(), "a.xlsx")
	assert.NoError(t, err)
	assert.True(t, done)

	// a failed prior attempt is retried, not skipped
	mock.ExpectQuery(`SELECT status FROM ingest_manifest`).
		WithArgs("b.xlsx").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(StatusFailed))
	done, err = ledger.HasProcessed(context.Background(), "b.xlsx")
	assert.NoError(t, err)
	assert.False(t, done)

	mock.ExpectQuery(`SELECT status FROM ingest_manifest`).
		WithArgs("c.xlsx").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	done, err = ledger.HasProcessed(context.Background(), "c.xlsx")
	assert.NoError(t, err)
	assert.False(t, done)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordAttemptUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	ledger := NewLedger(db)

	e := Entry{
		Filename:     "Partner_20240131_trialbalancedata_20240131.xlsx",
		RunID:        "run-1",
		ContentHash:  "abc123",
		DownloadedAt: time.Date(2024, 2, 1, 3, 0, 0, 0, time.UTC),
		Kind:         feed.KindEOMTrialBalance,
		AsOfDate:     "2024-01-31",
		Status:       StatusCompleted,
		RowsRead:     500,
		RowsInserted: 500,
		Errors:       []string{},
	}
	mock.ExpectExec(`INSERT INTO ingest_manifest`).
		WithArgs(e.Filename, e.RunID, e.ContentHash, e.DownloadedAt, "eom_trial_balance",
			e.AsOfDate, e.Status, 500, 500, 0, []byte("[]")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, ledger.RecordAttempt(context.Background(), e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReturnsNilWhenMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	ledger := NewLedger(db)

	mock.ExpectQuery(`SELECT filename, run_id`).
		WithArgs("missing.xlsx").
		WillReturnRows(sqlmock.NewRows(entryColumns))

	e, err := ledger.Get(context.Background(), "missing.xlsx")
	assert.NoError(t, err)
	assert.Nil(t, e)
}

func TestGetDecodesErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	ledger := NewLedger(db)

	ts := time.Date(2024, 2, 1, 3, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT filename, run_id`).
		WithArgs("a.xlsx").
		WillReturnRows(sqlmock.NewRows(entryColumns).
			AddRow("a.xlsx", "run-1", "abc", ts, "loan_data", "2024-01-31",
				StatusFailed, 10, 0, 10, []byte(`["row 2: missing natural key component"]`)))

	e, err := ledger.Get(context.Background(), "a.xlsx")
	assert.NoError(t, err)
	assert.Equal(t, feed.KindLoanData, e.Kind)
	assert.Equal(t, StatusFailed, e.Status)
	assert.Len(t, e.Errors, 1)
}

func TestListOrdersAndLimits(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	ledger := NewLedger(db)

	ts := time.Now().UTC()
	mock.ExpectQuery(`FROM ingest_manifest ORDER BY downloaded_at DESC LIMIT`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(entryColumns).
			AddRow("a.xlsx", "r1", "h1", ts, "loan_data", "2024-01-31", StatusCompleted, 1, 1, 0, []byte("[]")).
			AddRow("b.xlsx", "r1", "h2", ts, "pay_history", "2024-01-31", StatusCompleted, 2, 2, 0, []byte("[]")))

	entries, err := ledger.List(context.Background(), 2)
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, feed.KindPayHistory, entries[1].Kind)
}
