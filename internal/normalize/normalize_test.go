package normalize

import (
	"bytes"
	"testing"

	"ServicerFeed/internal/feed"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"
)

func TestCanonicalHeader(t *testing.T) {
	cases := map[string]string{
		"Loan ID":              "loan_id",
		"  LOAN_NUMBER  ":      "loan_number",
		"Withdrawal Amt (INR)": "withdrawal_amt_inr",
		"Next-Due Date":        "next_due_date",
		"principal_balance":    "principal_balance",
		"P&I Payment":          "p_i_payment",
	}
	for in, want := range cases {
		assert.Equal(t, want, CanonicalHeader(in), "input %q", in)
	}
}

func TestCleanCell(t *testing.T) {
	assert.Equal(t, "a b", CleanCell("  a\r\nb \x00 "))
	assert.Equal(t, "x y", CleanCell("x y"))
}

func TestNormalizeMapsAliasesAndDropsExtras(t *testing.T) {
	spec := feed.SpecFor(feed.KindEOMTrialBalance)
	records := [][]string{
		{"Loan Number", "Current UPB", "Escrow", "Branch Office"},
		{"1001", "150000.00", "1200.50", "west"},
		{"1002", "98000.00", "", "east"},
	}
	rows, err := Normalize(records, spec)
	assert.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, "1001", rows[0]["loan_id"])
	assert.Equal(t, "150000.00", rows[0]["principal_balance"])
	assert.Equal(t, "1200.50", rows[0]["escrow_balance"])
	// informational column not in the mapping is dropped, not an error
	_, present := rows[0]["branch_office"]
	assert.False(t, present)
}

func TestNormalizeMissingKeyColumnIsStructural(t *testing.T) {
	spec := feed.SpecFor(feed.KindEOMTrialBalance)
	records := [][]string{
		{"Current UPB", "Escrow"},
		{"150000.00", "1200.50"},
	}
	_, err := Normalize(records, spec)
	assert.True(t, errors.Is(err, ErrStructural))
}

func TestNormalizeEmptyFileIsStructural(t *testing.T) {
	_, err := Normalize(nil, feed.SpecFor(feed.KindLoanData))
	assert.True(t, errors.Is(err, ErrStructural))
}

func TestNormalizeSkipsBlankRows(t *testing.T) {
	spec := feed.SpecFor(feed.KindEOMTrialBalance)
	records := [][]string{
		{"Loan Number"},
		{"1001"},
		{"", ""},
		{"1002"},
	}
	rows, err := Normalize(records, spec)
	assert.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestNormalizeShortRowPadsEmpty(t *testing.T) {
	spec := feed.SpecFor(feed.KindEOMTrialBalance)
	records := [][]string{
		{"Loan Number", "Current UPB"},
		{"1001"},
	}
	rows, err := Normalize(records, spec)
	assert.NoError(t, err)
	assert.Equal(t, "", rows[0]["principal_balance"])
}

func TestParseTabularCSV(t *testing.T) {
	data := []byte("Loan Number,Current UPB\n1001,150000.00\n")
	rows, err := ParseTabular("partner_trialbalancedata_20240131.csv", data)
	assert.NoError(t, err)
	assert.Equal(t, [][]string{{"Loan Number", "Current UPB"}, {"1001", "150000.00"}}, rows)
}

func TestParseTabularXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	assert.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Loan Number", "Current UPB"}))
	assert.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"1001", "150000.00"}))
	var buf bytes.Buffer
	assert.NoError(t, f.Write(&buf))

	rows, err := ParseTabular("partner_trialbalancedata_20240131.xlsx", buf.Bytes())
	assert.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, "Loan Number", rows[0][0])
	assert.Equal(t, "1001", rows[1][0])
}

func TestParseTabularUnsupported(t *testing.T) {
	_, err := ParseTabular("file.pdf", []byte("x"))
	assert.True(t, errors.Is(err, ErrStructural))
}

func TestParseTabularCorruptXLSX(t *testing.T) {
	_, err := ParseTabular("file.xlsx", []byte("not a zip"))
	assert.True(t, errors.Is(err, ErrStructural))
}
