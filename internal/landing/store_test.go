package landing

import (
	"strings"
	"testing"

	"ServicerFeed/internal/feed"

	"github.com/stretchr/testify/assert"
)

func TestNaturalKey(t *testing.T) {
	spec := feed.SpecFor(feed.KindPayHistory)

	key, ok := NaturalKey(spec, map[string]string{
		"loan_id":          "1001",
		"transaction_date": "2024-01-15",
	})
	assert.True(t, ok)
	assert.Equal(t, "1001"+keySep+"2024-01-15", key)

	_, ok = NaturalKey(spec, map[string]string{
		"loan_id":          "1001",
		"transaction_date": "  ",
	})
	assert.False(t, ok)
}

func TestBuildInsertSQL(t *testing.T) {
	spec := feed.SpecFor(feed.KindEOMTrustTracking)
	rows := []map[string]string{
		{"loan_id": "1001", "trust_account": "T1"},
		{"loan_id": "1002", "trust_account": "T2"},
	}
	sql, args := buildInsertSQL(spec, "2024-01-31", rows)

	assert.True(t, strings.HasPrefix(sql, "INSERT INTO raw_eom_trust_tracking (as_of_date, loan_id,"))
	assert.True(t, strings.HasSuffix(sql, "ON CONFLICT DO NOTHING"))
	// as_of_date + 7 columns, two rows
	assert.Len(t, args, 2*(1+len(spec.Columns)))
	stride := 1 + len(spec.Columns)
	assert.Equal(t, "2024-01-31", args[0])
	assert.Equal(t, "1001", args[1])
	assert.Equal(t, "2024-01-31", args[stride])
	assert.Equal(t, "1002", args[stride+1])
	// placeholders are numbered continuously across rows
	assert.Contains(t, sql, "$"+itoa(2*(1+len(spec.Columns))))
	assert.NotContains(t, sql, "$"+itoa(2*(1+len(spec.Columns))+1))
}

func itoa(n int) string {
	digits := ""
	if n == 0 {
		return "0"
	}
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}
