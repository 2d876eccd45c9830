package normalize

import (
	"regexp"
	"strings"

	"ServicerFeed/internal/feed"

	"github.com/pkg/errors"
)

const nbsp = " "

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// CanonicalHeader reduces a source column header to the canonical snake form
// used by the per-kind header maps: lowercase, punctuation and whitespace
// runs collapsed to single underscores.
func CanonicalHeader(h string) string {
	h = strings.ToLower(strings.ReplaceAll(h, nbsp, " "))
	h = nonAlnumRe.ReplaceAllString(h, "_")
	return strings.Trim(h, "_")
}

// CleanCell strips the artifacts the servicer's exports carry: surrounding
// whitespace, non-breaking spaces, NUL bytes, and embedded line breaks.
func CleanCell(s string) string {
	s = strings.ReplaceAll(s, nbsp, " ")
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.Join(strings.Fields(s), " ")
}

// Normalize maps a parsed table onto the destination columns for a kind.
// The first row is the header; unmapped source columns are dropped. A
// natural-key column that cannot be mapped from any header is structural:
// the whole file is rejected rather than landing keyless rows.
func Normalize(records [][]string, spec *feed.Spec) ([]map[string]string, error) {
	if len(records) == 0 {
		return nil, errors.Wrap(ErrStructural, "file has no header row")
	}

	// header position -> destination column
	colByIndex := map[int]string{}
	mapped := map[string]bool{}
	for i, h := range records[0] {
		canon := CanonicalHeader(h)
		if dest, ok := spec.HeaderMap[canon]; ok {
			// first header wins when the servicer repeats a column
			if !mapped[dest] {
				colByIndex[i] = dest
				mapped[dest] = true
			}
		}
	}
	for _, key := range spec.KeyColumns {
		if !mapped[key] {
			return nil, errors.Wrapf(ErrStructural, "natural-key column %q not found in header", key)
		}
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		if allEmpty(rec) {
			continue
		}
		row := make(map[string]string, len(colByIndex))
		for i, dest := range colByIndex {
			if i < len(rec) {
				row[dest] = CleanCell(rec[i])
			} else {
				row[dest] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func allEmpty(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
