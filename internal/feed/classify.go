package feed

import (
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrUnclassified marks a remote filename that matched no kind alias or
// carried no usable as-of date token. Unclassified files are skipped with a
// warning; they never fail a run.
var ErrUnclassified = errors.New("filename matched no known feed kind")

var asOfTokenRe = regexp.MustCompile(`\d{8}`)

// Classification is the result of matching one remote filename.
type Classification struct {
	Kind Kind
	// AsOfDate is the embedded date token, normalized to YYYY-MM-DD.
	AsOfDate string
}

// Classify maps a remote object name to a kind and its embedded as-of date.
// Matching is ordered substring comparison against each kind's alias list;
// the first match wins. The as-of date is the last 8-digit token in the name
// that parses as a calendar date (servicer names repeat the date, e.g.
// Partner_20240131_trialbalancedata_20240131.xlsx).
func Classify(filename string) (Classification, error) {
	lower := strings.ToLower(filename)
	for _, s := range Specs {
		for _, alias := range s.Aliases {
			if strings.Contains(lower, alias) {
				asOf, ok := extractAsOfDate(lower)
				if !ok {
					return Classification{}, errors.Wrapf(ErrUnclassified, "no as-of date token in %q", filename)
				}
				return Classification{Kind: s.Kind, AsOfDate: asOf}, nil
			}
		}
	}
	return Classification{}, errors.Wrapf(ErrUnclassified, "%q", filename)
}

func extractAsOfDate(name string) (string, bool) {
	tokens := asOfTokenRe.FindAllString(name, -1)
	for i := len(tokens) - 1; i >= 0; i-- {
		if t, err := time.Parse("20060102", tokens[i]); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}
