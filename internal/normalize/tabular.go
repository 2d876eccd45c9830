package normalize

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// ErrStructural marks a file that cannot be imported at all: unreadable,
// unsupported format, or missing a natural-key column. Structural failures
// abort the file with zero rows inserted; the run moves on.
var ErrStructural = errors.New("structural file error")

// ParseTabular reads a downloaded extract into rows of cells. The servicer
// exports .xlsx, legacy .xls, and delimited text; the extension decides the
// reader, same as the upload path this replaced.
func ParseTabular(filename string, data []byte) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrapf(ErrStructural, "opening xlsx %s: %v", filename, err)
		}
		defer f.Close()
		sheet := f.GetSheetName(0)
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, errors.Wrapf(ErrStructural, "reading xlsx %s: %v", filename, err)
		}
		return rows, nil
	case ".xls":
		wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, errors.Wrapf(ErrStructural, "opening xls %s: %v", filename, err)
		}
		return wb.ReadAllCells(1 << 20), nil
	case ".csv", ".txt":
		r := csv.NewReader(bytes.NewReader(data))
		r.FieldsPerRecord = -1
		r.LazyQuotes = true
		rows, err := r.ReadAll()
		if err != nil {
			return nil, errors.Wrapf(ErrStructural, "parsing %s: %v", filename, err)
		}
		return rows, nil
	}
	return nil, errors.Wrapf(ErrStructural, "unsupported file type %s", filename)
}
