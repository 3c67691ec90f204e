// Package export serializes list pages to CSV files.
package export

import (
	"encoding/csv"
	"io"
	"time"

	"github.com/pkg/errors"
)

// utf8BOM makes spreadsheet applications read the file as UTF-8.
const utf8BOM = "\ufeff"

// Column is one CSV column of records of type T.
type Column[T any] struct {
	Header string
	Value  func(T) string
}

// Options tweak the CSV output.
type Options struct {
	BOM   bool
	Comma rune
}

// WriteCSV writes a header line then one line per row.
func WriteCSV[T any](w io.Writer, columns []Column[T], rows []T, opts ...Options) error {
	var opt Options
	if len(opts) > 0 {
		opt = opts[0]
	}
	if opt.BOM {
		if _, err := io.WriteString(w, utf8BOM); err != nil {
			return errors.Wrap(err, "writing BOM")
		}
	}

	cw := csv.NewWriter(w)
	if opt.Comma != 0 {
		cw.Comma = opt.Comma
	}

	line := make([]string, len(columns))
	for i, col := range columns {
		line[i] = col.Header
	}
	if err := cw.Write(line); err != nil {
		return errors.Wrap(err, "writing header")
	}
	for _, row := range rows {
		for i, col := range columns {
			line[i] = col.Value(row)
		}
		if err := cw.Write(line); err != nil {
			return errors.Wrap(err, "writing row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}

// Filename returns a dated file name such as "students-20240131.csv".
func Filename(prefix string, now time.Time) string {
	return prefix + "-" + now.Format("20060102") + ".csv"
}

// FormatTime formats t for a CSV cell, empty when zero.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}
