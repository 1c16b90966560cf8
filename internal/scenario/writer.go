package scenario

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Writer dumps scenarios row by row for diagnostics: one row per
// (date, key) with the scenario value. Purely observational; never part of
// the valuation path.
type Writer struct {
	w      *csv.Writer
	header bool
}

// NewWriter creates a scenario dump writer on top of out.
func NewWriter(out io.Writer) *Writer {
	return &Writer{w: csv.NewWriter(out)}
}

// Write appends all rows of one scenario.
func (sw *Writer) Write(s Scenario) error {
	if !sw.header {
		if err := sw.w.Write([]string{"date", "numeraire", "key", "value"}); err != nil {
			return fmt.Errorf("write scenario dump header: %w", err)
		}
		sw.header = true
	}

	date := s.AsOf().Format("2006-01-02")
	num := strconv.FormatFloat(s.Numeraire(), 'g', -1, 64)
	for _, key := range s.Keys() {
		v, _ := s.Get(key)
		row := []string{date, num, key.String(), strconv.FormatFloat(v, 'g', -1, 64)}
		if err := sw.w.Write(row); err != nil {
			return fmt.Errorf("write scenario dump row: %w", err)
		}
	}
	return nil
}

// Flush flushes buffered rows to the underlying writer.
func (sw *Writer) Flush() error {
	sw.w.Flush()
	return sw.w.Error()
}
