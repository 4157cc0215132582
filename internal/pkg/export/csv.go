// internal/pkg/export/csv.go
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"
)

// Table is an in-memory sheet ready to be written as CSV
type Table struct {
	Headers []string
	Rows    [][]string
}

// AddRow appends a row; short rows are padded so every line has the header width
func (t *Table) AddRow(values ...string) {
	if len(values) < len(t.Headers) {
		padded := make([]string, len(t.Headers))
		copy(padded, values)
		values = padded
	}
	t.Rows = append(t.Rows, values)
}

// CSV writes the table as comma-separated text
func (t *Table) CSV() ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(t.Headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename builds a dated export file name like "orders_2024-01-15.csv"
func Filename(prefix string, at time.Time) string {
	return fmt.Sprintf("%s_%s.csv", prefix, at.Format("2006-01-02"))
}

// Time formats an optional timestamp for export cells
func Time(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
