package analytics

import (
	"sort"

	"github.com/factoryop/platform/internal/timeseries"
)

// Frame is the wide-format telemetry table analytics algorithms consume
// (spec.md §4.4): one row per (device, timestamp), one column per
// discovered parameter.
type Frame struct {
	Rows    []timeseries.WideRow
	Columns []string // numeric columns present across the frame, sorted
}

// BuildFrame reshapes query rows into a wide table and records the union of
// numeric columns actually present.
func BuildFrame(rows []timeseries.Row) Frame {
	wide := timeseries.ToWideTable(rows)
	seen := make(map[string]bool)
	for _, r := range wide {
		for col := range r.Columns {
			seen[col] = true
		}
	}
	columns := make([]string, 0, len(seen))
	for col := range seen {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return Frame{Rows: wide, Columns: columns}
}

// Matrix extracts a dense row-major matrix over the frame's columns. A
// reading absent for a given row is treated as 0, matching the teacher's
// "absent gauge reads as zero" convention for sparse metric snapshots.
func (f Frame) Matrix() [][]float64 {
	m := make([][]float64, len(f.Rows))
	for i, row := range f.Rows {
		vec := make([]float64, len(f.Columns))
		for j, col := range f.Columns {
			vec[j] = row.Columns[col]
		}
		m[i] = vec
	}
	return m
}

// Column extracts a single named column's values in row order, skipping
// rows where the parameter was never reported.
func (f Frame) Column(name string) []float64 {
	var out []float64
	for _, row := range f.Rows {
		if v, ok := row.Columns[name]; ok {
			out = append(out, v)
		}
	}
	return out
}

// HasColumn reports whether a column was discovered anywhere in the frame.
func (f Frame) HasColumn(name string) bool {
	for _, c := range f.Columns {
		if c == name {
			return true
		}
	}
	return false
}
