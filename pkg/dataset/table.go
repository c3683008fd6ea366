package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Table is an in-memory tabular dataset. Cells are stored as strings since
// CSV is the wire format for uploads; numeric columns hold values formatted
// with strconv and can be recovered with FloatColumn.
type Table struct {
	Columns []string
	Rows    [][]string
}

func NewTable(columns ...string) *Table {
	return &Table{Columns: columns}
}

func (t *Table) NumRows() int {
	return len(t.Rows)
}

func (t *Table) NumColumns() int {
	return len(t.Columns)
}

// Append adds a row. The number of cells must match the number of columns.
func (t *Table) Append(cells ...string) error {
	if len(cells) != len(t.Columns) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(cells), len(t.Columns))
	}
	t.Rows = append(t.Rows, cells)
	return nil
}

func (t *Table) columnIndex(name string) (int, error) {
	for i, col := range t.Columns {
		if col == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("table has no column %q", name)
}

// Column returns all cells of the named column in row order.
func (t *Table) Column(name string) ([]string, error) {
	idx, err := t.columnIndex(name)
	if err != nil {
		return nil, err
	}
	values := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[idx]
	}
	return values, nil
}

// FloatColumn parses the named column as float64 values. Empty cells are
// skipped, anything else that fails to parse is an error.
func (t *Table) FloatColumn(name string) ([]float64, error) {
	cells, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	values := make([]float64, 0, len(cells))
	for _, cell := range cells {
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("column %q is not numeric: %w", name, err)
		}
		values = append(values, v)
	}
	return values, nil
}

// WriteCSV serializes the table with a header row.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("error writing csv header: %w", err)
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("error writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSVString is a convenience wrapper around WriteCSV.
func (t *Table) CSVString() (string, error) {
	var sb strings.Builder
	if err := t.WriteCSV(&sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// ReadCSV parses a table from CSV with a header row. All records must have
// the same number of fields as the header.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("error reading csv header: %w", err)
	}

	table := NewTable(header...)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading csv row: %w", err)
		}
		table.Rows = append(table.Rows, record)
	}
	return table, nil
}
