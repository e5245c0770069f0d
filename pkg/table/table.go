// Package table provides the tabular storage contract shared by the roster and
// the attendance ledger. Tables are loaded and rewritten wholesale; a single
// writer per file is assumed.
package table

import "errors"

// ErrNotExist is returned by Load when the backing table has never been saved.
var ErrNotExist = errors.New("table does not exist")

// Table is a header row plus data rows. Rows may be shorter than the header.
type Table struct {
	Header []string
	Rows   [][]string
}

// New returns an empty table with the given header.
func New(header []string) *Table {
	return &Table{Header: append([]string(nil), header...)}
}

// Append adds a row.
func (t *Table) Append(row []string) {
	t.Rows = append(t.Rows, append([]string(nil), row...))
}

// Cell returns row[col] or "" when the row is short.
func Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := &Table{Header: append([]string(nil), t.Header...)}
	for _, r := range t.Rows {
		c.Rows = append(c.Rows, append([]string(nil), r...))
	}
	return c
}

// Store loads and saves one table.
type Store interface {
	Load() (*Table, error)
	Save(t *Table) error
}

// LoadOrCreate loads the table from s, or returns an empty table with header
// when it does not exist yet.
func LoadOrCreate(s Store, header []string) (*Table, error) {
	t, err := s.Load()
	if errors.Is(err, ErrNotExist) {
		return New(header), nil
	}
	if err != nil {
		return nil, err
	}
	if len(t.Header) == 0 {
		t.Header = append([]string(nil), header...)
	}
	return t, nil
}
