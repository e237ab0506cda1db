package transform

import (
	"fmt"
	"strconv"
	"strings"
)

type Kind int

const (
	KindNode Kind = iota
	KindRelationship
)

func (k Kind) String() string {
	if k == KindRelationship {
		return "relationship"
	}
	return "node"
}

// Endpoint names the node label and key column a relationship side points at.
// The column carries the same name in the relationship table and in the
// node table.
type Endpoint struct {
	Label string
	Key   string
}

// Table is an ordered, string-valued table. Node tables set Label and Key;
// relationship tables set Label (the relationship type), From and To.
type Table struct {
	Name  string
	Kind  Kind
	Label string
	Key   string

	From Endpoint
	To   Endpoint

	// Transient columns are foreign keys kept in the written file but not
	// part of the entity's own properties.
	Transient []string

	Columns []string
	Rows    [][]string
}

func NewTable(name string, columns ...string) *Table {
	return &Table{Name: name, Columns: columns}
}

func (t *Table) Len() int { return len(t.Rows) }

// Append adds a row; it panics when the arity does not match the header.
func (t *Table) Append(row ...string) {
	if len(row) != len(t.Columns) {
		panic(fmt.Sprintf("table %s: row has %d values, want %d", t.Name, len(row), len(t.Columns)))
	}
	t.Rows = append(t.Rows, row)
}

// Index returns the position of column, or -1.
func (t *Table) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Column returns a copy of the values of column in row order.
func (t *Table) Column(column string) ([]string, error) {
	i := t.Index(column)
	if i < 0 {
		return nil, fmt.Errorf("table %s: no column %q", t.Name, column)
	}
	out := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out, nil
}

// Project builds a new table named name holding columns in the given order.
func (t *Table) Project(name string, columns ...string) (*Table, error) {
	idx := make([]int, len(columns))
	for j, c := range columns {
		if idx[j] = t.Index(c); idx[j] < 0 {
			return nil, fmt.Errorf("table %s: no column %q", t.Name, c)
		}
	}
	out := NewTable(name, columns...)
	out.Rows = make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		p := make([]string, len(idx))
		for j, i := range idx {
			p[j] = row[i]
		}
		out.Rows = append(out.Rows, p)
	}
	return out, nil
}

// DedupeBy keeps the first row for each distinct value of column, preserving
// input order, and reports how many rows were dropped.
func (t *Table) DedupeBy(column string) (int, error) {
	i := t.Index(column)
	if i < 0 {
		return 0, fmt.Errorf("table %s: no column %q", t.Name, column)
	}
	return t.dedupe(func(row []string) string { return row[i] }), nil
}

// DedupeByColumns keeps the first row for each distinct combination of
// columns. Values are compared as a tuple, never as a joined string.
func (t *Table) DedupeByColumns(columns ...string) (int, error) {
	idx := make([]int, len(columns))
	for j, c := range columns {
		if idx[j] = t.Index(c); idx[j] < 0 {
			return 0, fmt.Errorf("table %s: no column %q", t.Name, c)
		}
	}
	vals := make([]string, len(idx))
	return t.dedupe(func(row []string) string {
		for j, i := range idx {
			vals[j] = row[i]
		}
		return rowKey(vals)
	}), nil
}

// DedupeRows keeps the first of each set of identical rows.
func (t *Table) DedupeRows() int {
	return t.dedupe(rowKey)
}

func (t *Table) dedupe(key func([]string) string) int {
	seen := make(map[string]struct{}, len(t.Rows))
	kept := t.Rows[:0]
	for _, row := range t.Rows {
		k := key(row)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, row)
	}
	dropped := len(t.Rows) - len(kept)
	// clear the tail so dropped rows can be collected
	for j := len(kept); j < len(t.Rows); j++ {
		t.Rows[j] = nil
	}
	t.Rows = kept
	return dropped
}

// Record returns row r as a column -> value map.
func (t *Table) Record(r int) map[string]string {
	m := make(map[string]string, len(t.Columns))
	for i, c := range t.Columns {
		m[c] = t.Rows[r][i]
	}
	return m
}

// IsTransient reports whether column is a transient foreign key.
func (t *Table) IsTransient(column string) bool {
	for _, c := range t.Transient {
		if c == column {
			return true
		}
	}
	return false
}

// rowKey length-prefixes each value so distinct rows never share a key.
func rowKey(row []string) string {
	var b strings.Builder
	for _, v := range row {
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
	}
	return b.String()
}
