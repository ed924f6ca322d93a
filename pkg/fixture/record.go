package fixture

import (
	"strings"
)

// Record is one data row keyed by column name. Field order follows the
// header. A Record is never modified after it is returned.
type Record struct {
	columns []string
	values  []string
}

func (r Record) Len() int {
	return len(r.columns)
}

// Get returns the value for column and whether the column exists.
func (r Record) Get(column string) (string, bool) {
	for i, c := range r.columns {
		if c == column {
			return r.values[i], true
		}
	}
	return "", false
}

// Value returns the value for column, or "" when there is no such column.
func (r Record) Value(column string) string {
	v, _ := r.Get(column)
	return v
}

func (r Record) Columns() []string {
	return append([]string(nil), r.columns...)
}

func (r Record) Values() []string {
	return append([]string(nil), r.values...)
}

func (r Record) Map() map[string]string {
	m := make(map[string]string, len(r.columns))
	for i, c := range r.columns {
		m[c] = r.values[i]
	}
	return m
}

func (r Record) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c)
		b.WriteByte(':')
		b.WriteString(r.values[i])
	}
	b.WriteByte('}')
	return b.String()
}
