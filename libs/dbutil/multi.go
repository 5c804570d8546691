package dbutil

import "strings"

// MultiInsert builds the VALUES clause and argument list for a bulk insert.
type MultiInsert interface {
	// Append adds one row of values
	Append(values ...interface{})
	IsEmpty() bool
	NumColumns() int
	Values() []interface{}
	// Query returns the values formatted for a VALUES clause, e.g. "(?,?),(?,?)"
	Query() string
}

type mysqlMultiInsert struct {
	rows int
	cols int
	vals []interface{}
}

// MySQLMultiInsert returns a MultiInsert using MySQL placeholders. The
// expected number of rows is a capacity hint, 0 is fine.
func MySQLMultiInsert(expectedRows int) MultiInsert {
	return &mysqlMultiInsert{
		vals: make([]interface{}, 0, expectedRows),
	}
}

func (m *mysqlMultiInsert) Append(values ...interface{}) {
	if m.rows == 0 {
		m.cols = len(values)
	}
	m.rows++
	m.vals = append(m.vals, values...)
}

func (m *mysqlMultiInsert) IsEmpty() bool {
	return m.rows == 0
}

func (m *mysqlMultiInsert) NumColumns() int {
	return m.cols
}

func (m *mysqlMultiInsert) Values() []interface{} {
	return m.vals
}

func (m *mysqlMultiInsert) Query() string {
	if m.rows == 0 {
		return ""
	}
	row := "(" + MySQLArgs(m.cols) + ")"
	rows := make([]string, m.rows)
	for i := range rows {
		rows[i] = row
	}
	return strings.Join(rows, ",")
}
