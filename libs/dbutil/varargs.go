package dbutil

import "strings"

// VarArgs collects column/value pairs for building UPDATE statements where
// the set of updated columns is dynamic.
type VarArgs interface {
	Append(column string, value interface{})
	IsEmpty() bool
	Columns() []string
	Values() []interface{}
	// ColumnsForUpdate returns the columns formatted for a SET clause, e.g. "a=?,b=?"
	ColumnsForUpdate() string
}

type mysqlVarArgs struct {
	columns []string
	values  []interface{}
}

// MySQLVarArgs returns an empty VarArgs using MySQL style placeholders.
func MySQLVarArgs() VarArgs {
	return &mysqlVarArgs{}
}

func (a *mysqlVarArgs) Append(column string, value interface{}) {
	a.columns = append(a.columns, column)
	a.values = append(a.values, value)
}

func (a *mysqlVarArgs) IsEmpty() bool {
	return len(a.columns) == 0
}

func (a *mysqlVarArgs) Columns() []string {
	return a.columns
}

func (a *mysqlVarArgs) Values() []interface{} {
	return a.values
}

func (a *mysqlVarArgs) ColumnsForUpdate() string {
	if len(a.columns) == 0 {
		return ""
	}
	return strings.Join(a.columns, "=?,") + "=?"
}
