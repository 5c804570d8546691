package dbutil

import "database/sql"

// Scanner is the interface common to sql.Row and sql.Rows that allows
// row-scanning helpers to work against either.
type Scanner interface {
	Scan(dest ...interface{}) error
}

var _ Scanner = &sql.Row{}
var _ Scanner = &sql.Rows{}

// MySQLArgs returns n comma separated mysql placeholder arguments.
func MySQLArgs(n int) string {
	if n <= 0 {
		return ""
	}
	result := make([]byte, 2*n-1)
	for i := 0; i < len(result)-1; i += 2 {
		result[i] = '?'
		result[i+1] = ','
	}
	result[len(result)-1] = '?'
	return string(result)
}
