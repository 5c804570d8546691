package dbutil

import "github.com/go-sql-driver/mysql"

// MySQL error codes
const (
	MySQLDuplicateEntry = 1062 // Duplicate entry for key
	MySQLDeadlock       = 1213 // Deadlock found when trying to get lock; try restarting transaction
)

// IsMySQLError returns true if err represents a MySQL error of the provided code.
func IsMySQLError(err error, code uint16) bool {
	e, ok := err.(*mysql.MySQLError)
	return ok && e.Number == code
}
