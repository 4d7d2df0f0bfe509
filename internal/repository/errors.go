package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers the store reacts to.
const (
	errDupEntry        = 1062
	errNoReferencedRow = 1452
	errLockWaitTimeout = 1205
	errLockDeadlock    = 1213
)

func mysqlErrNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isDuplicateEntry(err error) bool { return mysqlErrNumber(err) == errDupEntry }

func isMissingReference(err error) bool { return mysqlErrNumber(err) == errNoReferencedRow }

// isLockFailure reports whether InnoDB aborted the statement because of a
// deadlock or a lock wait timeout; the transaction can be retried.
func isLockFailure(err error) bool {
	n := mysqlErrNumber(err)
	return n == errLockDeadlock || n == errLockWaitTimeout
}
