package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// MySQL error number raised when an insert violates a unique key.
const mysqlErrDuplicateEntry = 1062

// isDuplicateKey reports whether err is a unique-key violation, and if
// so, whether the violated key's name contains the given fragment. MySQL
// embeds the key name in the error message ("Duplicate entry '...' for
// key 'tickets.uniq_free_ticket'"), which is the only way to tell apart
// two unique keys on the same table.
func isDuplicateKey(err error, keyFragment string) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != mysqlErrDuplicateEntry {
		return false
	}
	if keyFragment == "" {
		return true
	}
	return strings.Contains(me.Message, keyFragment)
}
