// Package repository holds the MySQL data access layer. Repositories return
// the sentinel errors below so that services can tell failure scenarios
// apart without inspecting driver errors.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup matches no row, or when an insert
// references a parent row that does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a unique key rejects an insert or update.
// The wrapped message names the violated key.
var ErrDuplicate = errors.New("duplicate record")

// ErrInUse is returned when a delete or update is refused because other
// rows still reference the record.
var ErrInUse = errors.New("record is referenced")

// ErrNoSeats is returned when a screening has no seat left to reserve.
var ErrNoSeats = errors.New("no seats available")

// MySQL server error numbers handled by the repositories.
const (
	mysqlDuplicateEntry   = 1062
	mysqlRowIsReferenced  = 1451
	mysqlNoReferencedRow  = 1452
	mysqlRowIsReferenced2 = 1217
	mysqlNoReferencedRow2 = 1216
)

func mysqlNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

// classify maps driver errors onto the package sentinels and leaves every
// other error untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch mysqlNumber(err) {
	case mysqlDuplicateEntry:
		return fmt.Errorf("%w: %s", ErrDuplicate, duplicateKey(err))
	case mysqlRowIsReferenced, mysqlRowIsReferenced2:
		return fmt.Errorf("%w: %v", ErrInUse, err)
	case mysqlNoReferencedRow, mysqlNoReferencedRow2:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

// duplicateKey extracts the key name from "Duplicate entry 'x' for key 'users.uq_users_email'".
func duplicateKey(err error) string {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return ""
	}
	msg := me.Message
	i := strings.LastIndex(msg, "for key '")
	if i < 0 {
		return msg
	}
	key := strings.TrimSuffix(msg[i+len("for key '"):], "'")
	if dot := strings.LastIndex(key, "."); dot >= 0 {
		key = key[dot+1:]
	}
	return key
}

// IsDuplicateKey reports whether err is a duplicate on the named unique key.
func IsDuplicateKey(err error, key string) bool {
	return errors.Is(err, ErrDuplicate) && strings.HasSuffix(err.Error(), key)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
