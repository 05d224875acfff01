package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	dsn := Options{User: "app", Pass: "s3cret", Host: "db", Port: "3306", Name: "cinema"}.DSN()

	assert.Contains(t, dsn, "app:s3cret@tcp(db:3306)/cinema")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "loc=UTC")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestDSNWithoutPassword(t *testing.T) {
	dsn := Options{User: "root", Host: "localhost", Port: "3306", Name: "cinema"}.DSN()
	assert.Contains(t, dsn, "root@tcp(localhost:3306)/cinema")
}
