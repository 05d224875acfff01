package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@b.c' for key 'users.uq_users_email'"}
	err := classify(fmt.Errorf("insert: %w", dup))
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.True(t, IsDuplicateKey(err, "uq_users_email"))
	assert.False(t, IsDuplicateKey(err, "uq_users_username"))

	assert.ErrorIs(t, classify(&mysql.MySQLError{Number: 1451}), ErrInUse)
	assert.ErrorIs(t, classify(&mysql.MySQLError{Number: 1452}), ErrNotFound)

	other := errors.New("connection reset")
	assert.Same(t, other, classify(other))
	assert.NoError(t, classify(nil))
}

func TestDuplicateKeyWithoutTablePrefix(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '5-9' for key 'uq_reservations_user_screening'"}
	assert.Equal(t, "uq_reservations_user_screening", duplicateKey(dup))
}
