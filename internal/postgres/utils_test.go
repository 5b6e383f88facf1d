package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation_PgError(t *testing.T) {
	err := &pgconn.PgError{Code: "23505", Message: "duplicate key value"}
	assert.True(t, isUniqueViolation(err))
}

func TestIsUniqueViolation_OtherPgError(t *testing.T) {
	err := &pgconn.PgError{Code: "23503", Message: "foreign key violation"}
	assert.False(t, isUniqueViolation(err))
}

func TestIsUniqueViolation_NonPgError(t *testing.T) {
	assert.False(t, isUniqueViolation(errors.New("some other failure")))
}
