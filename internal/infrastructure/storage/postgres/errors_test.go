package postgres

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"bakehouse/internal/core/apperror"
)

func TestMapError_UniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "uq_products_name"}
	err := MapError(fmt.Errorf("insert: %w", pgErr), "product")

	assert.Equal(t, http.StatusConflict, apperror.GetHTTPStatus(err))
	appErr, ok := apperror.AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, "uq_products_name", appErr.Details["constraint"])
	assert.True(t, IsUniqueViolation(err))
}

func TestMapError_ForeignKeyViolation(t *testing.T) {
	err := MapError(&pgconn.PgError{Code: "23503"}, "ingredient")
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))
	assert.True(t, IsForeignKeyViolation(err))
}

func TestMapError_PassThrough(t *testing.T) {
	plain := errors.New("connection refused")
	assert.Same(t, plain, MapError(plain, "sale"))
	assert.NoError(t, MapError(nil, "sale"))

	other := &pgconn.PgError{Code: "40001"}
	assert.Same(t, other, MapError(other, "sale"))
}
