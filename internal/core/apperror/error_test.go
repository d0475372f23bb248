package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAsAppError_WrappedChain(t *testing.T) {
	base := NewNotFound("ingredient", "42")
	wrapped := fmt.Errorf("load ingredient: %w", base)

	got, ok := AsAppError(wrapped)
	assert.True(t, ok)
	assert.Same(t, base, got)
	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, http.StatusNotFound, GetHTTPStatus(wrapped))
}

func TestGetHTTPStatus_PlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("boom")))
	assert.False(t, IsAppError(errors.New("boom")))
}

func TestNewInsufficientStock_Details(t *testing.T) {
	err := NewInsufficientStock("Not enough Flour.", "Flour", decimal.RequireFromString("250"), decimal.RequireFromString("100.5"))

	assert.Equal(t, CodeInsufficientStock, err.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, err.HTTPStatus)
	assert.Equal(t, "250", err.Details["needed"])
	assert.Equal(t, "100.5", err.Details["available"])
}

func TestAppError_ErrorIncludesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewInternal(cause)

	assert.Contains(t, err.Error(), "connection reset")
	assert.ErrorIs(t, err, cause)
}

func TestWithDetail_InitialisesMap(t *testing.T) {
	err := NewValidation("bad").WithDetail("field", "name")
	assert.Equal(t, "name", err.Details["field"])
	assert.True(t, HasCode(err, CodeValidation))
}
