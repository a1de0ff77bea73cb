package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestToDomainError(t *testing.T) {
	notFound := ToDomainError(fmt.Errorf("load: %w", pgx.ErrNoRows))
	assert.Equal(t, CodeNotFound, notFound.Code)
	assert.Equal(t, http.StatusNotFound, notFound.HTTPStatus)

	internal := ToDomainError(errors.New("boom"))
	assert.Equal(t, CodeInternal, internal.Code)
	assert.Equal(t, http.StatusInternalServerError, internal.HTTPStatus)
	assert.Equal(t, "internal server error: boom", internal.Error())

	wrapped := fmt.Errorf("ctx: %w", NewForbidden("nope"))
	assert.Equal(t, CodeForbidden, ToDomainError(wrapped).Code)
	assert.Nil(t, ToDomainError(nil))
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFound("ticket", nil)))
	assert.True(t, IsValidation(NewValidationError("bad", nil)))
	assert.True(t, IsForbidden(NewForbidden("no")))
	assert.True(t, IsUnauthorized(NewUnauthorized("who")))
	assert.False(t, IsNotFound(errors.New("plain")))
	assert.Equal(t, "ticket not found", NewNotFound("ticket", nil).Error())
}
