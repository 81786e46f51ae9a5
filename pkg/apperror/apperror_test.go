package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesEnrichedCopies(t *testing.T) {
	sentinel := Validation("items", "insufficient_stock", "insufficient stock")
	enriched := sentinel.WithDetails(Detail{Field: "items[0]", Code: "insufficient_stock", Message: "only 2 left"})
	wrapped := fmt.Errorf("confirm: %w", enriched)

	assert.True(t, errors.Is(wrapped, sentinel))
	assert.False(t, errors.Is(wrapped, Validation("items", "other_code", "")))
	assert.Len(t, enriched.Details, 1)
	assert.Empty(t, sentinel.Details)
}

func TestIsKind(t *testing.T) {
	err := fmt.Errorf("lookup: %w", NotFound("order_not_found"))
	assert.True(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(err, KindValidation))
	assert.False(t, IsKind(errors.New("plain"), KindNotFound))
}
