package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderDocumentNumber(t *testing.T) {
	at := time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)

	got, err := Render(DocumentTemplate, "ORD", at, 1)
	require.NoError(t, err)
	assert.Equal(t, "ORD-20240309-0001", got)

	got, err = Render(DocumentTemplate, "TXN", at, 12345)
	require.NoError(t, err)
	assert.Equal(t, "TXN-20240309-12345", got)
}

func TestRenderRejectsBadInput(t *testing.T) {
	_, err := Render(DocumentTemplate, "ORD", time.Now(), 0)
	assert.Error(t, err)

	_, err = Render("{PREFIX}-{NOPE}", "ORD", time.Now(), 1)
	assert.Error(t, err)
}

func TestCustomerPrefix(t *testing.T) {
	assert.Equal(t, "CAF", CustomerPrefix("cafe-central"))
	assert.Equal(t, "AB", CustomerPrefix("a-b"))
	assert.Equal(t, "CUS", CustomerPrefix(""))
}

func TestDay(t *testing.T) {
	assert.Equal(t, 20241231, Day(time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)))
}
