package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPercentRoundsToCents(t *testing.T) {
	got := Percent(decimal.NewFromInt(300), decimal.NewFromInt(19))
	assert.True(t, got.Equal(decimal.NewFromInt(57)), got.String())

	got = Percent(decimal.RequireFromString("10.05"), decimal.NewFromInt(50))
	assert.Equal(t, "5.03", got.StringFixed(2))
}

func TestValidPercent(t *testing.T) {
	assert.True(t, ValidPercent(decimal.Zero))
	assert.True(t, ValidPercent(decimal.NewFromInt(100)))
	assert.False(t, ValidPercent(decimal.NewFromInt(101)))
	assert.False(t, ValidPercent(decimal.NewFromInt(-1)))
}
