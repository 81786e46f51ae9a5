package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestItemComputeTotals(t *testing.T) {
	cases := []struct {
		name                          string
		price                         string
		qty                           int64
		discount, tax                 string
		subtotal, discountAmt, taxAmt string
		total                         string
	}{
		{"tax only", "100", 3, "0", "19", "300.00", "0.00", "57.00", "357.00"},
		{"discount before tax", "19.99", 3, "12.5", "19", "59.97", "7.50", "9.97", "62.44"},
		{"half cent rounds up", "0.125", 1, "0", "0", "0.13", "0.00", "0.00", "0.13"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item := &OrderItem{
				UnitPrice:          decimal.RequireFromString(tc.price),
				Quantity:           tc.qty,
				DiscountPercentage: decimal.RequireFromString(tc.discount),
				TaxPercentage:      decimal.RequireFromString(tc.tax),
			}
			item.ComputeTotals()
			assert.Equal(t, tc.subtotal, item.Subtotal.StringFixed(2))
			assert.Equal(t, tc.discountAmt, item.DiscountAmount.StringFixed(2))
			assert.Equal(t, tc.taxAmt, item.TaxAmount.StringFixed(2))
			assert.Equal(t, tc.total, item.Total.StringFixed(2))
		})
	}
}
