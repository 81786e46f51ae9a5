package pdf

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// Receipt prints a paid sale. IssueDate is the sale date.
func (r *MarotoRenderer) Receipt(ctx context.Context, doc Document) ([]byte, error) {
	if doc.Number == "" {
		return nil, fmt.Errorf("receipt number is required")
	}
	m := newDocument()
	header(m, "Receipt", doc,
		"Number: "+doc.Number,
		"Date: "+doc.IssueDate,
	)
	if doc.PaidDate != "" {
		m.AddRow(12, text.NewCol(12, doc.AmountPaid+" paid on "+doc.PaidDate, props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Top:   3,
		}))
	}
	lines(m, doc.Lines)
	totals(m, [][2]string{
		{"Subtotal", doc.Subtotal},
		{"Discount", doc.Discount},
		{"Tax", doc.Tax},
		{"Total", doc.Total},
	})
	return generate(m)
}
