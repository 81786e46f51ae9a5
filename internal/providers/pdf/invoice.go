package pdf

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

func (r *MarotoRenderer) Invoice(ctx context.Context, doc Document) ([]byte, error) {
	if doc.Number == "" {
		return nil, fmt.Errorf("invoice number is required")
	}
	m := newDocument()
	header(m, "Invoice", doc,
		"Invoice number: "+doc.Number,
		"Date of issue: "+doc.IssueDate,
		"Date due: "+doc.DueDate,
	)
	lines(m, doc.Lines)
	totals(m, [][2]string{
		{"Subtotal", doc.Subtotal},
		{"Discount", doc.Discount},
		{"Tax", doc.Tax},
		{"Total", doc.Total},
		{"Paid", doc.AmountPaid},
	})
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Amount due", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, doc.BalanceDue, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	if doc.Terms != "" {
		m.AddRow(20, text.NewCol(12, doc.Terms, props.Text{Size: 8, Top: 6}))
	}
	if doc.Notes != "" {
		m.AddRow(15, text.NewCol(12, doc.Notes, props.Text{Size: 8}))
	}
	return generate(m)
}

func newDocument() core.Maroto {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
	return maroto.New(cfg)
}

func header(m core.Maroto, title string, doc Document, meta ...string) {
	m.AddRow(12,
		text.NewCol(8, doc.BusinessName, props.Text{Size: 14, Style: fontstyle.Bold}),
		text.NewCol(4, title, props.Text{Size: 20, Style: fontstyle.Bold, Align: align.Right}),
	)

	details := col.New(6)
	for i, s := range meta {
		details.Add(text.New(s, props.Text{Top: float64(i * 4)}))
	}
	billTo := col.New(6).Add(
		text.New("Bill to", props.Text{Style: fontstyle.Bold}),
		text.New(doc.BillToName, props.Text{Top: 5}),
		text.New(doc.BillToEmail, props.Text{Top: 9}),
		text.New(doc.BillToPhone, props.Text{Top: 13}),
	)
	m.AddRow(25, details, billTo)
}

func lines(m core.Maroto, items []Line) {
	m.AddRow(10,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Unit price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12))
	for _, item := range items {
		m.AddRow(8,
			text.NewCol(6, item.Description, props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%d", item.Qty), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.UnitPrice, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRow(2, line.NewCol(12))
}

func totals(m core.Maroto, rows [][2]string) {
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		m.AddRow(8,
			col.New(8),
			text.NewCol(2, row[0], props.Text{Size: 9}),
			text.NewCol(2, row[1], props.Text{Size: 9, Align: align.Right}),
		)
	}
}

func generate(m core.Maroto) ([]byte, error) {
	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}
