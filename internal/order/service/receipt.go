package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/internal/order/domain"
	"github.com/smallbiznis/bizcore/internal/providers/pdf"
	"github.com/smallbiznis/bizcore/pkg/db"
)

func (s *Service) Receipt(ctx context.Context, id snowflake.ID) ([]byte, error) {
	order, err := s.Orders().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case domain.StatusDraft, domain.StatusPending, domain.StatusCancelled:
		return nil, domain.ErrNoReceipt
	}

	paid, err := s.repo.PaidTotal(ctx, s.db, order.ID)
	if err != nil {
		return nil, err
	}
	doc := pdf.Document{
		Number:      order.OrderNumber,
		IssueDate:   db.NewDate(order.OrderDate).String(),
		BillToName:  order.CustomerName,
		BillToEmail: order.CustomerEmail,
		BillToPhone: order.CustomerPhone,
		Subtotal:    money(order.Subtotal.Add(order.ShippingCost)),
		Discount:    money(order.DiscountAmount),
		Tax:         money(order.TaxAmount),
		Total:       money(order.Total),
		AmountPaid:  money(paid),
		BalanceDue:  money(decimal.Max(order.Total.Sub(paid), decimal.Zero)),
		Notes:       order.Notes,
	}
	if doc.BusinessName, doc.Currency, err = s.repo.Business(ctx, s.db, order.BusinessID); err != nil {
		return nil, err
	}
	paidAt, err := s.repo.LastPaidAt(ctx, s.db, order.ID)
	if err != nil {
		return nil, err
	}
	if paidAt != nil {
		doc.PaidDate = db.NewDate(*paidAt).String()
	}

	for _, it := range order.Items {
		desc := it.ProductName
		if it.VariantName != "" {
			desc += " - " + it.VariantName
		}
		doc.Lines = append(doc.Lines, pdf.Line{
			Description: desc,
			Qty:         it.Quantity,
			UnitPrice:   money(it.UnitPrice),
			Amount:      money(it.Total),
		})
	}
	return s.pdf.Receipt(ctx, doc)
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }
