package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/internal/clock"
	customerdomain "github.com/smallbiznis/bizcore/internal/customer/domain"
	"github.com/smallbiznis/bizcore/internal/finance/domain"
	"github.com/smallbiznis/bizcore/internal/providers/pdf"
	referencedomain "github.com/smallbiznis/bizcore/internal/reference/domain"
	"github.com/smallbiznis/bizcore/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) today() db.Date {
	return db.NewDate(clock.Today(s.clock))
}

func (s *Service) openInvoice(ctx context.Context, tx *gorm.DB, i *domain.Invoice) error {
	number, err := s.refs.Next(ctx, tx, i.BusinessID, referencedomain.DocInvoice, s.clock.Now())
	if err != nil {
		return err
	}
	i.InvoiceNumber = number
	i.AmountPaid = decimal.Zero
	i.PaidDate = nil
	if i.IssueDate.IsZero() {
		i.IssueDate = s.today()
	}

	// An invoice raised from an order bills the order's amounts unless the
	// caller priced it explicitly.
	if i.OrderID != nil && i.Subtotal.IsZero() && i.Total.IsZero() {
		if err := s.owned(ctx, tx, "orders", i.BusinessID, *i.OrderID, domain.ErrInvalidOrder); err != nil {
			return err
		}
		amounts, err := s.repo.OrderAmounts(ctx, tx, *i.OrderID)
		if err != nil {
			return err
		}
		i.Subtotal = amounts.Subtotal
		i.DiscountAmount = amounts.DiscountAmount
		i.TaxAmount = amounts.TaxAmount
		i.Total = amounts.Total
	}

	if i.DueDate.IsZero() && i.PaymentTermID != nil {
		term, err := s.terms.GetTx(ctx, tx, *i.PaymentTermID)
		if err != nil {
			return notFound(err, s.terms.NotFound(), domain.ErrInvalidPaymentTerm)
		}
		i.DueDate = i.IssueDate.AddDays(term.Days)
	}
	if i.DueDate.IsZero() {
		i.DueDate = i.IssueDate
	}
	return nil
}

func (s *Service) checkInvoice(ctx context.Context, tx *gorm.DB, i, old *domain.Invoice) error {
	if !i.Status.Valid() {
		return domain.ErrInvalidInvoiceStatus
	}
	// Paid states follow the money; clients cannot set them.
	settled := i.Status == domain.InvoicePaid || i.Status == domain.InvoicePartiallyPaid
	if settled && (old == nil || old.Status != i.Status) {
		return domain.ErrInvalidInvoiceStatus.WithMessage("paid states are set by registering payments")
	}
	if i.DueDate.Before(i.IssueDate.Time) {
		return domain.ErrInvalidDueDate
	}
	for _, v := range []decimal.Decimal{i.Subtotal, i.TaxAmount, i.DiscountAmount, i.Total} {
		if v.IsNegative() {
			return domain.ErrNegativeInvoice
		}
	}
	if i.Total.IsZero() {
		i.Total = i.Subtotal.Sub(i.DiscountAmount).Add(i.TaxAmount).Round(2)
		if i.Total.IsNegative() {
			return domain.ErrNegativeInvoice
		}
	}

	if old == nil || old.CustomerID != i.CustomerID {
		if err := s.customerExists(ctx, tx, i.CustomerID); err != nil {
			return err
		}
	}
	if i.OrderID != nil && (old == nil || !sameID(i.OrderID, old.OrderID)) {
		if err := s.owned(ctx, tx, "orders", i.BusinessID, *i.OrderID, domain.ErrInvalidOrder); err != nil {
			return err
		}
	}
	if i.PaymentTermID != nil && (old == nil || !sameID(i.PaymentTermID, old.PaymentTermID)) {
		if err := s.owned(ctx, tx, "payment_terms", i.BusinessID, *i.PaymentTermID, domain.ErrInvalidPaymentTerm); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) RegisterPayment(ctx context.Context, id snowflake.ID, amount decimal.Decimal) (*domain.Invoice, error) {
	var invoice *domain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		invoice, err = s.ApplyInvoicePayment(ctx, tx, id, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("invoice payment registered",
		zap.String("business_id", invoice.BusinessID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("status", string(invoice.Status)),
	)
	return invoice, nil
}

func (s *Service) ApplyInvoicePayment(ctx context.Context, tx *gorm.DB, id snowflake.ID, amount decimal.Decimal) (*domain.Invoice, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidPayment
	}
	invoice, err := s.invoices.GetTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status == domain.InvoiceCancelled {
		return nil, domain.ErrInvoiceCancelled
	}
	invoice.ApplyPayment(amount, s.today())
	invoice.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateInvoice(ctx, tx, invoice, "amount_paid", "paid_date", "status"); err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *Service) ReverseInvoicePayment(ctx context.Context, tx *gorm.DB, id snowflake.ID, amount decimal.Decimal) (*domain.Invoice, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidPayment
	}
	invoice, err := s.invoices.GetTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	invoice.ReversePayment(amount)
	invoice.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateInvoice(ctx, tx, invoice, "amount_paid", "paid_date", "status"); err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *Service) InvoicePDF(ctx context.Context, id snowflake.ID) ([]byte, error) {
	invoice, err := s.invoices.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	doc := pdf.Document{
		Number:     invoice.InvoiceNumber,
		IssueDate:  invoice.IssueDate.String(),
		DueDate:    invoice.DueDate.String(),
		Subtotal:   money(invoice.Subtotal),
		Discount:   money(invoice.DiscountAmount),
		Tax:        money(invoice.TaxAmount),
		Total:      money(invoice.Total),
		AmountPaid: money(invoice.AmountPaid),
		BalanceDue: money(invoice.BalanceDue),
		Notes:      invoice.Notes,
		Terms:      invoice.Terms,
	}
	if invoice.PaidDate != nil {
		doc.PaidDate = invoice.PaidDate.String()
	}
	if doc.BusinessName, err = s.repo.BusinessName(ctx, s.db, invoice.BusinessID); err != nil {
		return nil, err
	}

	customer, err := s.customers.Get(ctx, invoice.CustomerID)
	switch {
	case err == nil:
		doc.BillToName = customer.FullName()
		doc.BillToEmail = customer.Email
		doc.BillToPhone = customer.Phone
	case !errors.Is(err, customerdomain.ErrNotFound):
		return nil, err
	}

	if invoice.OrderID != nil {
		lines, err := s.repo.OrderLines(ctx, s.db, *invoice.OrderID)
		if err != nil {
			return nil, err
		}
		for _, l := range lines {
			desc := l.ProductName
			if l.VariantName != "" {
				desc += " - " + l.VariantName
			}
			doc.Lines = append(doc.Lines, pdf.Line{
				Description: desc,
				Qty:         l.Quantity,
				UnitPrice:   money(l.UnitPrice),
				Amount:      money(l.Total),
			})
		}
	}
	return s.pdf.Invoice(ctx, doc)
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }
