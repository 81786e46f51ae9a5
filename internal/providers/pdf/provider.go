package pdf

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("providers.pdf",
	fx.Provide(New),
)

// Renderer turns business documents into PDF bytes.
type Renderer interface {
	Invoice(ctx context.Context, doc Document) ([]byte, error)
	Receipt(ctx context.Context, doc Document) ([]byte, error)
}

// Document is the printable view shared by invoices and sale receipts.
// Money fields are preformatted strings.
type Document struct {
	BusinessName string
	Number       string
	IssueDate    string
	DueDate      string
	PaidDate     string
	Currency     string

	BillToName  string
	BillToEmail string
	BillToPhone string

	Lines []Line

	Subtotal   string
	Discount   string
	Tax        string
	Total      string
	AmountPaid string
	BalanceDue string

	Notes string
	Terms string
}

type Line struct {
	Description string
	Qty         int64
	UnitPrice   string
	Amount      string
}

type MarotoRenderer struct{}

func New() Renderer {
	return &MarotoRenderer{}
}
