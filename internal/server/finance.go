package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/internal/authorization"
	financedomain "github.com/smallbiznis/bizcore/internal/finance/domain"
)

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) registerFinanceRoutes(biz *gin.RouterGroup) {
	resource[financedomain.Account]{
		path:   "accounts",
		object: authorization.ResourceAccount,
		store:  s.financeSvc.Accounts(),
		filters: []filter{
			textFilter("account_type", "account_type"),
			boolFilter("is_active", "is_active"),
			idFilter("parent_id", "parent_id"),
			searchFilter("code", "name"),
		},
	}.mount(s, biz)

	transactions := resource[financedomain.Transaction]{
		path:   "transactions",
		object: authorization.ResourceTransaction,
		store:  s.financeSvc.Transactions(),
		filters: []filter{
			textFilter("transaction_type", "transaction_type"),
			boolFilter("is_posted", "is_posted"),
			idFilter("order_id", "order_id"),
			dateRange("transaction_date"),
		},
	}.mount(s, biz)
	transactions.POST("/:id/post", s.authorize(authorization.ResourceTransaction, authorization.ActionWrite), s.PostTransaction)

	resource[financedomain.TransactionEntry]{
		path:   "transaction-entries",
		object: authorization.ResourceTransaction,
		store:  s.financeSvc.Entries(),
		filters: []filter{
			idFilter("transaction_id", "transaction_id"),
			idFilter("account_id", "account_id"),
			textFilter("entry_type", "entry_type"),
		},
	}.mount(s, biz)

	invoices := resource[financedomain.Invoice]{
		path:   "invoices",
		object: authorization.ResourceInvoice,
		store:  s.financeSvc.Invoices(),
		filters: []filter{
			textFilter("status", "status"),
			idFilter("customer_id", "customer_id"),
			idFilter("order_id", "order_id"),
			searchFilter("invoice_number"),
			dateRange("issue_date"),
		},
	}.mount(s, biz)
	invoices.POST("/:id/payments", s.authorize(authorization.ResourceInvoice, authorization.ActionWrite), s.RegisterInvoicePayment)
	invoices.GET("/:id/pdf", s.authorize(authorization.ResourceInvoice, authorization.ActionRead), s.InvoicePDF)

	expenses := resource[financedomain.Expense]{
		path:   "expenses",
		object: authorization.ResourceExpense,
		store:  s.financeSvc.Expenses(),
		filters: []filter{
			textFilter("category", "category"),
			textFilter("payment_status", "payment_status"),
			searchFilter("expense_number", "vendor_name", "description"),
			dateRange("expense_date"),
		},
	}.mount(s, biz)
	expenses.POST("/:id/mark-paid", s.authorize(authorization.ResourceExpense, authorization.ActionWrite), s.MarkExpensePaid)

	resource[financedomain.PaymentTerm]{
		path:    "payment-terms",
		object:  authorization.ResourcePaymentTerm,
		store:   s.financeSvc.PaymentTerms(),
		filters: []filter{boolFilter("is_active", "is_active")},
	}.mount(s, biz)
}

// PostTransaction freezes a balanced transaction and applies it to account balances.
func (s *Server) PostTransaction(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	txn, err := s.financeSvc.Post(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": txn})
}

func (s *Server) RegisterInvoicePayment(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	invoice, err := s.financeSvc.RegisterPayment(c.Request.Context(), id, req.Amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": invoice})
}

func (s *Server) InvoicePDF(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	doc, err := s.financeSvc.InvoicePDF(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="invoice-%s.pdf"`, id))
	c.Data(http.StatusOK, contentTypePDF, doc)
}

func (s *Server) MarkExpensePaid(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	expense, err := s.financeSvc.MarkExpensePaid(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": expense})
}
