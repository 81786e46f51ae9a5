package domain

import "github.com/smallbiznis/bizcore/pkg/apperror"

var (
	ErrAccountNotFound     = apperror.NotFound("account_not_found")
	ErrTransactionNotFound = apperror.NotFound("transaction_not_found")
	ErrInvoiceNotFound     = apperror.NotFound("invoice_not_found")
	ErrExpenseNotFound     = apperror.NotFound("expense_not_found")

	ErrInvalidAccountType = apperror.Validation("account_type", "invalid_account_type", "invalid account type")
	ErrAccountCodeTaken   = apperror.Conflict("account_code_taken", "account code already used in this business")
	ErrInvalidParent      = apperror.Validation("parent_id", "invalid_parent", "parent account must belong to this business")
	ErrParentCycle        = apperror.Validation("parent_id", "parent_cycle", "an account cannot be its own ancestor")
	ErrAccountInUse       = apperror.Validation("account_id", "account_in_use", "accounts with entries cannot be deleted")

	ErrInvalidTransactionType = apperror.Validation("transaction_type", "invalid_transaction_type", "invalid transaction type")
	ErrNegativeAmount         = apperror.Validation("amount", "invalid_amount", "amount cannot be negative")
	ErrInvalidOrder           = apperror.Validation("order_id", "invalid_order", "order must belong to this business")
	ErrAlreadyPosted          = apperror.Validation("is_posted", "already_posted", "transaction is already posted")
	ErrUnbalanced             = apperror.Validation("entries", "unbalanced_transaction", "debits must equal credits")
	ErrPostedImmutable        = apperror.Validation("transaction_id", "transaction_posted", "posted transactions cannot change")

	ErrInvalidTransaction = apperror.Validation("transaction_id", "invalid_transaction", "unknown transaction")
	ErrInvalidAccount     = apperror.Validation("account_id", "invalid_account", "account must belong to this business")
	ErrInactiveAccount    = apperror.Validation("account_id", "inactive_account", "account is inactive")
	ErrInvalidEntryType   = apperror.Validation("entry_type", "invalid_entry_type", "entry type must be debit or credit")
	ErrInvalidEntryAmount = apperror.Validation("amount", "invalid_amount", "amount must be greater than zero")

	ErrInvalidCustomer      = apperror.Validation("customer_id", "invalid_customer", "customer must belong to this business")
	ErrInvalidPaymentTerm   = apperror.Validation("payment_term_id", "invalid_payment_term", "payment term must belong to this business")
	ErrInvalidInvoiceStatus = apperror.Validation("status", "invalid_status", "invalid invoice status")
	ErrInvalidDueDate       = apperror.Validation("due_date", "invalid_due_date", "due date cannot be before the issue date")
	ErrNegativeInvoice      = apperror.Validation("total", "invalid_amount", "invoice amounts cannot be negative")
	ErrInvoiceCancelled     = apperror.Validation("status", "invoice_cancelled", "cancelled invoices do not accept payments")
	ErrInvalidPayment       = apperror.Validation("amount", "invalid_amount", "payment amount must be greater than zero")

	ErrInvalidCategory      = apperror.Validation("category", "invalid_category", "invalid expense category")
	ErrInvalidExpenseStatus = apperror.Validation("payment_status", "invalid_payment_status", "invalid payment status")
	ErrInvalidRecurrence    = apperror.Validation("recurring_frequency", "invalid_recurring_frequency", "invalid recurring frequency")
	ErrRecurrenceRequired   = apperror.Validation("recurring_frequency", "recurring_frequency_required", "recurring expenses need a frequency")
	ErrInvalidApprover      = apperror.Validation("approved_by", "invalid_approver", "approver must be a member of this business")
	ErrExpenseCancelled     = apperror.Validation("payment_status", "expense_cancelled", "cancelled expenses cannot be paid")

	ErrInvalidDiscount = apperror.Validation("discount_percentage", "invalid_discount_percentage", "discount must be between 0 and 100")
	ErrInvalidDays     = apperror.Validation("discount_days", "invalid_discount_days", "discount days cannot exceed the term days")
)
