package domain

import "errors"

// Error categories. Concrete errors below match one of these through errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflict")
	ErrInvariantViolation = errors.New("ledger invariant violated")
)

// ValidationError is a caller mistake tied to one input field. It is never
// retried automatically.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConflictError reports a request that clashed with current ledger state.
// Callers may retry once the state has changed.
type ConflictError struct {
	Code    string
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

var (
	ErrInvalidAmount          = &ValidationError{"amount", "must be greater than zero"}
	ErrAmountPrecision        = &ValidationError{"amount", "must have at most 2 decimal places"}
	ErrAmountExceedsRemaining = &ValidationError{"amount", "exceeds the remaining amount"}
	ErrRefundExceedsPayments  = &ValidationError{"amount", "exceeds cumulative payments for the order"}
	ErrClientMismatch         = &ValidationError{"client_id", "does not match the order's client"}
	ErrInvalidPartySize       = &ValidationError{"party_size", "must be at least 1"}
	ErrInvalidCapacity        = &ValidationError{"capacity", "must not be negative"}
	ErrInvalidDocumentType    = &ValidationError{"document_type", "unknown document type"}
	ErrInvalidResetInterval   = &ValidationError{"reset_interval", "must be NONE, MONTHLY or YEARLY"}
	ErrInvalidFormat          = &ValidationError{"format", "must contain the {SEQ} token"}
	ErrInvalidPrefix          = &ValidationError{"prefix", "required"}
	ErrInvalidPaymentMode     = &ValidationError{"mode", "must be cash or cheque"}
	ErrInvalidPrice           = &ValidationError{"price", "must not be negative"}
	ErrNegativeTotal          = &ValidationError{"amount_ttc", "reductions exceed the order price"}
	ErrInvalidRegisterName    = &ValidationError{"name", "required"}
	ErrInvalidTransactionType = &ValidationError{"type", "must be credit or debit"}
)

var (
	ErrCapacityExceeded        = &ConflictError{"CAPACITY_EXCEEDED", "Session capacity exceeded"}
	ErrSessionExists           = &ConflictError{"SESSION_EXISTS", "A session already exists for this article and date"}
	ErrInvoiceExists           = &ConflictError{"INVOICE_EXISTS", "Order already has an invoice"}
	ErrInvoiceHasPayments      = &ConflictError{"INVOICE_HAS_PAYMENTS", "Invoice has active payments, refund them first"}
	ErrInvoiceCancelled        = &ConflictError{"INVOICE_CANCELLED", "Invoice is cancelled"}
	ErrInvoiceAlreadyPaid      = &ConflictError{"INVOICE_ALREADY_PAID", "Invoice is already paid"}
	ErrPaymentsExceedTotal     = &ConflictError{"PAYMENTS_EXCEED_TOTAL", "Existing payments exceed the invoice total"}
	ErrOrderCancelled          = &ConflictError{"ORDER_CANCELLED", "Order is cancelled"}
	ErrVoucherVoided           = &ConflictError{"VOUCHER_VOIDED", "Payment voucher is already voided"}
	ErrPrimaryRegisterExists   = &ConflictError{"PRIMARY_REGISTER_EXISTS", "A primary cash register already exists"}
	ErrPrimaryRegisterRequired = &ConflictError{"PRIMARY_REGISTER_REQUIRED", "The primary cash register cannot be removed"}
	ErrNoPrimaryRegister       = &ConflictError{"NO_PRIMARY_REGISTER", "No primary cash register is configured"}
	ErrRegisterInUse           = &ConflictError{"REGISTER_IN_USE", "Cash register has transactions"}
	ErrDuplicateRegisterName   = &ConflictError{"DUPLICATE_REGISTER_NAME", "A cash register with this name already exists"}
	ErrArticleTypeBound        = &ConflictError{"ARTICLE_TYPE_BOUND", "Another cash register already serves this article type"}
	ErrSerializationFailure    = &ConflictError{"CONCURRENT_UPDATE", "Concurrent update detected, please retry"}
)
