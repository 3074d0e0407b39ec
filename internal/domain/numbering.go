package domain

import "time"

type DocumentType string

const (
	DocumentTypeInvoice        DocumentType = "INVOICE"
	DocumentTypePaymentVoucher DocumentType = "PAYMENT_VOUCHER"
	DocumentTypeRefundVoucher  DocumentType = "REFUND_VOUCHER"
	DocumentTypePurchaseOrder  DocumentType = "PURCHASE_ORDER"
)

func (d DocumentType) IsValid() bool {
	switch d {
	case DocumentTypeInvoice, DocumentTypePaymentVoucher, DocumentTypeRefundVoucher, DocumentTypePurchaseOrder:
		return true
	}
	return false
}

type ResetInterval string

const (
	ResetNone    ResetInterval = "NONE"
	ResetMonthly ResetInterval = "MONTHLY"
	ResetYearly  ResetInterval = "YEARLY"
)

func (r ResetInterval) IsValid() bool {
	switch r {
	case ResetNone, ResetMonthly, ResetYearly:
		return true
	}
	return false
}

// SequenceCounter is the per-document-type numbering state.
type SequenceCounter struct {
	DocumentType  DocumentType
	Prefix        string
	Format        string
	Counter       int64
	ResetInterval ResetInterval
	LastResetAt   *time.Time
	UpdatedAt     time.Time
}
