package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestInvoiceStatusFor(t *testing.T) {
	today := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	yesterday := DateOf(today).AddDate(0, 0, -1)
	tomorrow := DateOf(today).AddDate(0, 0, 1)
	sameDay := DateOf(today)

	tests := []struct {
		name   string
		status InvoiceStatus
		due    *time.Time
		ttc    string
		paid   string
		want   InvoiceStatus
	}{
		{name: "nothing paid", status: InvoiceStatusPending, due: &tomorrow, ttc: "10000", paid: "0", want: InvoiceStatusPending},
		{name: "partial", status: InvoiceStatusPending, due: &tomorrow, ttc: "10000", paid: "4000", want: InvoiceStatusPending},
		{name: "one cent short", status: InvoiceStatusPending, due: &tomorrow, ttc: "10000", paid: "9999.99", want: InvoiceStatusPending},
		{name: "exactly paid", status: InvoiceStatusPending, due: &tomorrow, ttc: "10000", paid: "10000", want: InvoiceStatusPaid},
		{name: "paid after due date", status: InvoiceStatusUnpaid, due: &yesterday, ttc: "10000", paid: "10000", want: InvoiceStatusPaid},
		{name: "overdue", status: InvoiceStatusPending, due: &yesterday, ttc: "10000", paid: "4000", want: InvoiceStatusUnpaid},
		{name: "due today is not overdue", status: InvoiceStatusPending, due: &sameDay, ttc: "10000", paid: "0", want: InvoiceStatusPending},
		{name: "no due date", status: InvoiceStatusPending, due: nil, ttc: "10000", paid: "0", want: InvoiceStatusPending},
		{name: "paid reverts after void", status: InvoiceStatusPaid, due: &tomorrow, ttc: "10000", paid: "6000", want: InvoiceStatusPending},
		{name: "cancelled is sticky", status: InvoiceStatusCancelled, due: &yesterday, ttc: "10000", paid: "10000", want: InvoiceStatusCancelled},
		{name: "zero total", status: InvoiceStatusPending, due: &tomorrow, ttc: "0", paid: "0", want: InvoiceStatusPaid},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inv := &Invoice{
				Status:    tc.status,
				DueDate:   tc.due,
				AmountTTC: decimal.RequireFromString(tc.ttc),
			}
			got := inv.StatusFor(decimal.RequireFromString(tc.paid), today)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("UTC+1", 3600)
	got := DateOf(time.Date(2026, 1, 1, 0, 30, 0, 0, loc))
	assert.Equal(t, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), got)
}
