package models

import (
	"testing"
	"time"
)

func TestDeriveInvoiceStatus(t *testing.T) {
	today := time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)
	past := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	future := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		stored  string
		total   float64
		paid    float64
		dueDate *time.Time
		want    string
	}{
		{"draft stays draft", InvoiceStatusDraft, 100, 0, &past, InvoiceStatusDraft},
		{"cancelled stays cancelled", InvoiceStatusCancelled, 100, 50, &past, InvoiceStatusCancelled},
		{"issued unpaid", InvoiceStatusIssued, 100, 0, &future, InvoiceStatusIssued},
		{"issued no due date", InvoiceStatusIssued, 100, 0, nil, InvoiceStatusIssued},
		{"partial payment", InvoiceStatusIssued, 100, 40, &future, InvoiceStatusPartial},
		{"fully paid", InvoiceStatusIssued, 100, 100, &future, InvoiceStatusPaid},
		{"paid wins over overdue", InvoiceStatusIssued, 100, 100, &past, InvoiceStatusPaid},
		{"overdue with open balance", InvoiceStatusIssued, 100, 0, &past, InvoiceStatusOverdue},
		{"overdue beats partial", InvoiceStatusIssued, 100, 40, &past, InvoiceStatusOverdue},
		{"stored overdue then settled", InvoiceStatusOverdue, 100, 100, &past, InvoiceStatusPaid},
		{"due today is not overdue", InvoiceStatusIssued, 100, 0, dateOf(today), InvoiceStatusIssued},
	}
	for _, tt := range tests {
		got := DeriveInvoiceStatus(tt.stored, tt.total, tt.paid, tt.dueDate, today)
		if got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.name, got, tt.want)
		}
	}
}

func dateOf(t time.Time) *time.Time {
	d := t.Truncate(24 * time.Hour)
	return &d
}
