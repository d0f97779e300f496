package domain

import (
	"context"

	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/invoiced/internal/invoice/domain"
)

// InvoiceBreakdown counts invoices per status.
type InvoiceBreakdown struct {
	Draft     int64 `json:"draft"`
	Sent      int64 `json:"sent"`
	Paid      int64 `json:"paid"`
	Overdue   int64 `json:"overdue"`
	Cancelled int64 `json:"cancelled"`
}

// Stats is the dashboard aggregate. totalRevenue sums PAID invoice totals;
// pendingRevenue sums DRAFT, SENT and OVERDUE totals.
type Stats struct {
	TotalCustomers   int64                   `json:"totalCustomers"`
	TotalProducts    int64                   `json:"totalProducts"`
	TotalInvoices    int64                   `json:"totalInvoices"`
	TotalRevenue     decimal.Decimal         `json:"totalRevenue"`
	PendingRevenue   decimal.Decimal         `json:"pendingRevenue"`
	InvoiceBreakdown InvoiceBreakdown        `json:"invoiceBreakdown"`
	RecentInvoices   []invoicedomain.Invoice `json:"recentInvoices"`
}

type Service interface {
	Stats(ctx context.Context) (Stats, error)
}
