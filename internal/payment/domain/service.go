package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type CreatePaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    PaymentMethod   `json:"method"`
	Date      *time.Time      `json:"date"`
	Reference string          `json:"reference"`
	Notes     string          `json:"notes"`
}

// RecordResult carries the stored payment plus the reconciled invoice state
// after the payment was applied.
type RecordResult struct {
	Payment       Payment         `json:"payment"`
	InvoiceStatus string          `json:"invoiceStatus"`
	TotalPaid     decimal.Decimal `json:"totalPaid"`
	Remaining     decimal.Decimal `json:"remaining"`
}

type Service interface {
	Record(ctx context.Context, invoiceID string, req CreatePaymentRequest) (RecordResult, error)
	ListByInvoice(ctx context.Context, invoiceID string) ([]Payment, error)
}

var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidAmount   = errors.New("invalid_amount")
	ErrInvalidMethod   = errors.New("invalid_method")
	ErrInvoiceNotFound = errors.New("not_found")
	ErrOverpayment     = errors.New("overpayment")
)
