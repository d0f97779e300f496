package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoiced/pkg/db/pagination"
	"gorm.io/datatypes"
)

type CreateInvoiceItemRequest struct {
	ProductID string          `json:"productId"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type CreateInvoiceRequest struct {
	CustomerID string                     `json:"customerId"`
	DueDate    time.Time                  `json:"dueDate"`
	Items      []CreateInvoiceItemRequest `json:"items"`
	TaxRate    *decimal.Decimal           `json:"taxRate"`
	Notes      string                     `json:"notes"`
	Metadata   datatypes.JSON             `json:"metadata"`
}

// UpdateInvoiceRequest carries a partial update. nil fields are left as-is;
// a non-nil Items slice replaces the line items wholesale.
type UpdateInvoiceRequest struct {
	CustomerID *string                    `json:"customerId"`
	DueDate    *time.Time                 `json:"dueDate"`
	Status     *InvoiceStatus             `json:"status"`
	Items      []CreateInvoiceItemRequest `json:"items"`
	TaxRate    *decimal.Decimal           `json:"taxRate"`
	Notes      *string                    `json:"notes"`
	Metadata   *datatypes.JSON            `json:"metadata"`
}

type ListInvoiceRequest struct {
	Status     *InvoiceStatus
	CustomerID *string
	FromDate   *time.Time
	ToDate     *time.Time
	MinAmount  *decimal.Decimal
	MaxAmount  *decimal.Decimal
	Page       pagination.Pagination
}

type ListInvoiceResponse struct {
	Invoices   []Invoice            `json:"invoices"`
	Pagination *pagination.PageInfo `json:"pagination"`
}

type Service interface {
	Create(context.Context, CreateInvoiceRequest) (Invoice, error)
	Update(ctx context.Context, id string, req UpdateInvoiceRequest) (Invoice, error)
	Delete(ctx context.Context, id string) error
	List(context.Context, ListInvoiceRequest) (ListInvoiceResponse, error)
	GetByID(ctx context.Context, id string) (Invoice, error)
	SetStatus(ctx context.Context, id string, status InvoiceStatus) (Invoice, error)
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]Invoice, error)
	SweepOverdue(ctx context.Context) (int64, error)
}

var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidStatus   = errors.New("invalid_status")
	ErrInvalidDueDate  = errors.New("invalid_due_date")
	ErrNotFound        = errors.New("not_found")
	ErrCustomerInvalid = errors.New("invalid_customer")
	ErrProductInvalid  = errors.New("invalid_product")
)
