package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	customerdomain "github.com/smallbiznis/invoiced/internal/customer/domain"
	productdomain "github.com/smallbiznis/invoiced/internal/product/domain"
	"gorm.io/datatypes"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusSent      InvoiceStatus = "SENT"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	default:
		return false
	}
}

type Invoice struct {
	ID         snowflake.ID    `gorm:"primaryKey" json:"id"`
	Number     string          `gorm:"not null;uniqueIndex" json:"number"`
	NumberSeq  int64           `gorm:"not null" json:"-"`
	CustomerID snowflake.ID    `gorm:"not null;index" json:"customerId"`
	Status     InvoiceStatus   `gorm:"not null;default:DRAFT" json:"status"`
	IssueDate  time.Time       `gorm:"not null" json:"issueDate"`
	DueDate    time.Time       `gorm:"not null" json:"dueDate"`
	Subtotal   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	TaxRate    decimal.Decimal `gorm:"type:decimal(6,5);not null" json:"taxRate"`
	TaxAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"taxAmount"`
	Total      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	Notes      string          `json:"notes,omitempty"`
	Metadata   datatypes.JSON  `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`

	Customer *customerdomain.Customer `gorm:"-" json:"customer,omitempty"`
	Items    []InvoiceItem            `gorm:"-" json:"items,omitempty"`
}

type InvoiceItem struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceID snowflake.ID    `gorm:"not null;index" json:"invoiceId"`
	ProductID snowflake.ID    `gorm:"not null" json:"productId"`
	Quantity  int64           `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unitPrice"`
	Total     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`

	Product *productdomain.Product `gorm:"-" json:"product,omitempty"`
}
