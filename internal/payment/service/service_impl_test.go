package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoiced/internal/clock"
	invoicedomain "github.com/smallbiznis/invoiced/internal/invoice/domain"
	"github.com/smallbiznis/invoiced/internal/payment/domain"
	"github.com/smallbiznis/invoiced/internal/payment/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_payment_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE invoices (
			id BIGINT PRIMARY KEY,
			number VARCHAR(20) NOT NULL,
			customer_id BIGINT NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'DRAFT',
			issue_date TIMESTAMP NOT NULL,
			due_date TIMESTAMP NOT NULL,
			subtotal DECIMAL(12,2) NOT NULL,
			tax_rate DECIMAL(6,5) NOT NULL,
			tax_amount DECIMAL(12,2) NOT NULL,
			total DECIMAL(12,2) NOT NULL,
			notes VARCHAR(1000),
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE payments (
			id BIGINT PRIMARY KEY,
			invoice_id BIGINT NOT NULL,
			amount DECIMAL(12,2) NOT NULL,
			method VARCHAR(20) NOT NULL,
			date TIMESTAMP NOT NULL,
			reference VARCHAR(100),
			notes VARCHAR(500),
			created_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return db
}

func newService(t *testing.T, db *gorm.DB) domain.Service {
	t.Helper()

	node, err := snowflake.NewNode(15)
	require.NoError(t, err)

	return service.NewService(service.ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)),
	})
}

func seedInvoice(t *testing.T, db *gorm.DB, status invoicedomain.InvoiceStatus, total string) snowflake.ID {
	t.Helper()

	node, err := snowflake.NewNode(16)
	require.NoError(t, err)

	id := node.Generate()
	now := time.Now().UTC()
	err = db.Exec(
		`INSERT INTO invoices (id, number, customer_id, status, issue_date, due_date,
		                       subtotal, tax_rate, tax_amount, total, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?, ?)`,
		id, fmt.Sprintf("INV-2024-%04d", id%10000), id, status, now, now, total, total, now, now,
	).Error
	require.NoError(t, err)
	return id
}

func invoiceStatus(t *testing.T, db *gorm.DB, id snowflake.ID) string {
	t.Helper()

	var status string
	require.NoError(t, db.Raw(`SELECT status FROM invoices WHERE id = ?`, id).Scan(&status).Error)
	return status
}

func TestRecordPaymentFlipsInvoiceToPaid(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	invoiceID := seedInvoice(t, db, invoicedomain.InvoiceStatusSent, "215.98")

	first, err := svc.Record(ctx, invoiceID.String(), domain.CreatePaymentRequest{
		Amount: decimal.RequireFromString("50.00"),
		Method: domain.PaymentMethodCash,
	})
	require.NoError(t, err)
	assert.Equal(t, string(invoicedomain.InvoiceStatusSent), first.InvoiceStatus)
	assert.True(t, first.Remaining.Equal(decimal.RequireFromString("165.98")), "remaining %s", first.Remaining)

	second, err := svc.Record(ctx, invoiceID.String(), domain.CreatePaymentRequest{
		Amount: decimal.RequireFromString("165.98"),
		Method: domain.PaymentMethodBankTransfer,
	})
	require.NoError(t, err)
	assert.Equal(t, string(invoicedomain.InvoiceStatusPaid), second.InvoiceStatus)
	assert.True(t, second.Remaining.IsZero())
	assert.Equal(t, string(invoicedomain.InvoiceStatusPaid), invoiceStatus(t, db, invoiceID))
}

func TestRecordPaymentRejectsOverpayment(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	invoiceID := seedInvoice(t, db, invoicedomain.InvoiceStatusSent, "100.00")

	_, err := svc.Record(ctx, invoiceID.String(), domain.CreatePaymentRequest{
		Amount: decimal.RequireFromString("100.01"),
		Method: domain.PaymentMethodCash,
	})
	assert.ErrorIs(t, err, domain.ErrOverpayment)

	_, err = svc.Record(ctx, invoiceID.String(), domain.CreatePaymentRequest{
		Amount: decimal.RequireFromString("100.00"),
		Method: domain.PaymentMethodCash,
	})
	require.NoError(t, err)

	_, err = svc.Record(ctx, invoiceID.String(), domain.CreatePaymentRequest{
		Amount: decimal.RequireFromString("0.01"),
		Method: domain.PaymentMethodCash,
	})
	assert.ErrorIs(t, err, domain.ErrOverpayment)
}

func TestRecordPaymentValidatesInput(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	invoiceID := seedInvoice(t, db, invoicedomain.InvoiceStatusSent, "100.00")

	_, err := svc.Record(ctx, invoiceID.String(), domain.CreatePaymentRequest{
		Amount: decimal.Zero,
		Method: domain.PaymentMethodCash,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.Record(ctx, invoiceID.String(), domain.CreatePaymentRequest{
		Amount: decimal.RequireFromString("1000000.00"),
		Method: domain.PaymentMethodCash,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.Record(ctx, invoiceID.String(), domain.CreatePaymentRequest{
		Amount: decimal.RequireFromString("10.00"),
		Method: domain.PaymentMethod("WIRE"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidMethod)

	_, err = svc.Record(ctx, "999999999999999999", domain.CreatePaymentRequest{
		Amount: decimal.RequireFromString("10.00"),
		Method: domain.PaymentMethodCash,
	})
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
}

func TestListByInvoiceOrdersByDateDesc(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	invoiceID := seedInvoice(t, db, invoicedomain.InvoiceStatusSent, "100.00")

	older := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	_, err := svc.Record(ctx, invoiceID.String(), domain.CreatePaymentRequest{
		Amount: decimal.RequireFromString("10.00"),
		Method: domain.PaymentMethodCash,
		Date:   &older,
	})
	require.NoError(t, err)
	_, err = svc.Record(ctx, invoiceID.String(), domain.CreatePaymentRequest{
		Amount: decimal.RequireFromString("20.00"),
		Method: domain.PaymentMethodCheck,
		Date:   &newer,
	})
	require.NoError(t, err)

	payments, err := svc.ListByInvoice(ctx, invoiceID.String())
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, domain.PaymentMethodCheck, payments[0].Method)
	assert.Equal(t, domain.PaymentMethodCash, payments[1].Method)

	_, err = svc.ListByInvoice(ctx, "999999999999999999")
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
}
