package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoiced/internal/clock"
	"github.com/smallbiznis/invoiced/internal/invoice/domain"
	"github.com/smallbiznis/invoiced/internal/invoice/service"
	"github.com/smallbiznis/invoiced/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_invoice_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE customers (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT,
			address TEXT,
			city TEXT,
			state TEXT,
			zip_code TEXT,
			country TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE products (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			price DECIMAL(12,2) NOT NULL,
			category TEXT,
			sku TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE invoices (
			id BIGINT PRIMARY KEY,
			number VARCHAR(20) NOT NULL,
			number_seq BIGINT NOT NULL,
			customer_id BIGINT NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'DRAFT',
			issue_date TIMESTAMP NOT NULL,
			due_date TIMESTAMP NOT NULL,
			subtotal DECIMAL(12,2) NOT NULL,
			tax_rate DECIMAL(6,5) NOT NULL,
			tax_amount DECIMAL(12,2) NOT NULL,
			total DECIMAL(12,2) NOT NULL,
			notes VARCHAR(1000),
			metadata TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_invoices_number ON invoices(number)`,
		`CREATE TABLE invoice_items (
			id BIGINT PRIMARY KEY,
			invoice_id BIGINT NOT NULL,
			product_id BIGINT NOT NULL,
			quantity INT NOT NULL,
			unit_price DECIMAL(12,2) NOT NULL,
			total DECIMAL(12,2) NOT NULL
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

func newService(t *testing.T, db *gorm.DB, clk clock.Clock) domain.Service {
	t.Helper()

	node, err := snowflake.NewNode(12)
	require.NoError(t, err)

	return service.NewService(service.ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
	})
}

var (
	seedCustomerNode *snowflake.Node
	seedProductNode  *snowflake.Node
)

func seedCustomer(t *testing.T, db *gorm.DB, name string) snowflake.ID {
	t.Helper()

	if seedCustomerNode == nil {
		node, err := snowflake.NewNode(13)
		require.NoError(t, err)
		seedCustomerNode = node
	}

	id := seedCustomerNode.Generate()
	now := time.Now().UTC()
	err := db.Exec(
		`INSERT INTO customers (id, name, email, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, name, fmt.Sprintf("%s@example.test", id), now, now,
	).Error
	require.NoError(t, err)
	return id
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string) snowflake.ID {
	t.Helper()

	if seedProductNode == nil {
		node, err := snowflake.NewNode(14)
		require.NoError(t, err)
		seedProductNode = node
	}

	id := seedProductNode.Generate()
	now := time.Now().UTC()
	err := db.Exec(
		`INSERT INTO products (id, name, price, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, name, price, now, now,
	).Error
	require.NoError(t, err)
	return id
}

func TestCreateInvoiceComputesTotalsAndNumber(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)

	customerID := seedCustomer(t, db, "Acme Corp")
	productID := seedProduct(t, db, "Widget", "99.99")

	taxRate := decimal.RequireFromString("0.08")
	invoice, err := svc.Create(ctx, domain.CreateInvoiceRequest{
		CustomerID: customerID.String(),
		DueDate:    time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC),
		TaxRate:    &taxRate,
		Items: []domain.CreateInvoiceItemRequest{
			{ProductID: productID.String(), Quantity: 2, UnitPrice: decimal.RequireFromString("99.99")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "INV-2024-0001", invoice.Number)
	assert.Equal(t, domain.InvoiceStatusDraft, invoice.Status)
	assert.True(t, invoice.Subtotal.Equal(decimal.RequireFromString("199.98")), "subtotal %s", invoice.Subtotal)
	assert.True(t, invoice.TaxAmount.Equal(decimal.RequireFromString("16.00")), "tax %s", invoice.TaxAmount)
	assert.True(t, invoice.Total.Equal(decimal.RequireFromString("215.98")), "total %s", invoice.Total)
	require.Len(t, invoice.Items, 1)
	assert.True(t, invoice.Items[0].Total.Equal(decimal.RequireFromString("199.98")))

	second, err := svc.Create(ctx, domain.CreateInvoiceRequest{
		CustomerID: customerID.String(),
		DueDate:    time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC),
		Items: []domain.CreateInvoiceItemRequest{
			{ProductID: productID.String(), Quantity: 1, UnitPrice: decimal.RequireFromString("10.00")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-0002", second.Number)
}

func TestCreateInvoiceValidatesReferences(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)

	customerID := seedCustomer(t, db, "Acme Corp")
	productID := seedProduct(t, db, "Widget", "10.00")

	_, err := svc.Create(ctx, domain.CreateInvoiceRequest{
		CustomerID: "999999999999999999",
		DueDate:    time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC),
		Items: []domain.CreateInvoiceItemRequest{
			{ProductID: productID.String(), Quantity: 1, UnitPrice: decimal.RequireFromString("10.00")},
		},
	})
	assert.ErrorIs(t, err, domain.ErrCustomerInvalid)

	_, err = svc.Create(ctx, domain.CreateInvoiceRequest{
		CustomerID: customerID.String(),
		DueDate:    time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC),
		Items: []domain.CreateInvoiceItemRequest{
			{ProductID: "999999999999999999", Quantity: 1, UnitPrice: decimal.RequireFromString("10.00")},
		},
	})
	assert.ErrorIs(t, err, domain.ErrProductInvalid)

	_, err = svc.Create(ctx, domain.CreateInvoiceRequest{
		CustomerID: customerID.String(),
		DueDate:    time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC),
	})
	assert.Error(t, err)
}

func TestUpdateInvoiceReplacesItemsAndRecomputesTotals(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)

	customerID := seedCustomer(t, db, "Acme Corp")
	widgetID := seedProduct(t, db, "Widget", "99.99")
	gadgetID := seedProduct(t, db, "Gadget", "25.00")

	taxRate := decimal.RequireFromString("0.10")
	invoice, err := svc.Create(ctx, domain.CreateInvoiceRequest{
		CustomerID: customerID.String(),
		DueDate:    time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC),
		TaxRate:    &taxRate,
		Items: []domain.CreateInvoiceItemRequest{
			{ProductID: widgetID.String(), Quantity: 1, UnitPrice: decimal.RequireFromString("99.99")},
		},
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, invoice.ID.String(), domain.UpdateInvoiceRequest{
		Items: []domain.CreateInvoiceItemRequest{
			{ProductID: widgetID.String(), Quantity: 1, UnitPrice: decimal.RequireFromString("99.99")},
			{ProductID: gadgetID.String(), Quantity: 2, UnitPrice: decimal.RequireFromString("25.00")},
		},
	})
	require.NoError(t, err)

	require.Len(t, updated.Items, 2)
	assert.True(t, updated.Subtotal.Equal(decimal.RequireFromString("149.99")), "subtotal %s", updated.Subtotal)
	assert.True(t, updated.TaxAmount.Equal(decimal.RequireFromString("15.00")), "tax %s", updated.TaxAmount)
	assert.True(t, updated.Total.Equal(decimal.RequireFromString("164.99")), "total %s", updated.Total)
}

func TestUpdateInvoiceTaxRateOnlyRecomputes(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)

	customerID := seedCustomer(t, db, "Acme Corp")
	productID := seedProduct(t, db, "Widget", "100.00")

	invoice, err := svc.Create(ctx, domain.CreateInvoiceRequest{
		CustomerID: customerID.String(),
		DueDate:    time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC),
		Items: []domain.CreateInvoiceItemRequest{
			{ProductID: productID.String(), Quantity: 1, UnitPrice: decimal.RequireFromString("100.00")},
		},
	})
	require.NoError(t, err)
	assert.True(t, invoice.Total.Equal(decimal.RequireFromString("100.00")))

	newRate := decimal.RequireFromString("0.05")
	updated, err := svc.Update(ctx, invoice.ID.String(), domain.UpdateInvoiceRequest{
		TaxRate: &newRate,
	})
	require.NoError(t, err)

	require.Len(t, updated.Items, 1)
	assert.True(t, updated.TaxAmount.Equal(decimal.RequireFromString("5.00")), "tax %s", updated.TaxAmount)
	assert.True(t, updated.Total.Equal(decimal.RequireFromString("105.00")), "total %s", updated.Total)
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)

	customerID := seedCustomer(t, db, "Acme Corp")
	productID := seedProduct(t, db, "Widget", "10.00")

	invoice, err := svc.Create(ctx, domain.CreateInvoiceRequest{
		CustomerID: customerID.String(),
		DueDate:    time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC),
		Items: []domain.CreateInvoiceItemRequest{
			{ProductID: productID.String(), Quantity: 1, UnitPrice: decimal.RequireFromString("10.00")},
		},
	})
	require.NoError(t, err)

	updated, err := svc.SetStatus(ctx, invoice.ID.String(), domain.InvoiceStatusSent)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusSent, updated.Status)

	_, err = svc.SetStatus(ctx, invoice.ID.String(), domain.InvoiceStatus("SHIPPED"))
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = svc.SetStatus(ctx, "999999999999999999", domain.InvoiceStatusSent)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSweepOverdueIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)

	customerID := seedCustomer(t, db, "Acme Corp")
	productID := seedProduct(t, db, "Widget", "10.00")

	create := func(due time.Time) domain.Invoice {
		invoice, err := svc.Create(ctx, domain.CreateInvoiceRequest{
			CustomerID: customerID.String(),
			DueDate:    due,
			Items: []domain.CreateInvoiceItemRequest{
				{ProductID: productID.String(), Quantity: 1, UnitPrice: decimal.RequireFromString("10.00")},
			},
		})
		require.NoError(t, err)
		return invoice
	}

	pastDueSent := create(time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC))
	pastDueDraft := create(time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC))
	futureSent := create(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	_, err := svc.SetStatus(ctx, pastDueSent.ID.String(), domain.InvoiceStatusSent)
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, futureSent.ID.String(), domain.InvoiceStatusSent)
	require.NoError(t, err)

	clk.Advance(30 * 24 * time.Hour)

	swept, err := svc.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	got, err := svc.GetByID(ctx, pastDueSent.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusOverdue, got.Status)

	got, err = svc.GetByID(ctx, pastDueDraft.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusDraft, got.Status)

	got, err = svc.GetByID(ctx, futureSent.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusSent, got.Status)

	swept, err = svc.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), swept)
}

func TestListInvoicesFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)

	customerID := seedCustomer(t, db, "Acme Corp")
	otherID := seedCustomer(t, db, "Globex")
	productID := seedProduct(t, db, "Widget", "10.00")

	for i, cid := range []snowflake.ID{customerID, customerID, otherID} {
		_, err := svc.Create(ctx, domain.CreateInvoiceRequest{
			CustomerID: cid.String(),
			DueDate:    time.Date(2024, 4, 15+i, 0, 0, 0, 0, time.UTC),
			Items: []domain.CreateInvoiceItemRequest{
				{ProductID: productID.String(), Quantity: int64(i + 1), UnitPrice: decimal.RequireFromString("10.00")},
			},
		})
		require.NoError(t, err)
	}

	cid := customerID.String()
	resp, err := svc.List(ctx, domain.ListInvoiceRequest{
		CustomerID: &cid,
		Page:       pagination.Pagination{Page: 1, Limit: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Pagination.Total)
	assert.Equal(t, 2, resp.Pagination.TotalPages)
	assert.Len(t, resp.Invoices, 1)

	min := decimal.RequireFromString("25.00")
	resp, err = svc.List(ctx, domain.ListInvoiceRequest{
		MinAmount: &min,
		Page:      pagination.Pagination{Page: 1, Limit: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Pagination.Total)

	recent, err := svc.ListByCustomer(ctx, cid, 1)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestDeleteInvoiceRemovesChildren(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)

	customerID := seedCustomer(t, db, "Acme Corp")
	productID := seedProduct(t, db, "Widget", "10.00")

	invoice, err := svc.Create(ctx, domain.CreateInvoiceRequest{
		CustomerID: customerID.String(),
		DueDate:    time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC),
		Items: []domain.CreateInvoiceItemRequest{
			{ProductID: productID.String(), Quantity: 1, UnitPrice: decimal.RequireFromString("10.00")},
		},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, invoice.ID.String()))

	_, err = svc.GetByID(ctx, invoice.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var itemCount int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM invoice_items WHERE invoice_id = ?`, invoice.ID).Scan(&itemCount).Error)
	assert.Equal(t, int64(0), itemCount)

	assert.ErrorIs(t, svc.Delete(ctx, invoice.ID.String()), domain.ErrNotFound)
}
