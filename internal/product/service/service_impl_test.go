package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoiced/internal/clock"
	"github.com/smallbiznis/invoiced/internal/product/domain"
	"github.com/smallbiznis/invoiced/internal/product/repository"
	"github.com/smallbiznis/invoiced/internal/product/service"
	"github.com/smallbiznis/invoiced/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_product_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
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
		`CREATE UNIQUE INDEX ux_products_sku ON products(sku) WHERE sku IS NOT NULL`,
		`CREATE TABLE invoice_items (
			id BIGINT PRIMARY KEY,
			invoice_id BIGINT NOT NULL,
			product_id BIGINT NOT NULL,
			quantity INT NOT NULL,
			unit_price DECIMAL(12,2) NOT NULL,
			total DECIMAL(12,2) NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return db
}

func newService(t *testing.T, db *gorm.DB) (domain.Service, *snowflake.Node) {
	t.Helper()

	node, err := snowflake.NewNode(12)
	require.NoError(t, err)

	svc := service.New(service.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.SystemClock{},
		Repo:  repository.Provide(),
	})
	return svc, node
}

func TestCreateProductRejectsDuplicateSKU(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, setupTestDB(t))

	_, err := svc.Create(ctx, domain.CreateProductRequest{
		Name:  "Widget",
		Price: decimal.RequireFromString("9.99"),
		SKU:   "WID-1",
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateProductRequest{
		Name:  "Widget Clone",
		Price: decimal.RequireFromString("8.99"),
		SKU:   "wid-1",
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateSKU)
}

func TestCreateProductAllowsManyEmptySKUs(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, setupTestDB(t))

	for i := 0; i < 2; i++ {
		_, err := svc.Create(ctx, domain.CreateProductRequest{
			Name:  fmt.Sprintf("No SKU %d", i),
			Price: decimal.RequireFromString("1.00"),
		})
		require.NoError(t, err)
	}
}

func TestCreateProductValidatesPrice(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, setupTestDB(t))

	_, err := svc.Create(ctx, domain.CreateProductRequest{
		Name:  "Free",
		Price: decimal.Zero,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
}

func TestListProductsPriceRange(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, setupTestDB(t))

	prices := []string{"5.00", "15.00", "25.00"}
	for i, price := range prices {
		_, err := svc.Create(ctx, domain.CreateProductRequest{
			Name:  fmt.Sprintf("P%d", i),
			Price: decimal.RequireFromString(price),
		})
		require.NoError(t, err)
	}

	min := decimal.RequireFromString("10.00")
	max := decimal.RequireFromString("20.00")
	resp, err := svc.List(ctx, domain.ListProductRequest{
		MinPrice: &min,
		MaxPrice: &max,
		Page:     pagination.Pagination{Page: 1, Limit: 10},
	})
	require.NoError(t, err)
	require.Len(t, resp.Products, 1)
	assert.True(t, resp.Products[0].Price.Equal(decimal.RequireFromString("15.00")))
}

func TestPopularProductsOrderedByUsage(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node := newService(t, db)

	quiet, err := svc.Create(ctx, domain.CreateProductRequest{
		Name:  "Quiet",
		Price: decimal.RequireFromString("1.00"),
	})
	require.NoError(t, err)
	busy, err := svc.Create(ctx, domain.CreateProductRequest{
		Name:  "Busy",
		Price: decimal.RequireFromString("2.00"),
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		err := db.Exec(
			`INSERT INTO invoice_items (id, invoice_id, product_id, quantity, unit_price, total)
			 VALUES (?, ?, ?, 1, 2.00, 2.00)`,
			node.Generate(), node.Generate(), busy.ID,
		).Error
		require.NoError(t, err)
	}

	popular, err := svc.Popular(ctx, 10)
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, busy.ID, popular[0].ID)
	assert.Equal(t, int64(3), popular[0].UsageCount)
	assert.Equal(t, quiet.ID, popular[1].ID)
	assert.Equal(t, int64(0), popular[1].UsageCount)
}
