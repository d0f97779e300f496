package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoiced/internal/product/domain"
	"github.com/smallbiznis/invoiced/pkg/db/option"
	"github.com/smallbiznis/invoiced/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO products (id, name, description, price, category, sku, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?)`,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.Category,
		product.SKU,
		product.CreatedAt,
		product.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`UPDATE products
		 SET name = ?, description = ?, price = ?, category = ?, sku = NULLIF(?, ''), updated_at = ?
		 WHERE id = ?`,
		product.Name,
		product.Description,
		product.Price,
		product.Category,
		product.SKU,
		product.UpdatedAt,
		product.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM products WHERE id = ?`, id).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, description, price, category, COALESCE(sku, '') AS sku, created_at, updated_at
		 FROM products WHERE id = ?`,
		id,
	).Scan(&product).Error
	if err != nil {
		return nil, err
	}
	if product.ID == 0 {
		return nil, nil
	}
	return &product, nil
}

func (r *repo) FindBySKU(ctx context.Context, db *gorm.DB, sku string, excludeID snowflake.ID) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, description, price, category, COALESCE(sku, '') AS sku, created_at, updated_at
		 FROM products WHERE LOWER(sku) = LOWER(?) AND id <> ?`,
		sku,
		excludeID,
	).Scan(&product).Error
	if err != nil {
		return nil, err
	}
	if product.ID == 0 {
		return nil, nil
	}
	return &product, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []*domain.Product
	err := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id IN ?", ids).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListProductFilter, page pagination.Pagination) ([]*domain.Product, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Product{})
	if filter.Search != "" {
		needle := "%" + filter.Search + "%"
		stmt = stmt.Where(
			"LOWER(name) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?) OR LOWER(sku) LIKE LOWER(?)",
			needle, needle, needle,
		)
	}
	if filter.Category != "" {
		stmt = option.ApplyOperator(option.Condition{
			Field:    "category",
			Operator: option.ILIKE,
			Value:    "%" + filter.Category + "%",
		}).Apply(stmt)
	}
	if filter.MinPrice != nil {
		stmt = option.ApplyOperator(option.Condition{
			Field:    "price",
			Operator: option.GTE,
			Value:    *filter.MinPrice,
		}).Apply(stmt)
	}
	if filter.MaxPrice != nil {
		stmt = option.ApplyOperator(option.Condition{
			Field:    "price",
			Operator: option.LTE,
			Value:    *filter.MaxPrice,
		}).Apply(stmt)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []*domain.Product
	stmt = option.WithSortBy(option.WithQuerySortBy(page.SortBy, page.SortOrder, map[string]bool{
		"created_at": true,
		"name":       true,
		"price":      true,
	})).Apply(stmt)
	stmt = option.ApplyPagination(page).Apply(stmt)
	if err := stmt.Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *repo) Popular(ctx context.Context, db *gorm.DB, limit int) ([]*domain.PopularProduct, error) {
	var products []*domain.PopularProduct
	err := db.WithContext(ctx).Raw(
		`SELECT p.id, p.name, p.description, p.price, p.category, COALESCE(p.sku, '') AS sku,
		        p.created_at, p.updated_at, COUNT(ii.id) AS usage_count
		 FROM products p
		 LEFT JOIN invoice_items ii ON ii.product_id = p.id
		 GROUP BY p.id, p.name, p.description, p.price, p.category, p.sku, p.created_at, p.updated_at
		 ORDER BY usage_count DESC, p.id DESC
		 LIMIT ?`,
		limit,
	).Scan(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}
