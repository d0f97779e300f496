package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoiced/internal/customer/domain"
	"github.com/smallbiznis/invoiced/pkg/db/option"
	"github.com/smallbiznis/invoiced/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customers (id, name, email, phone, address, city, state, zip_code, country, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		customer.ID,
		customer.Name,
		customer.Email,
		customer.Phone,
		customer.Address,
		customer.City,
		customer.State,
		customer.ZipCode,
		customer.Country,
		customer.CreatedAt,
		customer.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`UPDATE customers
		 SET name = ?, email = ?, phone = ?, address = ?, city = ?, state = ?, zip_code = ?, country = ?, updated_at = ?
		 WHERE id = ?`,
		customer.Name,
		customer.Email,
		customer.Phone,
		customer.Address,
		customer.City,
		customer.State,
		customer.ZipCode,
		customer.Country,
		customer.UpdatedAt,
		customer.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM customers WHERE id = ?`, id).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, phone, address, city, state, zip_code, country, created_at, updated_at
		 FROM customers WHERE id = ?`,
		id,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string, excludeID snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, phone, address, city, state, zip_code, country, created_at, updated_at
		 FROM customers WHERE LOWER(email) = LOWER(?) AND id <> ?`,
		email,
		excludeID,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListCustomerFilter, page pagination.Pagination) ([]*domain.Customer, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Customer{})
	if filter.Search != "" {
		needle := "%" + filter.Search + "%"
		stmt = stmt.Where("LOWER(name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?)", needle, needle)
	}
	if filter.City != "" {
		stmt = option.ApplyOperator(option.Condition{
			Field:    "city",
			Operator: option.ILIKE,
			Value:    "%" + filter.City + "%",
		}).Apply(stmt)
	}
	if filter.State != "" {
		stmt = option.ApplyOperator(option.Condition{
			Field:    "state",
			Operator: option.ILIKE,
			Value:    "%" + filter.State + "%",
		}).Apply(stmt)
	}
	if filter.Country != "" {
		stmt = option.ApplyOperator(option.Condition{
			Field:    "country",
			Operator: option.ILIKE,
			Value:    "%" + filter.Country + "%",
		}).Apply(stmt)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var customers []*domain.Customer
	stmt = option.WithSortBy(option.WithQuerySortBy(page.SortBy, page.SortOrder, map[string]bool{
		"created_at": true,
		"name":       true,
		"email":      true,
	})).Apply(stmt)
	stmt = option.ApplyPagination(page).Apply(stmt)
	if err := stmt.Find(&customers).Error; err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}
