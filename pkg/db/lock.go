package db

import (
	"context"

	"gorm.io/gorm"
)

// RowLockClause returns the suffix that takes a row-level write lock on the
// current dialect. sqlite has no FOR UPDATE, which keeps in-memory test
// databases usable with the same queries.
func RowLockClause(tx *gorm.DB) string {
	if tx.Dialector.Name() == "sqlite" {
		return ""
	}
	return " FOR UPDATE"
}

// TryAdvisoryXactLock takes a transaction-scoped advisory lock on postgres
// and reports whether it was acquired. Other dialects have nothing
// equivalent and always report true; single-instance deployments do not
// contend anyway.
func TryAdvisoryXactLock(ctx context.Context, tx *gorm.DB, key int64) (bool, error) {
	if tx.Dialector.Name() != "postgres" {
		return true, nil
	}
	var acquired bool
	err := tx.WithContext(ctx).Raw(
		`SELECT pg_try_advisory_xact_lock(?)`, key,
	).Scan(&acquired).Error
	if err != nil {
		return false, err
	}
	return acquired, nil
}
