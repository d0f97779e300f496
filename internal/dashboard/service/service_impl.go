package service

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoiced/internal/config"
	dashboarddomain "github.com/smallbiznis/invoiced/internal/dashboard/domain"
	invoicedomain "github.com/smallbiznis/invoiced/internal/invoice/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Runtime *config.RuntimeConfigHolder
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	runtime *config.RuntimeConfigHolder
}

func NewService(p ServiceParam) dashboarddomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("dashboard.service"),
		runtime: p.Runtime,
	}
}

func (s *Service) Stats(ctx context.Context) (dashboarddomain.Stats, error) {
	var stats dashboarddomain.Stats

	counts := []struct {
		query string
		dest  *int64
	}{
		{`SELECT COUNT(*) FROM customers`, &stats.TotalCustomers},
		{`SELECT COUNT(*) FROM products`, &stats.TotalProducts},
		{`SELECT COUNT(*) FROM invoices`, &stats.TotalInvoices},
	}
	for _, c := range counts {
		if err := s.db.WithContext(ctx).Raw(c.query).Scan(c.dest).Error; err != nil {
			return dashboarddomain.Stats{}, err
		}
	}

	type statusRow struct {
		Status invoicedomain.InvoiceStatus
		Count  int64
		Sum    decimal.Decimal
	}
	var rows []statusRow
	err := s.db.WithContext(ctx).Raw(
		`SELECT status, COUNT(*) AS count, COALESCE(SUM(total), 0) AS sum
		 FROM invoices
		 GROUP BY status`,
	).Scan(&rows).Error
	if err != nil {
		return dashboarddomain.Stats{}, err
	}

	stats.TotalRevenue = decimal.Zero
	stats.PendingRevenue = decimal.Zero
	for _, row := range rows {
		switch row.Status {
		case invoicedomain.InvoiceStatusDraft:
			stats.InvoiceBreakdown.Draft = row.Count
			stats.PendingRevenue = stats.PendingRevenue.Add(row.Sum)
		case invoicedomain.InvoiceStatusSent:
			stats.InvoiceBreakdown.Sent = row.Count
			stats.PendingRevenue = stats.PendingRevenue.Add(row.Sum)
		case invoicedomain.InvoiceStatusPaid:
			stats.InvoiceBreakdown.Paid = row.Count
			stats.TotalRevenue = stats.TotalRevenue.Add(row.Sum)
		case invoicedomain.InvoiceStatusOverdue:
			stats.InvoiceBreakdown.Overdue = row.Count
			stats.PendingRevenue = stats.PendingRevenue.Add(row.Sum)
		case invoicedomain.InvoiceStatusCancelled:
			stats.InvoiceBreakdown.Cancelled = row.Count
		}
	}

	limit := s.runtime.Get().RecentInvoiceLimit
	recent := []invoicedomain.Invoice{}
	err = s.db.WithContext(ctx).
		Model(&invoicedomain.Invoice{}).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&recent).Error
	if err != nil {
		return dashboarddomain.Stats{}, err
	}
	stats.RecentInvoices = recent

	return stats, nil
}
