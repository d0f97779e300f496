package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoiced/internal/clock"
	invoicedomain "github.com/smallbiznis/invoiced/internal/invoice/domain"
	"github.com/smallbiznis/invoiced/internal/money"
	"github.com/smallbiznis/invoiced/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/invoiced/internal/payment/domain"
	"github.com/smallbiznis/invoiced/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxPaymentAmount caps a single payment; the column is DECIMAL(12,2).
var maxPaymentAmount = decimal.RequireFromString("999999.99")

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	metrics *metrics.Metrics
}

func NewService(p ServiceParam) paymentdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("payment.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

// Record applies a payment against an invoice. The invoice row is locked for
// the duration of the transaction so concurrent payments reconcile against a
// consistent paid-to-date sum. The invoice flips to PAID once cumulative
// payments reach its total; a payment exceeding the remaining balance is
// rejected.
func (s *Service) Record(ctx context.Context, rawInvoiceID string, req paymentdomain.CreatePaymentRequest) (paymentdomain.RecordResult, error) {
	invoiceID, err := parseID(rawInvoiceID)
	if err != nil {
		return paymentdomain.RecordResult{}, paymentdomain.ErrInvalidID
	}
	if !req.Amount.IsPositive() || req.Amount.GreaterThan(maxPaymentAmount) {
		return paymentdomain.RecordResult{}, paymentdomain.ErrInvalidAmount
	}
	if !req.Method.Valid() {
		return paymentdomain.RecordResult{}, paymentdomain.ErrInvalidMethod
	}

	amount := money.Round2(req.Amount)
	var result paymentdomain.RecordResult

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.loadInvoiceForUpdate(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return paymentdomain.ErrInvoiceNotFound
		}

		paid, err := s.sumPayments(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		remaining := invoice.Total.Sub(paid)
		if amount.GreaterThan(remaining) {
			return paymentdomain.ErrOverpayment
		}

		now := s.clock.Now()
		date := now
		if req.Date != nil && !req.Date.IsZero() {
			date = req.Date.UTC()
		}
		payment := paymentdomain.Payment{
			ID:        s.genID.Generate(),
			InvoiceID: invoiceID,
			Amount:    amount,
			Method:    req.Method,
			Date:      date,
			Reference: strings.TrimSpace(req.Reference),
			Notes:     strings.TrimSpace(req.Notes),
			CreatedAt: now,
		}
		if err := tx.WithContext(ctx).Exec(
			`INSERT INTO payments (id, invoice_id, amount, method, date, reference, notes, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			payment.ID,
			payment.InvoiceID,
			payment.Amount,
			payment.Method,
			payment.Date,
			payment.Reference,
			payment.Notes,
			payment.CreatedAt,
		).Error; err != nil {
			return err
		}

		totalPaid := paid.Add(amount)
		status := invoice.Status
		if totalPaid.GreaterThanOrEqual(invoice.Total) {
			status = invoicedomain.InvoiceStatusPaid
		}
		if status != invoice.Status {
			if err := tx.WithContext(ctx).Exec(
				`UPDATE invoices SET status = ?, updated_at = ? WHERE id = ?`,
				status, now, invoiceID,
			).Error; err != nil {
				return err
			}
		}

		result = paymentdomain.RecordResult{
			Payment:       payment,
			InvoiceStatus: string(status),
			TotalPaid:     totalPaid,
			Remaining:     invoice.Total.Sub(totalPaid),
		}
		return nil
	})
	if err != nil {
		return paymentdomain.RecordResult{}, err
	}

	s.metrics.RecordPayment(string(result.Payment.Method))
	s.log.Info("payment recorded",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("payment_id", result.Payment.ID.String()),
		zap.String("status", result.InvoiceStatus),
	)
	return result, nil
}

func (s *Service) ListByInvoice(ctx context.Context, rawInvoiceID string) ([]paymentdomain.Payment, error) {
	invoiceID, err := parseID(rawInvoiceID)
	if err != nil {
		return nil, paymentdomain.ErrInvalidID
	}

	exists, err := s.invoiceExists(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, paymentdomain.ErrInvoiceNotFound
	}

	var payments []paymentdomain.Payment
	err = s.db.WithContext(ctx).Raw(
		`SELECT id, invoice_id, amount, method, date, reference, notes, created_at
		 FROM payments
		 WHERE invoice_id = ?
		 ORDER BY date DESC, id DESC`,
		invoiceID,
	).Scan(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

type invoiceRow struct {
	ID     snowflake.ID
	Status invoicedomain.InvoiceStatus
	Total  decimal.Decimal
}

func (s *Service) loadInvoiceForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*invoiceRow, error) {
	var row invoiceRow
	err := tx.WithContext(ctx).Raw(
		`SELECT id, status, total FROM invoices WHERE id = ?`+db.RowLockClause(tx),
		id,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (s *Service) sumPayments(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) (decimal.Decimal, error) {
	var paid decimal.Decimal
	err := tx.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = ?`,
		invoiceID,
	).Scan(&paid).Error
	if err != nil {
		return decimal.Zero, err
	}
	return paid, nil
}

func (s *Service) invoiceExists(ctx context.Context, id snowflake.ID) (bool, error) {
	var found snowflake.ID
	err := s.db.WithContext(ctx).Raw(
		`SELECT id FROM invoices WHERE id = ?`, id,
	).Scan(&found).Error
	if err != nil {
		return false, err
	}
	return found != 0, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, paymentdomain.ErrInvalidID
	}
	return id, nil
}
