package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoiced/internal/clock"
	customerdomain "github.com/smallbiznis/invoiced/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/invoiced/internal/invoice/domain"
	"github.com/smallbiznis/invoiced/internal/invoice/format"
	"github.com/smallbiznis/invoiced/internal/money"
	"github.com/smallbiznis/invoiced/internal/observability/metrics"
	productdomain "github.com/smallbiznis/invoiced/internal/product/domain"
	"github.com/smallbiznis/invoiced/pkg/db"
	"github.com/smallbiznis/invoiced/pkg/db/option"
	"github.com/smallbiznis/invoiced/pkg/db/pagination"
	"github.com/smallbiznis/invoiced/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	invoicerepo repository.Repository[invoicedomain.Invoice]
	metrics     *metrics.Metrics
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,
		clock: p.Clock,

		invoicerepo: repository.ProvideStore[invoicedomain.Invoice](p.DB),
		metrics:     p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (invoicedomain.Invoice, error) {
	customerID, err := parseID(req.CustomerID)
	if err != nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrCustomerInvalid
	}
	if req.DueDate.IsZero() {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidDueDate
	}

	taxRate := decimal.Zero
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}

	lines := linesFromItems(req.Items)
	totals, err := money.ComputeTotals(lines, taxRate)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	var invoice invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.loadCustomer(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return invoicedomain.ErrCustomerInvalid
		}

		products, err := s.loadProducts(ctx, tx, productIDs(req.Items))
		if err != nil {
			return err
		}

		now := s.clock.Now()
		seq, err := s.nextSequence(ctx, tx, now)
		if err != nil {
			return err
		}
		number, err := format.FormatInvoiceNumber(format.DefaultInvoiceNumberTemplate, now, seq)
		if err != nil {
			return err
		}

		invoice = invoicedomain.Invoice{
			ID:         s.genID.Generate(),
			Number:     number,
			NumberSeq:  seq,
			CustomerID: customerID,
			Status:     invoicedomain.InvoiceStatusDraft,
			IssueDate:  now,
			DueDate:    req.DueDate.UTC(),
			Subtotal:   totals.Subtotal,
			TaxRate:    taxRate,
			TaxAmount:  totals.TaxAmount,
			Total:      totals.Total,
			Notes:      strings.TrimSpace(req.Notes),
			Metadata:   req.Metadata,
			CreatedAt:  now,
			UpdatedAt:  now,
			Customer:   customer,
		}
		if err := s.insertInvoice(ctx, tx, invoice); err != nil {
			return err
		}

		items, err := s.insertItems(ctx, tx, invoice.ID, req.Items, products)
		if err != nil {
			return err
		}
		invoice.Items = items
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.metrics.RecordInvoiceCreated(string(invoice.Status))
	s.log.Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("number", invoice.Number),
	)
	return invoice, nil
}

func (s *Service) Update(ctx context.Context, rawID string, req invoicedomain.UpdateInvoiceRequest) (invoicedomain.Invoice, error) {
	id, err := parseID(rawID)
	if err != nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.loadInvoiceForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrNotFound
		}

		if req.CustomerID != nil {
			customerID, err := parseID(*req.CustomerID)
			if err != nil {
				return invoicedomain.ErrCustomerInvalid
			}
			customer, err := s.loadCustomer(ctx, tx, customerID)
			if err != nil {
				return err
			}
			if customer == nil {
				return invoicedomain.ErrCustomerInvalid
			}
			invoice.CustomerID = customerID
		}
		if req.DueDate != nil {
			if req.DueDate.IsZero() {
				return invoicedomain.ErrInvalidDueDate
			}
			invoice.DueDate = req.DueDate.UTC()
		}
		if req.Status != nil {
			if !req.Status.Valid() {
				return invoicedomain.ErrInvalidStatus
			}
			invoice.Status = *req.Status
		}
		if req.Notes != nil {
			invoice.Notes = strings.TrimSpace(*req.Notes)
		}
		if req.TaxRate != nil {
			invoice.TaxRate = *req.TaxRate
		}
		if req.Metadata != nil {
			invoice.Metadata = *req.Metadata
		}

		// Replacing items or changing the tax rate invalidates the totals.
		var lines []money.Line
		if req.Items != nil {
			if _, err := s.loadProducts(ctx, tx, productIDs(req.Items)); err != nil {
				return err
			}
			lines = linesFromItems(req.Items)
		} else if req.TaxRate != nil {
			existing, err := s.loadItems(ctx, tx, id)
			if err != nil {
				return err
			}
			for _, item := range existing {
				lines = append(lines, money.Line{Quantity: item.Quantity, UnitPrice: item.UnitPrice})
			}
		}
		if lines != nil {
			totals, err := money.ComputeTotals(lines, invoice.TaxRate)
			if err != nil {
				return err
			}
			invoice.Subtotal = totals.Subtotal
			invoice.TaxAmount = totals.TaxAmount
			invoice.Total = totals.Total
		}

		if req.Items != nil {
			if err := tx.WithContext(ctx).Exec(
				`DELETE FROM invoice_items WHERE invoice_id = ?`, id,
			).Error; err != nil {
				return err
			}
			if _, err := s.insertItems(ctx, tx, id, req.Items, nil); err != nil {
				return err
			}
		}

		invoice.UpdatedAt = s.clock.Now()
		return tx.WithContext(ctx).Exec(
			`UPDATE invoices
			 SET customer_id = ?, status = ?, due_date = ?, subtotal = ?, tax_rate = ?,
			     tax_amount = ?, total = ?, notes = ?, metadata = ?, updated_at = ?
			 WHERE id = ?`,
			invoice.CustomerID,
			invoice.Status,
			invoice.DueDate,
			invoice.Subtotal,
			invoice.TaxRate,
			invoice.TaxAmount,
			invoice.Total,
			invoice.Notes,
			metadataValue(invoice.Metadata),
			invoice.UpdatedAt,
			id,
		).Error
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	return s.GetByID(ctx, rawID)
}

func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := parseID(rawID)
	if err != nil {
		return invoicedomain.ErrInvalidID
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.loadInvoiceForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrNotFound
		}

		if err := tx.WithContext(ctx).Exec(`DELETE FROM payments WHERE invoice_id = ?`, id).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Exec(`DELETE FROM invoice_items WHERE invoice_id = ?`, id).Error; err != nil {
			return err
		}
		return tx.WithContext(ctx).Exec(`DELETE FROM invoices WHERE id = ?`, id).Error
	})
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	filter := &invoicedomain.Invoice{}
	if req.Status != nil {
		if !req.Status.Valid() {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidStatus
		}
		filter.Status = *req.Status
	}
	if req.CustomerID != nil {
		customerID, err := parseID(*req.CustomerID)
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrCustomerInvalid
		}
		filter.CustomerID = customerID
	}

	conditions := []option.QueryOption{}
	if req.FromDate != nil {
		conditions = append(conditions, option.ApplyOperator(option.Condition{
			Field:    "issue_date",
			Operator: option.GTE,
			Value:    *req.FromDate,
		}))
	}
	if req.ToDate != nil {
		conditions = append(conditions, option.ApplyOperator(option.Condition{
			Field:    "issue_date",
			Operator: option.LTE,
			Value:    *req.ToDate,
		}))
	}
	if req.MinAmount != nil {
		conditions = append(conditions, option.ApplyOperator(option.Condition{
			Field:    "total",
			Operator: option.GTE,
			Value:    *req.MinAmount,
		}))
	}
	if req.MaxAmount != nil {
		conditions = append(conditions, option.ApplyOperator(option.Condition{
			Field:    "total",
			Operator: option.LTE,
			Value:    *req.MaxAmount,
		}))
	}

	total, err := s.invoicerepo.Count(ctx, filter, conditions...)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	page := req.Page.Normalize()
	options := append([]option.QueryOption{}, conditions...)
	options = append(options,
		option.WithSortBy(option.WithQuerySortBy(page.SortBy, page.SortOrder, map[string]bool{
			"created_at": true,
			"issue_date": true,
			"due_date":   true,
			"total":      true,
		})),
		option.ApplyPagination(page),
	)

	items, err := s.invoicerepo.Find(ctx, filter, options...)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	invoices := make([]invoicedomain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invoices = append(invoices, *item)
	}

	return invoicedomain.ListInvoiceResponse{
		Invoices:   invoices,
		Pagination: pagination.BuildPageInfo(page, total),
	}, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (invoicedomain.Invoice, error) {
	id, err := parseID(rawID)
	if err != nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidID
	}

	item, err := s.invoicerepo.FindOne(ctx, &invoicedomain.Invoice{ID: id})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if item == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrNotFound
	}

	invoice := *item
	invoice.Items, err = s.loadItemsWithProducts(ctx, s.db, id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	invoice.Customer, err = s.loadCustomer(ctx, s.db, invoice.CustomerID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return invoice, nil
}

func (s *Service) SetStatus(ctx context.Context, rawID string, status invoicedomain.InvoiceStatus) (invoicedomain.Invoice, error) {
	id, err := parseID(rawID)
	if err != nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidID
	}
	if !status.Valid() {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidStatus
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.loadInvoiceForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrNotFound
		}
		if invoice.Status == status {
			return nil
		}
		return tx.WithContext(ctx).Exec(
			`UPDATE invoices SET status = ?, updated_at = ? WHERE id = ?`,
			status,
			s.clock.Now(),
			id,
		).Error
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	return s.GetByID(ctx, rawID)
}

func (s *Service) ListByCustomer(ctx context.Context, rawCustomerID string, limit int) ([]invoicedomain.Invoice, error) {
	customerID, err := parseID(rawCustomerID)
	if err != nil {
		return nil, invoicedomain.ErrCustomerInvalid
	}
	if limit <= 0 {
		limit = 10
	}

	var invoices []invoicedomain.Invoice
	err = s.db.WithContext(ctx).
		Model(&invoicedomain.Invoice{}).
		Where("customer_id = ?", customerID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

// overdueSweepLockKey serializes the sweep across instances sharing a
// postgres database.
const overdueSweepLockKey int64 = 0x1A4B01CE

// SweepOverdue transitions every SENT invoice whose due date has passed to
// OVERDUE and returns how many rows changed. Running it twice is a no-op;
// concurrent sweeps are serialized with an advisory lock.
func (s *Service) SweepOverdue(ctx context.Context) (int64, error) {
	now := s.clock.Now()
	var swept int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acquired, err := db.TryAdvisoryXactLock(ctx, tx, overdueSweepLockKey)
		if err != nil {
			return err
		}
		if !acquired {
			s.log.Debug("overdue sweep already running elsewhere")
			return nil
		}

		result := tx.WithContext(ctx).Exec(
			`UPDATE invoices
			 SET status = ?, updated_at = ?
			 WHERE status = ? AND due_date < ?`,
			invoicedomain.InvoiceStatusOverdue,
			now,
			invoicedomain.InvoiceStatusSent,
			now,
		)
		if result.Error != nil {
			return result.Error
		}
		swept = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.metrics.RecordOverdueSwept(swept)
	if swept > 0 {
		s.log.Info("overdue sweep completed", zap.Int64("invoices", swept))
	}
	return swept, nil
}

func linesFromItems(items []invoicedomain.CreateInvoiceItemRequest) []money.Line {
	lines := make([]money.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, money.Line{Quantity: item.Quantity, UnitPrice: item.UnitPrice})
	}
	return lines
}

func productIDs(items []invoicedomain.CreateInvoiceItemRequest) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invoicedomain.ErrInvalidID
	}
	return id, nil
}

func (s *Service) loadCustomer(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*customerdomain.Customer, error) {
	var customer customerdomain.Customer
	err := tx.WithContext(ctx).Raw(
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

// loadProducts resolves every referenced product and fails when any is
// missing or the ID does not parse.
func (s *Service) loadProducts(ctx context.Context, tx *gorm.DB, rawIDs []string) (map[snowflake.ID]*productdomain.Product, error) {
	ids := make([]snowflake.ID, 0, len(rawIDs))
	seen := make(map[snowflake.ID]struct{}, len(rawIDs))
	for _, raw := range rawIDs {
		id, err := parseID(raw)
		if err != nil {
			return nil, invoicedomain.ErrProductInvalid
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	var products []*productdomain.Product
	err := tx.WithContext(ctx).
		Model(&productdomain.Product{}).
		Where("id IN ?", ids).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	if len(products) != len(ids) {
		return nil, invoicedomain.ErrProductInvalid
	}

	byID := make(map[snowflake.ID]*productdomain.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}
	return byID, nil
}

func (s *Service) loadInvoiceForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := tx.WithContext(ctx).Raw(
		`SELECT id, number, number_seq, customer_id, status, issue_date, due_date, subtotal, tax_rate,
		        tax_amount, total, notes, metadata, created_at, updated_at
		 FROM invoices
		 WHERE id = ?`+db.RowLockClause(tx),
		id,
	).Scan(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (s *Service) loadItems(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) ([]invoicedomain.InvoiceItem, error) {
	var items []invoicedomain.InvoiceItem
	err := tx.WithContext(ctx).Raw(
		`SELECT id, invoice_id, product_id, quantity, unit_price, total
		 FROM invoice_items
		 WHERE invoice_id = ?
		 ORDER BY id`,
		invoiceID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Service) loadItemsWithProducts(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) ([]invoicedomain.InvoiceItem, error) {
	items, err := s.loadItems(ctx, tx, invoiceID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return items, nil
	}

	ids := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	var products []*productdomain.Product
	err = tx.WithContext(ctx).
		Model(&productdomain.Product{}).
		Where("id IN ?", ids).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	byID := make(map[snowflake.ID]*productdomain.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}
	for i := range items {
		items[i].Product = byID[items[i].ProductID]
	}
	return items, nil
}

// nextSequence returns MAX(sequence)+1 among invoices issued in the same
// year as issuedAt. It must run inside the creating transaction; the unique
// index on number rejects the loser of a concurrent race.
func (s *Service) nextSequence(ctx context.Context, tx *gorm.DB, issuedAt time.Time) (int64, error) {
	prefix := "INV-" + issuedAt.Format("2006") + "-"
	var next int64
	err := tx.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(number_seq), 0) + 1
		 FROM invoices
		 WHERE number LIKE ?`,
		prefix+"%",
	).Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Service) insertInvoice(ctx context.Context, tx *gorm.DB, invoice invoicedomain.Invoice) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO invoices (
			id, number, number_seq, customer_id, status, issue_date, due_date,
			subtotal, tax_rate, tax_amount, total, notes, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.Number,
		invoice.NumberSeq,
		invoice.CustomerID,
		invoice.Status,
		invoice.IssueDate,
		invoice.DueDate,
		invoice.Subtotal,
		invoice.TaxRate,
		invoice.TaxAmount,
		invoice.Total,
		invoice.Notes,
		metadataValue(invoice.Metadata),
		invoice.CreatedAt,
		invoice.UpdatedAt,
	).Error
}

// metadataValue stores empty metadata as NULL instead of a zero-length blob.
func metadataValue(m datatypes.JSON) any {
	if len(m) == 0 {
		return nil
	}
	return m
}

func (s *Service) insertItems(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID, reqs []invoicedomain.CreateInvoiceItemRequest, products map[snowflake.ID]*productdomain.Product) ([]invoicedomain.InvoiceItem, error) {
	items := make([]invoicedomain.InvoiceItem, 0, len(reqs))
	for _, req := range reqs {
		productID, err := parseID(req.ProductID)
		if err != nil {
			return nil, invoicedomain.ErrProductInvalid
		}
		item := invoicedomain.InvoiceItem{
			ID:        s.genID.Generate(),
			InvoiceID: invoiceID,
			ProductID: productID,
			Quantity:  req.Quantity,
			UnitPrice: req.UnitPrice,
			Total:     money.Round2(money.LineTotal(req.Quantity, req.UnitPrice)),
		}
		if products != nil {
			item.Product = products[productID]
		}
		if err := tx.WithContext(ctx).Exec(
			`INSERT INTO invoice_items (id, invoice_id, product_id, quantity, unit_price, total)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			item.ID,
			item.InvoiceID,
			item.ProductID,
			item.Quantity,
			item.UnitPrice,
			item.Total,
		).Error; err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
