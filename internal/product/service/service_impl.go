package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoiced/internal/clock"
	"github.com/smallbiznis/invoiced/internal/money"
	"github.com/smallbiznis/invoiced/internal/product/domain"
	"github.com/smallbiznis/invoiced/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("product.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateProductRequest) (domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Product{}, domain.ErrInvalidName
	}
	if !req.Price.IsPositive() {
		return domain.Product{}, domain.ErrInvalidPrice
	}

	sku := strings.TrimSpace(req.SKU)
	if sku != "" {
		existing, err := s.repo.FindBySKU(ctx, s.db, sku, 0)
		if err != nil {
			return domain.Product{}, err
		}
		if existing != nil {
			return domain.Product{}, domain.ErrDuplicateSKU
		}
	}

	now := s.clock.Now()
	product := domain.Product{
		ID:          s.genID.Generate(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Price:       money.Round2(req.Price),
		Category:    strings.TrimSpace(req.Category),
		SKU:         sku,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, &product); err != nil {
		return domain.Product{}, err
	}

	s.log.Info("product created",
		zap.String("product_id", product.ID.String()),
	)
	return product, nil
}

func (s *Service) Update(ctx context.Context, rawID string, req domain.UpdateProductRequest) (domain.Product, error) {
	id, err := s.parseID(rawID)
	if err != nil {
		return domain.Product{}, err
	}

	product, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Product{}, err
	}
	if product == nil {
		return domain.Product{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, domain.ErrInvalidName
		}
		product.Name = name
	}
	if req.Price != nil {
		if !req.Price.IsPositive() {
			return domain.Product{}, domain.ErrInvalidPrice
		}
		product.Price = money.Round2(*req.Price)
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		product.Category = strings.TrimSpace(*req.Category)
	}
	if req.SKU != nil {
		sku := strings.TrimSpace(*req.SKU)
		if sku != "" {
			existing, err := s.repo.FindBySKU(ctx, s.db, sku, id)
			if err != nil {
				return domain.Product{}, err
			}
			if existing != nil {
				return domain.Product{}, domain.ErrDuplicateSKU
			}
		}
		product.SKU = sku
	}

	product.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, product); err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := s.parseID(rawID)
	if err != nil {
		return err
	}

	product, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if product == nil {
		return domain.ErrNotFound
	}

	return s.repo.Delete(ctx, s.db, id)
}

func (s *Service) List(ctx context.Context, req domain.ListProductRequest) (domain.ListProductResponse, error) {
	filter := domain.ListProductFilter{
		Search:   strings.TrimSpace(req.Search),
		Category: strings.TrimSpace(req.Category),
		MinPrice: req.MinPrice,
		MaxPrice: req.MaxPrice,
	}

	page := req.Page.Normalize()
	items, total, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListProductResponse{}, err
	}

	products := make([]domain.Product, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		products = append(products, *item)
	}

	return domain.ListProductResponse{
		Products:   products,
		Pagination: pagination.BuildPageInfo(page, total),
	}, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetProductRequest) (domain.Product, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Product{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Product{}, err
	}
	if item == nil {
		return domain.Product{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) Popular(ctx context.Context, limit int) ([]domain.PopularProduct, error) {
	if limit <= 0 {
		limit = 10
	}
	items, err := s.repo.Popular(ctx, s.db, limit)
	if err != nil {
		return nil, err
	}

	products := make([]domain.PopularProduct, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		products = append(products, *item)
	}
	return products, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
