package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kontera/internal/product/domain"
	"github.com/smallbiznis/kontera/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("product.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateProductRequest) (domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Product{}, domain.ErrInvalidName
	}
	if req.UnitAmount < 0 {
		return domain.Product{}, domain.ErrInvalidAmount
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:         s.genID.Generate(),
		Name:       name,
		Category:   normalizeCategory(req.Category),
		UnitAmount: req.UnitAmount,
		Active:     true,
		Metadata:   datatypes.JSONMap{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Insert(ctx, s.db, &product); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateProductRequest) (domain.Product, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Product{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Product{}, domain.ErrInvalidName
	}
	if req.UnitAmount < 0 {
		return domain.Product{}, domain.ErrInvalidAmount
	}

	product, err := s.mustFind(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	product.Name = name
	product.Category = normalizeCategory(req.Category)
	product.UnitAmount = req.UnitAmount
	product.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, s.db, product); err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetProductRequest) (domain.Product, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Product{}, err
	}
	product, err := s.mustFind(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) List(ctx context.Context, req domain.ListProductRequest) (domain.ListProductResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Category: normalizeCategory(req.Category),
	}, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListProductResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(product *domain.Product) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        product.ID.String(),
			CreatedAt: product.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	products := make([]domain.Product, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		products = append(products, *item)
	}

	resp := domain.ListProductResponse{Products: products}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) mustFind(ctx context.Context, id snowflake.ID) (*domain.Product, error) {
	product, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	return product, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func normalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
