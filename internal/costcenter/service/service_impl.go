package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kontera/internal/costcenter/domain"
	pkgdb "github.com/smallbiznis/kontera/pkg/db"
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
		log:   p.Log.Named("costcenter.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCostCenterRequest) (domain.CostCenter, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return domain.CostCenter{}, domain.ErrInvalidCode
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.CostCenter{}, domain.ErrInvalidName
	}

	now := time.Now().UTC()
	costCenter := domain.CostCenter{
		ID:        s.genID.Generate(),
		Code:      code,
		Name:      name,
		Active:    true,
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &costCenter); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.CostCenter{}, domain.ErrDuplicate
		}
		return domain.CostCenter{}, err
	}

	return costCenter, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateCostCenterRequest) (domain.CostCenter, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.CostCenter{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.CostCenter{}, domain.ErrInvalidName
	}

	costCenter, err := s.mustFind(ctx, id)
	if err != nil {
		return domain.CostCenter{}, err
	}

	costCenter.Name = name
	costCenter.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, s.db, costCenter); err != nil {
		return domain.CostCenter{}, err
	}
	return *costCenter, nil
}

func (s *Service) Deactivate(ctx context.Context, rawID string) (domain.CostCenter, error) {
	return s.setActive(ctx, rawID, false)
}

func (s *Service) Activate(ctx context.Context, rawID string) (domain.CostCenter, error) {
	return s.setActive(ctx, rawID, true)
}

func (s *Service) setActive(ctx context.Context, rawID string, active bool) (domain.CostCenter, error) {
	id, err := s.parseID(rawID)
	if err != nil {
		return domain.CostCenter{}, err
	}

	costCenter, err := s.mustFind(ctx, id)
	if err != nil {
		return domain.CostCenter{}, err
	}

	if costCenter.Active == active {
		return *costCenter, nil
	}
	costCenter.Active = active
	costCenter.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, s.db, costCenter); err != nil {
		return domain.CostCenter{}, err
	}
	return *costCenter, nil
}

// Delete removes a cost center that nothing references. Referenced cost
// centers can only be deactivated.
func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := s.parseID(rawID)
	if err != nil {
		return err
	}

	if _, err := s.mustFind(ctx, id); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := s.repo.ReferenceCount(ctx, tx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrReferenced
		}
		return s.repo.Delete(ctx, tx, id)
	})
}

func (s *Service) GetByID(ctx context.Context, req domain.GetCostCenterRequest) (domain.CostCenter, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.CostCenter{}, err
	}
	costCenter, err := s.mustFind(ctx, id)
	if err != nil {
		return domain.CostCenter{}, err
	}
	return *costCenter, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCostCenterRequest) (domain.ListCostCenterResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Code:       strings.ToUpper(strings.TrimSpace(req.Code)),
		ActiveOnly: req.ActiveOnly,
	}, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListCostCenterResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(costCenter *domain.CostCenter) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        costCenter.ID.String(),
			CreatedAt: costCenter.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	costCenters := make([]domain.CostCenter, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		costCenters = append(costCenters, *item)
	}

	resp := domain.ListCostCenterResponse{CostCenters: costCenters}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) mustFind(ctx context.Context, id snowflake.ID) (*domain.CostCenter, error) {
	costCenter, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if costCenter == nil {
		return nil, domain.ErrNotFound
	}
	return costCenter, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
