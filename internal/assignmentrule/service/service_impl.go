package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kontera/internal/assignmentrule/domain"
	contactdomain "github.com/smallbiznis/kontera/internal/contact/domain"
	costcenterdomain "github.com/smallbiznis/kontera/internal/costcenter/domain"
	"github.com/smallbiznis/kontera/internal/observability/metrics"
	"github.com/smallbiznis/kontera/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	CostCenters costcenterdomain.Repository
	Contacts    contactdomain.Service
	Metrics     *metrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	costCenters costcenterdomain.Repository
	contacts    contactdomain.Service
	metrics     *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("assignmentrule.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		costCenters: p.CostCenters,
		contacts:    p.Contacts,
		metrics:     p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRuleRequest) (domain.AssignmentRule, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.AssignmentRule{}, domain.ErrInvalidName
	}

	costCenterID, err := s.parseCostCenter(ctx, req.CostCenterID)
	if err != nil {
		return domain.AssignmentRule{}, err
	}

	productID, err := parseOptionalID(req.ProductID)
	if err != nil {
		return domain.AssignmentRule{}, err
	}
	contactID, err := parseOptionalID(req.ContactID)
	if err != nil {
		return domain.AssignmentRule{}, err
	}

	now := time.Now().UTC()
	rule := domain.AssignmentRule{
		ID:              s.genID.Generate(),
		Name:            name,
		ProductID:       productID,
		ProductCategory: optionalString(strings.ToLower(strings.TrimSpace(req.ProductCategory))),
		ContactID:       contactID,
		ContactTag:      optionalString(strings.ToLower(strings.TrimSpace(req.ContactTag))),
		CostCenterID:    costCenterID,
		Priority:        req.Priority,
		Enabled:         true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Insert(ctx, s.db, &rule); err != nil {
		return domain.AssignmentRule{}, err
	}
	return rule, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRuleRequest) (domain.AssignmentRule, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.AssignmentRule{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.AssignmentRule{}, domain.ErrInvalidName
	}

	rule, err := s.mustFind(ctx, id)
	if err != nil {
		return domain.AssignmentRule{}, err
	}

	costCenterID, err := s.parseCostCenter(ctx, req.CostCenterID)
	if err != nil {
		return domain.AssignmentRule{}, err
	}
	productID, err := parseOptionalID(req.ProductID)
	if err != nil {
		return domain.AssignmentRule{}, err
	}
	contactID, err := parseOptionalID(req.ContactID)
	if err != nil {
		return domain.AssignmentRule{}, err
	}

	rule.Name = name
	rule.ProductID = productID
	rule.ProductCategory = optionalString(strings.ToLower(strings.TrimSpace(req.ProductCategory)))
	rule.ContactID = contactID
	rule.ContactTag = optionalString(strings.ToLower(strings.TrimSpace(req.ContactTag)))
	rule.CostCenterID = costCenterID
	rule.Priority = req.Priority
	rule.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, s.db, rule); err != nil {
		return domain.AssignmentRule{}, err
	}
	return *rule, nil
}

func (s *Service) SetEnabled(ctx context.Context, req domain.SetEnabledRequest) (domain.AssignmentRule, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.AssignmentRule{}, err
	}

	rule, err := s.mustFind(ctx, id)
	if err != nil {
		return domain.AssignmentRule{}, err
	}

	if rule.Enabled != req.Enabled {
		rule.Enabled = req.Enabled
		rule.UpdatedAt = time.Now().UTC()
		if err := s.repo.Save(ctx, s.db, rule); err != nil {
			return domain.AssignmentRule{}, err
		}
	}
	return *rule, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetRuleRequest) (domain.AssignmentRule, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.AssignmentRule{}, err
	}
	rule, err := s.mustFind(ctx, id)
	if err != nil {
		return domain.AssignmentRule{}, err
	}
	return *rule, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRuleRequest) (domain.ListRuleResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	filter := domain.ListFilter{EnabledOnly: req.EnabledOnly}
	if strings.TrimSpace(req.CostCenterID) != "" {
		costCenterID, err := parseID(req.CostCenterID)
		if err != nil {
			return domain.ListRuleResponse{}, err
		}
		filter.CostCenterID = costCenterID
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListRuleResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(rule *domain.AssignmentRule) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        rule.ID.String(),
			CreatedAt: rule.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	rules := make([]domain.AssignmentRule, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		rules = append(rules, *item)
	}

	resp := domain.ListRuleResponse{Rules: rules}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Resolve(ctx context.Context, req domain.ResolveRequest) (*snowflake.ID, error) {
	candidates, err := s.repo.ListCandidates(ctx, s.db, req.ProductID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		s.metrics.RecordRuleResolution(ctx, "unmatched")
		return nil, nil
	}

	matchCtx := domain.MatchContext{
		ProductID:       req.ProductID,
		ProductCategory: strings.ToLower(strings.TrimSpace(req.ProductCategory)),
		ContactID:       req.ContactID,
	}

	// The tag is only fetched when some candidate actually matches on it,
	// keeping the common path to a single query.
	if req.ContactID != 0 && anyTagMatcher(candidates) {
		tag, err := s.contacts.CurrentTag(ctx, req.ContactID)
		if err != nil && !errors.Is(err, contactdomain.ErrNotFound) {
			return nil, err
		}
		matchCtx.ContactTag = tag
	}

	best := domain.BestMatch(candidates, matchCtx)
	if best == nil {
		s.metrics.RecordRuleResolution(ctx, "unmatched")
		return nil, nil
	}

	s.metrics.RecordRuleResolution(ctx, "matched")
	costCenterID := best.CostCenterID
	return &costCenterID, nil
}

func (s *Service) parseCostCenter(ctx context.Context, raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidCostCenter
	}
	costCenter, err := s.costCenters.FindByID(ctx, s.db, id)
	if err != nil {
		return 0, err
	}
	if costCenter == nil {
		return 0, domain.ErrInvalidCostCenter
	}
	return id, nil
}

func (s *Service) mustFind(ctx context.Context, id snowflake.ID) (*domain.AssignmentRule, error) {
	rule, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, domain.ErrNotFound
	}
	return rule, nil
}

func anyTagMatcher(rules []domain.AssignmentRule) bool {
	for i := range rules {
		if rules[i].ContactTag != nil {
			return true
		}
	}
	return false
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func parseOptionalID(value string) (*snowflake.ID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	id, err := snowflake.ParseString(value)
	if err != nil || id == 0 {
		return nil, domain.ErrInvalidID
	}
	return &id, nil
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
