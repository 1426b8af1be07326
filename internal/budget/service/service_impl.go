package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kontera/internal/budget/domain"
	"github.com/smallbiznis/kontera/internal/clock"
	"github.com/smallbiznis/kontera/internal/config"
	costcenterdomain "github.com/smallbiznis/kontera/internal/costcenter/domain"
	documentdomain "github.com/smallbiznis/kontera/internal/document/domain"
	"github.com/smallbiznis/kontera/internal/observability/metrics"
	"github.com/smallbiznis/kontera/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	CostCenters costcenterdomain.Repository
	Documents   documentdomain.Repository
	Policy      *config.BudgetPolicyHolder
	Metrics     *metrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	costCenters costcenterdomain.Repository
	documents   documentdomain.Repository
	policy      *config.BudgetPolicyHolder
	metrics     *metrics.Metrics
}

func New(p Params) *Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("budget.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		costCenters: p.CostCenters,
		documents:   p.Documents,
		policy:      p.Policy,
		metrics:     p.Metrics,
	}
}

// ProvideService exposes the concrete service as domain.Service.
func ProvideService(s *Service) domain.Service { return s }

// ProvideRecalculator exposes the concrete service as the recalculation
// hook document mutations call into.
func ProvideRecalculator(s *Service) documentdomain.BudgetRecalculator { return s }

func (s *Service) Create(ctx context.Context, req domain.CreateBudgetRequest) (domain.View, error) {
	costCenterID, err := parseID(req.CostCenterID, domain.ErrInvalidCostCenter)
	if err != nil {
		return domain.View{}, err
	}
	if req.Direction != documentdomain.DirectionIncome && req.Direction != documentdomain.DirectionExpense {
		return domain.View{}, domain.ErrInvalidDirection
	}
	start, end, err := normalizePeriod(req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return domain.View{}, err
	}
	if req.PlannedAmount < 0 {
		return domain.View{}, domain.ErrInvalidAmount
	}

	costCenter, err := s.costCenters.FindByID(ctx, s.db, costCenterID)
	if err != nil {
		return domain.View{}, err
	}
	if costCenter == nil {
		return domain.View{}, domain.ErrInvalidCostCenter
	}

	now := s.clock.Now()
	budget := domain.Budget{
		ID:            s.genID.Generate(),
		CostCenterID:  costCenterID,
		Direction:     req.Direction,
		PeriodStart:   start,
		PeriodEnd:     end,
		PlannedAmount: req.PlannedAmount,
		Stage:         domain.StageDraft,
		Version:       1,
		Metadata:      datatypes.JSONMap{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Insert(ctx, s.db, &budget); err != nil {
		return domain.View{}, err
	}

	return s.view(budget), nil
}

// UpdateDraft mutates plan, period or cost center of a DRAFT budget.
// Confirmed rows are immutable; changes to them go through Revise.
func (s *Service) UpdateDraft(ctx context.Context, req domain.UpdateBudgetRequest) (domain.View, error) {
	budget, err := s.mustFind(ctx, req.ID)
	if err != nil {
		return domain.View{}, err
	}
	if budget.Stage != domain.StageDraft {
		return domain.View{}, domain.ErrInvalidTransition
	}

	if req.CostCenterID != nil {
		costCenterID, err := parseID(*req.CostCenterID, domain.ErrInvalidCostCenter)
		if err != nil {
			return domain.View{}, err
		}
		costCenter, err := s.costCenters.FindByID(ctx, s.db, costCenterID)
		if err != nil {
			return domain.View{}, err
		}
		if costCenter == nil {
			return domain.View{}, domain.ErrInvalidCostCenter
		}
		budget.CostCenterID = costCenterID
	}
	if req.PeriodStart != nil || req.PeriodEnd != nil {
		start := budget.PeriodStart
		end := budget.PeriodEnd
		if req.PeriodStart != nil {
			start = *req.PeriodStart
		}
		if req.PeriodEnd != nil {
			end = *req.PeriodEnd
		}
		start, end, err = normalizePeriod(start, end)
		if err != nil {
			return domain.View{}, err
		}
		budget.PeriodStart = start
		budget.PeriodEnd = end
	}
	if req.PlannedAmount != nil {
		if *req.PlannedAmount < 0 {
			return domain.View{}, domain.ErrInvalidAmount
		}
		budget.PlannedAmount = *req.PlannedAmount
	}
	budget.UpdatedAt = s.clock.Now()

	if err := s.repo.Save(ctx, s.db, budget); err != nil {
		return domain.View{}, err
	}
	return s.refresh(ctx, budget)
}

func (s *Service) Confirm(ctx context.Context, id string) (domain.View, error) {
	budget, err := s.mustFind(ctx, id)
	if err != nil {
		return domain.View{}, err
	}
	if budget.Stage != domain.StageDraft {
		return domain.View{}, domain.ErrInvalidTransition
	}

	budget.Stage = domain.StageConfirmed
	budget.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, s.db, budget); err != nil {
		return domain.View{}, err
	}

	s.metrics.RecordBudgetTransition(ctx, string(domain.StageConfirmed))
	s.log.Info("budget confirmed", zap.String("budget_id", budget.ID.String()))
	return s.refresh(ctx, budget)
}

// Revise appends a new version to a confirmed budget's chain. The prior row
// keeps its history, flips to REVISED and gains a forward reference; exactly
// one revision record captures the amount change. The new row starts with a
// fresh snapshot, recomputed from scratch.
func (s *Service) Revise(ctx context.Context, req domain.ReviseBudgetRequest) (domain.View, error) {
	previous, err := s.mustFind(ctx, req.ID)
	if err != nil {
		return domain.View{}, err
	}
	if previous.Stage != domain.StageConfirmed {
		return domain.View{}, domain.ErrInvalidTransition
	}
	if req.PlannedAmount < 0 {
		return domain.View{}, domain.ErrInvalidAmount
	}

	start := previous.PeriodStart
	end := previous.PeriodEnd
	if req.PeriodStart != nil {
		start = *req.PeriodStart
	}
	if req.PeriodEnd != nil {
		end = *req.PeriodEnd
	}
	start, end, err = normalizePeriod(start, end)
	if err != nil {
		return domain.View{}, err
	}

	now := s.clock.Now()
	previousID := previous.ID
	next := domain.Budget{
		ID:            s.genID.Generate(),
		CostCenterID:  previous.CostCenterID,
		Direction:     previous.Direction,
		PeriodStart:   start,
		PeriodEnd:     end,
		PlannedAmount: req.PlannedAmount,
		Stage:         domain.StageConfirmed,
		Version:       previous.Version + 1,
		RevisesID:     &previousID,
		Metadata:      datatypes.JSONMap{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &next); err != nil {
			return err
		}

		nextID := next.ID
		previous.Stage = domain.StageRevised
		previous.RevisedByID = &nextID
		previous.UpdatedAt = now
		if err := s.repo.Save(ctx, tx, previous); err != nil {
			return err
		}

		return s.repo.InsertRevision(ctx, tx, &domain.BudgetRevision{
			ID:             s.genID.Generate(),
			BudgetID:       next.ID,
			PreviousID:     previous.ID,
			PreviousAmount: previous.PlannedAmount,
			NewAmount:      next.PlannedAmount,
			Version:        next.Version,
			Reason:         strings.TrimSpace(req.Reason),
			CreatedAt:      now,
		})
	})
	if err != nil {
		return domain.View{}, err
	}

	s.metrics.RecordBudgetTransition(ctx, string(domain.StageRevised))
	s.log.Info("budget revised",
		zap.String("budget_id", previous.ID.String()),
		zap.String("next_id", next.ID.String()),
		zap.Int("version", next.Version),
	)
	return s.refresh(ctx, &next)
}

// Archive removes the budget from future aggregation triggers. The stored
// snapshot is kept as-is so history stays queryable.
func (s *Service) Archive(ctx context.Context, id string) (domain.View, error) {
	budget, err := s.mustFind(ctx, id)
	if err != nil {
		return domain.View{}, err
	}
	if budget.Stage != domain.StageDraft && budget.Stage != domain.StageConfirmed {
		return domain.View{}, domain.ErrInvalidTransition
	}

	budget.Stage = domain.StageArchived
	budget.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, s.db, budget); err != nil {
		return domain.View{}, err
	}

	s.metrics.RecordBudgetTransition(ctx, string(domain.StageArchived))
	return s.view(*budget), nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetBudgetRequest) (domain.View, error) {
	budget, err := s.mustFind(ctx, req.ID)
	if err != nil {
		return domain.View{}, err
	}
	if !budget.Active() {
		// Archived and revised rows keep their last snapshot.
		return s.view(*budget), nil
	}
	return s.refresh(ctx, budget)
}

func (s *Service) List(ctx context.Context, req domain.ListBudgetRequest) (domain.ListBudgetResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	filter := domain.ListBudgetFilter{Stage: req.Stage}
	if strings.TrimSpace(req.CostCenterID) != "" {
		costCenterID, err := parseID(req.CostCenterID, domain.ErrInvalidCostCenter)
		if err != nil {
			return domain.ListBudgetResponse{}, err
		}
		filter.CostCenterID = costCenterID
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListBudgetResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(budget *domain.Budget) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        budget.ID.String(),
			CreatedAt: budget.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	views := make([]domain.View, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		views = append(views, s.view(*item))
	}

	resp := domain.ListBudgetResponse{Budgets: views}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) ListRevisions(ctx context.Context, id string) ([]domain.BudgetRevision, error) {
	budget, err := s.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListRevisions(ctx, s.db, budget.ID)
	if err != nil {
		return nil, err
	}
	revisions := make([]domain.BudgetRevision, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		revisions = append(revisions, *item)
	}
	return revisions, nil
}

func (s *Service) Aggregate(ctx context.Context, req domain.AggregateRequest) (documentdomain.LineTotals, error) {
	costCenterID, err := parseID(req.CostCenterID, domain.ErrInvalidCostCenter)
	if err != nil {
		return documentdomain.LineTotals{}, err
	}
	if req.Direction != documentdomain.DirectionIncome && req.Direction != documentdomain.DirectionExpense {
		return documentdomain.LineTotals{}, domain.ErrInvalidDirection
	}
	start, end, err := normalizePeriod(req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return documentdomain.LineTotals{}, err
	}
	return s.documents.AggregateLines(ctx, s.db, costCenterID, start, end, req.Direction)
}

func (s *Service) Recalculate(ctx context.Context, id string) (domain.View, error) {
	budget, err := s.mustFind(ctx, id)
	if err != nil {
		return domain.View{}, err
	}
	if err := s.recompute(ctx, budget, "manual"); err != nil {
		return domain.View{}, err
	}
	return s.view(*budget), nil
}

// RecalculateForCostCenters refreshes every active budget whose period
// covers date and whose cost center was touched by a document mutation.
func (s *Service) RecalculateForCostCenters(ctx context.Context, costCenterIDs []snowflake.ID, date time.Time) error {
	budgets, err := s.repo.ListCovering(ctx, s.db, costCenterIDs, date)
	if err != nil {
		return err
	}
	for _, budget := range budgets {
		if err := s.recompute(ctx, budget, "document"); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) ReconcileAll(ctx context.Context) (int, error) {
	budgets, err := s.repo.ListActive(ctx, s.db)
	if err != nil {
		return 0, err
	}
	for _, budget := range budgets {
		if err := s.recompute(ctx, budget, "reconcile"); err != nil {
			return 0, err
		}
	}
	return len(budgets), nil
}

// recompute rescans the budget's lines and stores the fresh snapshot. A
// full rescan, so running it twice with no data change is a no-op.
func (s *Service) recompute(ctx context.Context, budget *domain.Budget, trigger string) error {
	totals, err := s.documents.AggregateLines(ctx, s.db, budget.CostCenterID, budget.PeriodStart, budget.PeriodEnd, budget.Direction)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	budget.ActualAmount = totals.Realized
	budget.ReservedAmount = totals.Reserved
	budget.ComputedAt = &now
	budget.UpdatedAt = now
	if err := s.repo.Save(ctx, s.db, budget); err != nil {
		return err
	}

	s.metrics.RecordBudgetRecompute(ctx, trigger)
	s.log.Debug("budget recomputed",
		zap.String("budget_id", budget.ID.String()),
		zap.String("trigger", trigger),
		zap.Int64("actual", totals.Realized),
		zap.Int64("reserved", totals.Reserved),
	)
	return nil
}

// refresh recomputes the snapshot before building the view.
func (s *Service) refresh(ctx context.Context, budget *domain.Budget) (domain.View, error) {
	if err := s.recompute(ctx, budget, "read"); err != nil {
		return domain.View{}, err
	}
	return s.view(*budget), nil
}

func (s *Service) view(budget domain.Budget) domain.View {
	policy := s.policy.Get()
	return domain.View{
		Budget:          budget,
		RemainingAmount: domain.Remaining(budget.PlannedAmount, budget.ActualAmount),
		AchievementPct:  domain.Achievement(budget.PlannedAmount, budget.ActualAmount),
		Performance:     domain.Classify(budget.PlannedAmount, budget.ActualAmount, policy.NearLimitRatio),
	}
}

func (s *Service) mustFind(ctx context.Context, rawID string) (*domain.Budget, error) {
	id, err := parseID(rawID, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	budget, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if budget == nil {
		return nil, domain.ErrNotFound
	}
	return budget, nil
}

func normalizePeriod(start, end time.Time) (time.Time, time.Time, error) {
	if start.IsZero() || end.IsZero() {
		return time.Time{}, time.Time{}, domain.ErrInvalidPeriod
	}
	start = start.UTC().Truncate(24 * time.Hour)
	end = end.UTC().Truncate(24 * time.Hour)
	if end.Before(start) {
		return time.Time{}, time.Time{}, domain.ErrInvalidPeriod
	}
	return start, end, nil
}

func parseID(value string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}
