package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	ruledomain "github.com/smallbiznis/kontera/internal/assignmentrule/domain"
	contactdomain "github.com/smallbiznis/kontera/internal/contact/domain"
	costcenterdomain "github.com/smallbiznis/kontera/internal/costcenter/domain"
	"github.com/smallbiznis/kontera/internal/document/domain"
	"github.com/smallbiznis/kontera/internal/observability/metrics"
	productdomain "github.com/smallbiznis/kontera/internal/product/domain"
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
	Repo        domain.Repository
	Contacts    contactdomain.Repository
	Products    productdomain.Repository
	CostCenters costcenterdomain.Repository
	Resolver    ruledomain.Service
	Recalc      domain.BudgetRecalculator `optional:"true"`
	Metrics     *metrics.Metrics          `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	contacts    contactdomain.Repository
	products    productdomain.Repository
	costCenters costcenterdomain.Repository
	resolver    ruledomain.Service
	recalc      domain.BudgetRecalculator
	metrics     *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("document.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		contacts:    p.Contacts,
		products:    p.Products,
		costCenters: p.CostCenters,
		resolver:    p.Resolver,
		recalc:      p.Recalc,
		metrics:     p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateDocumentRequest) (domain.Document, error) {
	if req.Type != domain.TypeCustomerInvoice && req.Type != domain.TypeVendorBill {
		return domain.Document{}, domain.ErrInvalidType
	}
	if req.IssueDate.IsZero() {
		return domain.Document{}, domain.ErrInvalidIssueDate
	}
	if len(req.Lines) == 0 {
		return domain.Document{}, domain.ErrInvalidLines
	}

	contactID, err := parseID(req.ContactID, domain.ErrInvalidContact)
	if err != nil {
		return domain.Document{}, err
	}
	contact, err := s.contacts.FindByID(ctx, s.db, contactID)
	if err != nil {
		return domain.Document{}, err
	}
	if contact == nil {
		return domain.Document{}, domain.ErrInvalidContact
	}

	now := time.Now().UTC()
	document := domain.Document{
		ID:            s.genID.Generate(),
		Type:          req.Type,
		ContactID:     contactID,
		Status:        domain.StatusDraft,
		PaymentStatus: domain.PaymentNotPaid,
		IssueDate:     req.IssueDate.UTC().Truncate(24 * time.Hour),
		Metadata:      datatypes.JSONMap{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	lines, total, err := s.buildLines(ctx, &document, req.Lines)
	if err != nil {
		return domain.Document{}, err
	}
	document.TotalAmount = total

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertDocument(ctx, tx, &document); err != nil {
			return err
		}
		return s.repo.InsertLines(ctx, tx, lines)
	})
	if err != nil {
		return domain.Document{}, err
	}
	if err := s.recalculate(ctx, document, lines); err != nil {
		return domain.Document{}, err
	}

	document.Lines = lines
	return document, nil
}

// UpdateLines replaces the lines of a draft document. Documents that left
// draft are frozen; their lines can no longer change.
func (s *Service) UpdateLines(ctx context.Context, req domain.UpdateLinesRequest) (domain.Document, error) {
	id, err := parseID(req.ID, domain.ErrInvalidID)
	if err != nil {
		return domain.Document{}, err
	}
	if len(req.Lines) == 0 {
		return domain.Document{}, domain.ErrInvalidLines
	}

	document, err := s.mustFind(ctx, id)
	if err != nil {
		return domain.Document{}, err
	}
	if document.Status != domain.StatusDraft {
		return domain.Document{}, domain.ErrFinalized
	}

	previous, err := s.repo.FindLines(ctx, s.db, id)
	if err != nil {
		return domain.Document{}, err
	}

	lines, total, err := s.buildLines(ctx, document, req.Lines)
	if err != nil {
		return domain.Document{}, err
	}

	document.TotalAmount = total
	document.UpdatedAt = time.Now().UTC()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.DeleteLines(ctx, tx, id); err != nil {
			return err
		}
		if err := s.repo.InsertLines(ctx, tx, lines); err != nil {
			return err
		}
		return s.repo.SaveDocument(ctx, tx, document)
	})
	if err != nil {
		return domain.Document{}, err
	}
	// Cost centers dropped by the edit need recomputing too.
	if err := s.recalculate(ctx, *document, append(previous, lines...)); err != nil {
		return domain.Document{}, err
	}

	document.Lines = lines
	return *document, nil
}

func (s *Service) Post(ctx context.Context, rawID string) (domain.Document, error) {
	id, err := parseID(rawID, domain.ErrInvalidID)
	if err != nil {
		return domain.Document{}, err
	}

	document, err := s.mustFind(ctx, id)
	if err != nil {
		return domain.Document{}, err
	}
	if document.Status != domain.StatusDraft {
		return domain.Document{}, domain.ErrInvalidTransition
	}

	now := time.Now().UTC()
	document.Status = domain.StatusPosted
	document.PostedAt = &now
	document.UpdatedAt = now

	lines, err := s.repo.FindLines(ctx, s.db, id)
	if err != nil {
		return domain.Document{}, err
	}

	if err := s.repo.SaveDocument(ctx, s.db, document); err != nil {
		return domain.Document{}, err
	}
	if err := s.recalculate(ctx, *document, lines); err != nil {
		return domain.Document{}, err
	}

	s.metrics.RecordDocumentPosted(ctx, string(document.Type))
	s.log.Info("document posted",
		zap.String("document_id", document.ID.String()),
		zap.String("type", string(document.Type)),
	)

	document.Lines = lines
	return *document, nil
}

func (s *Service) RegisterPayment(ctx context.Context, req domain.RegisterPaymentRequest) (domain.Document, error) {
	id, err := parseID(req.ID, domain.ErrInvalidID)
	if err != nil {
		return domain.Document{}, err
	}
	if req.Amount <= 0 {
		return domain.Document{}, domain.ErrInvalidAmount
	}

	document, err := s.mustFind(ctx, id)
	if err != nil {
		return domain.Document{}, err
	}
	if document.Status == domain.StatusCancelled {
		return domain.Document{}, domain.ErrInvalidTransition
	}
	if document.PaidAmount+req.Amount > document.TotalAmount {
		return domain.Document{}, domain.ErrInvalidAmount
	}

	document.PaidAmount += req.Amount
	switch {
	case document.PaidAmount >= document.TotalAmount:
		document.PaymentStatus = domain.PaymentPaid
	case document.PaidAmount > 0:
		document.PaymentStatus = domain.PaymentPartiallyPaid
	default:
		document.PaymentStatus = domain.PaymentNotPaid
	}
	document.UpdatedAt = time.Now().UTC()

	lines, err := s.repo.FindLines(ctx, s.db, id)
	if err != nil {
		return domain.Document{}, err
	}

	if err := s.repo.SaveDocument(ctx, s.db, document); err != nil {
		return domain.Document{}, err
	}
	// A payment can move amounts from reserved to actual.
	if err := s.recalculate(ctx, *document, lines); err != nil {
		return domain.Document{}, err
	}

	document.Lines = lines
	return *document, nil
}

func (s *Service) Cancel(ctx context.Context, rawID string) (domain.Document, error) {
	id, err := parseID(rawID, domain.ErrInvalidID)
	if err != nil {
		return domain.Document{}, err
	}

	document, err := s.mustFind(ctx, id)
	if err != nil {
		return domain.Document{}, err
	}
	if document.Status == domain.StatusCancelled || document.PaidAmount > 0 {
		return domain.Document{}, domain.ErrInvalidTransition
	}

	now := time.Now().UTC()
	document.Status = domain.StatusCancelled
	document.CancelledAt = &now
	document.UpdatedAt = now

	lines, err := s.repo.FindLines(ctx, s.db, id)
	if err != nil {
		return domain.Document{}, err
	}

	if err := s.repo.SaveDocument(ctx, s.db, document); err != nil {
		return domain.Document{}, err
	}
	if err := s.recalculate(ctx, *document, lines); err != nil {
		return domain.Document{}, err
	}

	document.Lines = lines
	return *document, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetDocumentRequest) (domain.Document, error) {
	id, err := parseID(req.ID, domain.ErrInvalidID)
	if err != nil {
		return domain.Document{}, err
	}
	document, err := s.mustFind(ctx, id)
	if err != nil {
		return domain.Document{}, err
	}
	lines, err := s.repo.FindLines(ctx, s.db, id)
	if err != nil {
		return domain.Document{}, err
	}
	document.Lines = lines
	return *document, nil
}

func (s *Service) List(ctx context.Context, req domain.ListDocumentRequest) (domain.ListDocumentResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	filter := domain.ListFilter{Type: req.Type, Status: req.Status}
	if strings.TrimSpace(req.ContactID) != "" {
		contactID, err := parseID(req.ContactID, domain.ErrInvalidContact)
		if err != nil {
			return domain.ListDocumentResponse{}, err
		}
		filter.ContactID = contactID
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListDocumentResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(document *domain.Document) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        document.ID.String(),
			CreatedAt: document.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	documents := make([]domain.Document, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		documents = append(documents, *item)
	}

	resp := domain.ListDocumentResponse{Documents: documents}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

// buildLines validates the requested lines and assigns cost centers: the
// explicit assignment wins, otherwise the rule resolver picks one. A line
// with no qualifying rule stays unassigned and never feeds a budget.
func (s *Service) buildLines(ctx context.Context, document *domain.Document, inputs []domain.LineInput) ([]domain.DocumentLine, int64, error) {
	now := time.Now().UTC()
	lines := make([]domain.DocumentLine, 0, len(inputs))
	var total int64

	for _, input := range inputs {
		if input.Quantity <= 0 || input.UnitAmount < 0 {
			return nil, 0, domain.ErrInvalidLines
		}
		productID, err := parseID(input.ProductID, domain.ErrInvalidLines)
		if err != nil {
			return nil, 0, err
		}
		product, err := s.products.FindByID(ctx, s.db, productID)
		if err != nil {
			return nil, 0, err
		}
		if product == nil {
			return nil, 0, domain.ErrInvalidLines
		}

		var costCenterID *snowflake.ID
		if strings.TrimSpace(input.CostCenterID) != "" {
			explicit, err := parseID(input.CostCenterID, domain.ErrInvalidLines)
			if err != nil {
				return nil, 0, err
			}
			costCenter, err := s.costCenters.FindByID(ctx, s.db, explicit)
			if err != nil {
				return nil, 0, err
			}
			if costCenter == nil {
				return nil, 0, domain.ErrInvalidLines
			}
			costCenterID = &explicit
		} else {
			costCenterID, err = s.resolver.Resolve(ctx, ruledomain.ResolveRequest{
				ProductID:       productID,
				ProductCategory: product.Category,
				ContactID:       document.ContactID,
			})
			if err != nil {
				return nil, 0, err
			}
		}

		amount := input.Quantity * input.UnitAmount
		total += amount
		lines = append(lines, domain.DocumentLine{
			ID:           s.genID.Generate(),
			DocumentID:   document.ID,
			ProductID:    productID,
			CostCenterID: costCenterID,
			Description:  strings.TrimSpace(input.Description),
			Quantity:     input.Quantity,
			UnitAmount:   input.UnitAmount,
			Amount:       amount,
			CreatedAt:    now,
		})
	}

	return lines, total, nil
}

// recalculate re-derives budget snapshots for every distinct cost center on
// the given lines, right after the document mutation is persisted.
func (s *Service) recalculate(ctx context.Context, document domain.Document, lines []domain.DocumentLine) error {
	if s.recalc == nil {
		return nil
	}
	affected := distinctCostCenters(lines)
	if len(affected) == 0 {
		return nil
	}
	return s.recalc.RecalculateForCostCenters(ctx, affected, document.IssueDate)
}

func distinctCostCenters(lines []domain.DocumentLine) []snowflake.ID {
	seen := make(map[snowflake.ID]struct{}, len(lines))
	ids := make([]snowflake.ID, 0, len(lines))
	for _, line := range lines {
		if line.CostCenterID == nil || *line.CostCenterID == 0 {
			continue
		}
		if _, ok := seen[*line.CostCenterID]; ok {
			continue
		}
		seen[*line.CostCenterID] = struct{}{}
		ids = append(ids, *line.CostCenterID)
	}
	return ids
}

func (s *Service) mustFind(ctx context.Context, id snowflake.ID) (*domain.Document, error) {
	document, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, domain.ErrNotFound
	}
	return document, nil
}

func parseID(value string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}
