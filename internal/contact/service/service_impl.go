package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kontera/internal/cache"
	"github.com/smallbiznis/kontera/internal/contact/domain"
	"github.com/smallbiznis/kontera/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	TagCache cache.ContactTagCache
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	tagCache cache.ContactTagCache
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("contact.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		tagCache: p.TagCache,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateContactRequest) (domain.Contact, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Contact{}, domain.ErrInvalidName
	}

	now := time.Now().UTC()
	contact := domain.Contact{
		ID:        s.genID.Generate(),
		Name:      name,
		Email:     strings.TrimSpace(req.Email),
		Tag:       normalizeTag(req.Tag),
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &contact); err != nil {
		return domain.Contact{}, err
	}
	return contact, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateContactRequest) (domain.Contact, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Contact{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Contact{}, domain.ErrInvalidName
	}

	contact, err := s.mustFind(ctx, id)
	if err != nil {
		return domain.Contact{}, err
	}

	contact.Name = name
	contact.Email = strings.TrimSpace(req.Email)
	contact.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, s.db, contact); err != nil {
		return domain.Contact{}, err
	}
	return *contact, nil
}

func (s *Service) SetTag(ctx context.Context, req domain.SetTagRequest) (domain.Contact, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Contact{}, err
	}

	contact, err := s.mustFind(ctx, id)
	if err != nil {
		return domain.Contact{}, err
	}

	contact.Tag = normalizeTag(req.Tag)
	contact.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, s.db, contact); err != nil {
		return domain.Contact{}, err
	}
	s.tagCache.Invalidate(id)
	return *contact, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetContactRequest) (domain.Contact, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Contact{}, err
	}
	contact, err := s.mustFind(ctx, id)
	if err != nil {
		return domain.Contact{}, err
	}
	return *contact, nil
}

func (s *Service) List(ctx context.Context, req domain.ListContactRequest) (domain.ListContactResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Name: strings.TrimSpace(req.Name),
		Tag:  normalizeTag(req.Tag),
	}, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListContactResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(contact *domain.Contact) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        contact.ID.String(),
			CreatedAt: contact.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	contacts := make([]domain.Contact, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		contacts = append(contacts, *item)
	}

	resp := domain.ListContactResponse{Contacts: contacts}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) CurrentTag(ctx context.Context, id snowflake.ID) (string, error) {
	if id == 0 {
		return "", domain.ErrInvalidID
	}
	if tag, ok := s.tagCache.GetTag(id); ok {
		return tag, nil
	}

	contact, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return "", err
	}
	if contact == nil {
		return "", domain.ErrNotFound
	}
	s.tagCache.SetTag(id, contact.Tag)
	return contact.Tag, nil
}

func (s *Service) mustFind(ctx context.Context, id snowflake.ID) (*domain.Contact, error) {
	contact, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, domain.ErrNotFound
	}
	return contact, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
