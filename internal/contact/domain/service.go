package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kontera/pkg/db/pagination"
)

type CreateContactRequest struct {
	Name  string
	Email string
	Tag   string
}

type UpdateContactRequest struct {
	ID    string
	Name  string
	Email string
}

type SetTagRequest struct {
	ID  string
	Tag string
}

type ListContactRequest struct {
	PageToken string
	PageSize  int32
	Name      string
	Tag       string
}

type ListFilter struct {
	Name string
	Tag  string
}

type ListContactResponse struct {
	pagination.PageInfo
	Contacts []Contact `json:"contacts"`
}

type GetContactRequest struct {
	ID string
}

type Service interface {
	Create(context.Context, CreateContactRequest) (Contact, error)
	Update(context.Context, UpdateContactRequest) (Contact, error)
	SetTag(context.Context, SetTagRequest) (Contact, error)
	GetByID(context.Context, GetContactRequest) (Contact, error)
	List(context.Context, ListContactRequest) (ListContactResponse, error)
	// CurrentTag returns the tag attached to a contact right now. Used by the
	// assignment rule resolver; missing contacts return ErrNotFound.
	CurrentTag(ctx context.Context, id snowflake.ID) (string, error)
}

var (
	ErrInvalidName = errors.New("invalid_name")
	ErrInvalidID   = errors.New("invalid_id")
	ErrNotFound    = errors.New("not_found")
)
