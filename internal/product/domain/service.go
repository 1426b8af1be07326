package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/kontera/pkg/db/pagination"
)

type CreateProductRequest struct {
	Name       string
	Category   string
	UnitAmount int64
}

type UpdateProductRequest struct {
	ID         string
	Name       string
	Category   string
	UnitAmount int64
}

type ListProductRequest struct {
	PageToken string
	PageSize  int32
	Category  string
}

type ListFilter struct {
	Category string
}

type ListProductResponse struct {
	pagination.PageInfo
	Products []Product `json:"products"`
}

type GetProductRequest struct {
	ID string
}

type Service interface {
	Create(context.Context, CreateProductRequest) (Product, error)
	Update(context.Context, UpdateProductRequest) (Product, error)
	GetByID(context.Context, GetProductRequest) (Product, error)
	List(context.Context, ListProductRequest) (ListProductResponse, error)
}

var (
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidAmount = errors.New("invalid_amount")
	ErrInvalidID     = errors.New("invalid_id")
	ErrNotFound      = errors.New("not_found")
)
