package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/kontera/pkg/db/pagination"
)

type CreateCostCenterRequest struct {
	Code string
	Name string
}

type UpdateCostCenterRequest struct {
	ID   string
	Name string
}

type ListCostCenterRequest struct {
	PageToken  string
	PageSize   int32
	Code       string
	ActiveOnly bool
}

type ListFilter struct {
	Code       string
	ActiveOnly bool
}

type ListCostCenterResponse struct {
	pagination.PageInfo
	CostCenters []CostCenter `json:"cost_centers"`
}

type GetCostCenterRequest struct {
	ID string
}

type Service interface {
	Create(context.Context, CreateCostCenterRequest) (CostCenter, error)
	Update(context.Context, UpdateCostCenterRequest) (CostCenter, error)
	Deactivate(ctx context.Context, id string) (CostCenter, error)
	Activate(ctx context.Context, id string) (CostCenter, error)
	Delete(ctx context.Context, id string) error
	GetByID(context.Context, GetCostCenterRequest) (CostCenter, error)
	List(context.Context, ListCostCenterRequest) (ListCostCenterResponse, error)
}

var (
	ErrInvalidCode = errors.New("invalid_code")
	ErrInvalidName = errors.New("invalid_name")
	ErrInvalidID   = errors.New("invalid_id")
	ErrNotFound    = errors.New("not_found")
	ErrDuplicate   = errors.New("duplicate_code")
	// ErrReferenced is returned when a hard delete targets a cost center that
	// document lines or budgets still reference.
	ErrReferenced = errors.New("cost_center_referenced")
)
