package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kontera/pkg/db/pagination"
)

type CreateRuleRequest struct {
	Name            string
	ProductID       string
	ProductCategory string
	ContactID       string
	ContactTag      string
	CostCenterID    string
	Priority        int
}

type UpdateRuleRequest struct {
	ID              string
	Name            string
	ProductID       string
	ProductCategory string
	ContactID       string
	ContactTag      string
	CostCenterID    string
	Priority        int
}

type SetEnabledRequest struct {
	ID      string
	Enabled bool
}

type ListRuleRequest struct {
	PageToken    string
	PageSize     int32
	CostCenterID string
	EnabledOnly  bool
}

type ListFilter struct {
	CostCenterID snowflake.ID
	EnabledOnly  bool
}

type ListRuleResponse struct {
	pagination.PageInfo
	Rules []AssignmentRule `json:"rules"`
}

type GetRuleRequest struct {
	ID string
}

// ResolveRequest is the transaction-line context handed to the resolver.
// ContactTag is looked up from the contact record, not supplied by callers.
type ResolveRequest struct {
	ProductID       snowflake.ID
	ProductCategory string
	ContactID       snowflake.ID
}

type Service interface {
	Create(context.Context, CreateRuleRequest) (AssignmentRule, error)
	Update(context.Context, UpdateRuleRequest) (AssignmentRule, error)
	SetEnabled(context.Context, SetEnabledRequest) (AssignmentRule, error)
	GetByID(context.Context, GetRuleRequest) (AssignmentRule, error)
	List(context.Context, ListRuleRequest) (ListRuleResponse, error)
	// Resolve returns the best-matching rule's cost center for the given
	// context, or nil when no enabled rule qualifies. Absence of a match is
	// a normal outcome, not an error.
	Resolve(context.Context, ResolveRequest) (*snowflake.ID, error)
}

var (
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidCostCenter = errors.New("invalid_cost_center")
	ErrNotFound          = errors.New("not_found")
)
