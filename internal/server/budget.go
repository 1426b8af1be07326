package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	budgetdomain "github.com/smallbiznis/kontera/internal/budget/domain"
	documentdomain "github.com/smallbiznis/kontera/internal/document/domain"
	"github.com/smallbiznis/kontera/pkg/db/pagination"
)

type createBudgetRequest struct {
	CostCenterID  string `json:"cost_center_id"`
	Direction     string `json:"direction"`
	PeriodStart   string `json:"period_start"`
	PeriodEnd     string `json:"period_end"`
	PlannedAmount int64  `json:"planned_amount"`
}

func (s *Server) CreateBudget(c *gin.Context) {
	var req createBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	start, err := parseDate(req.PeriodStart)
	if err != nil {
		AbortWithError(c, newValidationError("period_start", "invalid_period", "invalid period_start"))
		return
	}
	end, err := parseDate(req.PeriodEnd)
	if err != nil {
		AbortWithError(c, newValidationError("period_end", "invalid_period", "invalid period_end"))
		return
	}

	resp, err := s.budgetSvc.Create(c.Request.Context(), budgetdomain.CreateBudgetRequest{
		CostCenterID:  strings.TrimSpace(req.CostCenterID),
		Direction:     documentdomain.Direction(strings.ToUpper(strings.TrimSpace(req.Direction))),
		PeriodStart:   start,
		PeriodEnd:     end,
		PlannedAmount: req.PlannedAmount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListBudgets(c *gin.Context) {
	var query struct {
		pagination.Pagination
		CostCenterID string `form:"cost_center_id"`
		Stage        string `form:"stage"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.budgetSvc.List(c.Request.Context(), budgetdomain.ListBudgetRequest{
		PageToken:    query.PageToken,
		PageSize:     int32(query.PageSize),
		CostCenterID: strings.TrimSpace(query.CostCenterID),
		Stage:        budgetdomain.Stage(strings.ToUpper(strings.TrimSpace(query.Stage))),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetBudget(c *gin.Context) {
	resp, err := s.budgetSvc.GetByID(c.Request.Context(), budgetdomain.GetBudgetRequest{
		ID: c.Param("id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateBudgetRequest struct {
	CostCenterID  *string `json:"cost_center_id"`
	PeriodStart   *string `json:"period_start"`
	PeriodEnd     *string `json:"period_end"`
	PlannedAmount *int64  `json:"planned_amount"`
}

func (s *Server) UpdateBudget(c *gin.Context) {
	var req updateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := budgetdomain.UpdateBudgetRequest{
		ID:            c.Param("id"),
		CostCenterID:  req.CostCenterID,
		PlannedAmount: req.PlannedAmount,
	}
	if req.PeriodStart != nil {
		start, err := parseDate(*req.PeriodStart)
		if err != nil {
			AbortWithError(c, newValidationError("period_start", "invalid_period", "invalid period_start"))
			return
		}
		update.PeriodStart = &start
	}
	if req.PeriodEnd != nil {
		end, err := parseDate(*req.PeriodEnd)
		if err != nil {
			AbortWithError(c, newValidationError("period_end", "invalid_period", "invalid period_end"))
			return
		}
		update.PeriodEnd = &end
	}

	resp, err := s.budgetSvc.UpdateDraft(c.Request.Context(), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ConfirmBudget(c *gin.Context) {
	resp, err := s.budgetSvc.Confirm(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type reviseBudgetRequest struct {
	PlannedAmount int64   `json:"planned_amount"`
	PeriodStart   *string `json:"period_start"`
	PeriodEnd     *string `json:"period_end"`
	Reason        string  `json:"reason"`
}

func (s *Server) ReviseBudget(c *gin.Context) {
	var req reviseBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	revise := budgetdomain.ReviseBudgetRequest{
		ID:            c.Param("id"),
		PlannedAmount: req.PlannedAmount,
		Reason:        strings.TrimSpace(req.Reason),
	}
	if req.PeriodStart != nil {
		start, err := parseDate(*req.PeriodStart)
		if err != nil {
			AbortWithError(c, newValidationError("period_start", "invalid_period", "invalid period_start"))
			return
		}
		revise.PeriodStart = &start
	}
	if req.PeriodEnd != nil {
		end, err := parseDate(*req.PeriodEnd)
		if err != nil {
			AbortWithError(c, newValidationError("period_end", "invalid_period", "invalid period_end"))
			return
		}
		revise.PeriodEnd = &end
	}

	resp, err := s.budgetSvc.Revise(c.Request.Context(), revise)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ArchiveBudget(c *gin.Context) {
	resp, err := s.budgetSvc.Archive(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RecalculateBudget(c *gin.Context) {
	resp, err := s.budgetSvc.Recalculate(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListBudgetRevisions(c *gin.Context) {
	resp, err := s.budgetSvc.ListRevisions(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type aggregateBudgetRequest struct {
	CostCenterID string `json:"cost_center_id"`
	Direction    string `json:"direction"`
	PeriodStart  string `json:"period_start"`
	PeriodEnd    string `json:"period_end"`
}

// AggregateBudget runs an ad-hoc realized/reserved aggregation without a
// stored budget row.
func (s *Server) AggregateBudget(c *gin.Context) {
	var req aggregateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	start, err := parseDate(req.PeriodStart)
	if err != nil {
		AbortWithError(c, newValidationError("period_start", "invalid_period", "invalid period_start"))
		return
	}
	end, err := parseDate(req.PeriodEnd)
	if err != nil {
		AbortWithError(c, newValidationError("period_end", "invalid_period", "invalid period_end"))
		return
	}

	totals, err := s.budgetSvc.Aggregate(c.Request.Context(), budgetdomain.AggregateRequest{
		CostCenterID: strings.TrimSpace(req.CostCenterID),
		Direction:    documentdomain.Direction(strings.ToUpper(strings.TrimSpace(req.Direction))),
		PeriodStart:  start,
		PeriodEnd:    end,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"actual":   totals.Realized,
		"reserved": totals.Reserved,
	})
}
