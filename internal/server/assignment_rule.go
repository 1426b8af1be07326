package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	ruledomain "github.com/smallbiznis/kontera/internal/assignmentrule/domain"
	"github.com/smallbiznis/kontera/pkg/db/pagination"
)

type assignmentRuleRequest struct {
	Name            string `json:"name"`
	ProductID       string `json:"product_id"`
	ProductCategory string `json:"product_category"`
	ContactID       string `json:"contact_id"`
	ContactTag      string `json:"contact_tag"`
	CostCenterID    string `json:"cost_center_id"`
	Priority        int    `json:"priority"`
}

func (s *Server) CreateAssignmentRule(c *gin.Context) {
	var req assignmentRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ruleSvc.Create(c.Request.Context(), ruledomain.CreateRuleRequest{
		Name:            strings.TrimSpace(req.Name),
		ProductID:       strings.TrimSpace(req.ProductID),
		ProductCategory: strings.TrimSpace(req.ProductCategory),
		ContactID:       strings.TrimSpace(req.ContactID),
		ContactTag:      strings.TrimSpace(req.ContactTag),
		CostCenterID:    strings.TrimSpace(req.CostCenterID),
		Priority:        req.Priority,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListAssignmentRules(c *gin.Context) {
	var query struct {
		pagination.Pagination
		CostCenterID string `form:"cost_center_id"`
		EnabledOnly  bool   `form:"enabled_only"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ruleSvc.List(c.Request.Context(), ruledomain.ListRuleRequest{
		PageToken:    query.PageToken,
		PageSize:     int32(query.PageSize),
		CostCenterID: strings.TrimSpace(query.CostCenterID),
		EnabledOnly:  query.EnabledOnly,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetAssignmentRule(c *gin.Context) {
	resp, err := s.ruleSvc.GetByID(c.Request.Context(), ruledomain.GetRuleRequest{
		ID: c.Param("id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateAssignmentRule(c *gin.Context) {
	var req assignmentRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ruleSvc.Update(c.Request.Context(), ruledomain.UpdateRuleRequest{
		ID:              c.Param("id"),
		Name:            strings.TrimSpace(req.Name),
		ProductID:       strings.TrimSpace(req.ProductID),
		ProductCategory: strings.TrimSpace(req.ProductCategory),
		ContactID:       strings.TrimSpace(req.ContactID),
		ContactTag:      strings.TrimSpace(req.ContactTag),
		CostCenterID:    strings.TrimSpace(req.CostCenterID),
		Priority:        req.Priority,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type setRuleEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) SetAssignmentRuleEnabled(c *gin.Context) {
	var req setRuleEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ruleSvc.SetEnabled(c.Request.Context(), ruledomain.SetEnabledRequest{
		ID:      c.Param("id"),
		Enabled: req.Enabled,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type resolveCostCenterRequest struct {
	ProductID       string `json:"product_id"`
	ProductCategory string `json:"product_category"`
	ContactID       string `json:"contact_id"`
}

// ResolveCostCenter runs the rule resolver against an ad-hoc line context.
// A null cost_center_id in the response means no enabled rule qualified.
func (s *Server) ResolveCostCenter(c *gin.Context) {
	var req resolveCostCenterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	productID, err := parseOptionalRuleID(req.ProductID)
	if err != nil {
		AbortWithError(c, newValidationError("product_id", "invalid_product_id", "invalid product_id"))
		return
	}
	contactID, err := parseOptionalRuleID(req.ContactID)
	if err != nil {
		AbortWithError(c, newValidationError("contact_id", "invalid_contact_id", "invalid contact_id"))
		return
	}

	costCenterID, err := s.ruleSvc.Resolve(c.Request.Context(), ruledomain.ResolveRequest{
		ProductID:       productID,
		ProductCategory: strings.TrimSpace(req.ProductCategory),
		ContactID:       contactID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if costCenterID == nil {
		c.JSON(http.StatusOK, gin.H{"cost_center_id": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cost_center_id": costCenterID.String()})
}

func parseOptionalRuleID(value string) (snowflake.ID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	id, err := snowflake.ParseString(trimmed)
	if err != nil || id == 0 {
		return 0, errInvalidSnowflakeID
	}
	return id, nil
}
