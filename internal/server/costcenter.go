package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	costcenterdomain "github.com/smallbiznis/kontera/internal/costcenter/domain"
	"github.com/smallbiznis/kontera/pkg/db/pagination"
)

type createCostCenterRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (s *Server) CreateCostCenter(c *gin.Context) {
	var req createCostCenterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.costCenterSvc.Create(c.Request.Context(), costcenterdomain.CreateCostCenterRequest{
		Code: strings.TrimSpace(req.Code),
		Name: strings.TrimSpace(req.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCostCenters(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Code       string `form:"code"`
		ActiveOnly bool   `form:"active_only"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.costCenterSvc.List(c.Request.Context(), costcenterdomain.ListCostCenterRequest{
		PageToken:  query.PageToken,
		PageSize:   int32(query.PageSize),
		Code:       strings.TrimSpace(query.Code),
		ActiveOnly: query.ActiveOnly,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetCostCenter(c *gin.Context) {
	resp, err := s.costCenterSvc.GetByID(c.Request.Context(), costcenterdomain.GetCostCenterRequest{
		ID: c.Param("id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateCostCenterRequest struct {
	Name string `json:"name"`
}

func (s *Server) UpdateCostCenter(c *gin.Context) {
	var req updateCostCenterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.costCenterSvc.Update(c.Request.Context(), costcenterdomain.UpdateCostCenterRequest{
		ID:   c.Param("id"),
		Name: strings.TrimSpace(req.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ActivateCostCenter(c *gin.Context) {
	resp, err := s.costCenterSvc.Activate(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeactivateCostCenter(c *gin.Context) {
	resp, err := s.costCenterSvc.Deactivate(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteCostCenter(c *gin.Context) {
	if err := s.costCenterSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
