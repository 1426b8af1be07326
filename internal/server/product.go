package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	productdomain "github.com/smallbiznis/kontera/internal/product/domain"
	"github.com/smallbiznis/kontera/pkg/db/pagination"
)

type createProductRequest struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	UnitAmount int64  `json:"unit_amount"`
}

func (s *Server) CreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.productSvc.Create(c.Request.Context(), productdomain.CreateProductRequest{
		Name:       strings.TrimSpace(req.Name),
		Category:   strings.TrimSpace(req.Category),
		UnitAmount: req.UnitAmount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListProducts(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Category string `form:"category"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.productSvc.List(c.Request.Context(), productdomain.ListProductRequest{
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
		Category:  strings.TrimSpace(query.Category),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetProduct(c *gin.Context) {
	resp, err := s.productSvc.GetByID(c.Request.Context(), productdomain.GetProductRequest{
		ID: c.Param("id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateProductRequest struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	UnitAmount int64  `json:"unit_amount"`
}

func (s *Server) UpdateProduct(c *gin.Context) {
	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.productSvc.Update(c.Request.Context(), productdomain.UpdateProductRequest{
		ID:         c.Param("id"),
		Name:       strings.TrimSpace(req.Name),
		Category:   strings.TrimSpace(req.Category),
		UnitAmount: req.UnitAmount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
