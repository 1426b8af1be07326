package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	contactdomain "github.com/smallbiznis/kontera/internal/contact/domain"
	"github.com/smallbiznis/kontera/pkg/db/pagination"
)

type createContactRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Tag   string `json:"tag"`
}

func (s *Server) CreateContact(c *gin.Context) {
	var req createContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.contactSvc.Create(c.Request.Context(), contactdomain.CreateContactRequest{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
		Tag:   strings.TrimSpace(req.Tag),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListContacts(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Name string `form:"name"`
		Tag  string `form:"tag"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.contactSvc.List(c.Request.Context(), contactdomain.ListContactRequest{
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
		Name:      strings.TrimSpace(query.Name),
		Tag:       strings.TrimSpace(query.Tag),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetContact(c *gin.Context) {
	resp, err := s.contactSvc.GetByID(c.Request.Context(), contactdomain.GetContactRequest{
		ID: c.Param("id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateContactRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (s *Server) UpdateContact(c *gin.Context) {
	var req updateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.contactSvc.Update(c.Request.Context(), contactdomain.UpdateContactRequest{
		ID:    c.Param("id"),
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type setContactTagRequest struct {
	Tag string `json:"tag"`
}

func (s *Server) SetContactTag(c *gin.Context) {
	var req setContactTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.contactSvc.SetTag(c.Request.Context(), contactdomain.SetTagRequest{
		ID:  c.Param("id"),
		Tag: strings.TrimSpace(req.Tag),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
