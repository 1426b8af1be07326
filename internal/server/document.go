package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	documentdomain "github.com/smallbiznis/kontera/internal/document/domain"
	"github.com/smallbiznis/kontera/pkg/db/pagination"
)

type documentLineRequest struct {
	ProductID    string `json:"product_id"`
	CostCenterID string `json:"cost_center_id"`
	Description  string `json:"description"`
	Quantity     int64  `json:"quantity"`
	UnitAmount   int64  `json:"unit_amount"`
}

type createDocumentRequest struct {
	Type      string                `json:"type"`
	ContactID string                `json:"contact_id"`
	IssueDate string                `json:"issue_date"`
	Lines     []documentLineRequest `json:"lines"`
}

func (s *Server) CreateDocument(c *gin.Context) {
	var req createDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	issueDate, err := parseDate(req.IssueDate)
	if err != nil {
		AbortWithError(c, newValidationError("issue_date", "invalid_issue_date", "invalid issue_date"))
		return
	}

	resp, err := s.documentSvc.Create(c.Request.Context(), documentdomain.CreateDocumentRequest{
		Type:      documentdomain.DocumentType(strings.ToUpper(strings.TrimSpace(req.Type))),
		ContactID: strings.TrimSpace(req.ContactID),
		IssueDate: issueDate,
		Lines:     toLineInputs(req.Lines),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListDocuments(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Type      string `form:"type"`
		Status    string `form:"status"`
		ContactID string `form:"contact_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.documentSvc.List(c.Request.Context(), documentdomain.ListDocumentRequest{
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
		Type:      documentdomain.DocumentType(strings.ToUpper(strings.TrimSpace(query.Type))),
		Status:    documentdomain.LifecycleStatus(strings.ToUpper(strings.TrimSpace(query.Status))),
		ContactID: strings.TrimSpace(query.ContactID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetDocument(c *gin.Context) {
	resp, err := s.documentSvc.GetByID(c.Request.Context(), documentdomain.GetDocumentRequest{
		ID: c.Param("id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateDocumentLinesRequest struct {
	Lines []documentLineRequest `json:"lines"`
}

func (s *Server) UpdateDocumentLines(c *gin.Context) {
	var req updateDocumentLinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.documentSvc.UpdateLines(c.Request.Context(), documentdomain.UpdateLinesRequest{
		ID:    c.Param("id"),
		Lines: toLineInputs(req.Lines),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) PostDocument(c *gin.Context) {
	resp, err := s.documentSvc.Post(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type registerPaymentRequest struct {
	Amount int64 `json:"amount"`
}

func (s *Server) RegisterDocumentPayment(c *gin.Context) {
	var req registerPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.documentSvc.RegisterPayment(c.Request.Context(), documentdomain.RegisterPaymentRequest{
		ID:     c.Param("id"),
		Amount: req.Amount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelDocument(c *gin.Context) {
	resp, err := s.documentSvc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func toLineInputs(lines []documentLineRequest) []documentdomain.LineInput {
	inputs := make([]documentdomain.LineInput, 0, len(lines))
	for _, line := range lines {
		inputs = append(inputs, documentdomain.LineInput{
			ProductID:    strings.TrimSpace(line.ProductID),
			CostCenterID: strings.TrimSpace(line.CostCenterID),
			Description:  strings.TrimSpace(line.Description),
			Quantity:     line.Quantity,
			UnitAmount:   line.UnitAmount,
		})
	}
	return inputs
}
