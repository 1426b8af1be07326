package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ruledomain "github.com/smallbiznis/kontera/internal/assignmentrule/domain"
	budgetdomain "github.com/smallbiznis/kontera/internal/budget/domain"
	contactdomain "github.com/smallbiznis/kontera/internal/contact/domain"
	costcenterdomain "github.com/smallbiznis/kontera/internal/costcenter/domain"
	documentdomain "github.com/smallbiznis/kontera/internal/document/domain"
	productdomain "github.com/smallbiznis/kontera/internal/product/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case errors.Is(err, costcenterdomain.ErrInvalidCode),
		errors.Is(err, costcenterdomain.ErrInvalidName),
		errors.Is(err, costcenterdomain.ErrInvalidID):
		return true
	case errors.Is(err, contactdomain.ErrInvalidName),
		errors.Is(err, contactdomain.ErrInvalidID):
		return true
	case errors.Is(err, productdomain.ErrInvalidName),
		errors.Is(err, productdomain.ErrInvalidAmount),
		errors.Is(err, productdomain.ErrInvalidID):
		return true
	case errors.Is(err, ruledomain.ErrInvalidName),
		errors.Is(err, ruledomain.ErrInvalidCostCenter),
		errors.Is(err, ruledomain.ErrInvalidID):
		return true
	case errors.Is(err, documentdomain.ErrInvalidType),
		errors.Is(err, documentdomain.ErrInvalidContact),
		errors.Is(err, documentdomain.ErrInvalidIssueDate),
		errors.Is(err, documentdomain.ErrInvalidLines),
		errors.Is(err, documentdomain.ErrInvalidAmount),
		errors.Is(err, documentdomain.ErrInvalidID):
		return true
	case errors.Is(err, budgetdomain.ErrInvalidCostCenter),
		errors.Is(err, budgetdomain.ErrInvalidDirection),
		errors.Is(err, budgetdomain.ErrInvalidPeriod),
		errors.Is(err, budgetdomain.ErrInvalidAmount),
		errors.Is(err, budgetdomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, costcenterdomain.ErrNotFound),
		errors.Is(err, contactdomain.ErrNotFound),
		errors.Is(err, productdomain.ErrNotFound),
		errors.Is(err, ruledomain.ErrNotFound),
		errors.Is(err, documentdomain.ErrNotFound),
		errors.Is(err, budgetdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, costcenterdomain.ErrDuplicate),
		errors.Is(err, costcenterdomain.ErrReferenced),
		errors.Is(err, documentdomain.ErrFinalized),
		errors.Is(err, documentdomain.ErrInvalidTransition),
		errors.Is(err, budgetdomain.ErrInvalidTransition):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, costcenterdomain.ErrDuplicate):
		return "code already in use"
	case errors.Is(err, costcenterdomain.ErrReferenced):
		return "cost center still referenced"
	case errors.Is(err, documentdomain.ErrFinalized):
		return "document lines are frozen"
	case errors.Is(err, documentdomain.ErrInvalidTransition),
		errors.Is(err, budgetdomain.ErrInvalidTransition):
		return "invalid transition"
	default:
		return "conflict"
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}

// classifyErrorForLog feeds the request logger's error_type/error_code
// fields without touching the response mapping.
func classifyErrorForLog(err error) (string, string) {
	switch {
	case err == nil:
		return "", ""
	case asValidationErrors(err) != nil, isValidationError(err):
		return "validation_error", validationErrorCode(err)
	case isConflictError(err):
		return "conflict", err.Error()
	case isNotFoundError(err):
		return "not_found", err.Error()
	default:
		return "internal_error", err.Error()
	}
}
