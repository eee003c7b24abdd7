package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"github.com/jonassync/licensing_backend/aiassist"
	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/models"
	"github.com/jonassync/licensing_backend/utils"
)

const mysqlDuplicateEntry = 1062

// respondError maps an error to its status code and JSON body. entity names
// the resource in not-found and conflict messages.
func (h *Handler) respondError(c *gin.Context, entity string, funcName string, err error) {
	var verr *models.ValidationError
	var fieldErrs validator.ValidationErrors
	var mysqlErr *mysql.MySQLError
	var upstream *aiassist.UpstreamError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": verr.Fields})
	case errors.As(err, &fieldErrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": bindingFieldErrors(fieldErrs)})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": entity + " not found"})
	case errors.Is(err, utils.ErrorUnauthorized), errors.Is(err, utils.ErrorOwnerRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Authentication required"})
	case errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry:
		c.JSON(http.StatusConflict, gin.H{"error": entity + " already exists"})
	case errors.Is(err, aiassist.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI service not configured"})
	case errors.As(err, &upstream):
		config.LogError(h.Logger, "handlers", funcName, "ai upstream", nil, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "AI service request failed"})
	default:
		config.LogError(h.Logger, "handlers", funcName, c.FullPath(), nil, err)
		body := gin.H{"error": "internal server error"}
		if !h.Options.IsProduction() {
			body["message"] = err.Error()
		}
		c.JSON(http.StatusInternalServerError, body)
	}
}

func bindingFieldErrors(errs validator.ValidationErrors) []models.FieldError {
	fields := make([]models.FieldError, 0, len(errs))
	for _, fe := range errs {
		fields = append(fields, models.FieldError{Field: lowerFirst(fe.Field()), Message: bindingMessage(fe)})
	}
	return fields
}

func bindingMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param()
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// bindJSON decodes the body into input. It answers the request itself and
// returns false when the body is unusable.
func (h *Handler) bindJSON(c *gin.Context, input any) bool {
	if err := c.ShouldBindJSON(input); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			h.respondError(c, "", "bindJSON", err)
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

// paramId reads a positive integer path parameter.
func paramId(c *gin.Context, name string, entity string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": entity + " not found"})
		return 0, false
	}
	return id, true
}

// queryFilters flattens the query string, keeping the first value per key.
func queryFilters(c *gin.Context) map[string]string {
	filters := map[string]string{}
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			filters[key] = values[0]
		}
	}
	return filters
}
