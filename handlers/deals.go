package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jonassync/licensing_backend/models"
	"github.com/jonassync/licensing_backend/workflow"
)

var importMimeTypes = map[string]bool{
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"text/csv":                                                          true,
	"application/vnd.ms-excel":                                          true,
	"application/octet-stream":                                          true,
}

func (h *Handler) listDeals(c *gin.Context) {
	deals, err := models.GetDeals(c.Request.Context(), models.NewDealFilter(queryFilters(c)))
	if err != nil {
		h.respondError(c, "deal", "listDeals", err)
		return
	}
	if deals == nil {
		deals = []*models.Deal{}
	}
	c.JSON(http.StatusOK, deals)
}

func (h *Handler) getDeal(c *gin.Context) {
	id, ok := paramId(c, "id", "deal")
	if !ok {
		return
	}
	deal, err := models.GetDeal(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "deal", "getDeal", err)
		return
	}
	c.JSON(http.StatusOK, deal)
}

func (h *Handler) createDeal(c *gin.Context) {
	var input models.NewDeal
	if !h.bindJSON(c, &input) {
		return
	}
	ctx := c.Request.Context()
	deal, err := models.CreateDeal(ctx, &input)
	if err != nil {
		h.respondError(c, "deal", "createDeal", err)
		return
	}
	workflow.AfterDealSaved(ctx, deal, "", true)
	c.JSON(http.StatusCreated, deal)
}

func (h *Handler) updateDeal(c *gin.Context) {
	id, ok := paramId(c, "id", "deal")
	if !ok {
		return
	}
	var input models.NewDeal
	if !h.bindJSON(c, &input) {
		return
	}
	ctx := c.Request.Context()
	deal, previous, err := models.UpdateDeal(ctx, id, &input)
	if err != nil {
		h.respondError(c, "deal", "updateDeal", err)
		return
	}
	workflow.AfterDealSaved(ctx, deal, previous, false)
	c.JSON(http.StatusOK, deal)
}

func (h *Handler) deleteDeal(c *gin.Context) {
	id, ok := paramId(c, "id", "deal")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	deal, err := models.DeleteDeal(ctx, id)
	if err != nil {
		h.respondError(c, "deal", "deleteDeal", err)
		return
	}
	workflow.AfterDealDeleted(ctx, deal)
	c.Status(http.StatusNoContent)
}

// reloadDealSplits re-copies the linked song's ownership into the deal.
func (h *Handler) reloadDealSplits(c *gin.Context) {
	id, ok := paramId(c, "id", "deal")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	deal, err := models.ReloadDealSplits(ctx, id)
	if err != nil {
		h.respondError(c, "deal", "reloadDealSplits", err)
		return
	}
	workflow.AfterDealSaved(ctx, deal, deal.Status, false)
	c.JSON(http.StatusOK, deal)
}

func (h *Handler) dealHistories(c *gin.Context) {
	id, ok := paramId(c, "id", "deal")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := models.GetDeal(ctx, id); err != nil {
		h.respondError(c, "deal", "dealHistories", err)
		return
	}
	histories, err := models.GetDealHistories(ctx, id)
	if err != nil {
		h.respondError(c, "deal", "dealHistories", err)
		return
	}
	if histories == nil {
		histories = []*models.History{}
	}
	c.JSON(http.StatusOK, histories)
}

func (h *Handler) importDeals(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > h.Options.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds the upload size limit"})
		return
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if ext != ".xlsx" && ext != ".csv" {
		c.JSON(http.StatusBadRequest, gin.H{"error": workflow.ErrUnsupportedImportFormat.Error()})
		return
	}
	if mimeType := baseMimeType(fileHeader.Header.Get("Content-Type")); mimeType != "" && !importMimeTypes[mimeType] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	defer file.Close()

	result, err := workflow.ImportDeals(c.Request.Context(), fileHeader.Filename, file)
	if err != nil {
		if errors.Is(err, workflow.ErrUnsupportedImportFormat) || errors.Is(err, workflow.ErrInvalidImportFile) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.respondError(c, "deal", "importDeals", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func baseMimeType(contentType string) string {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
