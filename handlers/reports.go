package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/models"
	"github.com/jonassync/licensing_backend/models/reports"
	"github.com/jonassync/licensing_backend/utils"
)

func (h *Handler) incomeReport(c *gin.Context) {
	report, err := models.GetIncomeReport(c.Request.Context())
	if err != nil {
		h.respondError(c, "income", "incomeReport", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) exportIncome(c *gin.Context) {
	var buf bytes.Buffer
	if err := reports.ExportIncome(c.Request.Context(), &buf); err != nil {
		h.respondError(c, "income", "exportIncome", err)
		return
	}
	fileName := fmt.Sprintf("income-%s.xlsx", models.Today().String())
	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Data(http.StatusOK, reports.IncomeWorkbookContentType, buf.Bytes())
}

func (h *Handler) updateIncomeEntry(c *gin.Context) {
	dealId, ok := paramId(c, "dealId", "income entry")
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "income entry not found"})
		return
	}
	var input models.IncomeEntryInput
	if !h.bindJSON(c, &input) {
		return
	}
	ctx := c.Request.Context()
	entry, err := models.UpdateIncomeEntry(ctx, dealId, models.IncomeKind(c.Param("kind")), index, &input)
	if err != nil {
		h.respondError(c, "income entry", "updateIncomeEntry", err)
		return
	}
	h.invalidateReports(ctx)
	c.JSON(http.StatusOK, entry)
}

func (h *Handler) pipeline(c *gin.Context) {
	rows, err := reports.GetDealPipeline(c.Request.Context())
	if err != nil {
		h.respondError(c, "pipeline", "pipeline", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) summary(c *gin.Context) {
	summary, err := reports.GetSummary(c.Request.Context())
	if err != nil {
		h.respondError(c, "summary", "summary", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) invalidateReports(ctx context.Context) {
	ownerId, ok := utils.GetOwnerIdFromContext(ctx)
	if !ok {
		return
	}
	if err := reports.InvalidateReports(ctx, ownerId); err != nil {
		config.LogError(h.Logger, "handlers", "invalidateReports", "removing cached reports", ownerId, err)
	}
}
