package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jonassync/licensing_backend/models"
)

type pitchAnalyzeRequest struct {
	SongId int    `json:"songId" binding:"required,min=1"`
	Brief  string `json:"brief" binding:"required"`
}

type lyricsRequest struct {
	Lyrics string `json:"lyrics"`
	SongId *int   `json:"songId"`
}

type contractRequest struct {
	DealId     int  `json:"dealId" binding:"required,min=1"`
	TemplateId *int `json:"templateId"`
}

func (h *Handler) smartPitchAnalyze(c *gin.Context) {
	var req pitchAnalyzeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.Assistant.AnalyzePitch(c.Request.Context(), req.SongId, req.Brief)
	if err != nil {
		h.respondError(c, "song", "smartPitchAnalyze", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

func (h *Handler) analyzeLyrics(c *gin.Context) {
	var req lyricsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if req.Lyrics == "" && req.SongId == nil {
		h.respondError(c, "song", "analyzeLyrics", &models.ValidationError{
			Fields: []models.FieldError{{Field: "lyrics", Message: "lyrics or songId is required"}},
		})
		return
	}
	result, err := h.Assistant.AnalyzeLyrics(c.Request.Context(), req.Lyrics, req.SongId)
	if err != nil {
		h.respondError(c, "song", "analyzeLyrics", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

func (h *Handler) generateContract(c *gin.Context) {
	var req contractRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.Assistant.GenerateContract(c.Request.Context(), req.DealId, req.TemplateId)
	if err != nil {
		h.respondError(c, "deal", "generateContract", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}
