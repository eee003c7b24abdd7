package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jonassync/licensing_backend/models"
)

const defaultSearchLimit = 50

func (h *Handler) searchSongs(c *gin.Context) {
	limit := defaultSearchLimit
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	songs, engine, err := h.Search.SearchSongs(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		h.respondError(c, "song", "searchSongs", err)
		return
	}
	if songs == nil {
		songs = []*models.Song{}
	}
	c.JSON(http.StatusOK, gin.H{"results": songs, "engine": engine})
}

func (h *Handler) playlistSongs(c *gin.Context) {
	id, ok := paramId(c, "id", "playlist")
	if !ok {
		return
	}
	songs, err := models.GetPlaylistSongs(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "playlist", "playlistSongs", err)
		return
	}
	c.JSON(http.StatusOK, songs)
}

func (h *Handler) runSavedSearch(c *gin.Context) {
	id, ok := paramId(c, "id", "saved search")
	if !ok {
		return
	}
	saved, results, err := models.RunSavedSearch(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "saved search", "runSavedSearch", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"search": saved, "results": results})
}
