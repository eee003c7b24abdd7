package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonassync/licensing_backend/middlewares"
	"github.com/jonassync/licensing_backend/models"
	"github.com/jonassync/licensing_backend/utils"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if !h.bindJSON(c, &req) {
		return
	}
	info, err := models.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": err.Error()})
			return
		}
		h.respondError(c, "user", "login", err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handler) logout(c *gin.Context) {
	ctx := c.Request.Context()
	claims := middlewares.CtxValue(ctx)
	if claims == nil {
		h.respondError(c, "user", "logout", utils.ErrorUnauthorized)
		return
	}
	revoked, err := models.Logout(ctx, time.Unix(claims.ExpiresAt, 0))
	if err != nil {
		h.respondError(c, "user", "logout", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": revoked})
}

func (h *Handler) currentUser(c *gin.Context) {
	ctx := c.Request.Context()
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		h.respondError(c, "user", "currentUser", utils.ErrorUnauthorized)
		return
	}
	user, err := models.GetUser(ctx, userId)
	if err != nil {
		h.respondError(c, "user", "currentUser", err)
		return
	}
	c.JSON(http.StatusOK, user)
}
