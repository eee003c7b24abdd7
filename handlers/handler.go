package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jonassync/licensing_backend/aiassist"
	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/middlewares"
	"github.com/jonassync/licensing_backend/search"
	"github.com/jonassync/licensing_backend/utils"
	"github.com/sirupsen/logrus"
)

// Handler carries the services REST handlers depend on. Storage may be nil,
// in which case attachment uploads answer 503.
type Handler struct {
	Options   config.ServerOptions
	Logger    *logrus.Logger
	Storage   utils.ObjectStorage
	Search    *search.Service
	Assistant *aiassist.Assistant
}

// Ready reports whether the process can serve traffic.
type Ready func(ctx context.Context) error

// Routes registers every route on r. Callers install AuthMiddleware (and
// the rest of the global chain) before calling Routes.
func (h *Handler) Routes(r *gin.Engine, ready Ready) {
	r.GET("/healthz", h.healthz(ready))

	api := r.Group("/api")
	api.POST("/auth/login", h.login)

	authed := api.Group("", middlewares.RequireAuth())
	authed.POST("/auth/logout", h.logout)
	authed.GET("/auth/user", h.currentUser)

	// fixed paths go before /:id
	authed.GET("/songs/search", h.searchSongs)
	songRoutes(h).register(authed, "/songs")
	contactRoutes(h).register(authed, "/contacts")

	authed.POST("/deals/import", h.importDeals)
	authed.GET("/deals", h.listDeals)
	authed.GET("/deals/:id", h.getDeal)
	authed.POST("/deals", h.createDeal)
	authed.PUT("/deals/:id", h.updateDeal)
	authed.PATCH("/deals/:id", h.updateDeal)
	authed.DELETE("/deals/:id", h.deleteDeal)
	authed.POST("/deals/:id/reload-splits", h.reloadDealSplits)
	authed.GET("/deals/:id/histories", h.dealHistories)

	pitchRoutes(h).register(authed, "/pitches")
	paymentRoutes(h).register(authed, "/payments")
	templateRoutes(h).register(authed, "/templates")
	calendarEventRoutes(h).register(authed, "/calendar-events")

	authed.GET("/playlists/:id/songs", h.playlistSongs)
	playlistRoutes(h).register(authed, "/playlists")

	automations := automationRoutes(h)
	automations.register(authed, "/workflow-automations")
	automations.register(authed, "/workflow-automation")

	authed.GET("/saved-searches/:id/run", h.runSavedSearch)
	savedSearchRoutes(h).register(authed, "/saved-searches")

	authed.GET("/attachments", h.listAttachments)
	authed.GET("/attachments/:id", h.getAttachment)
	authed.POST("/attachments", h.uploadAttachment)
	authed.DELETE("/attachments/:id", h.deleteAttachment)

	authed.GET("/income", h.incomeReport)
	authed.GET("/income/export", h.exportIncome)
	authed.PATCH("/income/:dealId/:kind/:index", h.updateIncomeEntry)

	authed.GET("/analytics/pipeline", h.pipeline)
	authed.GET("/analytics/summary", h.summary)

	authed.POST("/smart-pitch-analyze", h.smartPitchAnalyze)
	authed.POST("/analyze-lyrics", h.analyzeLyrics)
	authed.POST("/generate-contract", h.generateContract)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
}

func (h *Handler) healthz(ready Ready) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ready != nil {
			if err := ready(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
