package handlers

import (
	"context"

	"github.com/jonassync/licensing_backend/models"
	"github.com/jonassync/licensing_backend/workflow"
)

func songRoutes(h *Handler) resource[models.Song, models.NewSong] {
	return resource[models.Song, models.NewSong]{
		h:      h,
		entity: "song",
		list: func(ctx context.Context, filters map[string]string) ([]*models.Song, error) {
			return models.GetSongs(ctx, models.NewSongFilter(filters))
		},
		get:    models.GetSong,
		create: models.CreateSong,
		update: models.UpdateSong,
		remove: models.DeleteSong,
		afterSave: func(_ context.Context, song *models.Song) {
			h.Search.IndexSong(song)
		},
		afterDelete: func(_ context.Context, song *models.Song) {
			h.Search.DeleteSong(song.ID)
		},
	}
}

func contactRoutes(h *Handler) resource[models.Contact, models.NewContact] {
	return resource[models.Contact, models.NewContact]{
		h:      h,
		entity: "contact",
		list: func(ctx context.Context, filters map[string]string) ([]*models.Contact, error) {
			return models.GetContacts(ctx, models.NewContactFilter(filters))
		},
		get:    models.GetContact,
		create: models.CreateContact,
		update: models.UpdateContact,
		remove: models.DeleteContact,
	}
}

func pitchRoutes(h *Handler) resource[models.Pitch, models.NewPitch] {
	return resource[models.Pitch, models.NewPitch]{
		h:      h,
		entity: "pitch",
		list: func(ctx context.Context, filters map[string]string) ([]*models.Pitch, error) {
			return models.GetPitches(ctx, models.NewPitchFilter(filters))
		},
		get:    models.GetPitch,
		create: models.CreatePitch,
		update: models.UpdatePitch,
		remove: models.DeletePitch,
		afterSave: func(ctx context.Context, _ *models.Pitch) {
			h.invalidateReports(ctx)
		},
		afterDelete: func(ctx context.Context, _ *models.Pitch) {
			h.invalidateReports(ctx)
		},
	}
}

func paymentRoutes(h *Handler) resource[models.Payment, models.NewPayment] {
	return resource[models.Payment, models.NewPayment]{
		h:      h,
		entity: "payment",
		list: func(ctx context.Context, filters map[string]string) ([]*models.Payment, error) {
			return models.GetPayments(ctx, models.NewPaymentFilter(filters))
		},
		get:         models.GetPayment,
		create:      models.CreatePayment,
		update:      models.UpdatePayment,
		remove:      models.DeletePayment,
		afterSave:   workflow.AfterPaymentSaved,
		afterDelete: workflow.AfterPaymentSaved,
	}
}

func templateRoutes(h *Handler) resource[models.Template, models.NewTemplate] {
	return resource[models.Template, models.NewTemplate]{
		h:      h,
		entity: "template",
		list: func(ctx context.Context, filters map[string]string) ([]*models.Template, error) {
			return models.GetTemplates(ctx, filters["templateType"])
		},
		get:    models.GetTemplate,
		create: models.CreateTemplate,
		update: models.UpdateTemplate,
		remove: models.DeleteTemplate,
	}
}

func calendarEventRoutes(h *Handler) resource[models.CalendarEvent, models.NewCalendarEvent] {
	return resource[models.CalendarEvent, models.NewCalendarEvent]{
		h:      h,
		entity: "calendar event",
		list: func(ctx context.Context, filters map[string]string) ([]*models.CalendarEvent, error) {
			return models.GetCalendarEvents(ctx, models.NewCalendarEventFilter(filters))
		},
		get:    models.GetCalendarEvent,
		create: models.CreateCalendarEvent,
		update: models.UpdateCalendarEvent,
		remove: models.DeleteCalendarEvent,
	}
}

func playlistRoutes(h *Handler) resource[models.Playlist, models.NewPlaylist] {
	return resource[models.Playlist, models.NewPlaylist]{
		h:      h,
		entity: "playlist",
		list: func(ctx context.Context, _ map[string]string) ([]*models.Playlist, error) {
			return models.GetPlaylists(ctx)
		},
		get:    models.GetPlaylist,
		create: models.CreatePlaylist,
		update: models.UpdatePlaylist,
		remove: models.DeletePlaylist,
	}
}

func automationRoutes(h *Handler) resource[models.WorkflowAutomation, models.NewWorkflowAutomation] {
	return resource[models.WorkflowAutomation, models.NewWorkflowAutomation]{
		h:      h,
		entity: "workflow automation",
		list: func(ctx context.Context, _ map[string]string) ([]*models.WorkflowAutomation, error) {
			return models.GetWorkflowAutomations(ctx)
		},
		get:    models.GetWorkflowAutomation,
		create: models.CreateWorkflowAutomation,
		update: models.UpdateWorkflowAutomation,
		remove: models.DeleteWorkflowAutomation,
	}
}

func savedSearchRoutes(h *Handler) resource[models.SavedSearch, models.NewSavedSearch] {
	return resource[models.SavedSearch, models.NewSavedSearch]{
		h:      h,
		entity: "saved search",
		list: func(ctx context.Context, filters map[string]string) ([]*models.SavedSearch, error) {
			return models.GetSavedSearches(ctx, filters["entity"])
		},
		get:    models.GetSavedSearch,
		create: models.CreateSavedSearch,
		update: models.UpdateSavedSearch,
		remove: models.DeleteSavedSearch,
	}
}
