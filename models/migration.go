package models

import (
	"github.com/jonassync/licensing_backend/config"
)

func MigrateTable() error {
	db := config.GetDB()

	return db.AutoMigrate(
		&User{},
		&Song{}, &Contact{}, &Deal{}, &Pitch{}, &Payment{},
		&Template{}, &CalendarEvent{}, &Attachment{},
		&Playlist{}, &WorkflowAutomation{}, &SavedSearch{},
		&History{},
	)
}
