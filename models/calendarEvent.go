package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/utils"
	"gorm.io/gorm"
)

type CalendarEvent struct {
	ID              int               `gorm:"primary_key" json:"id"`
	OwnerId         int               `gorm:"index;not null" json:"ownerId"`
	Title           string            `gorm:"size:255;not null" json:"title"`
	Description     string            `gorm:"type:text" json:"description"`
	StartDate       MyDate            `gorm:"not null;index" json:"startDate"`
	EndDate         *MyDate           `json:"endDate"`
	AllDay          bool              `gorm:"not null" json:"allDay"`
	EventType       CalendarEventType `gorm:"size:20;not null;default:other" json:"eventType"`
	EntityType      string            `gorm:"size:20;index:idx_event_entity,priority:1" json:"entityType"`
	EntityId        *int              `gorm:"index:idx_event_entity,priority:2" json:"entityId"`
	IsAutoGenerated bool              `gorm:"not null;default:false" json:"isAutoGenerated"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime" json:"updatedAt"`
}

type NewCalendarEvent struct {
	Title       *string `json:"title" binding:"omitempty,max=255"`
	Description *string `json:"description"`
	StartDate   *string `json:"startDate"`
	EndDate     *string `json:"endDate"`
	AllDay      *bool   `json:"allDay"`
	EventType   *string `json:"eventType"`
	EntityType  *string `json:"entityType"`
	EntityId    *int    `json:"entityId" binding:"omitempty,min=0"`
}

type CalendarEventFilter struct {
	From       *MyDate
	To         *MyDate
	EventType  CalendarEventType
	EntityType string
	EntityId   int
}

func NewCalendarEventFilter(filters map[string]string) CalendarEventFilter {
	f := CalendarEventFilter{
		EventType:  CalendarEventType(strings.TrimSpace(filters["eventType"])),
		EntityType: strings.TrimSpace(filters["entityType"]),
	}
	if d, err := ParseMyDate(filters["from"]); err == nil {
		f.From = &d
	}
	if d, err := ParseMyDate(filters["to"]); err == nil {
		f.To = &d
	}
	f.EntityId, _ = filterInt(filters, "entityId")
	return f
}

func (input *NewCalendarEvent) validate(ctx context.Context, ownerId int, id int) error {
	verr := &ValidationError{}
	if id == 0 || input.Title != nil {
		requireText(verr, "title", input.Title)
	}
	if id == 0 || input.StartDate != nil {
		requireText(verr, "startDate", input.StartDate)
	}
	if input.EventType != nil && !CalendarEventType(strings.TrimSpace(*input.EventType)).IsValid() {
		verr.Add("eventType", "must be one of meeting, deadline, air_date, follow_up, payment_due, other")
	}
	if input.EntityType != nil && strings.TrimSpace(*input.EntityType) != "" && !IsValidEntityType(strings.TrimSpace(*input.EntityType)) {
		verr.Add("entityType", "must be one of song, contact, deal, pitch, payment")
	}
	return verr.Err()
}

func (input *NewCalendarEvent) apply(event *CalendarEvent) (changeSet, error) {
	cs := changeSet{}
	verr := &ValidationError{}
	setText(cs, "title", &event.Title, input.Title)
	setText(cs, "description", &event.Description, input.Description)
	if input.StartDate != nil && strings.TrimSpace(*input.StartDate) != "" {
		d, err := ParseMyDate(*input.StartDate)
		if err != nil {
			verr.Add("startDate", "must be a date in YYYY-MM-DD format")
		} else {
			event.StartDate = d
			cs["start_date"] = d
		}
	}
	setDate(cs, verr, "endDate", "end_date", &event.EndDate, input.EndDate)
	setValue(cs, "all_day", &event.AllDay, input.AllDay)
	if input.EventType != nil {
		event.EventType = CalendarEventType(strings.TrimSpace(*input.EventType))
		cs["event_type"] = event.EventType
	}
	setText(cs, "entity_type", &event.EntityType, input.EntityType)
	setOptionalInt(cs, "entity_id", &event.EntityId, input.EntityId)
	if event.EndDate != nil && event.EndDate.Before(event.StartDate) {
		verr.Add("endDate", "must not be before startDate")
	}
	return cs, verr.Err()
}

func CreateCalendarEvent(ctx context.Context, input *NewCalendarEvent) (*CalendarEvent, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, ownerId, 0); err != nil {
		return nil, err
	}

	event := CalendarEvent{OwnerId: ownerId, AllDay: true, EventType: CalendarEventOther}
	if _, err := input.apply(&event); err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func UpdateCalendarEvent(ctx context.Context, id int, input *NewCalendarEvent) (*CalendarEvent, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, ownerId, id); err != nil {
		return nil, err
	}

	event, err := utils.FetchModel[CalendarEvent](ctx, ownerId, id)
	if err != nil {
		return nil, err
	}
	cs, err := input.apply(event)
	if err != nil {
		return nil, err
	}
	if len(cs) == 0 {
		return event, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(event).Updates(map[string]interface{}(cs)).Error; err != nil {
		return nil, err
	}
	return event, nil
}

func DeleteCalendarEvent(ctx context.Context, id int) (*CalendarEvent, error) {
	return deleteOwned[CalendarEvent](ctx, id)
}

func GetCalendarEvent(ctx context.Context, id int) (*CalendarEvent, error) {
	return getOwned[CalendarEvent](ctx, id)
}

func GetCalendarEvents(ctx context.Context, filter CalendarEventFilter) ([]*CalendarEvent, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("owner_id = ?", ownerId)
	if filter.From != nil {
		dbCtx = dbCtx.Where("start_date >= ?", *filter.From)
	}
	if filter.To != nil {
		dbCtx = dbCtx.Where("start_date <= ?", *filter.To)
	}
	if filter.EventType != "" {
		dbCtx = dbCtx.Where("event_type = ?", filter.EventType)
	}
	if filter.EntityType != "" {
		dbCtx = dbCtx.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityId > 0 {
		dbCtx = dbCtx.Where("entity_id = ?", filter.EntityId)
	}

	var results []*CalendarEvent
	if err := dbCtx.Order("start_date").Order("id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// UpsertAirDateReminder keeps exactly one auto-generated air_date event per
// deal in line with the deal's air date. A deal without an air date loses
// its reminder.
func UpsertAirDateReminder(ctx context.Context, deal *Deal) (*CalendarEvent, error) {
	db := config.GetDB()
	var existing CalendarEvent
	err := db.WithContext(ctx).
		Where("owner_id = ? AND entity_type = ? AND entity_id = ? AND event_type = ? AND is_auto_generated = ?",
			deal.OwnerId, EntityTypeDeal, deal.ID, CalendarEventAirDate, true).
		First(&existing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	found := err == nil

	if deal.AirDate == nil {
		if found {
			if err := db.WithContext(ctx).Delete(&existing).Error; err != nil {
				return nil, err
			}
		}
		return nil, nil
	}

	title := "Air date: " + deal.ProjectName
	if !found {
		dealId := deal.ID
		event := CalendarEvent{
			OwnerId:         deal.OwnerId,
			Title:           title,
			StartDate:       *deal.AirDate,
			AllDay:          true,
			EventType:       CalendarEventAirDate,
			EntityType:      EntityTypeDeal,
			EntityId:        &dealId,
			IsAutoGenerated: true,
		}
		if err := db.WithContext(ctx).Create(&event).Error; err != nil {
			return nil, err
		}
		return &event, nil
	}

	if existing.Title == title && existing.StartDate.String() == deal.AirDate.String() {
		return &existing, nil
	}
	existing.Title = title
	existing.StartDate = *deal.AirDate
	err = db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
		"title":      title,
		"start_date": existing.StartDate,
	}).Error
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

// DeleteEntityEvents removes the auto-generated events linked to an entity.
func DeleteEntityEvents(ctx context.Context, ownerId int, entityType string, entityId int) error {
	db := config.GetDB()
	return db.WithContext(ctx).
		Where("owner_id = ? AND entity_type = ? AND entity_id = ? AND is_auto_generated = ?", ownerId, entityType, entityId, true).
		Delete(&CalendarEvent{}).Error
}
