package models

import (
	"context"
	"strings"
	"time"

	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/utils"
)

type Attachment struct {
	ID           int       `gorm:"primary_key" json:"id"`
	OwnerId      int       `gorm:"index;not null" json:"ownerId"`
	FileName     string    `gorm:"size:255;not null" json:"fileName"`
	MimeType     string    `gorm:"size:100" json:"mimeType"`
	Size         int64     `gorm:"not null;default:0" json:"size"`
	ObjectKey    string    `gorm:"size:512;not null" json:"objectKey"`
	Url          string    `gorm:"size:1024" json:"url"`
	ThumbnailKey string    `gorm:"size:512" json:"-"`
	ThumbnailUrl *string   `gorm:"size:1024" json:"thumbnailUrl"`
	EntityType   string    `gorm:"size:20;not null;index:idx_attachment_entity,priority:1" json:"entityType"`
	EntityId     int       `gorm:"not null;index:idx_attachment_entity,priority:2" json:"entityId"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// NewAttachment describes an object already written to storage.
type NewAttachment struct {
	FileName     string
	MimeType     string
	Size         int64
	ObjectKey    string
	Url          string
	ThumbnailKey string
	ThumbnailUrl string
	EntityType   string
	EntityId     int
}

// entity type -> table
var attachableTables = map[string]string{
	EntityTypeSong:    "songs",
	EntityTypeContact: "contacts",
	EntityTypeDeal:    "deals",
	EntityTypePitch:   "pitches",
	EntityTypePayment: "payments",
}

// ValidateEntityReference checks that the polymorphic reference points at
// one of the owner's records.
func ValidateEntityReference(ctx context.Context, entityType string, entityId int) error {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return err
	}
	table, ok := attachableTables[strings.TrimSpace(entityType)]
	if !ok {
		return fieldError("entityType", "must be one of song, contact, deal, pitch, payment")
	}
	if entityId <= 0 {
		return fieldError("entityId", "is required")
	}

	var count int64
	db := config.GetDB()
	if err := db.WithContext(ctx).Table(table).Where("owner_id = ? AND id = ?", ownerId, entityId).Count(&count).Error; err != nil {
		return err
	}
	if count <= 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

func CreateAttachment(ctx context.Context, input *NewAttachment) (*Attachment, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	if err := ValidateEntityReference(ctx, input.EntityType, input.EntityId); err != nil {
		return nil, err
	}

	attachment := Attachment{
		OwnerId:      ownerId,
		FileName:     utils.SanitizeText(input.FileName),
		MimeType:     input.MimeType,
		Size:         input.Size,
		ObjectKey:    input.ObjectKey,
		Url:          input.Url,
		ThumbnailKey: input.ThumbnailKey,
		ThumbnailUrl: utils.NilIfEmpty(input.ThumbnailUrl),
		EntityType:   input.EntityType,
		EntityId:     input.EntityId,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&attachment).Error; err != nil {
		return nil, err
	}
	return &attachment, nil
}

func GetAttachment(ctx context.Context, id int) (*Attachment, error) {
	return getOwned[Attachment](ctx, id)
}

func GetAttachments(ctx context.Context, entityType string, entityId int) ([]*Attachment, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("owner_id = ?", ownerId)
	if entityType != "" {
		dbCtx = dbCtx.Where("entity_type = ?", entityType)
	}
	if entityId > 0 {
		dbCtx = dbCtx.Where("entity_id = ?", entityId)
	}
	var results []*Attachment
	if err := dbCtx.Order("created_at DESC").Order("id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// DeleteAttachment removes the row; the caller removes the stored objects.
func DeleteAttachment(ctx context.Context, id int) (*Attachment, error) {
	return deleteOwned[Attachment](ctx, id)
}
