package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/utils"
)

type Pitch struct {
	ID             int         `gorm:"primary_key" json:"id"`
	OwnerId        int         `gorm:"index;not null" json:"ownerId"`
	DealId         *int        `gorm:"index" json:"dealId"`
	CustomDealName string      `gorm:"size:255" json:"customDealName"`
	SongId         *int        `gorm:"index" json:"songId"`
	ContactId      *int        `gorm:"index" json:"contactId"`
	Status         PitchStatus `gorm:"size:20;not null;default:pending" json:"status"`
	PitchDate      *MyDate     `json:"pitchDate"`
	FollowUpDate   *MyDate     `json:"followUpDate"`
	Notes          string      `gorm:"type:text" json:"notes"`
	CreatedAt      time.Time   `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time   `gorm:"autoUpdateTime" json:"updatedAt"`
}

type NewPitch struct {
	DealId         *int    `json:"dealId" binding:"omitempty,min=0"`
	CustomDealName *string `json:"customDealName" binding:"omitempty,max=255"`
	SongId         *int    `json:"songId" binding:"omitempty,min=0"`
	ContactId      *int    `json:"contactId" binding:"omitempty,min=0"`
	Status         *string `json:"status"`
	PitchDate      *string `json:"pitchDate"`
	FollowUpDate   *string `json:"followUpDate"`
	Notes          *string `json:"notes"`
}

type PitchFilter struct {
	Status    PitchStatus
	DealId    int
	SongId    int
	ContactId int
}

func NewPitchFilter(filters map[string]string) PitchFilter {
	f := PitchFilter{Status: PitchStatus(strings.TrimSpace(filters["status"]))}
	f.DealId, _ = filterInt(filters, "dealId")
	f.SongId, _ = filterInt(filters, "songId")
	f.ContactId, _ = filterInt(filters, "contactId")
	return f
}

func (input *NewPitch) validate(ctx context.Context, ownerId int, existing *Pitch) error {
	verr := &ValidationError{}
	if input.Status != nil && !PitchStatus(strings.TrimSpace(*input.Status)).IsValid() {
		verr.Add("status", "must be one of pending, responded, no_response")
	}

	// a pitch names a deal or a custom deal; check the merged result
	hasDeal, hasCustom := false, false
	if existing != nil {
		hasDeal = existing.DealId != nil
		hasCustom = strings.TrimSpace(existing.CustomDealName) != ""
	}
	if input.DealId != nil {
		hasDeal = *input.DealId > 0
	}
	if input.CustomDealName != nil {
		hasCustom = strings.TrimSpace(*input.CustomDealName) != ""
	}
	if !hasDeal && !hasCustom {
		verr.Add("dealId", "either dealId or customDealName is required")
	}

	refs := []struct {
		field string
		id    *int
		check func(context.Context, int, interface{}) error
	}{
		{"dealId", input.DealId, utils.ValidateResourceId[Deal]},
		{"songId", input.SongId, utils.ValidateResourceId[Song]},
		{"contactId", input.ContactId, utils.ValidateResourceId[Contact]},
	}
	for _, ref := range refs {
		if ref.id == nil || *ref.id <= 0 {
			continue
		}
		if err := ref.check(ctx, ownerId, *ref.id); err != nil {
			if !errors.Is(err, utils.ErrorRecordNotFound) {
				return err
			}
			verr.Add(ref.field, "not found")
		}
	}
	return verr.Err()
}

func (input *NewPitch) apply(pitch *Pitch) (changeSet, error) {
	cs := changeSet{}
	verr := &ValidationError{}
	setOptionalInt(cs, "deal_id", &pitch.DealId, input.DealId)
	setText(cs, "custom_deal_name", &pitch.CustomDealName, input.CustomDealName)
	setOptionalInt(cs, "song_id", &pitch.SongId, input.SongId)
	setOptionalInt(cs, "contact_id", &pitch.ContactId, input.ContactId)
	if input.Status != nil {
		pitch.Status = PitchStatus(strings.TrimSpace(*input.Status))
		cs["status"] = pitch.Status
	}
	setDate(cs, verr, "pitchDate", "pitch_date", &pitch.PitchDate, input.PitchDate)
	setDate(cs, verr, "followUpDate", "follow_up_date", &pitch.FollowUpDate, input.FollowUpDate)
	setText(cs, "notes", &pitch.Notes, input.Notes)
	return cs, verr.Err()
}

func CreatePitch(ctx context.Context, input *NewPitch) (*Pitch, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, ownerId, nil); err != nil {
		return nil, err
	}

	pitch := Pitch{OwnerId: ownerId, Status: PitchStatusPending}
	if _, err := input.apply(&pitch); err != nil {
		return nil, err
	}
	if pitch.PitchDate == nil {
		pitch.PitchDate = DatePtr(Today())
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&pitch).Error; err != nil {
		return nil, err
	}
	return &pitch, nil
}

func UpdatePitch(ctx context.Context, id int, input *NewPitch) (*Pitch, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	pitch, err := utils.FetchModel[Pitch](ctx, ownerId, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, ownerId, pitch); err != nil {
		return nil, err
	}
	cs, err := input.apply(pitch)
	if err != nil {
		return nil, err
	}
	if len(cs) == 0 {
		return pitch, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(pitch).Updates(map[string]interface{}(cs)).Error; err != nil {
		return nil, err
	}
	return pitch, nil
}

func DeletePitch(ctx context.Context, id int) (*Pitch, error) {
	return deleteOwned[Pitch](ctx, id)
}

func GetPitch(ctx context.Context, id int) (*Pitch, error) {
	return getOwned[Pitch](ctx, id)
}

func GetPitches(ctx context.Context, filter PitchFilter) ([]*Pitch, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("owner_id = ?", ownerId)
	if filter.Status != "" {
		dbCtx = dbCtx.Where("status = ?", filter.Status)
	}
	if filter.DealId > 0 {
		dbCtx = dbCtx.Where("deal_id = ?", filter.DealId)
	}
	if filter.SongId > 0 {
		dbCtx = dbCtx.Where("song_id = ?", filter.SongId)
	}
	if filter.ContactId > 0 {
		dbCtx = dbCtx.Where("contact_id = ?", filter.ContactId)
	}

	var results []*Pitch
	if err := dbCtx.Order("created_at DESC").Order("id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
