package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Deal struct {
	ID                  int                                    `gorm:"primary_key" json:"id"`
	OwnerId             int                                    `gorm:"index;not null" json:"ownerId"`
	ProjectName         string                                 `gorm:"size:255;not null" json:"projectName"`
	SongId              *int                                   `gorm:"index" json:"songId"`
	ContactId           *int                                   `gorm:"index" json:"contactId"`
	Status              DealStatus                             `gorm:"size:30;not null;default:new_request;index" json:"status"`
	PitchedDate         *MyDate                                `json:"pitchedDate"`
	PendingApprovalDate *MyDate                                `json:"pendingApprovalDate"`
	QuotedDate          *MyDate                                `json:"quotedDate"`
	UseConfirmedDate    *MyDate                                `json:"useConfirmedDate"`
	BeingDraftedDate    *MyDate                                `json:"beingDraftedDate"`
	OutForSignatureDate *MyDate                                `json:"outForSignatureDate"`
	PaymentReceivedDate *MyDate                                `json:"paymentReceivedDate"`
	CompletedDate       *MyDate                                `json:"completedDate"`
	ProjectType         ProjectType                            `gorm:"size:20" json:"projectType"`
	Territory           string                                 `gorm:"size:255" json:"territory"`
	Term                string                                 `gorm:"size:255" json:"term"`
	Media               string                                 `gorm:"size:255" json:"media"`
	Usage               string                                 `gorm:"size:255" json:"usage"`
	SceneDescription    string                                 `gorm:"type:text" json:"sceneDescription"`
	AirDate             *MyDate                                `gorm:"index" json:"airDate"`
	FullSongValue       decimal.Decimal                        `gorm:"type:decimal(20,2);not null;default:0" json:"fullSongValue"`
	OurFee              decimal.Decimal                        `gorm:"type:decimal(20,2);not null;default:0" json:"ourFee"`
	FullRecordingFee    decimal.Decimal                        `gorm:"type:decimal(20,2);not null;default:0" json:"fullRecordingFee"`
	OurRecordingFee     decimal.Decimal                        `gorm:"type:decimal(20,2);not null;default:0" json:"ourRecordingFee"`
	Splits              string                                 `gorm:"type:text" json:"splits"`
	ComposerPublishers  datatypes.JSONSlice[ComposerPublisher] `json:"composerPublishers"`
	ArtistLabels        datatypes.JSONSlice[ArtistLabel]       `json:"artistLabels"`
	Notes               string                                 `gorm:"type:text" json:"notes"`
	CreatedAt           time.Time                              `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt           time.Time                              `gorm:"autoUpdateTime" json:"updatedAt"`
}

type NewDeal struct {
	ProjectName         *string              `json:"projectName" binding:"omitempty,max=255"`
	SongId              *int                 `json:"songId" binding:"omitempty,min=0"`
	ContactId           *int                 `json:"contactId" binding:"omitempty,min=0"`
	Status              *string              `json:"status"`
	PitchedDate         *string              `json:"pitchedDate"`
	PendingApprovalDate *string              `json:"pendingApprovalDate"`
	QuotedDate          *string              `json:"quotedDate"`
	UseConfirmedDate    *string              `json:"useConfirmedDate"`
	BeingDraftedDate    *string              `json:"beingDraftedDate"`
	OutForSignatureDate *string              `json:"outForSignatureDate"`
	PaymentReceivedDate *string              `json:"paymentReceivedDate"`
	CompletedDate       *string              `json:"completedDate"`
	ProjectType         *string              `json:"projectType"`
	Territory           *string              `json:"territory" binding:"omitempty,max=255"`
	Term                *string              `json:"term" binding:"omitempty,max=255"`
	Media               *string              `json:"media" binding:"omitempty,max=255"`
	Usage               *string              `json:"usage" binding:"omitempty,max=255"`
	SceneDescription    *string              `json:"sceneDescription"`
	AirDate             *string              `json:"airDate"`
	FullSongValue       *decimal.Decimal     `json:"fullSongValue"`
	OurFee              *decimal.Decimal     `json:"ourFee"`
	FullRecordingFee    *decimal.Decimal     `json:"fullRecordingFee"`
	OurRecordingFee     *decimal.Decimal     `json:"ourRecordingFee"`
	Splits              *string              `json:"splits"`
	ComposerPublishers  *[]ComposerPublisher `json:"composerPublishers"`
	ArtistLabels        *[]ArtistLabel       `json:"artistLabels"`
	Notes               *string              `json:"notes"`
}

type DealFilter struct {
	Query       string
	Status      DealStatus
	ProjectType ProjectType
	SongId      int
	ContactId   int
	AirFrom     *MyDate
	AirTo       *MyDate
}

func NewDealFilter(filters map[string]string) DealFilter {
	f := DealFilter{
		Query:       strings.TrimSpace(filters["q"]),
		ProjectType: ProjectType(strings.TrimSpace(filters["projectType"])),
	}
	if s, ok := ParseDealStatus(filters["status"]); ok {
		f.Status = s
	}
	f.SongId, _ = filterInt(filters, "songId")
	f.ContactId, _ = filterInt(filters, "contactId")
	if d, err := ParseMyDate(filters["airDateFrom"]); err == nil {
		f.AirFrom = &d
	}
	if d, err := ParseMyDate(filters["airDateTo"]); err == nil {
		f.AirTo = &d
	}
	return f
}

func (input *NewDeal) validate(ctx context.Context, ownerId int, id int) error {
	verr := &ValidationError{}
	if id == 0 || input.ProjectName != nil {
		requireText(verr, "projectName", input.ProjectName)
	}
	if input.Status != nil {
		if _, ok := ParseDealStatus(*input.Status); !ok {
			verr.Add("status", "must be one of "+joinStatuses())
		}
	}
	if input.ProjectType != nil && strings.TrimSpace(*input.ProjectType) != "" {
		if !ProjectType(strings.TrimSpace(*input.ProjectType)).IsValid() {
			verr.Add("projectType", "must be one of film, tv, advertising, trailer, game, other")
		}
	}
	if input.SongId != nil && *input.SongId > 0 {
		if err := utils.ValidateResourceId[Song](ctx, ownerId, *input.SongId); err != nil {
			if !errors.Is(err, utils.ErrorRecordNotFound) {
				return err
			}
			verr.Add("songId", "song not found")
		}
	}
	if input.ContactId != nil && *input.ContactId > 0 {
		if err := utils.ValidateResourceId[Contact](ctx, ownerId, *input.ContactId); err != nil {
			if !errors.Is(err, utils.ErrorRecordNotFound) {
				return err
			}
			verr.Add("contactId", "contact not found")
		}
	}
	if input.ComposerPublishers != nil {
		validateOwnership(verr, "composerPublishers", composerPercents(*input.ComposerPublishers))
	}
	if input.ArtistLabels != nil {
		validateOwnership(verr, "artistLabels", artistPercents(*input.ArtistLabels))
	}
	return verr.Err()
}

func joinStatuses() string {
	statuses := DealStatuses()
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// apply copies present fields onto deal, stamps the status date and
// recalculates derived fees whose drivers changed.
func (input *NewDeal) apply(deal *Deal, now time.Time) (changeSet, error) {
	cs := changeSet{}
	verr := &ValidationError{}

	setText(cs, "project_name", &deal.ProjectName, input.ProjectName)
	setOptionalInt(cs, "song_id", &deal.SongId, input.SongId)
	setOptionalInt(cs, "contact_id", &deal.ContactId, input.ContactId)
	if input.ProjectType != nil {
		deal.ProjectType = ProjectType(strings.TrimSpace(*input.ProjectType))
		cs["project_type"] = deal.ProjectType
	}
	setText(cs, "territory", &deal.Territory, input.Territory)
	setText(cs, "term", &deal.Term, input.Term)
	setText(cs, "media", &deal.Media, input.Media)
	setText(cs, "usage", &deal.Usage, input.Usage)
	setText(cs, "scene_description", &deal.SceneDescription, input.SceneDescription)
	setText(cs, "notes", &deal.Notes, input.Notes)

	setDate(cs, verr, "pitchedDate", "pitched_date", &deal.PitchedDate, input.PitchedDate)
	setDate(cs, verr, "pendingApprovalDate", "pending_approval_date", &deal.PendingApprovalDate, input.PendingApprovalDate)
	setDate(cs, verr, "quotedDate", "quoted_date", &deal.QuotedDate, input.QuotedDate)
	setDate(cs, verr, "useConfirmedDate", "use_confirmed_date", &deal.UseConfirmedDate, input.UseConfirmedDate)
	setDate(cs, verr, "beingDraftedDate", "being_drafted_date", &deal.BeingDraftedDate, input.BeingDraftedDate)
	setDate(cs, verr, "outForSignatureDate", "out_for_signature_date", &deal.OutForSignatureDate, input.OutForSignatureDate)
	setDate(cs, verr, "paymentReceivedDate", "payment_received_date", &deal.PaymentReceivedDate, input.PaymentReceivedDate)
	setDate(cs, verr, "completedDate", "completed_date", &deal.CompletedDate, input.CompletedDate)
	setDate(cs, verr, "airDate", "air_date", &deal.AirDate, input.AirDate)

	setMoney(cs, verr, "fullSongValue", "full_song_value", &deal.FullSongValue, input.FullSongValue)
	setMoney(cs, verr, "ourFee", "our_fee", &deal.OurFee, input.OurFee)
	setMoney(cs, verr, "fullRecordingFee", "full_recording_fee", &deal.FullRecordingFee, input.FullRecordingFee)
	setMoney(cs, verr, "ourRecordingFee", "our_recording_fee", &deal.OurRecordingFee, input.OurRecordingFee)

	setText(cs, "splits", &deal.Splits, input.Splits)
	if input.ComposerPublishers != nil {
		deal.ComposerPublishers = normalizeComposerPublishers(*input.ComposerPublishers)
		cs["composer_publishers"] = deal.ComposerPublishers
	}
	if input.ArtistLabels != nil {
		deal.ArtistLabels = normalizeArtistLabels(*input.ArtistLabels)
		cs["artist_labels"] = deal.ArtistLabels
	}

	if input.Status != nil {
		status, _ := ParseDealStatus(*input.Status)
		deal.Status = status
		cs["status"] = status
	}
	if deal.Status != "" && (input.Status != nil || deal.ID == 0) {
		if StampStatusDate(deal, string(deal.Status), now) {
			cs[deal.Status.DateColumn()] = *deal.StatusDate(deal.Status)
		}
	}

	deal.recalculateFees(cs, feeDrivers{
		fullSongValue:      input.FullSongValue != nil,
		fullRecordingFee:   input.FullRecordingFee != nil,
		composerPublishers: input.ComposerPublishers != nil,
		artistLabels:       input.ArtistLabels != nil,
		splits:             input.Splits != nil,
	})
	return cs, verr.Err()
}

// feeDrivers records which inputs of the two fee chains changed.
type feeDrivers struct {
	fullSongValue      bool
	fullRecordingFee   bool
	composerPublishers bool
	artistLabels       bool
	splits             bool
}

// recalculateFees overwrites ourFee / ourRecordingFee when their drivers
// changed. Ownership or splits changes on a deal without a full fee leave a
// manually entered derived fee in place.
func (deal *Deal) recalculateFees(cs changeSet, changed feeDrivers) {
	if changed.fullSongValue || ((changed.composerPublishers || changed.splits) && deal.FullSongValue.IsPositive()) {
		deal.OurFee = PublishingFee(deal.FullSongValue, deal.ComposerPublishers, deal.Splits)
		cs["our_fee"] = deal.OurFee
	}
	if changed.fullRecordingFee || ((changed.artistLabels || changed.splits) && deal.FullRecordingFee.IsPositive()) {
		deal.OurRecordingFee = RecordingFee(deal.FullRecordingFee, deal.ArtistLabels, deal.Splits)
		cs["our_recording_fee"] = deal.OurRecordingFee
	}
}

// copySongSnapshot copies the song's ownership onto the deal. Income
// tracking (jonasShare, paymentDate) is kept for entries that still match
// by party and counterparty.
func (deal *Deal) copySongSnapshot(song *Song) {
	previousCP := deal.ComposerPublishers
	cps := make([]ComposerPublisher, len(song.ComposerPublishers))
	for i, e := range song.ComposerPublishers {
		e.JonasShare, e.PaymentDate = nil, nil
		for _, old := range previousCP {
			if strings.EqualFold(old.Composer, e.Composer) && strings.EqualFold(old.Publisher, e.Publisher) {
				e.JonasShare, e.PaymentDate = old.JonasShare, old.PaymentDate
				break
			}
		}
		cps[i] = e
	}
	previousAL := deal.ArtistLabels
	als := make([]ArtistLabel, len(song.ArtistLabels))
	for i, e := range song.ArtistLabels {
		e.JonasShare, e.PaymentDate = nil, nil
		for _, old := range previousAL {
			if strings.EqualFold(old.Artist, e.Artist) && strings.EqualFold(old.Label, e.Label) {
				e.JonasShare, e.PaymentDate = old.JonasShare, old.PaymentDate
				break
			}
		}
		als[i] = e
	}
	deal.ComposerPublishers = cps
	deal.ArtistLabels = als
	if strings.TrimSpace(deal.Splits) == "" {
		deal.Splits = song.Splits
	}
}

func CreateDeal(ctx context.Context, input *NewDeal) (*Deal, error) {
	return createDealAt(ctx, input, time.Now())
}

func createDealAt(ctx context.Context, input *NewDeal, now time.Time) (*Deal, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, ownerId, 0); err != nil {
		return nil, err
	}

	deal := Deal{OwnerId: ownerId, Status: DealStatusNewRequest}
	if input.SongId != nil && *input.SongId > 0 && (input.ComposerPublishers == nil || input.ArtistLabels == nil) {
		song, err := utils.FetchModel[Song](ctx, ownerId, *input.SongId)
		if err != nil {
			return nil, err
		}
		copied := Deal{}
		copied.copySongSnapshot(song)
		if input.ComposerPublishers == nil {
			deal.ComposerPublishers = copied.ComposerPublishers
		}
		if input.ArtistLabels == nil {
			deal.ArtistLabels = copied.ArtistLabels
		}
		if input.Splits == nil {
			deal.Splits = song.Splits
		}
	}
	if _, err := input.apply(&deal, now); err != nil {
		return nil, err
	}
	// a fresh deal has no manual derived fee to protect once a full fee exists
	if input.OurFee == nil || deal.FullSongValue.IsPositive() {
		deal.OurFee = PublishingFee(deal.FullSongValue, deal.ComposerPublishers, deal.Splits)
	}
	if input.OurRecordingFee == nil || deal.FullRecordingFee.IsPositive() {
		deal.OurRecordingFee = RecordingFee(deal.FullRecordingFee, deal.ArtistLabels, deal.Splits)
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&deal).Error; err != nil {
		return nil, err
	}
	return &deal, nil
}

// UpdateDeal applies a partial update and returns the deal together with the
// status it had before the update.
func UpdateDeal(ctx context.Context, id int, input *NewDeal) (*Deal, DealStatus, error) {
	return updateDealAt(ctx, id, input, time.Now())
}

func updateDealAt(ctx context.Context, id int, input *NewDeal, now time.Time) (*Deal, DealStatus, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, "", err
	}
	if err := input.validate(ctx, ownerId, id); err != nil {
		return nil, "", err
	}

	deal, err := utils.FetchModel[Deal](ctx, ownerId, id)
	if err != nil {
		return nil, "", err
	}
	previous := deal.Status
	cs, err := input.apply(deal, now)
	if err != nil {
		return nil, "", err
	}
	if len(cs) == 0 {
		return deal, previous, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(deal).Updates(map[string]interface{}(cs)).Error; err != nil {
		return nil, "", err
	}
	return deal, previous, nil
}

// ReloadDealSplits re-copies the linked song's ownership snapshot onto the
// deal and recalculates both derived fees.
func ReloadDealSplits(ctx context.Context, id int) (*Deal, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	deal, err := utils.FetchModel[Deal](ctx, ownerId, id)
	if err != nil {
		return nil, err
	}
	if deal.SongId == nil {
		return nil, fieldError("songId", "deal has no song to reload splits from")
	}
	song, err := utils.FetchModel[Song](ctx, ownerId, *deal.SongId)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, fieldError("songId", "song not found")
		}
		return nil, err
	}

	deal.Splits = ""
	deal.copySongSnapshot(song)
	deal.OurFee = PublishingFee(deal.FullSongValue, deal.ComposerPublishers, deal.Splits)
	deal.OurRecordingFee = RecordingFee(deal.FullRecordingFee, deal.ArtistLabels, deal.Splits)

	db := config.GetDB()
	err = db.WithContext(ctx).Model(deal).Updates(map[string]interface{}{
		"splits":              deal.Splits,
		"composer_publishers": deal.ComposerPublishers,
		"artist_labels":       deal.ArtistLabels,
		"our_fee":             deal.OurFee,
		"our_recording_fee":   deal.OurRecordingFee,
	}).Error
	if err != nil {
		return nil, err
	}
	return deal, nil
}

func DeleteDeal(ctx context.Context, id int) (*Deal, error) {
	return deleteOwned[Deal](ctx, id)
}

func GetDeal(ctx context.Context, id int) (*Deal, error) {
	return getOwned[Deal](ctx, id)
}

func GetDeals(ctx context.Context, filter DealFilter) ([]*Deal, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("owner_id = ?", ownerId)
	if filter.Query != "" {
		q := likePattern(filter.Query)
		dbCtx = dbCtx.Where("project_name LIKE ? OR territory LIKE ? OR notes LIKE ?", q, q, q)
	}
	if filter.Status != "" {
		dbCtx = dbCtx.Where("status = ?", filter.Status)
	}
	if filter.ProjectType != "" {
		dbCtx = dbCtx.Where("project_type = ?", filter.ProjectType)
	}
	if filter.SongId > 0 {
		dbCtx = dbCtx.Where("song_id = ?", filter.SongId)
	}
	if filter.ContactId > 0 {
		dbCtx = dbCtx.Where("contact_id = ?", filter.ContactId)
	}
	if filter.AirFrom != nil {
		dbCtx = dbCtx.Where("air_date >= ?", *filter.AirFrom)
	}
	if filter.AirTo != nil {
		dbCtx = dbCtx.Where("air_date <= ?", *filter.AirTo)
	}

	var results []*Deal
	if err := dbCtx.Order("created_at DESC").Order("id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetAllDeals returns the owner's deals in id order.
func GetAllDeals(ctx context.Context) ([]*Deal, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchAllModels[Deal](ctx, ownerId, "id")
}
