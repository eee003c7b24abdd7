package models

import (
	"context"
	"strings"
	"time"

	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/utils"
	"gorm.io/datatypes"
)

type Song struct {
	ID                 int                                    `gorm:"primary_key" json:"id"`
	OwnerId            int                                    `gorm:"index;not null" json:"ownerId"`
	Title              string                                 `gorm:"size:255;not null" json:"title"`
	Artist             string                                 `gorm:"size:255" json:"artist"`
	Album              string                                 `gorm:"size:255" json:"album"`
	Composers          string                                 `gorm:"type:text" json:"composers"`
	Publishers         string                                 `gorm:"type:text" json:"publishers"`
	ComposerPublishers datatypes.JSONSlice[ComposerPublisher] `json:"composerPublishers"`
	ArtistLabels       datatypes.JSONSlice[ArtistLabel]       `json:"artistLabels"`
	Splits             string                                 `gorm:"type:text" json:"splits"`
	Genre              string                                 `gorm:"size:100;index" json:"genre"`
	Mood               string                                 `gorm:"size:100" json:"mood"`
	Bpm                *int                                   `json:"bpm"`
	MusicalKey         string                                 `gorm:"size:20" json:"musicalKey"`
	DurationSeconds    *int                                   `json:"durationSeconds"`
	Isrc               string                                 `gorm:"size:20" json:"isrc"`
	Lyrics             string                                 `gorm:"type:text" json:"lyrics"`
	Notes              string                                 `gorm:"type:text" json:"notes"`
	CoverImageUrl      string                                 `gorm:"size:1024" json:"coverImageUrl"`
	CreatedAt          time.Time                              `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt          time.Time                              `gorm:"autoUpdateTime" json:"updatedAt"`
}

type NewSong struct {
	Title              *string              `json:"title" binding:"omitempty,max=255"`
	Artist             *string              `json:"artist" binding:"omitempty,max=255"`
	Album              *string              `json:"album" binding:"omitempty,max=255"`
	Composers          *string              `json:"composers"`
	Publishers         *string              `json:"publishers"`
	ComposerPublishers *[]ComposerPublisher `json:"composerPublishers"`
	ArtistLabels       *[]ArtistLabel       `json:"artistLabels"`
	Splits             *string              `json:"splits"`
	Genre              *string              `json:"genre" binding:"omitempty,max=100"`
	Mood               *string              `json:"mood" binding:"omitempty,max=100"`
	Bpm                *int                 `json:"bpm" binding:"omitempty,min=0,max=400"`
	MusicalKey         *string              `json:"musicalKey" binding:"omitempty,max=20"`
	DurationSeconds    *int                 `json:"durationSeconds" binding:"omitempty,min=0"`
	Isrc               *string              `json:"isrc" binding:"omitempty,max=20"`
	Lyrics             *string              `json:"lyrics"`
	Notes              *string              `json:"notes"`
	CoverImageUrl      *string              `json:"coverImageUrl" binding:"omitempty,max=1024"`
}

// SongFilter narrows GetSongs. Built from query strings and saved searches.
type SongFilter struct {
	Query  string
	Genre  string
	Mood   string
	Artist string
}

func NewSongFilter(filters map[string]string) SongFilter {
	return SongFilter{
		Query:  strings.TrimSpace(filters["q"]),
		Genre:  strings.TrimSpace(filters["genre"]),
		Mood:   strings.TrimSpace(filters["mood"]),
		Artist: strings.TrimSpace(filters["artist"]),
	}
}

func (input *NewSong) validate(ctx context.Context, ownerId int, id int) error {
	verr := &ValidationError{}
	if id == 0 || input.Title != nil {
		requireText(verr, "title", input.Title)
	}
	if input.ComposerPublishers != nil {
		validateOwnership(verr, "composerPublishers", composerPercents(*input.ComposerPublishers))
	}
	if input.ArtistLabels != nil {
		validateOwnership(verr, "artistLabels", artistPercents(*input.ArtistLabels))
	}
	return verr.Err()
}

// apply copies present fields onto song and returns the touched columns.
func (input *NewSong) apply(song *Song) changeSet {
	cs := changeSet{}
	setText(cs, "title", &song.Title, input.Title)
	setText(cs, "artist", &song.Artist, input.Artist)
	setText(cs, "album", &song.Album, input.Album)
	setText(cs, "composers", &song.Composers, input.Composers)
	setText(cs, "publishers", &song.Publishers, input.Publishers)
	if input.ComposerPublishers != nil {
		song.ComposerPublishers = normalizeComposerPublishers(*input.ComposerPublishers)
		cs["composer_publishers"] = song.ComposerPublishers
	}
	if input.ArtistLabels != nil {
		song.ArtistLabels = normalizeArtistLabels(*input.ArtistLabels)
		cs["artist_labels"] = song.ArtistLabels
	}
	setText(cs, "splits", &song.Splits, input.Splits)
	setText(cs, "genre", &song.Genre, input.Genre)
	setText(cs, "mood", &song.Mood, input.Mood)
	setOptional(cs, "bpm", &song.Bpm, input.Bpm)
	setText(cs, "musical_key", &song.MusicalKey, input.MusicalKey)
	setOptional(cs, "duration_seconds", &song.DurationSeconds, input.DurationSeconds)
	setText(cs, "isrc", &song.Isrc, input.Isrc)
	setText(cs, "lyrics", &song.Lyrics, input.Lyrics)
	setText(cs, "notes", &song.Notes, input.Notes)
	setText(cs, "cover_image_url", &song.CoverImageUrl, input.CoverImageUrl)
	song.deriveLegacyCredits(cs)
	return cs
}

// deriveLegacyCredits fills the comma-joined composer/publisher/artist
// strings from the structured lists when they are blank.
func (song *Song) deriveLegacyCredits(cs changeSet) {
	if song.Composers == "" {
		if v := joinNames(song.ComposerPublishers, func(e ComposerPublisher) string { return e.Composer }); v != "" {
			song.Composers = v
			cs["composers"] = v
		}
	}
	if song.Publishers == "" {
		if v := joinNames(song.ComposerPublishers, func(e ComposerPublisher) string { return e.Publisher }); v != "" {
			song.Publishers = v
			cs["publishers"] = v
		}
	}
	if song.Artist == "" {
		if v := joinNames(song.ArtistLabels, func(e ArtistLabel) string { return e.Artist }); v != "" {
			song.Artist = v
			cs["artist"] = v
		}
	}
}

func joinNames[E any](entries []E, name func(E) string) string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if n := strings.TrimSpace(name(e)); n != "" {
			names = append(names, n)
		}
	}
	return strings.Join(utils.UniqueSlice(names), ", ")
}

func CreateSong(ctx context.Context, input *NewSong) (*Song, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, ownerId, 0); err != nil {
		return nil, err
	}

	song := Song{OwnerId: ownerId}
	input.apply(&song)

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&song).Error; err != nil {
		return nil, err
	}
	return &song, nil
}

func UpdateSong(ctx context.Context, id int, input *NewSong) (*Song, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, ownerId, id); err != nil {
		return nil, err
	}

	song, err := utils.FetchModel[Song](ctx, ownerId, id)
	if err != nil {
		return nil, err
	}
	cs := input.apply(song)
	if len(cs) == 0 {
		return song, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(song).Updates(map[string]interface{}(cs)).Error; err != nil {
		return nil, err
	}
	return song, nil
}

// DeleteSong leaves deals, pitches and playlists referencing the song as they are.
func DeleteSong(ctx context.Context, id int) (*Song, error) {
	return deleteOwned[Song](ctx, id)
}

func GetSong(ctx context.Context, id int) (*Song, error) {
	return getOwned[Song](ctx, id)
}

func GetSongs(ctx context.Context, filter SongFilter) ([]*Song, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("owner_id = ?", ownerId)
	if filter.Query != "" {
		q := likePattern(filter.Query)
		dbCtx = dbCtx.Where("title LIKE ? OR artist LIKE ? OR album LIKE ? OR composers LIKE ? OR genre LIKE ? OR mood LIKE ?",
			q, q, q, q, q, q)
	}
	if filter.Genre != "" {
		dbCtx = dbCtx.Where("genre = ?", filter.Genre)
	}
	if filter.Mood != "" {
		dbCtx = dbCtx.Where("mood = ?", filter.Mood)
	}
	if filter.Artist != "" {
		dbCtx = dbCtx.Where("artist LIKE ?", likePattern(filter.Artist))
	}

	var results []*Song
	if err := dbCtx.Order("title").Order("id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetSongsByIds keeps the order of ids and skips ids that do not exist.
func GetSongsByIds(ctx context.Context, ids []int) ([]*Song, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*Song{}, nil
	}
	var found []*Song
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("owner_id = ? AND id IN ?", ownerId, ids).Find(&found).Error; err != nil {
		return nil, err
	}
	byId := make(map[int]*Song, len(found))
	for _, s := range found {
		byId[s.ID] = s
	}
	results := make([]*Song, 0, len(ids))
	for _, id := range ids {
		if s, ok := byId[id]; ok {
			results = append(results, s)
		}
	}
	return results, nil
}

// FindSongByTitle is a case-insensitive exact title lookup, used by imports.
func FindSongByTitle(ctx context.Context, title string) (*Song, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	var song Song
	db := config.GetDB()
	err = db.WithContext(ctx).
		Where("owner_id = ? AND LOWER(title) = ?", ownerId, strings.ToLower(strings.TrimSpace(title))).
		Order("id").
		Limit(1).
		Find(&song).Error
	if err != nil {
		return nil, err
	}
	if song.ID == 0 {
		return nil, utils.ErrorRecordNotFound
	}
	return &song, nil
}
