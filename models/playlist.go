package models

import (
	"context"
	"errors"
	"time"

	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/utils"
	"gorm.io/datatypes"
)

type Playlist struct {
	ID          int                      `gorm:"primary_key" json:"id"`
	OwnerId     int                      `gorm:"index;not null" json:"ownerId"`
	Name        string                   `gorm:"size:255;not null" json:"name"`
	Description string                   `gorm:"type:text" json:"description"`
	SongIds     datatypes.JSONSlice[int] `json:"songIds"`
	IsPublic    bool                     `gorm:"not null;default:false" json:"isPublic"`
	CreatedAt   time.Time                `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time                `gorm:"autoUpdateTime" json:"updatedAt"`
}

type NewPlaylist struct {
	Name        *string `json:"name" binding:"omitempty,max=255"`
	Description *string `json:"description"`
	SongIds     *[]int  `json:"songIds"`
	IsPublic    *bool   `json:"isPublic"`
}

func (input *NewPlaylist) validate(ctx context.Context, ownerId int, id int) error {
	verr := &ValidationError{}
	if id == 0 || input.Name != nil {
		requireText(verr, "name", input.Name)
	}
	if input.SongIds != nil {
		if err := utils.ValidateResourcesId[Song](ctx, ownerId, *input.SongIds); err != nil {
			if !errors.Is(err, utils.ErrorRecordNotFound) {
				return err
			}
			verr.Add("songIds", "contains unknown songs")
		}
	}
	return verr.Err()
}

func (input *NewPlaylist) apply(playlist *Playlist) changeSet {
	cs := changeSet{}
	setText(cs, "name", &playlist.Name, input.Name)
	setText(cs, "description", &playlist.Description, input.Description)
	if input.SongIds != nil {
		playlist.SongIds = utils.UniqueSlice(*input.SongIds)
		cs["song_ids"] = playlist.SongIds
	}
	setValue(cs, "is_public", &playlist.IsPublic, input.IsPublic)
	return cs
}

func CreatePlaylist(ctx context.Context, input *NewPlaylist) (*Playlist, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, ownerId, 0); err != nil {
		return nil, err
	}

	playlist := Playlist{OwnerId: ownerId, SongIds: []int{}}
	input.apply(&playlist)

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&playlist).Error; err != nil {
		return nil, err
	}
	return &playlist, nil
}

func UpdatePlaylist(ctx context.Context, id int, input *NewPlaylist) (*Playlist, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, ownerId, id); err != nil {
		return nil, err
	}

	playlist, err := utils.FetchModel[Playlist](ctx, ownerId, id)
	if err != nil {
		return nil, err
	}
	cs := input.apply(playlist)
	if len(cs) == 0 {
		return playlist, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(playlist).Updates(map[string]interface{}(cs)).Error; err != nil {
		return nil, err
	}
	return playlist, nil
}

func DeletePlaylist(ctx context.Context, id int) (*Playlist, error) {
	return deleteOwned[Playlist](ctx, id)
}

func GetPlaylist(ctx context.Context, id int) (*Playlist, error) {
	return getOwned[Playlist](ctx, id)
}

func GetPlaylists(ctx context.Context) ([]*Playlist, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchAllModels[Playlist](ctx, ownerId, "name", "id")
}

// GetPlaylistSongs resolves the playlist's songs in playlist order. Songs
// deleted since they were added are skipped.
func GetPlaylistSongs(ctx context.Context, id int) ([]*Song, error) {
	playlist, err := GetPlaylist(ctx, id)
	if err != nil {
		return nil, err
	}
	return GetSongsByIds(ctx, playlist.SongIds)
}
