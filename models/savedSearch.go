package models

import (
	"context"
	"strings"
	"time"

	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/utils"
	"gorm.io/datatypes"
)

// SavedSearch stores a list query against songs, deals or contacts. Filters
// use the same keys as the list endpoints' query parameters.
type SavedSearch struct {
	ID        int                                 `gorm:"primary_key" json:"id"`
	OwnerId   int                                 `gorm:"index;not null" json:"ownerId"`
	Name      string                              `gorm:"size:255;not null" json:"name"`
	Entity    SearchEntity                        `gorm:"size:20;not null" json:"entity"`
	Query     string                              `gorm:"size:255" json:"query"`
	Filters   datatypes.JSONType[map[string]string] `json:"filters"`
	CreatedAt time.Time                           `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time                           `gorm:"autoUpdateTime" json:"updatedAt"`
}

type NewSavedSearch struct {
	Name    *string            `json:"name" binding:"omitempty,max=255"`
	Entity  *string            `json:"entity"`
	Query   *string            `json:"query" binding:"omitempty,max=255"`
	Filters *map[string]string `json:"filters"`
}

// Params merges the free-text query into the filters as "q".
func (s *SavedSearch) Params() map[string]string {
	params := map[string]string{}
	for k, v := range s.Filters.Data() {
		params[k] = v
	}
	if strings.TrimSpace(s.Query) != "" {
		params["q"] = s.Query
	}
	return params
}

func (input *NewSavedSearch) validate(ctx context.Context, ownerId int, id int) error {
	verr := &ValidationError{}
	if id == 0 || input.Name != nil {
		requireText(verr, "name", input.Name)
	}
	if id == 0 || input.Entity != nil {
		if input.Entity == nil || !SearchEntity(strings.TrimSpace(*input.Entity)).IsValid() {
			verr.Add("entity", "must be one of songs, deals, contacts")
		}
	}
	return verr.Err()
}

func (input *NewSavedSearch) apply(search *SavedSearch) changeSet {
	cs := changeSet{}
	setText(cs, "name", &search.Name, input.Name)
	if input.Entity != nil {
		search.Entity = SearchEntity(strings.TrimSpace(*input.Entity))
		cs["entity"] = search.Entity
	}
	setText(cs, "query", &search.Query, input.Query)
	if input.Filters != nil {
		filters := make(map[string]string, len(*input.Filters))
		for k, v := range *input.Filters {
			if k = strings.TrimSpace(k); k != "" {
				filters[k] = utils.SanitizeText(v)
			}
		}
		search.Filters = datatypes.NewJSONType(filters)
		cs["filters"] = search.Filters
	}
	return cs
}

func CreateSavedSearch(ctx context.Context, input *NewSavedSearch) (*SavedSearch, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, ownerId, 0); err != nil {
		return nil, err
	}

	search := SavedSearch{OwnerId: ownerId, Filters: datatypes.NewJSONType(map[string]string{})}
	input.apply(&search)

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&search).Error; err != nil {
		return nil, err
	}
	return &search, nil
}

func UpdateSavedSearch(ctx context.Context, id int, input *NewSavedSearch) (*SavedSearch, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, ownerId, id); err != nil {
		return nil, err
	}

	search, err := utils.FetchModel[SavedSearch](ctx, ownerId, id)
	if err != nil {
		return nil, err
	}
	cs := input.apply(search)
	if len(cs) == 0 {
		return search, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(search).Updates(map[string]interface{}(cs)).Error; err != nil {
		return nil, err
	}
	return search, nil
}

func DeleteSavedSearch(ctx context.Context, id int) (*SavedSearch, error) {
	return deleteOwned[SavedSearch](ctx, id)
}

func GetSavedSearch(ctx context.Context, id int) (*SavedSearch, error) {
	return getOwned[SavedSearch](ctx, id)
}

func GetSavedSearches(ctx context.Context, entity string) ([]*SavedSearch, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("owner_id = ?", ownerId)
	if e := strings.TrimSpace(entity); e != "" {
		dbCtx = dbCtx.Where("entity = ?", e)
	}
	var results []*SavedSearch
	if err := dbCtx.Order("name").Order("id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// RunSavedSearch executes the saved search with the list filters of its
// entity and returns []*Song, []*Deal or []*Contact.
func RunSavedSearch(ctx context.Context, id int) (*SavedSearch, interface{}, error) {
	search, err := GetSavedSearch(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	params := search.Params()
	var results interface{}
	switch search.Entity {
	case SearchEntitySongs:
		results, err = GetSongs(ctx, NewSongFilter(params))
	case SearchEntityDeals:
		results, err = GetDeals(ctx, NewDealFilter(params))
	case SearchEntityContacts:
		results, err = GetContacts(ctx, NewContactFilter(params))
	default:
		return nil, nil, fieldError("entity", "unsupported entity "+string(search.Entity))
	}
	if err != nil {
		return nil, nil, err
	}
	return search, results, nil
}
