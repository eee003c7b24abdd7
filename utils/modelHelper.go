package utils

import (
	"context"
	"errors"

	"github.com/jonassync/licensing_backend/config"
	"gorm.io/gorm"
)

/* DB fetching */

// fetch model from db
// (owner_id is used in query's WHERE, may return RecordNotFound)
func FetchModel[T any](ctx context.Context, ownerId int, id int, associations ...string) (*T, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("owner_id = ?", ownerId)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	if err := dbCtx.First(&result, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

// fetch all models of the owner, ordered by the given clauses
func FetchAllModels[T any](ctx context.Context, ownerId int, orders ...string) ([]*T, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("owner_id = ?", ownerId)
	for _, order := range orders {
		dbCtx = dbCtx.Order(order)
	}
	var results []*T
	if err := dbCtx.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
