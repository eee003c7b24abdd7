package utils

import (
	"context"
	"errors"
	"reflect"

	"github.com/jonassync/licensing_backend/config"
)

// check if id exists for the owner, return RecordNotFound Error
func ValidateResourceId[T any](ctx context.Context, ownerId int, id interface{}) error {
	count, err := ResourceCountWhere[T](ctx, ownerId, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}
	return nil
}

// check if ALL ids exist for the owner, return RecordNotFound Error
func ValidateResourcesId[M any, ID comparable](ctx context.Context, ownerId int, ids []ID) error {
	unqIds := UniqueSlice(ids)
	if len(unqIds) == 0 {
		return nil
	}

	count, err := ResourceCountWhere[M](ctx, ownerId, "id IN ?", unqIds)
	if err != nil {
		return err
	}
	if count != int64(len(unqIds)) {
		return ErrorRecordNotFound
	}
	return nil
}

func ValidateUnique[T any](ctx context.Context, ownerId int, column string, value interface{}, exceptId interface{}) error {
	var count int64
	var err error
	if exceptId == nil || reflect.ValueOf(exceptId).IsZero() {
		count, err = ResourceCountWhere[T](ctx, ownerId, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, ownerId, column+" = ? AND NOT id = ?", value, exceptId)
	}
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("duplicate " + column)
	}
	return nil
}

// count records, using WHERE owner_id = ? AND $condition
// ownerId 0 skips the owner filter (users table, admin CLI)
func ResourceCountWhere[T any](ctx context.Context, ownerId int, condition string, value ...interface{}) (int64, error) {
	var model T

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&model)
	if ownerId != 0 {
		dbCtx = dbCtx.Where("owner_id = ?", ownerId)
	}
	dbCtx = dbCtx.Where(condition, value...)
	var count int64
	if err := dbCtx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
