package models

import (
	"context"
	"strconv"
	"strings"

	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/utils"
	"github.com/shopspring/decimal"
)

// changeSet collects the columns touched by a partial update. Each set*
// helper applies a present input value to the model and records the column,
// so the returned model reflects the update without a reload.
type changeSet map[string]interface{}

func setText(cs changeSet, column string, dst *string, src *string) {
	if src == nil {
		return
	}
	*dst = utils.SanitizeText(*src)
	cs[column] = *dst
}

func setValue[T any](cs changeSet, column string, dst *T, src *T) {
	if src == nil {
		return
	}
	*dst = *src
	cs[column] = *dst
}

func setOptional[T any](cs changeSet, column string, dst **T, src *T) {
	if src == nil {
		return
	}
	v := *src
	*dst = &v
	cs[column] = v
}

// setOptionalInt treats 0 as "clear the reference".
func setOptionalInt(cs changeSet, column string, dst **int, src *int) {
	if src == nil {
		return
	}
	if *src == 0 {
		*dst = nil
		cs[column] = nil
		return
	}
	v := *src
	*dst = &v
	cs[column] = v
}

// setDate parses "YYYY-MM-DD"; an empty string clears the date.
func setDate(cs changeSet, verr *ValidationError, field string, column string, dst **MyDate, src *string) {
	if src == nil {
		return
	}
	if strings.TrimSpace(*src) == "" {
		*dst = nil
		cs[column] = nil
		return
	}
	d, err := ParseMyDate(*src)
	if err != nil {
		verr.Add(field, "must be a date in YYYY-MM-DD format")
		return
	}
	*dst = &d
	cs[column] = d
}

func setMoney(cs changeSet, verr *ValidationError, field string, column string, dst *decimal.Decimal, src *decimal.Decimal) {
	if src == nil {
		return
	}
	if src.IsNegative() {
		verr.Add(field, "must not be negative")
		return
	}
	*dst = src.Round(2)
	cs[column] = *dst
}

// likePattern wraps q for a LIKE match, escaping wildcards.
func likePattern(q string) string {
	q = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(strings.TrimSpace(q))
	return "%" + q + "%"
}

func filterInt(filters map[string]string, key string) (int, bool) {
	v := strings.TrimSpace(filters[key])
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// deleteOwned deletes the owner's record and returns it.
func deleteOwned[T any](ctx context.Context, id int) (*T, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	record, err := utils.FetchModel[T](ctx, ownerId, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("owner_id = ?", ownerId).Delete(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// getOwned fetches one of the owner's records.
func getOwned[T any](ctx context.Context, id int) (*T, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[T](ctx, ownerId, id)
}
