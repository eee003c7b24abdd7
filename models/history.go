package models

import (
	"context"
	"fmt"
	"time"

	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/utils"
)

// History is the audit trail of deal status changes.
type History struct {
	ID          int        `gorm:"primary_key" json:"id"`
	OwnerId     int        `gorm:"index;not null" json:"ownerId"`
	DealId      int        `gorm:"index;not null" json:"dealId"`
	FromStatus  DealStatus `gorm:"size:30" json:"fromStatus"`
	ToStatus    DealStatus `gorm:"size:30;not null" json:"toStatus"`
	Description string     `gorm:"type:text" json:"description"`
	UserId      int        `gorm:"index" json:"userId"`
	UserName    string     `gorm:"size:100" json:"userName"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

func describeStatusChange(deal *Deal, from DealStatus) string {
	if from == "" {
		return fmt.Sprintf("%s created as %s.", deal.ProjectName, deal.Status.Label())
	}
	return fmt.Sprintf("%s moved from %s to %s.", deal.ProjectName, from.Label(), deal.Status.Label())
}

// CreateDealHistory records that deal moved from `from` (empty on create)
// to its current status.
func CreateDealHistory(ctx context.Context, deal *Deal, from DealStatus) (*History, error) {
	history := History{
		OwnerId:     deal.OwnerId,
		DealId:      deal.ID,
		FromStatus:  from,
		ToStatus:    deal.Status,
		Description: describeStatusChange(deal, from),
	}
	history.UserId, _ = utils.GetUserIdFromContext(ctx)
	if name, ok := utils.GetUserNameFromContext(ctx); ok && name != "" {
		history.UserName = name
	} else {
		history.UserName, _ = utils.GetUsernameFromContext(ctx)
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&history).Error; err != nil {
		return nil, err
	}
	return &history, nil
}

func GetDealHistories(ctx context.Context, dealId int) ([]*History, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	var results []*History
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("owner_id = ? AND deal_id = ?", ownerId, dealId).Order("id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
