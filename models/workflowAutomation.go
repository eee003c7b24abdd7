package models

import (
	"context"
	"strings"
	"time"

	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/utils"
)

// WorkflowAutomation runs an action when a deal enters TriggerStatus.
type WorkflowAutomation struct {
	ID            int               `gorm:"primary_key" json:"id"`
	OwnerId       int               `gorm:"index;not null" json:"ownerId"`
	Name          string            `gorm:"size:255;not null" json:"name"`
	Trigger       AutomationTrigger `gorm:"column:trigger_type;size:40;not null;default:deal_status_changed" json:"trigger"`
	TriggerStatus DealStatus        `gorm:"size:30;not null;index" json:"triggerStatus"`
	Action        AutomationAction  `gorm:"size:40;not null" json:"action"`
	OffsetDays    int               `gorm:"not null;default:0" json:"offsetDays"`
	IsActive      *bool             `gorm:"not null;default:true" json:"isActive"`
	CreatedAt     time.Time         `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time         `gorm:"autoUpdateTime" json:"updatedAt"`
}

type NewWorkflowAutomation struct {
	Name          *string `json:"name" binding:"omitempty,max=255"`
	Trigger       *string `json:"trigger"`
	TriggerStatus *string `json:"triggerStatus"`
	Action        *string `json:"action"`
	OffsetDays    *int    `json:"offsetDays" binding:"omitempty,min=0,max=3650"`
	IsActive      *bool   `json:"isActive"`
}

func (input *NewWorkflowAutomation) validate(ctx context.Context, ownerId int, id int) error {
	verr := &ValidationError{}
	if id == 0 || input.Name != nil {
		requireText(verr, "name", input.Name)
	}
	if input.Trigger != nil && !AutomationTrigger(strings.TrimSpace(*input.Trigger)).IsValid() {
		verr.Add("trigger", "must be deal_status_changed")
	}
	if id == 0 || input.TriggerStatus != nil {
		if input.TriggerStatus == nil {
			verr.Add("triggerStatus", "is required")
		} else if _, ok := ParseDealStatus(*input.TriggerStatus); !ok {
			verr.Add("triggerStatus", "must be one of "+joinStatuses())
		}
	}
	if id == 0 || input.Action != nil {
		if input.Action == nil || !AutomationAction(strings.TrimSpace(*input.Action)).IsValid() {
			verr.Add("action", "must be one of create_calendar_event, create_payment")
		}
	}
	return verr.Err()
}

func (input *NewWorkflowAutomation) apply(automation *WorkflowAutomation) changeSet {
	cs := changeSet{}
	setText(cs, "name", &automation.Name, input.Name)
	if input.Trigger != nil {
		automation.Trigger = AutomationTrigger(strings.TrimSpace(*input.Trigger))
		cs["trigger_type"] = automation.Trigger
	}
	if input.TriggerStatus != nil {
		automation.TriggerStatus, _ = ParseDealStatus(*input.TriggerStatus)
		cs["trigger_status"] = automation.TriggerStatus
	}
	if input.Action != nil {
		automation.Action = AutomationAction(strings.TrimSpace(*input.Action))
		cs["action"] = automation.Action
	}
	setValue(cs, "offset_days", &automation.OffsetDays, input.OffsetDays)
	if input.IsActive != nil {
		v := *input.IsActive
		automation.IsActive = &v
		cs["is_active"] = v
	}
	return cs
}

func CreateWorkflowAutomation(ctx context.Context, input *NewWorkflowAutomation) (*WorkflowAutomation, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, ownerId, 0); err != nil {
		return nil, err
	}

	automation := WorkflowAutomation{
		OwnerId:  ownerId,
		Trigger:  TriggerDealStatusChanged,
		IsActive: utils.NewTrue(),
	}
	input.apply(&automation)

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&automation).Error; err != nil {
		return nil, err
	}
	return &automation, nil
}

func UpdateWorkflowAutomation(ctx context.Context, id int, input *NewWorkflowAutomation) (*WorkflowAutomation, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, ownerId, id); err != nil {
		return nil, err
	}

	automation, err := utils.FetchModel[WorkflowAutomation](ctx, ownerId, id)
	if err != nil {
		return nil, err
	}
	cs := input.apply(automation)
	if len(cs) == 0 {
		return automation, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(automation).Updates(map[string]interface{}(cs)).Error; err != nil {
		return nil, err
	}
	return automation, nil
}

func DeleteWorkflowAutomation(ctx context.Context, id int) (*WorkflowAutomation, error) {
	return deleteOwned[WorkflowAutomation](ctx, id)
}

func GetWorkflowAutomation(ctx context.Context, id int) (*WorkflowAutomation, error) {
	return getOwned[WorkflowAutomation](ctx, id)
}

func GetWorkflowAutomations(ctx context.Context) ([]*WorkflowAutomation, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchAllModels[WorkflowAutomation](ctx, ownerId, "id")
}

// GetActiveAutomationsFor returns the owner's active automations fired by a
// deal entering status.
func GetActiveAutomationsFor(ctx context.Context, ownerId int, status DealStatus) ([]*WorkflowAutomation, error) {
	db := config.GetDB()
	var results []*WorkflowAutomation
	err := db.WithContext(ctx).
		Where("owner_id = ? AND trigger_type = ? AND trigger_status = ? AND is_active = ?", ownerId, TriggerDealStatusChanged, status, true).
		Order("id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
