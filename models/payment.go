package models

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/utils"
	"github.com/shopspring/decimal"
)

type Payment struct {
	ID          int             `gorm:"primary_key" json:"id"`
	OwnerId     int             `gorm:"index;not null" json:"ownerId"`
	DealId      *int            `gorm:"index" json:"dealId"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`
	DueDate     *MyDate         `gorm:"index" json:"dueDate"`
	PaidDate    *MyDate         `json:"paidDate"`
	Status      PaymentStatus   `gorm:"size:20;not null;default:pending" json:"status"`
	Payer       string          `gorm:"size:255" json:"payer"`
	Description string          `gorm:"type:text" json:"description"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

type NewPayment struct {
	DealId      *int             `json:"dealId" binding:"omitempty,min=0"`
	Amount      *decimal.Decimal `json:"amount"`
	DueDate     *string          `json:"dueDate"`
	PaidDate    *string          `json:"paidDate"`
	Status      *string          `json:"status"`
	Payer       *string          `json:"payer" binding:"omitempty,max=255"`
	Description *string          `json:"description"`
}

// IsOverdue reports whether an unpaid payment's due date is before today in
// the app zone. A payment due today is not overdue yet.
func (p *Payment) IsOverdue(now time.Time) bool {
	if p.Status == PaymentStatusPaid || p.DueDate == nil {
		return false
	}
	return p.DueDate.Before(NewMyDate(now))
}

// EffectiveStatus is the status clients see: overdue replaces pending once
// the due date has passed.
func (p *Payment) EffectiveStatus(now time.Time) PaymentStatus {
	if p.IsOverdue(now) {
		return PaymentStatusOverdue
	}
	return p.Status
}

func (p Payment) MarshalJSON() ([]byte, error) {
	type payment Payment
	return json.Marshal(struct {
		payment
		Status PaymentStatus `json:"status"`
	}{
		payment: payment(p),
		Status:  p.EffectiveStatus(time.Now()),
	})
}

type PaymentFilter struct {
	Status PaymentStatus
	DealId int
}

func NewPaymentFilter(filters map[string]string) PaymentFilter {
	f := PaymentFilter{Status: PaymentStatus(strings.TrimSpace(filters["status"]))}
	f.DealId, _ = filterInt(filters, "dealId")
	return f
}

func (input *NewPayment) validate(ctx context.Context, ownerId int, id int) error {
	verr := &ValidationError{}
	if id == 0 && input.Amount == nil {
		verr.Add("amount", "is required")
	}
	if input.Status != nil {
		status := PaymentStatus(strings.TrimSpace(*input.Status))
		if status == PaymentStatusOverdue {
			verr.Add("status", "overdue is derived from the due date and cannot be set")
		} else if !status.IsValid() {
			verr.Add("status", "must be one of pending, paid")
		}
	}
	if input.DealId != nil && *input.DealId > 0 {
		if err := utils.ValidateResourceId[Deal](ctx, ownerId, *input.DealId); err != nil {
			if !errors.Is(err, utils.ErrorRecordNotFound) {
				return err
			}
			verr.Add("dealId", "deal not found")
		}
	}
	return verr.Err()
}

func (input *NewPayment) apply(payment *Payment, now time.Time) (changeSet, error) {
	cs := changeSet{}
	verr := &ValidationError{}
	setOptionalInt(cs, "deal_id", &payment.DealId, input.DealId)
	setMoney(cs, verr, "amount", "amount", &payment.Amount, input.Amount)
	setDate(cs, verr, "dueDate", "due_date", &payment.DueDate, input.DueDate)
	setDate(cs, verr, "paidDate", "paid_date", &payment.PaidDate, input.PaidDate)
	if input.Status != nil {
		payment.Status = PaymentStatus(strings.TrimSpace(*input.Status))
		cs["status"] = payment.Status
	}
	if payment.Status == PaymentStatusPaid && payment.PaidDate == nil {
		today := NewMyDate(now)
		payment.PaidDate = &today
		cs["paid_date"] = today
	}
	setText(cs, "payer", &payment.Payer, input.Payer)
	setText(cs, "description", &payment.Description, input.Description)
	return cs, verr.Err()
}

func CreatePayment(ctx context.Context, input *NewPayment) (*Payment, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, ownerId, 0); err != nil {
		return nil, err
	}

	payment := Payment{OwnerId: ownerId, Status: PaymentStatusPending}
	if _, err := input.apply(&payment, time.Now()); err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func UpdatePayment(ctx context.Context, id int, input *NewPayment) (*Payment, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, ownerId, id); err != nil {
		return nil, err
	}

	payment, err := utils.FetchModel[Payment](ctx, ownerId, id)
	if err != nil {
		return nil, err
	}
	cs, err := input.apply(payment, time.Now())
	if err != nil {
		return nil, err
	}
	if len(cs) == 0 {
		return payment, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(payment).Updates(map[string]interface{}(cs)).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

func DeletePayment(ctx context.Context, id int) (*Payment, error) {
	return deleteOwned[Payment](ctx, id)
}

func GetPayment(ctx context.Context, id int) (*Payment, error) {
	return getOwned[Payment](ctx, id)
}

// GetPayments filters on the effective status, so "overdue" and "pending"
// are told apart by due date rather than by the stored column.
func GetPayments(ctx context.Context, filter PaymentFilter) ([]*Payment, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("owner_id = ?", ownerId)
	if filter.DealId > 0 {
		dbCtx = dbCtx.Where("deal_id = ?", filter.DealId)
	}
	switch filter.Status {
	case PaymentStatusPaid:
		dbCtx = dbCtx.Where("status = ?", PaymentStatusPaid)
	case PaymentStatusPending, PaymentStatusOverdue:
		dbCtx = dbCtx.Where("status <> ?", PaymentStatusPaid)
	}

	var results []*Payment
	if err := dbCtx.Order("due_date").Order("id").Find(&results).Error; err != nil {
		return nil, err
	}
	if filter.Status != PaymentStatusPending && filter.Status != PaymentStatusOverdue {
		return results, nil
	}

	now := time.Now()
	filtered := make([]*Payment, 0, len(results))
	for _, p := range results {
		if p.EffectiveStatus(now) == filter.Status {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}
