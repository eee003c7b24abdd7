package models

import (
	"context"
	"strings"
	"time"

	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/utils"
)

type Contact struct {
	ID        int       `gorm:"primary_key" json:"id"`
	OwnerId   int       `gorm:"index;not null" json:"ownerId"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255" json:"email"`
	Phone     string    `gorm:"size:30" json:"phone"`
	Company   string    `gorm:"size:255;index" json:"company"`
	Role      string    `gorm:"size:100" json:"role"`
	Notes     string    `gorm:"type:text" json:"notes"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

type NewContact struct {
	Name    *string `json:"name" binding:"omitempty,max=255"`
	Email   *string `json:"email" binding:"omitempty,max=255"`
	Phone   *string `json:"phone" binding:"omitempty,max=30"`
	Company *string `json:"company" binding:"omitempty,max=255"`
	Role    *string `json:"role" binding:"omitempty,max=100"`
	Notes   *string `json:"notes"`
}

type ContactFilter struct {
	Query   string
	Company string
	Role    string
}

func NewContactFilter(filters map[string]string) ContactFilter {
	return ContactFilter{
		Query:   strings.TrimSpace(filters["q"]),
		Company: strings.TrimSpace(filters["company"]),
		Role:    strings.TrimSpace(filters["role"]),
	}
}

func (input *NewContact) validate(ctx context.Context, ownerId int, id int) error {
	verr := &ValidationError{}
	if id == 0 || input.Name != nil {
		requireText(verr, "name", input.Name)
	}
	if input.Email != nil && strings.TrimSpace(*input.Email) != "" {
		if !validEmail(strings.TrimSpace(*input.Email)) {
			verr.Add("email", "must be a valid email address")
		}
	}
	if input.Phone != nil && strings.TrimSpace(*input.Phone) != "" {
		formatted, err := utils.FormatPhoneNumber(*input.Phone, utils.DefaultPhoneRegion())
		if err != nil {
			verr.Add("phone", "must be a valid phone number")
		} else {
			*input.Phone = formatted
		}
	}
	return verr.Err()
}

func (input *NewContact) apply(contact *Contact) changeSet {
	cs := changeSet{}
	setText(cs, "name", &contact.Name, input.Name)
	setText(cs, "email", &contact.Email, input.Email)
	setText(cs, "phone", &contact.Phone, input.Phone)
	setText(cs, "company", &contact.Company, input.Company)
	setText(cs, "role", &contact.Role, input.Role)
	setText(cs, "notes", &contact.Notes, input.Notes)
	return cs
}

func CreateContact(ctx context.Context, input *NewContact) (*Contact, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, ownerId, 0); err != nil {
		return nil, err
	}

	contact := Contact{OwnerId: ownerId}
	input.apply(&contact)

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&contact).Error; err != nil {
		return nil, err
	}
	return &contact, nil
}

func UpdateContact(ctx context.Context, id int, input *NewContact) (*Contact, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, ownerId, id); err != nil {
		return nil, err
	}

	contact, err := utils.FetchModel[Contact](ctx, ownerId, id)
	if err != nil {
		return nil, err
	}
	cs := input.apply(contact)
	if len(cs) == 0 {
		return contact, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(contact).Updates(map[string]interface{}(cs)).Error; err != nil {
		return nil, err
	}
	return contact, nil
}

func DeleteContact(ctx context.Context, id int) (*Contact, error) {
	return deleteOwned[Contact](ctx, id)
}

func GetContact(ctx context.Context, id int) (*Contact, error) {
	return getOwned[Contact](ctx, id)
}

func GetContacts(ctx context.Context, filter ContactFilter) ([]*Contact, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("owner_id = ?", ownerId)
	if filter.Query != "" {
		q := likePattern(filter.Query)
		dbCtx = dbCtx.Where("name LIKE ? OR email LIKE ? OR company LIKE ?", q, q, q)
	}
	if filter.Company != "" {
		dbCtx = dbCtx.Where("company LIKE ?", likePattern(filter.Company))
	}
	if filter.Role != "" {
		dbCtx = dbCtx.Where("role = ?", filter.Role)
	}

	var results []*Contact
	if err := dbCtx.Order("name").Order("id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// FindContactByName matches a contact's name or company, case-insensitively.
func FindContactByName(ctx context.Context, name string) (*Contact, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	key := strings.ToLower(strings.TrimSpace(name))
	var contact Contact
	db := config.GetDB()
	err = db.WithContext(ctx).
		Where("owner_id = ? AND (LOWER(name) = ? OR LOWER(company) = ?)", ownerId, key, key).
		Order("id").
		Limit(1).
		Find(&contact).Error
	if err != nil {
		return nil, err
	}
	if contact.ID == 0 {
		return nil, utils.ErrorRecordNotFound
	}
	return &contact, nil
}
