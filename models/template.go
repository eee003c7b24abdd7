package models

import (
	"context"
	"strings"
	"time"

	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/utils"
)

// Template is reusable contract, email or pitch text. Content uses
// text/template placeholders such as {{.Deal.ProjectName}}.
type Template struct {
	ID           int          `gorm:"primary_key" json:"id"`
	OwnerId      int          `gorm:"index;not null" json:"ownerId"`
	Name         string       `gorm:"size:150;not null" json:"name"`
	TemplateType TemplateType `gorm:"size:20;not null;index" json:"templateType"`
	Content      string       `gorm:"type:text" json:"content"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime" json:"updatedAt"`
}

type NewTemplate struct {
	Name         *string `json:"name" binding:"omitempty,max=150"`
	TemplateType *string `json:"templateType"`
	Content      *string `json:"content"`
}

func (input *NewTemplate) validate(ctx context.Context, ownerId int, id int) error {
	verr := &ValidationError{}
	if id == 0 || input.Name != nil {
		requireText(verr, "name", input.Name)
	}
	if id == 0 || input.TemplateType != nil {
		if input.TemplateType == nil || !TemplateType(strings.TrimSpace(*input.TemplateType)).IsValid() {
			verr.Add("templateType", "must be one of contract, email, pitch")
		}
	}
	if input.Content != nil {
		if err := utils.CheckTemplate(*input.Content); err != nil {
			verr.Add("content", err.Error())
		}
	}
	return verr.Err()
}

func (input *NewTemplate) apply(tmpl *Template) changeSet {
	cs := changeSet{}
	setText(cs, "name", &tmpl.Name, input.Name)
	if input.TemplateType != nil {
		tmpl.TemplateType = TemplateType(strings.TrimSpace(*input.TemplateType))
		cs["template_type"] = tmpl.TemplateType
	}
	// content is stored verbatim, whitespace is part of the document
	setValue(cs, "content", &tmpl.Content, input.Content)
	return cs
}

// TemplateData is what template content can reference.
type TemplateData struct {
	Deal    *Deal
	Song    *Song
	Contact *Contact
	Today   string
}

// LoadTemplateData gathers a deal with its song and contact. Missing
// references render as empty.
func LoadTemplateData(ctx context.Context, dealId int) (*TemplateData, error) {
	deal, err := GetDeal(ctx, dealId)
	if err != nil {
		return nil, err
	}
	data := &TemplateData{Deal: deal, Today: Today().String()}
	if deal.SongId != nil {
		if song, err := GetSong(ctx, *deal.SongId); err == nil {
			data.Song = song
		}
	}
	if deal.ContactId != nil {
		if contact, err := GetContact(ctx, *deal.ContactId); err == nil {
			data.Contact = contact
		}
	}
	return data, nil
}

// Render executes the template against data.
func (tmpl *Template) Render(data any) (string, error) {
	return utils.ExecTemplate(tmpl.Content, data)
}

func CreateTemplate(ctx context.Context, input *NewTemplate) (*Template, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, ownerId, 0); err != nil {
		return nil, err
	}

	tmpl := Template{OwnerId: ownerId}
	input.apply(&tmpl)

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&tmpl).Error; err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func UpdateTemplate(ctx context.Context, id int, input *NewTemplate) (*Template, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, ownerId, id); err != nil {
		return nil, err
	}

	tmpl, err := utils.FetchModel[Template](ctx, ownerId, id)
	if err != nil {
		return nil, err
	}
	cs := input.apply(tmpl)
	if len(cs) == 0 {
		return tmpl, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(tmpl).Updates(map[string]interface{}(cs)).Error; err != nil {
		return nil, err
	}
	return tmpl, nil
}

func DeleteTemplate(ctx context.Context, id int) (*Template, error) {
	return deleteOwned[Template](ctx, id)
}

func GetTemplate(ctx context.Context, id int) (*Template, error) {
	return getOwned[Template](ctx, id)
}

func GetTemplates(ctx context.Context, templateType string) ([]*Template, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("owner_id = ?", ownerId)
	if t := strings.TrimSpace(templateType); t != "" {
		dbCtx = dbCtx.Where("template_type = ?", t)
	}
	var results []*Template
	if err := dbCtx.Order("name").Order("id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetDefaultTemplate returns the first template of the given type, if any.
func GetDefaultTemplate(ctx context.Context, templateType TemplateType) (*Template, error) {
	results, err := GetTemplates(ctx, string(templateType))
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, utils.ErrorRecordNotFound
	}
	return results[0], nil
}
