package models

import (
	"context"

	"github.com/jonassync/licensing_backend/config"
)

// default templates seeded for new users
var defaultTemplates = []Template{
	{
		Name:         "Sync License Agreement",
		TemplateType: TemplateTypeContract,
		Content: `SYNCHRONIZATION LICENSE AGREEMENT

Project: {{.Deal.ProjectName}}
Song: {{if .Song}}{{.Song.Title}}{{if .Song.Artist}} by {{.Song.Artist}}{{end}}{{end}}
Licensee: {{if .Contact}}{{.Contact.Name}}{{if .Contact.Company}}, {{.Contact.Company}}{{end}}{{end}}
Territory: {{.Deal.Territory}}
Term: {{.Deal.Term}}
Media: {{.Deal.Media}}
Usage: {{.Deal.Usage}}
Fee (publishing): {{.Deal.OurFee}}
Fee (master recording): {{.Deal.OurRecordingFee}}
`,
	},
	{
		Name:         "Quote Follow-up",
		TemplateType: TemplateTypeEmail,
		Content: `Hi {{if .Contact}}{{.Contact.Name}}{{end}},

Following up on our quote for {{.Deal.ProjectName}}. Let me know if you have any questions.
`,
	},
	{
		Name:         "Song Pitch",
		TemplateType: TemplateTypePitch,
		Content: `Hi {{if .Contact}}{{.Contact.Name}}{{end}},

I think "{{if .Song}}{{.Song.Title}}{{end}}" could be a great fit for {{.Deal.ProjectName}}.
`,
	},
}

// CreateDefaultTemplates seeds the starter templates for ownerId. Owners who
// already have templates are left alone.
func CreateDefaultTemplates(ctx context.Context, ownerId int) ([]Template, error) {
	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&Template{}).Where("owner_id = ?", ownerId).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, nil
	}

	templates := make([]Template, len(defaultTemplates))
	copy(templates, defaultTemplates)
	for i := range templates {
		templates[i].OwnerId = ownerId
	}
	if err := db.WithContext(ctx).Create(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}
