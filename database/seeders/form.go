package seeders

import (
	"context"
	"errors"

	"formdesk.link/configs/configslog"
	"formdesk.link/models"
	"formdesk.link/repositories"

	"gorm.io/gorm"
)

const (
	DemoOwnerID   = uint(1)
	DemoFormTitle = "Customer feedback"
)

// SeedDemoForm creates a small active form for DemoOwnerID unless one with the same title exists.
func SeedDemoForm(db *gorm.DB) error {
	ctx := context.Background()

	var existing models.Form
	err := db.WithContext(ctx).Where("owner_id = ? AND title = ?", DemoOwnerID, DemoFormTitle).First(&existing).Error
	if err == nil {
		configslog.SLog.Debugf("Demo form already present (ID: %d), skipping.", existing.ID)
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	form := &models.Form{
		OwnerID:     DemoOwnerID,
		Title:       DemoFormTitle,
		Description: "Tell us how we did.",
		IsActive:    true,
	}
	if err := repositories.NewFormRepository(db).Create(ctx, form); err != nil {
		return err
	}

	questions := []models.Question{
		{Kind: models.QuestionTypeText, Text: "Your name", IsRequired: true},
		{Kind: models.QuestionTypeChoice, Text: "How satisfied are you?", IsRequired: true, Options: []models.QuestionOption{
			{Text: "Very satisfied", OrderKey: 1},
			{Text: "Neutral", OrderKey: 2},
			{Text: "Unsatisfied", OrderKey: 3},
		}},
		{Kind: models.QuestionTypeFile, Text: "Attach a screenshot"},
	}
	repo := repositories.NewQuestionRepository(db)
	for i := range questions {
		questions[i].FormID = form.ID
		questions[i].OrderKey = i + 1
		if err := repo.Create(ctx, &questions[i]); err != nil {
			return err
		}
	}

	configslog.SLog.Infof("Demo form created (ID: %d, share key: %s).", form.ID, form.ShareKey)
	return nil
}
