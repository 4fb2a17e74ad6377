package services

import (
	"testing"

	"formdesk.link/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSummary(t *testing.T) {
	form := &models.Form{BaseModel: models.BaseModel{ID: 5}, Title: "Poll", Questions: []models.Question{
		{BaseModel: models.BaseModel{ID: 1}, Kind: models.QuestionTypeText, Text: "Gone", OrderKey: models.RemovedOrderKey},
		{BaseModel: models.BaseModel{ID: 2}, Kind: models.QuestionTypeChoice, Text: "Color", OrderKey: 1, Options: []models.QuestionOption{
			{BaseModel: models.BaseModel{ID: 21}, Text: "Red", OrderKey: models.RemovedOrderKey},
			{BaseModel: models.BaseModel{ID: 22}, Text: "Blue", OrderKey: 1},
			{BaseModel: models.BaseModel{ID: 23}, Text: "Green", OrderKey: 2},
		}},
	}}
	answers := []models.ResponseAnswer{
		{QuestionID: 2, OptionID: optID(21)},
		{QuestionID: 2, OptionID: optID(22)},
		{QuestionID: 2, OptionID: optID(22)},
		{QuestionID: 1, TextValue: str("old")},
	}

	summary := BuildSummary(form, answers, 3)
	assert.Equal(t, uint(5), summary.FormID)
	assert.Equal(t, int64(3), summary.ResponseCount)
	require.Len(t, summary.Questions, 2)

	color := summary.Questions[0]
	assert.Equal(t, uint(2), color.QuestionID)
	assert.False(t, color.Removed)
	assert.Equal(t, int64(3), color.AnswerCount)
	require.Len(t, color.Options, 3)
	assert.Equal(t, OptionSummary{OptionID: 22, Text: "Blue", Count: 2, Percentage: 66.67}, color.Options[0])
	assert.Equal(t, OptionSummary{OptionID: 23, Text: "Green"}, color.Options[1])
	assert.Equal(t, OptionSummary{OptionID: 21, Text: "Red", Removed: true, Count: 1, Percentage: 33.33}, color.Options[2])

	gone := summary.Questions[1]
	assert.True(t, gone.Removed)
	assert.Equal(t, int64(1), gone.AnswerCount)
	assert.Empty(t, gone.Options)
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0.0, percentage(3, 0))
	assert.Equal(t, 50.0, percentage(1, 2))
	assert.Equal(t, 100.0, percentage(4, 4))
}
