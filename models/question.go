package models

import "strings"

// QuestionType fixes the shape of the answers a question accepts.
type QuestionType string

const (
	QuestionTypeText   QuestionType = "TEXT"
	QuestionTypeChoice QuestionType = "CHOICE"
	QuestionTypeFile   QuestionType = "FILE"
)

// RemovedOrderKey marks a question or option as removed from the live form.
// Live positions start at 1, so any key <= 0 is never a live position.
const RemovedOrderKey = -1

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeText, QuestionTypeChoice, QuestionTypeFile:
		return true
	}
	return false
}

// ParseQuestionType accepts the kind case-insensitively.
func ParseQuestionType(s string) (QuestionType, bool) {
	t := QuestionType(strings.ToUpper(strings.TrimSpace(s)))
	return t, t.Valid()
}

type Question struct {
	BaseModel
	FormID     uint         `gorm:"not null;index:idx_question_form_order" json:"form_id"`
	Kind       QuestionType `gorm:"type:varchar(10);not null" json:"question_type"`
	Text       string       `gorm:"type:text;not null" json:"text"`
	IsRequired bool         `gorm:"not null" json:"is_required"`
	OrderKey   int          `gorm:"not null;index:idx_question_form_order" json:"display_order"`

	Options []QuestionOption `gorm:"foreignKey:QuestionID" json:"options"`
}

// IsLive reports whether the question is part of the current form definition.
func (q *Question) IsLive() bool {
	return q.OrderKey > 0
}

type QuestionOption struct {
	BaseModel
	QuestionID uint   `gorm:"not null;index:idx_option_question_order" json:"question_id"`
	Text       string `gorm:"type:text;not null" json:"text"`
	OrderKey   int    `gorm:"not null;index:idx_option_question_order" json:"display_order"`
}

func (o *QuestionOption) IsLive() bool {
	return o.OrderKey > 0
}
