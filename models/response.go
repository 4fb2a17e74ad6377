package models

import "time"

// FormResponse is one respondent's submission. Rows are written once and never updated.
type FormResponse struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	FormID       uint      `gorm:"not null;index" json:"form_id"`
	RespondentID uint      `gorm:"not null;index" json:"respondent_id"`
	SubmittedAt  time.Time `gorm:"not null;index" json:"submitted_at"`

	Answers []ResponseAnswer `gorm:"foreignKey:ResponseID" json:"answers,omitempty"`
}

// ResponseAnswer holds exactly one of OptionID, TextValue or FilePath, chosen by the
// question kind at the time of submission.
type ResponseAnswer struct {
	ID         uint    `gorm:"primarykey" json:"id"`
	ResponseID uint    `gorm:"not null;index" json:"response_id"`
	QuestionID uint    `gorm:"not null;index" json:"question_id"`
	OptionID   *uint   `gorm:"index" json:"option_id,omitempty"`
	TextValue  *string `gorm:"type:text" json:"text_value,omitempty"`
	FilePath   *string `gorm:"type:varchar(255)" json:"file_path,omitempty"`

	Question *Question       `gorm:"foreignKey:QuestionID" json:"question,omitempty"`
	Option   *QuestionOption `gorm:"foreignKey:OptionID" json:"option,omitempty"`
}
