package models

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShareKeyLength is the length of the public key respondents use to reach a form.
const ShareKeyLength = 20

// Form is the root of an owner's form definition.
type Form struct {
	BaseModel
	OwnerID      uint   `gorm:"index;not null" json:"owner_id"`
	Title        string `gorm:"type:varchar(100);not null" json:"title"`
	Description  string `gorm:"type:text" json:"description"`
	IsActive     bool   `gorm:"not null;index" json:"is_active"`
	ShareKey     string `gorm:"type:varchar(20);uniqueIndex;not null" json:"share_key"`
	PasswordHash string `gorm:"type:varchar(255)" json:"-"`

	Questions []Question `gorm:"foreignKey:FormID" json:"questions"`
}

// HasPassword reports whether respondents must present a password.
func (f *Form) HasPassword() bool {
	return f.PasswordHash != ""
}

func (f *Form) BeforeCreate(tx *gorm.DB) error {
	if f.ShareKey == "" {
		f.ShareKey = NewShareKey()
	}
	return nil
}

// NewShareKey returns a random key of ShareKeyLength lowercase hex characters.
func NewShareKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:ShareKeyLength]
}
