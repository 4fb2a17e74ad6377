package models

import "time"

// BaseModel carries the identity and timestamps shared by the editable form entities.
// Questions and options are never soft-deleted by gorm: removal is expressed through OrderKey.
type BaseModel struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
