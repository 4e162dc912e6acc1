package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Attachment struct {
	ID              string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CommunicationID string    `gorm:"type:varchar(36);not null;index" json:"communication_id"`
	Name            string    `gorm:"type:varchar(255);not null" json:"name"`
	URL             string    `gorm:"type:varchar(2048);not null" json:"url"`
	Size            int64     `gorm:"not null;default:0" json:"size"`
	MimeType        string    `gorm:"type:varchar(255)" json:"mime_type"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (a *Attachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
