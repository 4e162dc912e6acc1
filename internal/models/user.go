package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ExternalID string    `gorm:"type:varchar(191);uniqueIndex;not null" json:"external_id"`
	Email      string    `gorm:"type:varchar(255)" json:"email"`
	Name       string    `gorm:"type:varchar(255)" json:"name"`
	ImageURL   string    `gorm:"type:varchar(1024)" json:"image_url"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Relations
	Clients  []Client  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Projects []Project `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
