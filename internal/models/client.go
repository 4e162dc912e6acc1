package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "ACTIVE"
	ClientStatusArchived ClientStatus = "ARCHIVED"
)

// ClientFilter selects which clients a list returns. ALL is not a stored status.
type ClientFilter string

const (
	ClientFilterActive   ClientFilter = "ACTIVE"
	ClientFilterArchived ClientFilter = "ARCHIVED"
	ClientFilterAll      ClientFilter = "ALL"
)

type Client struct {
	ID        string       `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string       `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Name      string       `gorm:"type:varchar(255);not null" json:"name"`
	Email     string       `gorm:"type:varchar(255)" json:"email"`
	Phone     string       `gorm:"type:varchar(64)" json:"phone"`
	Company   string       `gorm:"type:varchar(255)" json:"company"`
	Notes     string       `gorm:"type:text" json:"notes"`
	Tags      []string     `gorm:"serializer:json" json:"tags"`
	Status    ClientStatus `gorm:"type:varchar(20);not null;default:'ACTIVE';index" json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`

	// Relations
	User           User            `gorm:"foreignKey:UserID" json:"-"`
	Projects       []Project       `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE" json:"-"`
	Communications []Communication `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE" json:"-"`
}

func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
