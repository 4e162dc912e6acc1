package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CommunicationType string

const (
	CommunicationTypeEmail   CommunicationType = "EMAIL"
	CommunicationTypeCall    CommunicationType = "CALL"
	CommunicationTypeMeeting CommunicationType = "MEETING"
	CommunicationTypeMessage CommunicationType = "MESSAGE"
	CommunicationTypeNote    CommunicationType = "NOTE"
	CommunicationTypeOther   CommunicationType = "OTHER"
)

var CommunicationTypes = []CommunicationType{
	CommunicationTypeEmail,
	CommunicationTypeCall,
	CommunicationTypeMeeting,
	CommunicationTypeMessage,
	CommunicationTypeNote,
	CommunicationTypeOther,
}

type Communication struct {
	ID        string            `gorm:"type:varchar(36);primaryKey" json:"id"`
	ClientID  string            `gorm:"type:varchar(36);not null;index" json:"client_id"`
	ProjectID *string           `gorm:"type:varchar(36);index" json:"project_id"`
	Type      CommunicationType `gorm:"type:varchar(20);not null" json:"type"`
	Subject   string            `gorm:"type:varchar(255);not null" json:"subject"`
	Content   string            `gorm:"type:text;not null" json:"content"`
	SentAt    time.Time         `gorm:"not null;index" json:"sent_at"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`

	// Relations
	Client      Client       `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Project     *Project     `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Attachments []Attachment `gorm:"foreignKey:CommunicationID;constraint:OnDelete:CASCADE" json:"attachments,omitempty"`
}

func (c *Communication) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
