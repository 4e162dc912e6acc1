package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectStatusProposal  ProjectStatus = "PROPOSAL"
	ProjectStatusActive    ProjectStatus = "ACTIVE"
	ProjectStatusOnHold    ProjectStatus = "ON_HOLD"
	ProjectStatusCompleted ProjectStatus = "COMPLETED"
	ProjectStatusCanceled  ProjectStatus = "CANCELED"
)

// ProjectStatuses lists every accepted status. There is no transition graph.
var ProjectStatuses = []ProjectStatus{
	ProjectStatusProposal,
	ProjectStatusActive,
	ProjectStatusOnHold,
	ProjectStatusCompleted,
	ProjectStatusCanceled,
}

type Project struct {
	ID          string        `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      string        `gorm:"type:varchar(36);not null;index" json:"user_id"`
	ClientID    string        `gorm:"type:varchar(36);not null;index" json:"client_id"`
	Name        string        `gorm:"type:varchar(255);not null" json:"name"`
	Description string        `gorm:"type:text" json:"description"`
	Status      ProjectStatus `gorm:"type:varchar(20);not null;default:'PROPOSAL'" json:"status"`
	StartDate   *time.Time    `json:"start_date"`
	EndDate     *time.Time    `json:"end_date"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	// Relations
	User           User            `gorm:"foreignKey:UserID" json:"-"`
	Client         Client          `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Communications []Communication `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
