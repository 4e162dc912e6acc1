package dto

import (
	"time"

	"github.com/yukikurage/freelance-crm-api/internal/models"
)

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID                 string               `json:"id"`
	ClientID           string               `json:"client_id"`
	ClientName         string               `json:"client_name"`
	Name               string               `json:"name"`
	Description        string               `json:"description"`
	Status             models.ProjectStatus `json:"status"`
	StartDate          *time.Time           `json:"start_date"`
	EndDate            *time.Time           `json:"end_date"`
	LastActivity       time.Time            `json:"last_activity"`
	CommunicationCount int                  `json:"communication_count"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

// ToProjectDTO converts a Project model (with its Client preloaded) to ProjectDTO
func ToProjectDTO(project models.Project, lastSentAt *time.Time, communicationCount int) ProjectDTO {
	lastActivity := project.UpdatedAt
	if lastSentAt != nil {
		lastActivity = *lastSentAt
	}

	return ProjectDTO{
		ID:                 project.ID,
		ClientID:           project.ClientID,
		ClientName:         project.Client.Name,
		Name:               project.Name,
		Description:        project.Description,
		Status:             project.Status,
		StartDate:          project.StartDate,
		EndDate:            project.EndDate,
		LastActivity:       lastActivity,
		CommunicationCount: communicationCount,
		CreatedAt:          project.CreatedAt,
		UpdatedAt:          project.UpdatedAt,
	}
}
