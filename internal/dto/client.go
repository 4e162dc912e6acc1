package dto

import (
	"time"

	"github.com/yukikurage/freelance-crm-api/internal/models"
)

// ClientDTO represents a client in API responses
type ClientDTO struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Email       string              `json:"email"`
	Phone       string              `json:"phone"`
	Company     string              `json:"company"`
	Notes       string              `json:"notes"`
	Tags        []string            `json:"tags"`
	Status      models.ClientStatus `json:"status"`
	LastContact time.Time           `json:"last_contact"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// ToClientDTO converts a Client model to ClientDTO.
// LastContact is the latest communication time, or the client's own updated_at when there is none.
func ToClientDTO(client models.Client, lastSentAt *time.Time) ClientDTO {
	tags := client.Tags
	if tags == nil {
		tags = []string{}
	}

	lastContact := client.UpdatedAt
	if lastSentAt != nil {
		lastContact = *lastSentAt
	}

	return ClientDTO{
		ID:          client.ID,
		Name:        client.Name,
		Email:       client.Email,
		Phone:       client.Phone,
		Company:     client.Company,
		Notes:       client.Notes,
		Tags:        tags,
		Status:      client.Status,
		LastContact: lastContact,
		CreatedAt:   client.CreatedAt,
		UpdatedAt:   client.UpdatedAt,
	}
}
