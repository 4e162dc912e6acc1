package dto

import (
	"time"

	"github.com/yukikurage/freelance-crm-api/internal/models"
)

// AttachmentDTO represents an attachment in API responses
type AttachmentDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Size      int64     `json:"size"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
}

// CommunicationDTO represents a communication in API responses
type CommunicationDTO struct {
	ID          string                   `json:"id"`
	ClientID    string                   `json:"client_id"`
	ClientName  string                   `json:"client_name"`
	ProjectID   *string                  `json:"project_id"`
	ProjectName *string                  `json:"project_name"`
	Type        models.CommunicationType `json:"type"`
	Subject     string                   `json:"subject"`
	Content     string                   `json:"content"`
	SentAt      time.Time                `json:"sent_at"`
	Attachments []AttachmentDTO          `json:"attachments"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

// FollowUpDraftDTO is an AI-drafted next communication
type FollowUpDraftDTO struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
}

// ToAttachmentDTO converts an Attachment model to AttachmentDTO
func ToAttachmentDTO(attachment models.Attachment) AttachmentDTO {
	return AttachmentDTO{
		ID:        attachment.ID,
		Name:      attachment.Name,
		URL:       attachment.URL,
		Size:      attachment.Size,
		MimeType:  attachment.MimeType,
		CreatedAt: attachment.CreatedAt,
	}
}

// ToCommunicationDTO converts a Communication model to CommunicationDTO.
// Client, Project and Attachments are read from preloaded relations.
func ToCommunicationDTO(communication models.Communication) CommunicationDTO {
	dto := CommunicationDTO{
		ID:          communication.ID,
		ClientID:    communication.ClientID,
		ClientName:  communication.Client.Name,
		ProjectID:   communication.ProjectID,
		Type:        communication.Type,
		Subject:     communication.Subject,
		Content:     communication.Content,
		SentAt:      communication.SentAt,
		Attachments: make([]AttachmentDTO, len(communication.Attachments)),
		CreatedAt:   communication.CreatedAt,
		UpdatedAt:   communication.UpdatedAt,
	}

	// Include project name if preloaded
	if communication.Project != nil {
		name := communication.Project.Name
		dto.ProjectName = &name
	}

	for i, attachment := range communication.Attachments {
		dto.Attachments[i] = ToAttachmentDTO(attachment)
	}

	return dto
}
