package dto

import (
	"time"

	"github.com/yukikurage/freelance-crm-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	ImageURL   string    `json:"image_url"`
	CreatedAt  time.Time `json:"created_at"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:         user.ID,
		ExternalID: user.ExternalID,
		Email:      user.Email,
		Name:       user.Name,
		ImageURL:   user.ImageURL,
		CreatedAt:  user.CreatedAt,
	}
}
