package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/freelance-crm-api/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

var (
	// ErrDeleteUserData is returned when removing a user's owned records fails inside the delete transaction.
	ErrDeleteUserData = errors.New("user repository: delete owned data failed")
	// ErrDeleteUser is returned when removing the user row fails inside the delete transaction.
	ErrDeleteUser = errors.New("user repository: delete user failed")
)

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByExternalID finds a user by the auth provider's ID
func (r *GormUserRepository) FindByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Update saves profile changes
func (r *GormUserRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Select("email", "name", "image_url", "updated_at").Updates(user).Error
}

// DeleteWithData removes the user, their clients, projects, communications and attachments.
func (r *GormUserRepository) DeleteWithData(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		clientIDs := tx.Model(&models.Client{}).Select("id").Where("user_id = ?", userID)
		communicationIDs := tx.Model(&models.Communication{}).Select("id").Where("client_id IN (?)", clientIDs)

		if err := tx.Where("communication_id IN (?)", communicationIDs).Delete(&models.Attachment{}).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrDeleteUserData, err)
		}
		if err := tx.Where("client_id IN (?)", clientIDs).Delete(&models.Communication{}).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrDeleteUserData, err)
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Project{}).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrDeleteUserData, err)
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Client{}).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrDeleteUserData, err)
		}
		if err := tx.Where("id = ?", userID).Delete(&models.User{}).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrDeleteUser, err)
		}
		return nil
	})
}
