package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/freelance-crm-api/internal/database"
	"github.com/yukikurage/freelance-crm-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCommunicationRepository is a GORM implementation of CommunicationRepository
type GormCommunicationRepository struct {
	db *gorm.DB
}

var (
	// ErrCreateCommunication is returned when inserting the communication row fails inside its transaction.
	ErrCreateCommunication = errors.New("communication repository: create communication failed")
	// ErrSaveCommunication is returned when updating the communication row fails inside its transaction.
	ErrSaveCommunication = errors.New("communication repository: save communication failed")
	// ErrCreateAttachment is returned when inserting an attachment fails inside the communication transaction.
	ErrCreateAttachment = errors.New("communication repository: create attachment failed")
)

// NewCommunicationRepository creates a new CommunicationRepository
func NewCommunicationRepository(db *gorm.DB) CommunicationRepository {
	return &GormCommunicationRepository{db: db}
}

// CreateWithAttachments creates a communication and each attachment; any failure rolls back all of them.
func (r *GormCommunicationRepository) CreateWithAttachments(ctx context.Context, communication *models.Communication, attachments []models.Attachment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(communication).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateCommunication, err)
		}

		if err := createAttachments(tx, communication.ID, attachments); err != nil {
			return err
		}

		communication.Attachments = attachments
		return nil
	})
}

// FindOwned finds a communication whose client belongs to userID
func (r *GormCommunicationRepository) FindOwned(ctx context.Context, id, userID string) (*models.Communication, error) {
	var communication models.Communication
	if err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Project").
		Preload("Attachments", func(db *gorm.DB) *gorm.DB {
			return db.Order("attachments.created_at")
		}).
		Where("communications.id = ?", id).
		Where("communications.client_id IN (?)", ownedClientIDs(r.db, userID)).
		First(&communication).Error; err != nil {
		return nil, err
	}
	return &communication, nil
}

// List retrieves communications with filtering and an optional row limit
func (r *GormCommunicationRepository) List(ctx context.Context, filter CommunicationFilter) ([]models.Communication, error) {
	var communications []models.Communication

	query := r.db.WithContext(ctx).
		Model(&models.Communication{}).
		Where("communications.client_id IN (?)", ownedClientIDs(r.db, filter.UserID))

	if filter.ClientID != nil {
		query = query.Where("communications.client_id = ?", *filter.ClientID)
	}
	if filter.ProjectID != nil {
		query = query.Where("communications.project_id = ?", *filter.ProjectID)
	}
	if filter.Type != nil {
		query = query.Where("communications.type = ?", *filter.Type)
	}

	if err := query.
		Preload("Client").
		Preload("Project").
		Preload("Attachments").
		Order("communications.sent_at DESC").
		Order("communications.id").
		Scopes(database.Take(filter.Limit)).
		Find(&communications).Error; err != nil {
		return nil, err
	}

	return communications, nil
}

// UpdateWithAttachments saves a communication and appends attachments in one transaction
func (r *GormCommunicationRepository) UpdateWithAttachments(ctx context.Context, communication *models.Communication, attachments []models.Attachment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(communication).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrSaveCommunication, err)
		}

		return createAttachments(tx, communication.ID, attachments)
	})
}

// Delete removes a communication and its attachments
func (r *GormCommunicationRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("communication_id = ?", id).Delete(&models.Attachment{}).Error; err != nil {
			return err
		}

		return tx.Where("id = ?", id).Delete(&models.Communication{}).Error
	})
}

// createAttachments inserts attachments one by one so a failing row aborts the transaction
func createAttachments(tx *gorm.DB, communicationID string, attachments []models.Attachment) error {
	for i := range attachments {
		attachments[i].CommunicationID = communicationID
		if err := tx.Create(&attachments[i]).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateAttachment, err)
		}
	}
	return nil
}

// ownedClientIDs is a subquery selecting the IDs of clients owned by userID
func ownedClientIDs(db *gorm.DB, userID string) *gorm.DB {
	return db.Model(&models.Client{}).Select("id").Where("user_id = ?", userID)
}
