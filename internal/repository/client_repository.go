package repository

import (
	"context"
	"time"

	"github.com/yukikurage/freelance-crm-api/internal/database"
	"github.com/yukikurage/freelance-crm-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormClientRepository is a GORM implementation of ClientRepository
type GormClientRepository struct {
	db *gorm.DB
}

// NewClientRepository creates a new ClientRepository
func NewClientRepository(db *gorm.DB) ClientRepository {
	return &GormClientRepository{db: db}
}

// Create creates a new client
func (r *GormClientRepository) Create(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(client).Error
}

// FindOwned finds a client by ID scoped to its owner
func (r *GormClientRepository) FindOwned(ctx context.Context, id, userID string) (*models.Client, error) {
	var client models.Client
	if err := r.db.WithContext(ctx).
		Scopes(database.OwnedBy("clients", userID)).
		Where("clients.id = ?", id).
		First(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

// List retrieves clients with an optional status filter
func (r *GormClientRepository) List(ctx context.Context, filter ClientFilter) ([]models.Client, error) {
	var clients []models.Client

	query := r.db.WithContext(ctx).
		Model(&models.Client{}).
		Scopes(database.OwnedBy("clients", filter.UserID))

	if filter.Status != nil {
		query = query.Where("clients.status = ?", *filter.Status)
	}

	if err := query.Order("clients.updated_at DESC").Order("clients.id").Find(&clients).Error; err != nil {
		return nil, err
	}

	return clients, nil
}

// Update updates a client
func (r *GormClientRepository) Update(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(client).Error
}

// TransitionStatus applies a status change only if the client is currently in the from status.
func (r *GormClientRepository) TransitionStatus(ctx context.Context, id, userID string, from, to models.ClientStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Client{}).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// LatestContacts returns the latest communication sent_at for each client that has one
func (r *GormClientRepository) LatestContacts(ctx context.Context, clientIDs []string) (map[string]time.Time, error) {
	latest := make(map[string]time.Time, len(clientIDs))
	if len(clientIDs) == 0 {
		return latest, nil
	}

	var rows []struct {
		ClientID   string
		LastSentAt aggregateTime
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Communication{}).
		Select("client_id, MAX(sent_at) AS last_sent_at").
		Where("client_id IN ?", clientIDs).
		Group("client_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		if row.LastSentAt.Valid {
			latest[row.ClientID] = row.LastSentAt.Time
		}
	}

	return latest, nil
}
