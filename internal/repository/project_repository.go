package repository

import (
	"context"
	"fmt"

	"github.com/yukikurage/freelance-crm-api/internal/database"
	"github.com/yukikurage/freelance-crm-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

// Create creates a new project
func (r *GormProjectRepository) Create(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(project).Error
}

// FindOwned finds a project by ID scoped to its owner
func (r *GormProjectRepository) FindOwned(ctx context.Context, id, userID string) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).
		Preload("Client").
		Scopes(database.OwnedBy("projects", userID)).
		Where("projects.id = ?", id).
		First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// List retrieves projects with filtering
func (r *GormProjectRepository) List(ctx context.Context, filter ProjectFilter) ([]models.Project, error) {
	var projects []models.Project

	query := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Scopes(database.OwnedBy("projects", filter.UserID))

	if filter.ClientID != nil {
		query = query.Where("projects.client_id = ?", *filter.ClientID)
	}
	if filter.Status != nil {
		query = query.Where("projects.status = ?", *filter.Status)
	}

	if err := query.
		Preload("Client").
		Order("projects.updated_at DESC").
		Order("projects.id").
		Find(&projects).Error; err != nil {
		return nil, err
	}

	return projects, nil
}

// Update updates a project
func (r *GormProjectRepository) Update(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(project).Error
}

// Delete removes a project and the communications tagged to it in a transaction
func (r *GormProjectRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		communicationIDs := tx.Model(&models.Communication{}).Select("id").Where("project_id = ?", id)

		if err := tx.Where("communication_id IN (?)", communicationIDs).Delete(&models.Attachment{}).Error; err != nil {
			return fmt.Errorf("delete project attachments: %w", err)
		}

		if err := tx.Where("project_id = ?", id).Delete(&models.Communication{}).Error; err != nil {
			return fmt.Errorf("delete project communications: %w", err)
		}

		if err := tx.Where("id = ?", id).Delete(&models.Project{}).Error; err != nil {
			return fmt.Errorf("delete project: %w", err)
		}

		return nil
	})
}

// Activity returns last communication time and communication count per project
func (r *GormProjectRepository) Activity(ctx context.Context, projectIDs []string) (map[string]ProjectActivity, error) {
	activity := make(map[string]ProjectActivity, len(projectIDs))
	if len(projectIDs) == 0 {
		return activity, nil
	}

	var rows []struct {
		ProjectID          string
		CommunicationCount int
		LastSentAt         aggregateTime
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Communication{}).
		Select("project_id, COUNT(*) AS communication_count, MAX(sent_at) AS last_sent_at").
		Where("project_id IN ?", projectIDs).
		Group("project_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		a := ProjectActivity{CommunicationCount: row.CommunicationCount}
		if row.LastSentAt.Valid {
			sentAt := row.LastSentAt.Time
			a.LastSentAt = &sentAt
		}
		activity[row.ProjectID] = a
	}

	return activity, nil
}
