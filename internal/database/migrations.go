package database

import (
	"fmt"
	"log"

	"github.com/yukikurage/freelance-crm-api/internal/models"
	"gorm.io/gorm"
)

// AddIndexes adds the composite indexes behind the list queries.
// Single-column indexes come from the model tags.
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		model   interface{}
		table   string
		name    string
		columns string
	}{
		// Client list: owner + status filter, newest first
		{&models.Client{}, "clients", "idx_clients_user_status_updated", "user_id, status, updated_at"},
		// Project list per owner and per client
		{&models.Project{}, "projects", "idx_projects_user_updated", "user_id, updated_at"},
		{&models.Project{}, "projects", "idx_projects_client_updated", "client_id, updated_at"},
		// lastContact / lastActivity derivation
		{&models.Communication{}, "communications", "idx_communications_client_sent", "client_id, sent_at"},
		{&models.Communication{}, "communications", "idx_communications_project_sent", "project_id, sent_at"},
	}

	for _, idx := range indexes {
		if db.Migrator().HasIndex(idx.model, idx.name) {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Printf("[DB] created index %s on %s(%s)", idx.name, idx.table, idx.columns)
	}

	return nil
}
