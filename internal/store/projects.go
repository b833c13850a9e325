package store

import (
	"context"
	"database/sql"

	"builders-core/internal/models"
)

// CreateProject inserts a new showcased project.
func (s *Store) CreateProject(ctx context.Context, project *models.Project) error {
	query := `
		INSERT INTO projects (user_id, name, mrr_cents)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, project, query,
		project.UserID, project.Name, project.MRRCents)
}

// GetProjectByID retrieves a project by ID
func (s *Store) GetProjectByID(ctx context.Context, id int64) (*models.Project, error) {
	var project models.Project
	err := s.db.GetContext(ctx, &project, "SELECT * FROM projects WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// GetPendingWagersByProject retrieves unsettled wagers on a project.
func (s *Store) GetPendingWagersByProject(ctx context.Context, projectID int64) ([]models.Wager, error) {
	var wagers []models.Wager
	err := s.db.SelectContext(ctx, &wagers,
		"SELECT * FROM wagers WHERE project_id = $1 AND status = $2 ORDER BY id",
		projectID, models.WagerStatusPending)
	return wagers, err
}
