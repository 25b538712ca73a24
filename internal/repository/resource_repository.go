package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/resource-conflict-api/internal/models"
)

// ResourceRepository reads resources owned by the CRUD layer.
type ResourceRepository struct {
	db *sqlx.DB
}

// NewResourceRepository creates a resource repository.
func NewResourceRepository(db *sqlx.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// FindByID loads a resource by id.
func (r *ResourceRepository) FindByID(ctx context.Context, id int64) (*models.Resource, error) {
	const query = `SELECT id, name, category, hourly_rate, is_available, notes, created_at, updated_at FROM resources WHERE id = $1`
	var resource models.Resource
	if err := r.db.GetContext(ctx, &resource, query, id); err != nil {
		return nil, err
	}
	return &resource, nil
}
