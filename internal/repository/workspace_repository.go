package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brandpulse/crisis-service/internal/domain"
)

// WorkspaceRepository lists the tenants the scheduler polls.
type WorkspaceRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Workspace, error)
	ListActive(ctx context.Context) ([]domain.Workspace, error)
}

type workspaceRepository struct {
	pool *pgxpool.Pool
}

// NewWorkspaceRepository instantiates repository.
func NewWorkspaceRepository(pool *pgxpool.Pool) WorkspaceRepository {
	return &workspaceRepository{pool: pool}
}

func (r *workspaceRepository) GetByID(ctx context.Context, id string) (*domain.Workspace, error) {
	const query = `SELECT id, name, is_active, created_at FROM workspaces WHERE id=$1`
	var ws domain.Workspace
	if err := r.pool.QueryRow(ctx, query, id).Scan(&ws.ID, &ws.Name, &ws.IsActive, &ws.CreatedAt); err != nil {
		return nil, err
	}
	return &ws, nil
}

func (r *workspaceRepository) ListActive(ctx context.Context) ([]domain.Workspace, error) {
	const query = `SELECT id, name, is_active, created_at FROM workspaces WHERE is_active ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Workspace
	for rows.Next() {
		var ws domain.Workspace
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.IsActive, &ws.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, ws)
	}
	return result, rows.Err()
}
