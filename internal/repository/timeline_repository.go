package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brandpulse/crisis-service/internal/domain"
)

// TimelineRepository stores the append-only crisis audit trail.
type TimelineRepository interface {
	Append(ctx context.Context, entry *domain.TimelineEntry) error
	ListByCrisis(ctx context.Context, crisisID string) ([]domain.TimelineEntry, error)
}

type timelineRepository struct {
	pool *pgxpool.Pool
}

// NewTimelineRepository builds repository.
func NewTimelineRepository(pool *pgxpool.Pool) TimelineRepository {
	return &timelineRepository{pool: pool}
}

func (r *timelineRepository) Append(ctx context.Context, entry *domain.TimelineEntry) error {
	const query = `
        INSERT INTO crisis_timeline (crisis_id, actor_id, from_status, to_status, note)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.CrisisID,
		entry.ActorID,
		entry.FromStatus,
		entry.ToStatus,
		entry.Note,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *timelineRepository) ListByCrisis(ctx context.Context, crisisID string) ([]domain.TimelineEntry, error) {
	const query = `
        SELECT id, crisis_id, actor_id, from_status, to_status, note, created_at
        FROM crisis_timeline WHERE crisis_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, crisisID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TimelineEntry
	for rows.Next() {
		var entry domain.TimelineEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.CrisisID,
			&entry.ActorID,
			&entry.FromStatus,
			&entry.ToStatus,
			&entry.Note,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
