package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brandpulse/crisis-service/internal/domain"
)

// MentionRepository reads from the externally populated mention store.
// Mentions are written by the ingestion pipeline and are read-only
// here.
type MentionRepository interface {
	// ListWindow returns mentions published in [from, to).
	ListWindow(ctx context.Context, workspaceID string, from, to time.Time) ([]domain.Mention, error)
}

type mentionRepository struct {
	pool *pgxpool.Pool
}

// NewMentionRepository instantiates repository.
func NewMentionRepository(pool *pgxpool.Pool) MentionRepository {
	return &mentionRepository{pool: pool}
}

func (r *mentionRepository) ListWindow(ctx context.Context, workspaceID string, from, to time.Time) ([]domain.Mention, error) {
	const query = `
        SELECT id, workspace_id, platform, content, author_id, author_name, sentiment,
               likes, comments, shares, reach, is_influencer, published_at
        FROM mentions
        WHERE workspace_id=$1 AND published_at >= $2 AND published_at < $3
        ORDER BY published_at ASC`
	rows, err := r.pool.Query(ctx, query, workspaceID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Mention
	for rows.Next() {
		var mention domain.Mention
		if err := rows.Scan(
			&mention.ID,
			&mention.WorkspaceID,
			&mention.Platform,
			&mention.Content,
			&mention.AuthorID,
			&mention.AuthorName,
			&mention.Sentiment,
			&mention.Likes,
			&mention.Comments,
			&mention.Shares,
			&mention.Reach,
			&mention.IsInfluencer,
			&mention.PublishedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, mention)
	}
	return result, rows.Err()
}
