package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brandpulse/crisis-service/internal/domain"
)

// ErrDuplicateOpenCrisis is returned when an insert collides with the
// partial unique index guarding one open crisis per (workspace, type).
var ErrDuplicateOpenCrisis = errors.New("open crisis of this type already exists")

// ErrStaleStatus is returned when a compare-and-set update observes a
// concurrent status change.
var ErrStaleStatus = errors.New("crisis status changed concurrently")

// CrisisFilter captures listing parameters.
type CrisisFilter struct {
	WorkspaceID  string
	Statuses     []domain.CrisisStatus
	Types        []domain.CrisisType
	DetectedFrom *time.Time
	DetectedTo   *time.Time
	Limit        int
	Offset       int
}

// CrisisRepository encapsulates crisis persistence.
type CrisisRepository interface {
	Create(ctx context.Context, crisis *domain.Crisis) error
	GetByID(ctx context.Context, id string) (*domain.Crisis, error)
	// FindOpenByType returns nil without error when no open crisis of
	// the given type exists for the workspace.
	FindOpenByType(ctx context.Context, workspaceID string, crisisType domain.CrisisType) (*domain.Crisis, error)
	// UpdateStatus applies a lifecycle move only if the stored status
	// still equals expectedStatus; otherwise ErrStaleStatus.
	UpdateStatus(ctx context.Context, crisis *domain.Crisis, expectedStatus domain.CrisisStatus) error
	// RefreshDetection updates the snapshot, score and severity of an
	// open crisis after a re-detection pass.
	RefreshDetection(ctx context.Context, crisis *domain.Crisis) error
	ListWithFilter(ctx context.Context, filter CrisisFilter) ([]domain.Crisis, error)
}

type crisisRepository struct {
	pool *pgxpool.Pool
}

// NewCrisisRepository instantiates repository.
func NewCrisisRepository(pool *pgxpool.Pool) CrisisRepository {
	return &crisisRepository{pool: pool}
}

const crisisColumns = `id, workspace_id, title, type, severity, status, score, snapshot,
       detected_at, acknowledged_at, resolved_at, created_at, updated_at`

func (r *crisisRepository) Create(ctx context.Context, crisis *domain.Crisis) error {
	const query = `
        INSERT INTO crises (workspace_id, title, type, severity, status, score, snapshot, detected_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		crisis.WorkspaceID,
		crisis.Title,
		crisis.Type,
		crisis.Severity,
		crisis.Status,
		crisis.Score,
		crisis.Snapshot,
		crisis.DetectedAt,
	).Scan(&crisis.ID, &crisis.CreatedAt, &crisis.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateOpenCrisis
	}
	return err
}

func (r *crisisRepository) GetByID(ctx context.Context, id string) (*domain.Crisis, error) {
	query := fmt.Sprintf(`SELECT %s FROM crises WHERE id=$1`, crisisColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *crisisRepository) FindOpenByType(ctx context.Context, workspaceID string, crisisType domain.CrisisType) (*domain.Crisis, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM crises
        WHERE workspace_id=$1 AND type=$2 AND status NOT IN ('RESOLVED','CLOSED')`, crisisColumns)
	crisis, err := r.fetchSingle(ctx, query, workspaceID, crisisType)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return crisis, err
}

func (r *crisisRepository) UpdateStatus(ctx context.Context, crisis *domain.Crisis, expectedStatus domain.CrisisStatus) error {
	const query = `
        UPDATE crises SET status=$1, acknowledged_at=$2, resolved_at=$3, updated_at=NOW()
        WHERE id=$4 AND status=$5`
	cmd, err := r.pool.Exec(ctx, query,
		crisis.Status,
		crisis.AcknowledgedAt,
		crisis.ResolvedAt,
		crisis.ID,
		expectedStatus,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStaleStatus
	}
	return nil
}

func (r *crisisRepository) RefreshDetection(ctx context.Context, crisis *domain.Crisis) error {
	const query = `
        UPDATE crises SET severity=$1, score=$2, snapshot=$3, updated_at=NOW()
        WHERE id=$4 AND status NOT IN ('RESOLVED','CLOSED')`
	cmd, err := r.pool.Exec(ctx, query,
		crisis.Severity,
		crisis.Score,
		crisis.Snapshot,
		crisis.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStaleStatus
	}
	return nil
}

func (r *crisisRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Crisis, error) {
	var crisis domain.Crisis
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&crisis.ID,
		&crisis.WorkspaceID,
		&crisis.Title,
		&crisis.Type,
		&crisis.Severity,
		&crisis.Status,
		&crisis.Score,
		&crisis.Snapshot,
		&crisis.DetectedAt,
		&crisis.AcknowledgedAt,
		&crisis.ResolvedAt,
		&crisis.CreatedAt,
		&crisis.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &crisis, nil
}

func (r *crisisRepository) ListWithFilter(ctx context.Context, filter CrisisFilter) ([]domain.Crisis, error) {
	base := fmt.Sprintf(`SELECT %s FROM crises`, crisisColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.WorkspaceID != "" {
		args = append(args, filter.WorkspaceID)
		clauses = append(clauses, fmt.Sprintf("workspace_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			args = append(args, t)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("type IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.DetectedFrom != nil {
		args = append(args, *filter.DetectedFrom)
		clauses = append(clauses, fmt.Sprintf("detected_at >= $%d", len(args)))
	}
	if filter.DetectedTo != nil {
		args = append(args, *filter.DetectedTo)
		clauses = append(clauses, fmt.Sprintf("detected_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY detected_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCrises(rows)
}

func scanCrises(rows pgx.Rows) ([]domain.Crisis, error) {
	var result []domain.Crisis
	for rows.Next() {
		var crisis domain.Crisis
		if err := rows.Scan(
			&crisis.ID,
			&crisis.WorkspaceID,
			&crisis.Title,
			&crisis.Type,
			&crisis.Severity,
			&crisis.Status,
			&crisis.Score,
			&crisis.Snapshot,
			&crisis.DetectedAt,
			&crisis.AcknowledgedAt,
			&crisis.ResolvedAt,
			&crisis.CreatedAt,
			&crisis.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, crisis)
	}
	return result, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
