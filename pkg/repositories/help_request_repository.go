package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/frontdesk-hq/frontdesk-engine/pkg/apperrors"
	"github.com/frontdesk-hq/frontdesk-engine/pkg/database"
	"github.com/frontdesk-hq/frontdesk-engine/pkg/models"
)

// HelpRequestRepository provides data access for help requests.
type HelpRequestRepository interface {
	Create(ctx context.Context, req *models.HelpRequest) error
	Get(ctx context.Context, id uuid.UUID) (*models.HelpRequest, error)
	List(ctx context.Context) ([]*models.HelpRequest, error)

	// Resolve writes answer/status unconditionally and stamps
	// resolved_at/resolved_by only when the row is still PENDING at write
	// time. Returns the updated row, or apperrors.ErrNotFound.
	Resolve(ctx context.Context, id uuid.UUID, answer string, status models.HelpRequestStatus, resolvedBy *string, resolvedAt time.Time) (*models.HelpRequest, error)

	// ExpirePending transitions every row still PENDING and created before
	// cutoff to UNRESOLVED. The status predicate is re-checked at write time,
	// so rows resolved between selection and write are left untouched.
	// Returns the number of rows transitioned.
	ExpirePending(ctx context.Context, cutoff time.Time) (int64, error)
}

type helpRequestRepository struct {
	db *database.DB
}

// NewHelpRequestRepository creates a new HelpRequestRepository backed by PostgreSQL.
func NewHelpRequestRepository(db *database.DB) HelpRequestRepository {
	return &helpRequestRepository{db: db}
}

var _ HelpRequestRepository = (*helpRequestRepository)(nil)

const helpRequestColumns = `id, external_id, caller_id, question, answer, status, created_at, updated_at, resolved_at, resolved_by`

func (r *helpRequestRepository) Create(ctx context.Context, req *models.HelpRequest) error {
	now := time.Now()
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	req.CreatedAt = now
	req.UpdatedAt = now
	if req.Status == "" {
		req.Status = models.StatusPending
	}
	if req.CallerID == "" {
		req.CallerID = "anonymous"
	}

	query := `
		INSERT INTO help_requests (
			id, external_id, caller_id, question, answer, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		req.ID, req.ExternalID, req.CallerID, req.Question, req.Answer,
		req.Status, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create help request: %w", err)
	}

	return nil
}

func (r *helpRequestRepository) Get(ctx context.Context, id uuid.UUID) (*models.HelpRequest, error) {
	query := `SELECT ` + helpRequestColumns + ` FROM help_requests WHERE id = $1`

	req, err := scanHelpRequest(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

func (r *helpRequestRepository) List(ctx context.Context) ([]*models.HelpRequest, error) {
	query := `SELECT ` + helpRequestColumns + ` FROM help_requests ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list help requests: %w", err)
	}
	defer rows.Close()

	requests := make([]*models.HelpRequest, 0)
	for rows.Next() {
		req, err := scanHelpRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating help requests: %w", err)
	}

	return requests, nil
}

// Resolve is a single conditional UPDATE: the CASE predicates re-read status
// at write time, so the resolution stamp happens exactly once per row's life
// regardless of how resolve calls and sweep ticks interleave.
func (r *helpRequestRepository) Resolve(ctx context.Context, id uuid.UUID, answer string, status models.HelpRequestStatus, resolvedBy *string, resolvedAt time.Time) (*models.HelpRequest, error) {
	query := `
		UPDATE help_requests
		SET answer = $2,
		    status = $3,
		    updated_at = $4,
		    resolved_at = CASE WHEN status = 'PENDING' THEN $5 ELSE resolved_at END,
		    resolved_by = CASE WHEN status = 'PENDING' THEN $6 ELSE resolved_by END
		WHERE id = $1
		RETURNING ` + helpRequestColumns

	req, err := scanHelpRequest(r.db.QueryRow(ctx, query,
		id, answer, status, time.Now(), resolvedAt, resolvedBy,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve help request: %w", err)
	}

	return req, nil
}

// ExpirePending deliberately leaves resolved_at/resolved_by untouched: a
// sweeper timeout is not a human resolution.
func (r *helpRequestRepository) ExpirePending(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE help_requests
		SET status = 'UNRESOLVED', updated_at = $2
		WHERE status = 'PENDING' AND created_at < $1`

	tag, err := r.db.Exec(ctx, query, cutoff, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to expire pending help requests: %w", err)
	}

	return tag.RowsAffected(), nil
}

func scanHelpRequest(row pgx.Row) (*models.HelpRequest, error) {
	var req models.HelpRequest
	err := row.Scan(
		&req.ID, &req.ExternalID, &req.CallerID, &req.Question, &req.Answer,
		&req.Status, &req.CreatedAt, &req.UpdatedAt, &req.ResolvedAt, &req.ResolvedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan help request: %w", err)
	}
	return &req, nil
}
