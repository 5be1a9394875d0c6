package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/frontdesk-hq/frontdesk-engine/pkg/apperrors"
	"github.com/frontdesk-hq/frontdesk-engine/pkg/database"
	"github.com/frontdesk-hq/frontdesk-engine/pkg/models"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

// KnowledgeRepository provides data access for knowledge-base entries.
type KnowledgeRepository interface {
	// Create inserts a new entry. Returns apperrors.ErrConflict when another
	// entry already holds a case-insensitively equal question.
	Create(ctx context.Context, entry *models.KnowledgeEntry) error

	// Upsert inserts the entry or, when a case-insensitive duplicate question
	// exists, overwrites that entry's answer/source/provenance in place
	// (last-write-wins). The entry is updated with the stored row's identity.
	Upsert(ctx context.Context, entry *models.KnowledgeEntry) error

	// Update rewrites question/answer by id. Returns apperrors.ErrNotFound
	// when the id is unknown and apperrors.ErrConflict when the new question
	// collides with another entry.
	Update(ctx context.Context, id uuid.UUID, question, answer string) (*models.KnowledgeEntry, error)

	Get(ctx context.Context, id uuid.UUID) (*models.KnowledgeEntry, error)

	// GetByQuestion performs a case-insensitive lookup. Returns (nil, nil)
	// when no entry matches.
	GetByQuestion(ctx context.Context, question string) (*models.KnowledgeEntry, error)

	// List returns all entries ordered by most-recently-updated first.
	List(ctx context.Context) ([]*models.KnowledgeEntry, error)
}

type knowledgeRepository struct {
	db *database.DB
}

// NewKnowledgeRepository creates a new KnowledgeRepository backed by PostgreSQL.
func NewKnowledgeRepository(db *database.DB) KnowledgeRepository {
	return &knowledgeRepository{db: db}
}

var _ KnowledgeRepository = (*knowledgeRepository)(nil)

const knowledgeColumns = `id, question, answer, source, help_request_id, created_at, updated_at`

func (r *knowledgeRepository) Create(ctx context.Context, entry *models.KnowledgeEntry) error {
	now := time.Now()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = now
	entry.UpdatedAt = now
	if entry.Source == "" {
		entry.Source = models.SourceManual
	}

	query := `
		INSERT INTO knowledge_entries (
			id, question, answer, source, help_request_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		entry.ID, entry.Question, entry.Answer, entry.Source,
		entry.HelpRequestID, entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create knowledge entry: %w", err)
	}

	return nil
}

// Upsert keys the conflict on the lower(question) unique index so a question
// answered repeatedly over the system's life converges on the latest answer
// instead of failing. The original row keeps its id and created_at.
func (r *knowledgeRepository) Upsert(ctx context.Context, entry *models.KnowledgeEntry) error {
	now := time.Now()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = now
	entry.UpdatedAt = now
	if entry.Source == "" {
		entry.Source = models.SourceManual
	}

	query := `
		INSERT INTO knowledge_entries (
			id, question, answer, source, help_request_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (lower(question))
		DO UPDATE SET
			answer = EXCLUDED.answer,
			source = EXCLUDED.source,
			help_request_id = EXCLUDED.help_request_id,
			updated_at = EXCLUDED.updated_at
		RETURNING id, question, created_at`

	err := r.db.QueryRow(ctx, query,
		entry.ID, entry.Question, entry.Answer, entry.Source,
		entry.HelpRequestID, entry.CreatedAt, entry.UpdatedAt,
	).Scan(&entry.ID, &entry.Question, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert knowledge entry: %w", err)
	}

	return nil
}

func (r *knowledgeRepository) Update(ctx context.Context, id uuid.UUID, question, answer string) (*models.KnowledgeEntry, error) {
	query := `
		UPDATE knowledge_entries
		SET question = $2, answer = $3, updated_at = $4
		WHERE id = $1
		RETURNING ` + knowledgeColumns

	entry, err := scanKnowledgeEntry(r.db.QueryRow(ctx, query, id, question, answer, time.Now()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, apperrors.ErrConflict
		}
		return nil, fmt.Errorf("failed to update knowledge entry: %w", err)
	}

	return entry, nil
}

func (r *knowledgeRepository) Get(ctx context.Context, id uuid.UUID) (*models.KnowledgeEntry, error) {
	query := `SELECT ` + knowledgeColumns + ` FROM knowledge_entries WHERE id = $1`

	entry, err := scanKnowledgeEntry(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}

func (r *knowledgeRepository) GetByQuestion(ctx context.Context, question string) (*models.KnowledgeEntry, error) {
	query := `SELECT ` + knowledgeColumns + ` FROM knowledge_entries WHERE lower(question) = lower($1)`

	entry, err := scanKnowledgeEntry(r.db.QueryRow(ctx, query, question))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return entry, nil
}

func (r *knowledgeRepository) List(ctx context.Context) ([]*models.KnowledgeEntry, error) {
	query := `SELECT ` + knowledgeColumns + ` FROM knowledge_entries ORDER BY updated_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.KnowledgeEntry, 0)
	for rows.Next() {
		entry, err := scanKnowledgeEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating knowledge entries: %w", err)
	}

	return entries, nil
}

func scanKnowledgeEntry(row pgx.Row) (*models.KnowledgeEntry, error) {
	var entry models.KnowledgeEntry
	err := row.Scan(
		&entry.ID, &entry.Question, &entry.Answer, &entry.Source,
		&entry.HelpRequestID, &entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		if isUniqueViolation(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan knowledge entry: %w", err)
	}
	return &entry, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
