package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/frontdesk-hq/frontdesk-engine/pkg/apperrors"
	"github.com/frontdesk-hq/frontdesk-engine/pkg/mirror"
	"github.com/frontdesk-hq/frontdesk-engine/pkg/models"
	"github.com/frontdesk-hq/frontdesk-engine/pkg/repositories"
)

// KnowledgeService owns the knowledge base and keeps the derived snapshot
// file in sync with it. The relational table is authoritative; the snapshot
// is regenerated in full after every mutation and allowed to lag when a write
// fails.
type KnowledgeService interface {
	// Add creates a human-curated entry. Strict: a case-insensitive duplicate
	// question is apperrors.ErrConflict.
	Add(ctx context.Context, question, answer, source string, helpRequestID *uuid.UUID) (*models.KnowledgeEntry, error)

	// Update rewrites an entry's question/answer by id.
	Update(ctx context.Context, id uuid.UUID, question, answer string) (*models.KnowledgeEntry, error)

	// LearnFromRequest copies question/answer from an answered help request.
	// apperrors.ErrNotFound when the request is missing or has no answer;
	// apperrors.ErrConflict on a duplicate question.
	LearnFromRequest(ctx context.Context, requestID uuid.UUID) (*models.KnowledgeEntry, error)

	// Upsert creates or overwrites by question. Unlike Add it never
	// conflicts: the same question may be answered repeatedly over the
	// system's life, and auto-learning must not block on an existing entry.
	Upsert(ctx context.Context, question, answer, source string, helpRequestID *uuid.UUID) (*models.KnowledgeEntry, error)

	// List returns all entries, most recently updated first.
	List(ctx context.Context) ([]*models.KnowledgeEntry, error)

	// SyncMirror regenerates the snapshot from current table contents.
	SyncMirror(ctx context.Context) error
}

type knowledgeService struct {
	repo     repositories.KnowledgeRepository
	helpRepo repositories.HelpRequestRepository
	mirror   *mirror.Writer
	logger   *zap.Logger
}

// NewKnowledgeService creates a new knowledge service.
func NewKnowledgeService(
	repo repositories.KnowledgeRepository,
	helpRepo repositories.HelpRequestRepository,
	mirrorWriter *mirror.Writer,
	logger *zap.Logger,
) KnowledgeService {
	return &knowledgeService{
		repo:     repo,
		helpRepo: helpRepo,
		mirror:   mirrorWriter,
		logger:   logger.Named("knowledge"),
	}
}

var _ KnowledgeService = (*knowledgeService)(nil)

func (s *knowledgeService) Add(ctx context.Context, question, answer, source string, helpRequestID *uuid.UUID) (*models.KnowledgeEntry, error) {
	if question == "" || answer == "" {
		return nil, fmt.Errorf("%w: question and answer are required", apperrors.ErrInvalidInput)
	}

	existing, err := s.repo.GetByQuestion(ctx, question)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: a similar question already exists in the knowledge base", apperrors.ErrConflict)
	}

	entry := &models.KnowledgeEntry{
		Question:      question,
		Answer:        answer,
		Source:        source,
		HelpRequestID: helpRequestID,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("Knowledge entry added",
		zap.String("id", entry.ID.String()),
		zap.String("source", entry.Source))

	s.syncMirrorBestEffort(ctx)
	return entry, nil
}

func (s *knowledgeService) Update(ctx context.Context, id uuid.UUID, question, answer string) (*models.KnowledgeEntry, error) {
	if question == "" || answer == "" {
		return nil, fmt.Errorf("%w: question and answer are required", apperrors.ErrInvalidInput)
	}

	entry, err := s.repo.Update(ctx, id, question, answer)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Knowledge entry updated", zap.String("id", id.String()))

	s.syncMirrorBestEffort(ctx)
	return entry, nil
}

// LearnFromRequest uses Add's strict semantics: a curator explicitly pulling
// a request into the knowledge base should hear about an existing duplicate
// rather than silently overwrite it.
func (s *knowledgeService) LearnFromRequest(ctx context.Context, requestID uuid.UUID) (*models.KnowledgeEntry, error) {
	req, err := s.helpRepo.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Answer == nil || *req.Answer == "" {
		return nil, fmt.Errorf("%w: help request has no answer", apperrors.ErrNotFound)
	}

	source := fmt.Sprintf("learned-from-request-%s", req.ID)
	return s.Add(ctx, req.Question, *req.Answer, source, &req.ID)
}

func (s *knowledgeService) Upsert(ctx context.Context, question, answer, source string, helpRequestID *uuid.UUID) (*models.KnowledgeEntry, error) {
	if question == "" || answer == "" {
		return nil, fmt.Errorf("%w: question and answer are required", apperrors.ErrInvalidInput)
	}

	entry := &models.KnowledgeEntry{
		Question:      question,
		Answer:        answer,
		Source:        source,
		HelpRequestID: helpRequestID,
	}
	if err := s.repo.Upsert(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("Knowledge entry upserted",
		zap.String("id", entry.ID.String()),
		zap.String("source", entry.Source))

	s.syncMirrorBestEffort(ctx)
	return entry, nil
}

func (s *knowledgeService) List(ctx context.Context) ([]*models.KnowledgeEntry, error) {
	return s.repo.List(ctx)
}

// SyncMirror projects every entry to {question, answer} in updated_at order
// and overwrites the snapshot. Idempotent: the projection always reflects
// current table truth, so a failed write is repaired by the next sync.
func (s *knowledgeService) SyncMirror(ctx context.Context) error {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to read knowledge entries for snapshot: %w", err)
	}

	projected := make([]mirror.Entry, 0, len(entries))
	for _, entry := range entries {
		projected = append(projected, mirror.Entry{
			Question: entry.Question,
			Answer:   entry.Answer,
		})
	}

	if err := s.mirror.Write(projected); err != nil {
		return fmt.Errorf("failed to write knowledge snapshot: %w", err)
	}

	s.logger.Debug("Knowledge snapshot regenerated",
		zap.Int("entries", len(projected)),
		zap.String("path", s.mirror.Path()))

	return nil
}

// syncMirrorBestEffort runs the projection step of the two-step saga: the
// primary row is already committed, so a snapshot failure is logged and
// swallowed rather than failing the caller's mutation.
func (s *knowledgeService) syncMirrorBestEffort(ctx context.Context) {
	if err := s.SyncMirror(ctx); err != nil {
		s.logger.Error("Failed to sync knowledge snapshot", zap.Error(err))
	}
}
