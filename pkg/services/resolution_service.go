package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/frontdesk-hq/frontdesk-engine/pkg/apperrors"
	"github.com/frontdesk-hq/frontdesk-engine/pkg/models"
	"github.com/frontdesk-hq/frontdesk-engine/pkg/notify"
	"github.com/frontdesk-hq/frontdesk-engine/pkg/repositories"
)

// sideEffectTimeout bounds the detached auto-learn and notification work
// triggered by a resolution. The primary row is already committed; these may
// fail or time out without affecting the caller.
const sideEffectTimeout = 10 * time.Second

// ResolutionService orchestrates the help-request lifecycle: accepting
// escalated questions, recording human answers, and on resolution feeding the
// answer back to the knowledge base and the agent.
type ResolutionService interface {
	// Submit records a new PENDING help request. callerID defaults to
	// "anonymous", externalID to the generated record id so callers always
	// receive a correlation token.
	Submit(ctx context.Context, question, callerID, externalID string) (*models.HelpRequest, error)

	// Resolve records a human answer. Repeated calls on the same record keep
	// updating answer/status (supporting correction) but the resolution stamp
	// is written exactly once, on the first transition out of PENDING.
	Resolve(ctx context.Context, id uuid.UUID, answer string, status models.HelpRequestStatus, resolvedBy string) (*models.HelpRequest, error)

	Get(ctx context.Context, id uuid.UUID) (*models.HelpRequest, error)

	// List returns all help requests newest-created first, sweeping stale
	// PENDING requests first so the listing reflects current timeouts.
	List(ctx context.Context) ([]*models.HelpRequest, error)
}

type resolutionService struct {
	repo       repositories.HelpRequestRepository
	knowledge  KnowledgeService
	dispatcher notify.Dispatcher
	sweeper    SweepService
	logger     *zap.Logger
}

// NewResolutionService creates a new resolution service.
func NewResolutionService(
	repo repositories.HelpRequestRepository,
	knowledge KnowledgeService,
	dispatcher notify.Dispatcher,
	sweeper SweepService,
	logger *zap.Logger,
) ResolutionService {
	return &resolutionService{
		repo:       repo,
		knowledge:  knowledge,
		dispatcher: dispatcher,
		sweeper:    sweeper,
		logger:     logger.Named("resolution"),
	}
}

var _ ResolutionService = (*resolutionService)(nil)

func (s *resolutionService) Submit(ctx context.Context, question, callerID, externalID string) (*models.HelpRequest, error) {
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", apperrors.ErrInvalidInput)
	}

	req := &models.HelpRequest{
		ID:       uuid.New(),
		CallerID: callerID,
		Question: question,
		Status:   models.StatusPending,
	}
	if externalID == "" {
		externalID = req.ID.String()
	}
	req.ExternalID = &externalID

	if err := s.repo.Create(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info("Help request submitted",
		zap.String("id", req.ID.String()),
		zap.String("caller_id", req.CallerID))

	return req, nil
}

func (s *resolutionService) Resolve(ctx context.Context, id uuid.UUID, answer string, status models.HelpRequestStatus, resolvedBy string) (*models.HelpRequest, error) {
	if answer == "" || status == "" {
		return nil, fmt.Errorf("%w: answer and status are required", apperrors.ErrInvalidInput)
	}
	if !status.IsTerminal() {
		return nil, fmt.Errorf("%w: status must be RESOLVED or UNRESOLVED, got %q", apperrors.ErrInvalidInput, status)
	}

	var by *string
	if resolvedBy != "" {
		by = &resolvedBy
	}

	req, err := s.repo.Resolve(ctx, id, answer, status, by, time.Now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("Help request resolved",
		zap.String("id", req.ID.String()),
		zap.String("status", string(req.Status)))

	if req.Status == models.StatusResolved {
		s.runResolvedSideEffects(ctx, req)
	}

	return req, nil
}

// runResolvedSideEffects feeds a resolved answer back to the knowledge base
// and notifies the agent. Both run detached from the caller's request on a
// context that survives its cancellation: the primary update is already
// committed and must not be rolled back or delayed by either effect.
func (s *resolutionService) runResolvedSideEffects(ctx context.Context, req *models.HelpRequest) {
	detached := context.WithoutCancel(ctx)
	answer := ""
	if req.Answer != nil {
		answer = *req.Answer
	}

	go func() {
		sideCtx, cancel := context.WithTimeout(detached, sideEffectTimeout)
		defer cancel()

		source := fmt.Sprintf("auto-learned-from-request-%s", req.ID)
		if _, err := s.knowledge.Upsert(sideCtx, req.Question, answer, source, &req.ID); err != nil {
			s.logger.Error("Failed to auto-learn from resolved request",
				zap.String("id", req.ID.String()),
				zap.Error(err))
		}

		event := notify.ResolveEvent(req.CorrelationID(), req.ID.String(), answer)
		if err := s.dispatcher.Dispatch(sideCtx, event); err != nil {
			s.logger.Warn("Failed to notify agent of resolution",
				zap.String("id", req.ID.String()),
				zap.Error(err))
		}
	}()
}

func (s *resolutionService) Get(ctx context.Context, id uuid.UUID) (*models.HelpRequest, error) {
	return s.repo.Get(ctx, id)
}

func (s *resolutionService) List(ctx context.Context) ([]*models.HelpRequest, error) {
	if _, err := s.sweeper.Sweep(ctx); err != nil {
		// Listing still proceeds on a stale view; the scheduler retries.
		s.logger.Error("Pre-list sweep failed", zap.Error(err))
	}

	return s.repo.List(ctx)
}
