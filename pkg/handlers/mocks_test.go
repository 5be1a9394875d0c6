package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/frontdesk-hq/frontdesk-engine/pkg/apperrors"
	"github.com/frontdesk-hq/frontdesk-engine/pkg/models"
)

// mockResolutionService implements services.ResolutionService for handler
// testing.
type mockResolutionService struct {
	requests []*models.HelpRequest

	submitErr  error
	resolveErr error
	listErr    error
}

func (m *mockResolutionService) Submit(_ context.Context, question, callerID, externalID string) (*models.HelpRequest, error) {
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", apperrors.ErrInvalidInput)
	}
	if callerID == "" {
		callerID = "anonymous"
	}
	req := &models.HelpRequest{
		ID:        uuid.New(),
		Question:  question,
		CallerID:  callerID,
		Status:    models.StatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if externalID == "" {
		externalID = req.ID.String()
	}
	req.ExternalID = &externalID
	m.requests = append(m.requests, req)
	return req, nil
}

func (m *mockResolutionService) Resolve(_ context.Context, id uuid.UUID, answer string, status models.HelpRequestStatus, resolvedBy string) (*models.HelpRequest, error) {
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	if answer == "" || !status.IsTerminal() {
		return nil, fmt.Errorf("%w: answer and terminal status required", apperrors.ErrInvalidInput)
	}
	for _, req := range m.requests {
		if req.ID == id {
			now := time.Now()
			a := answer
			req.Answer = &a
			req.Status = status
			if req.ResolvedAt == nil {
				req.ResolvedAt = &now
				if resolvedBy != "" {
					req.ResolvedBy = &resolvedBy
				}
			}
			req.UpdatedAt = now
			return req, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockResolutionService) Get(_ context.Context, id uuid.UUID) (*models.HelpRequest, error) {
	for _, req := range m.requests {
		if req.ID == id {
			return req, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockResolutionService) List(_ context.Context) ([]*models.HelpRequest, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.requests, nil
}

// mockKnowledgeService implements services.KnowledgeService for handler
// testing.
type mockKnowledgeService struct {
	entries []*models.KnowledgeEntry

	addErr    error
	updateErr error
	learnErr  error
	listErr   error
}

func (m *mockKnowledgeService) Add(_ context.Context, question, answer, source string, helpRequestID *uuid.UUID) (*models.KnowledgeEntry, error) {
	if m.addErr != nil {
		return nil, m.addErr
	}
	if question == "" || answer == "" {
		return nil, fmt.Errorf("%w: question and answer are required", apperrors.ErrInvalidInput)
	}
	if source == "" {
		source = models.SourceManual
	}
	entry := &models.KnowledgeEntry{
		ID:            uuid.New(),
		Question:      question,
		Answer:        answer,
		Source:        source,
		HelpRequestID: helpRequestID,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	m.entries = append(m.entries, entry)
	return entry, nil
}

func (m *mockKnowledgeService) Update(_ context.Context, id uuid.UUID, question, answer string) (*models.KnowledgeEntry, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	for _, entry := range m.entries {
		if entry.ID == id {
			entry.Question = question
			entry.Answer = answer
			entry.UpdatedAt = time.Now()
			return entry, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockKnowledgeService) LearnFromRequest(_ context.Context, requestID uuid.UUID) (*models.KnowledgeEntry, error) {
	if m.learnErr != nil {
		return nil, m.learnErr
	}
	entry := &models.KnowledgeEntry{
		ID:            uuid.New(),
		Question:      "Do you open Sundays?",
		Answer:        "Yes, 10am to 4pm.",
		Source:        fmt.Sprintf("learned-from-request-%s", requestID),
		HelpRequestID: &requestID,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	m.entries = append(m.entries, entry)
	return entry, nil
}

func (m *mockKnowledgeService) Upsert(_ context.Context, question, answer, source string, helpRequestID *uuid.UUID) (*models.KnowledgeEntry, error) {
	return m.Add(context.Background(), question, answer, source, helpRequestID)
}

func (m *mockKnowledgeService) List(_ context.Context) ([]*models.KnowledgeEntry, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.entries, nil
}

func (m *mockKnowledgeService) SyncMirror(_ context.Context) error {
	return nil
}
