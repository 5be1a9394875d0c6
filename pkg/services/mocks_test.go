package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/frontdesk-hq/frontdesk-engine/pkg/apperrors"
	"github.com/frontdesk-hq/frontdesk-engine/pkg/models"
	"github.com/frontdesk-hq/frontdesk-engine/pkg/notify"
)

// fakeHelpRequestRepo is an in-memory HelpRequestRepository that mirrors the
// SQL layer's conditional-write semantics: the resolution stamp and the sweep
// transition both re-check status under the lock, exactly like the CASE/WHERE
// predicates re-check it at write time.
type fakeHelpRequestRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*models.HelpRequest

	createErr  error
	resolveErr error
	expireErr  error
	listErr    error
}

func newFakeHelpRequestRepo() *fakeHelpRequestRepo {
	return &fakeHelpRequestRepo{requests: make(map[uuid.UUID]*models.HelpRequest)}
}

func (f *fakeHelpRequestRepo) Create(ctx context.Context, req *models.HelpRequest) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now
	if req.Status == "" {
		req.Status = models.StatusPending
	}
	if req.CallerID == "" {
		req.CallerID = "anonymous"
	}
	cp := *req
	f.requests[req.ID] = &cp
	return nil
}

func (f *fakeHelpRequestRepo) Get(ctx context.Context, id uuid.UUID) (*models.HelpRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	req, ok := f.requests[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (f *fakeHelpRequestRepo) List(ctx context.Context) ([]*models.HelpRequest, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*models.HelpRequest, 0, len(f.requests))
	for _, req := range f.requests {
		cp := *req
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeHelpRequestRepo) Resolve(ctx context.Context, id uuid.UUID, answer string, status models.HelpRequestStatus, resolvedBy *string, resolvedAt time.Time) (*models.HelpRequest, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	req, ok := f.requests[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if req.Status == models.StatusPending {
		at := resolvedAt
		req.ResolvedAt = &at
		req.ResolvedBy = resolvedBy
	}
	a := answer
	req.Answer = &a
	req.Status = status
	req.UpdatedAt = time.Now()
	cp := *req
	return &cp, nil
}

func (f *fakeHelpRequestRepo) ExpirePending(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.expireErr != nil {
		return 0, f.expireErr
	}

	var count int64
	for _, req := range f.requests {
		if req.Status == models.StatusPending && req.CreatedAt.Before(cutoff) {
			req.Status = models.StatusUnresolved
			req.UpdatedAt = time.Now()
			count++
		}
	}
	return count, nil
}

// fakeKnowledgeRepo is an in-memory KnowledgeRepository keyed
// case-insensitively on question, matching the lower(question) unique index.
type fakeKnowledgeRepo struct {
	mu         sync.Mutex
	byID       map[uuid.UUID]*models.KnowledgeEntry
	byQuestion map[string]uuid.UUID

	createErr error
	upsertErr error
	listErr   error
}

func newFakeKnowledgeRepo() *fakeKnowledgeRepo {
	return &fakeKnowledgeRepo{
		byID:       make(map[uuid.UUID]*models.KnowledgeEntry),
		byQuestion: make(map[string]uuid.UUID),
	}
}

func questionKey(question string) string {
	return strings.ToLower(question)
}

func (f *fakeKnowledgeRepo) Create(ctx context.Context, entry *models.KnowledgeEntry) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	key := questionKey(entry.Question)
	if _, exists := f.byQuestion[key]; exists {
		return apperrors.ErrConflict
	}

	now := time.Now()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = now
	entry.UpdatedAt = now
	if entry.Source == "" {
		entry.Source = models.SourceManual
	}
	cp := *entry
	f.byID[entry.ID] = &cp
	f.byQuestion[key] = entry.ID
	return nil
}

func (f *fakeKnowledgeRepo) Upsert(ctx context.Context, entry *models.KnowledgeEntry) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	key := questionKey(entry.Question)
	if existingID, exists := f.byQuestion[key]; exists {
		existing := f.byID[existingID]
		existing.Answer = entry.Answer
		existing.Source = entry.Source
		existing.HelpRequestID = entry.HelpRequestID
		existing.UpdatedAt = now
		*entry = *existing
		return nil
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = now
	entry.UpdatedAt = now
	if entry.Source == "" {
		entry.Source = models.SourceManual
	}
	cp := *entry
	f.byID[entry.ID] = &cp
	f.byQuestion[key] = entry.ID
	return nil
}

func (f *fakeKnowledgeRepo) Update(ctx context.Context, id uuid.UUID, question, answer string) (*models.KnowledgeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}

	newKey := questionKey(question)
	if existingID, exists := f.byQuestion[newKey]; exists && existingID != id {
		return nil, apperrors.ErrConflict
	}

	delete(f.byQuestion, questionKey(entry.Question))
	entry.Question = question
	entry.Answer = answer
	entry.UpdatedAt = time.Now()
	f.byQuestion[newKey] = id

	cp := *entry
	return &cp, nil
}

func (f *fakeKnowledgeRepo) Get(ctx context.Context, id uuid.UUID) (*models.KnowledgeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *entry
	return &cp, nil
}

func (f *fakeKnowledgeRepo) GetByQuestion(ctx context.Context, question string) (*models.KnowledgeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id, ok := f.byQuestion[questionKey(question)]
	if !ok {
		return nil, nil
	}
	cp := *f.byID[id]
	return &cp, nil
}

func (f *fakeKnowledgeRepo) List(ctx context.Context) ([]*models.KnowledgeEntry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*models.KnowledgeEntry, 0, len(f.byID))
	for _, entry := range f.byID {
		cp := *entry
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// recordingDispatcher captures dispatched events instead of opening real
// connections.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, event notify.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Events() []notify.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]notify.Event, len(d.events))
	copy(out, d.events)
	return out
}
