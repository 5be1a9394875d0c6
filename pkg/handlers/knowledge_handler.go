package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/frontdesk-hq/frontdesk-engine/pkg/apperrors"
	"github.com/frontdesk-hq/frontdesk-engine/pkg/services"
)

// CreateKnowledgeRequest for POST /api/knowledge
type CreateKnowledgeRequest struct {
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	Source        string `json:"source,omitempty"`
	HelpRequestID string `json:"help_request_id,omitempty"`
}

// UpdateKnowledgeRequest for PUT /api/knowledge/{id}
type UpdateKnowledgeRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// KnowledgeHandler handles knowledge base HTTP requests.
type KnowledgeHandler struct {
	knowledge services.KnowledgeService
	logger    *zap.Logger
}

// NewKnowledgeHandler creates a new knowledge handler.
func NewKnowledgeHandler(knowledge services.KnowledgeService, logger *zap.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{
		knowledge: knowledge,
		logger:    logger,
	}
}

// RegisterRoutes registers the knowledge handler's routes on the given mux.
func (h *KnowledgeHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/knowledge", h.List)
	mux.HandleFunc("POST /api/knowledge", h.Create)
	mux.HandleFunc("PUT /api/knowledge/{id}", h.Update)
	mux.HandleFunc("POST /api/knowledge/learn/{id}", h.LearnFromRequest)
}

// List handles GET /api/knowledge
func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.knowledge.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list knowledge entries", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "list_knowledge_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, entries); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /api/knowledge
func (h *KnowledgeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateKnowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	var helpRequestID *uuid.UUID
	if req.HelpRequestID != "" {
		parsed, err := uuid.Parse(req.HelpRequestID)
		if err != nil {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request_id", "Invalid help request ID format"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		helpRequestID = &parsed
	}

	entry, err := h.knowledge.Add(r.Context(), req.Question, req.Answer, req.Source, helpRequestID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidInput):
			if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "question and answer are required"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		case errors.Is(err, apperrors.ErrConflict):
			if err := ErrorResponse(w, http.StatusBadRequest, "duplicate_question", "A similar question already exists in the knowledge base"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		default:
			h.logger.Error("Failed to create knowledge entry", zap.Error(err))
			if err := ErrorResponse(w, http.StatusInternalServerError, "create_knowledge_failed", err.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		}
		return
	}

	if err := WriteJSON(w, http.StatusCreated, entry); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/knowledge/{id}
func (h *KnowledgeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseEntryID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateKnowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	entry, err := h.knowledge.Update(r.Context(), id, req.Question, req.Answer)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidInput):
			if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "question and answer are required"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		case errors.Is(err, apperrors.ErrNotFound):
			if err := ErrorResponse(w, http.StatusNotFound, "entry_not_found", "Knowledge entry not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		case errors.Is(err, apperrors.ErrConflict):
			if err := ErrorResponse(w, http.StatusBadRequest, "duplicate_question", "A similar question already exists in the knowledge base"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		default:
			h.logger.Error("Failed to update knowledge entry",
				zap.String("id", id.String()),
				zap.Error(err))
			if err := ErrorResponse(w, http.StatusInternalServerError, "update_knowledge_failed", err.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, entry); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// LearnFromRequest handles POST /api/knowledge/learn/{id}
func (h *KnowledgeHandler) LearnFromRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseRequestID(w, r, h.logger)
	if !ok {
		return
	}

	entry, err := h.knowledge.LearnFromRequest(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			if err := ErrorResponse(w, http.StatusNotFound, "request_not_found", "Help request not found or missing answer"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		case errors.Is(err, apperrors.ErrConflict):
			if err := ErrorResponse(w, http.StatusBadRequest, "duplicate_question", "A similar question already exists in the knowledge base"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		default:
			h.logger.Error("Failed to learn from help request",
				zap.String("id", id.String()),
				zap.Error(err))
			if err := ErrorResponse(w, http.StatusInternalServerError, "learn_failed", err.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		}
		return
	}

	if err := WriteJSON(w, http.StatusCreated, entry); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
