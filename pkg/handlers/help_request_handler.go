package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/frontdesk-hq/frontdesk-engine/pkg/apperrors"
	"github.com/frontdesk-hq/frontdesk-engine/pkg/models"
	"github.com/frontdesk-hq/frontdesk-engine/pkg/services"
)

// SubmitHelpRequestRequest for POST /api/help-requests
type SubmitHelpRequestRequest struct {
	Question  string `json:"question"`
	CallerID  string `json:"caller_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ResolveHelpRequestRequest for PATCH /api/help-requests/{id}
type ResolveHelpRequestRequest struct {
	Answer     string `json:"answer"`
	Status     string `json:"status"`
	ResolvedBy string `json:"resolved_by,omitempty"`
}

// HelpRequestHandler handles help request HTTP requests.
type HelpRequestHandler struct {
	resolution services.ResolutionService
	logger     *zap.Logger
}

// NewHelpRequestHandler creates a new help request handler.
func NewHelpRequestHandler(resolution services.ResolutionService, logger *zap.Logger) *HelpRequestHandler {
	return &HelpRequestHandler{
		resolution: resolution,
		logger:     logger,
	}
}

// RegisterRoutes registers the help request handler's routes on the given mux.
func (h *HelpRequestHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/help-requests", h.Submit)
	mux.HandleFunc("GET /api/help-requests", h.List)
	mux.HandleFunc("GET /api/help-requests/{id}", h.Get)
	mux.HandleFunc("PATCH /api/help-requests/{id}", h.Resolve)
}

// Submit handles POST /api/help-requests
func (h *HelpRequestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitHelpRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	created, err := h.resolution.Submit(r.Context(), req.Question, req.CallerID, req.RequestID)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidInput) {
			if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "question is required"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to submit help request", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "submit_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusCreated, created); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/help-requests
func (h *HelpRequestHandler) List(w http.ResponseWriter, r *http.Request) {
	requests, err := h.resolution.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list help requests", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "list_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, requests); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/help-requests/{id}
func (h *HelpRequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseRequestID(w, r, h.logger)
	if !ok {
		return
	}

	req, err := h.resolution.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "request_not_found", "Help request not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to get help request",
			zap.String("id", id.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "get_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, req); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Resolve handles PATCH /api/help-requests/{id}
func (h *HelpRequestHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseRequestID(w, r, h.logger)
	if !ok {
		return
	}

	var req ResolveHelpRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	updated, err := h.resolution.Resolve(r.Context(), id, req.Answer, models.HelpRequestStatus(req.Status), req.ResolvedBy)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidInput) {
			if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "answer and a status of RESOLVED or UNRESOLVED are required"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "request_not_found", "Help request not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to resolve help request",
			zap.String("id", id.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "resolve_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, updated); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
