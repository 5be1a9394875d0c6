package models

import (
	"time"

	"github.com/google/uuid"
)

// HelpRequestStatus is the lifecycle state of a help request.
// A request starts PENDING and leaves PENDING at most once, to either
// RESOLVED (a human supplied an answer) or UNRESOLVED (human gave up, or the
// sweeper timed it out).
type HelpRequestStatus string

const (
	StatusPending    HelpRequestStatus = "PENDING"
	StatusResolved   HelpRequestStatus = "RESOLVED"
	StatusUnresolved HelpRequestStatus = "UNRESOLVED"
)

// IsValid reports whether s is one of the known lifecycle states.
func (s HelpRequestStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusResolved, StatusUnresolved:
		return true
	}
	return false
}

// IsTerminal reports whether s is a resolution state a human or the sweeper
// can move a PENDING request into.
func (s HelpRequestStatus) IsTerminal() bool {
	return s == StatusResolved || s == StatusUnresolved
}

// HelpRequest is a question the front-line agent could not answer, escalated
// to a human supervisor. Stored in the help_requests table. Rows are never
// deleted; they form the audit trail of every escalation.
type HelpRequest struct {
	ID uuid.UUID `json:"id"`

	// ExternalID is the caller-supplied correlation token, echoed back on
	// resolution notifications. Defaults to ID at creation so every caller
	// receives a usable token.
	ExternalID *string `json:"request_id,omitempty"`

	CallerID string            `json:"caller_id"`
	Question string            `json:"question"`
	Answer   *string           `json:"answer,omitempty"`
	Status   HelpRequestStatus `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// ResolvedAt/ResolvedBy are stamped exactly once, on the transition out
	// of PENDING driven by a human resolve. Sweeper timeouts leave them nil.
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy *string    `json:"resolved_by,omitempty"`
}

// CorrelationID returns the token the agent correlates replies with: the
// external ID when one was supplied, the database ID otherwise.
func (h *HelpRequest) CorrelationID() string {
	if h.ExternalID != nil && *h.ExternalID != "" {
		return *h.ExternalID
	}
	return h.ID.String()
}
