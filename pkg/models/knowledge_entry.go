package models

import (
	"time"

	"github.com/google/uuid"
)

// SourceManual marks a human-curated knowledge entry.
const SourceManual = "manual"

// KnowledgeEntry is one question/answer pair the agent can reuse.
// Stored in the knowledge_entries table. Questions are unique
// case-insensitively across the table. Entries are never auto-deleted.
type KnowledgeEntry struct {
	ID       uuid.UUID `json:"id"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`

	// Source records provenance, e.g. "manual", "learned-from-request-<id>",
	// "auto-learned-from-request-<id>".
	Source string `json:"source"`

	// HelpRequestID is a weak back-reference to the originating help request.
	// Provenance only; the request's lifecycle does not control the entry's.
	HelpRequestID *uuid.UUID `json:"help_request_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
