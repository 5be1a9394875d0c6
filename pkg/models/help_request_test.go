package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestHelpRequestStatus_IsValid(t *testing.T) {
	assert.True(t, StatusPending.IsValid())
	assert.True(t, StatusResolved.IsValid())
	assert.True(t, StatusUnresolved.IsValid())

	assert.False(t, HelpRequestStatus("").IsValid())
	assert.False(t, HelpRequestStatus("DONE").IsValid())
	assert.False(t, HelpRequestStatus("pending").IsValid())
}

func TestHelpRequestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.True(t, StatusResolved.IsTerminal())
	assert.True(t, StatusUnresolved.IsTerminal())
	assert.False(t, HelpRequestStatus("DONE").IsTerminal())
}

func TestHelpRequest_CorrelationID(t *testing.T) {
	id := uuid.New()

	external := "req-42"
	withExternal := &HelpRequest{ID: id, ExternalID: &external}
	assert.Equal(t, "req-42", withExternal.CorrelationID())

	withoutExternal := &HelpRequest{ID: id}
	assert.Equal(t, id.String(), withoutExternal.CorrelationID())

	empty := ""
	withEmpty := &HelpRequest{ID: id, ExternalID: &empty}
	assert.Equal(t, id.String(), withEmpty.CorrelationID())
}
