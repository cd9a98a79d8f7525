package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowState_MarkCompleted(t *testing.T) {
	state := NewWorkflowState()
	now := time.Now().UTC()

	require.True(t, state.MarkCompleted(1, now))
	assert.Equal(t, 2, state.CurrentStep)
	assert.True(t, state.IsCompleted(1))
	require.NotNil(t, state.LastNotifiedAt)

	// Second completion of the same step is rejected.
	assert.False(t, state.MarkCompleted(1, now.Add(time.Minute)))
	assert.Equal(t, []int{1}, state.CompletedList())
}

func TestWorkflowState_CurrentStepNeverDecreases(t *testing.T) {
	state := NewWorkflowState()
	now := time.Now().UTC()

	require.True(t, state.MarkCompleted(3, now))
	assert.Equal(t, 4, state.CurrentStep)

	// Completing an earlier step keeps the high-water mark.
	require.True(t, state.MarkCompleted(1, now))
	assert.Equal(t, 4, state.CurrentStep)
	assert.Equal(t, []int{1, 3}, state.CompletedList())
}

func TestCustomer_CloneDetaches(t *testing.T) {
	customer := &Customer{
		ID:       "c-1",
		Email:    "alice@x.com",
		Name:     "Alice",
		Metadata: map[string]any{"source": "test"},
		Workflow: NewWorkflowState(),
	}

	clone := customer.Clone()
	clone.Metadata["source"] = "mutated"
	clone.Workflow.MarkCompleted(1, time.Now())

	assert.Equal(t, "test", customer.Metadata["source"])
	assert.False(t, customer.Workflow.IsCompleted(1))
}

func TestDefaultSteps(t *testing.T) {
	catalog := DefaultSteps(30 * time.Minute)

	require.Len(t, catalog.Steps(), 3)

	welcome, ok := catalog.ByTrigger(TriggerSignup)
	require.True(t, ok)
	assert.Equal(t, 1, welcome.ID)
	assert.Equal(t, ActionSendWelcome, welcome.Action)

	discount, ok := catalog.ByTrigger(TriggerProductVisit)
	require.True(t, ok)
	assert.Equal(t, 2, discount.ID)

	reminder, ok := catalog.ByID(3)
	require.True(t, ok)
	assert.Equal(t, TriggerInactivity, reminder.Trigger)
	assert.Equal(t, 30*time.Minute, reminder.Delay)

	_, ok = catalog.ByTrigger("unknown")
	assert.False(t, ok)
}
