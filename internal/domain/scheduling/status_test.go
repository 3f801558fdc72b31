package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := map[string]Status{
		"Pending":     StatusPending,
		"confirmed":   StatusConfirmed,
		"Approved":    StatusConfirmed,
		"in_progress": StatusInProgress,
		"InProgress":  StatusInProgress,
		"COMPLETED":   StatusCompleted,
		"canceled":    StatusCancelled,
	}
	for in, want := range tests {
		got, err := ParseStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseStatus("Rescheduled")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestTransitionTable(t *testing.T) {
	all := []Status{StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled}
	allowed := map[[2]Status]bool{
		{StatusPending, StatusConfirmed}:     true,
		{StatusPending, StatusCancelled}:     true,
		{StatusConfirmed, StatusInProgress}:  true,
		{StatusConfirmed, StatusCancelled}:   true,
		{StatusInProgress, StatusCompleted}:  true,
	}
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]Status{from, to}]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
			if !want {
				assert.ErrorIs(t, CheckTransition(from, to), ErrInvalidStatusTransition)
			}
		}
	}
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPending.Terminal())

	assert.True(t, StatusInProgress.Live())
	assert.False(t, StatusCompleted.Live())

	assert.True(t, StatusConfirmed.Valid())
	assert.False(t, Status("Approved").Valid())
}
