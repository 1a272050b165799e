package entities

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from AppointmentStatus
		to   AppointmentStatus
		want bool
	}{
		{AppointmentStatusPending, AppointmentStatusConfirmed, true},
		{AppointmentStatusPending, AppointmentStatusCancelled, true},
		{AppointmentStatusPending, AppointmentStatusCompleted, false},
		{AppointmentStatusPending, AppointmentStatusPending, false},
		{AppointmentStatusConfirmed, AppointmentStatusCompleted, true},
		{AppointmentStatusConfirmed, AppointmentStatusCancelled, false},
		{AppointmentStatusConfirmed, AppointmentStatusPending, false},
		{AppointmentStatusCompleted, AppointmentStatusConfirmed, false},
		{AppointmentStatusCompleted, AppointmentStatusCancelled, false},
		{AppointmentStatusCancelled, AppointmentStatusPending, false},
		{AppointmentStatusCancelled, AppointmentStatusConfirmed, false},
		{AppointmentStatusCancelled, AppointmentStatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestValidateTransition(t *testing.T) {
	t.Run("completed to confirmed is rejected as terminal", func(t *testing.T) {
		err := ValidateTransition(AppointmentStatusCompleted, AppointmentStatusConfirmed)
		var te *TransitionError
		require.True(t, errors.As(err, &te))
		assert.True(t, te.Terminal)
	})

	t.Run("cancelled to anything is rejected", func(t *testing.T) {
		for _, to := range []AppointmentStatus{AppointmentStatusPending, AppointmentStatusConfirmed, AppointmentStatusCompleted, AppointmentStatusCancelled} {
			assert.Error(t, ValidateTransition(AppointmentStatusCancelled, to), "cancelled -> %s", to)
		}
	})

	t.Run("skipping confirmation is rejected but not terminal", func(t *testing.T) {
		err := ValidateTransition(AppointmentStatusPending, AppointmentStatusCompleted)
		var te *TransitionError
		require.True(t, errors.As(err, &te))
		assert.False(t, te.Terminal)
	})

	t.Run("unknown target", func(t *testing.T) {
		assert.Error(t, ValidateTransition(AppointmentStatusPending, AppointmentStatus("archived")))
	})

	t.Run("allowed edge", func(t *testing.T) {
		assert.NoError(t, ValidateTransition(AppointmentStatusPending, AppointmentStatusConfirmed))
	})
}

func TestParseAppointmentStatus(t *testing.T) {
	s, err := ParseAppointmentStatus("confirmed")
	require.NoError(t, err)
	assert.Equal(t, AppointmentStatusConfirmed, s)

	_, err = ParseAppointmentStatus("done")
	assert.Error(t, err)
}

func TestOccupiesSlot(t *testing.T) {
	assert.True(t, AppointmentStatusPending.OccupiesSlot())
	assert.True(t, AppointmentStatusConfirmed.OccupiesSlot())
	assert.False(t, AppointmentStatusCancelled.OccupiesSlot())
	assert.False(t, AppointmentStatusCompleted.OccupiesSlot())
}
