package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusSubmitted, StatusProcessed, StatusCancelled, StatusRefunded} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Status("shipped").Valid())
	assert.False(t, Status("").Valid())
}

func TestStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusSubmitted, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusProcessed, false},
		{StatusPending, StatusRefunded, false},
		{StatusSubmitted, StatusProcessed, true},
		{StatusSubmitted, StatusCancelled, true},
		{StatusSubmitted, StatusRefunded, true},
		{StatusSubmitted, StatusPending, false},
		{StatusProcessed, StatusRefunded, true},
		{StatusProcessed, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusSubmitted, false},
		{StatusRefunded, StatusPending, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusSubmitted.Terminal())
	assert.False(t, StatusProcessed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusRefunded.Terminal())
}
