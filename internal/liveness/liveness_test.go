package liveness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"shopfloor-status-backend/internal/model"
)

func TestDisplayedStatus(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	seenAt := func(age time.Duration) *time.Time {
		ts := now.Add(-age)
		return &ts
	}

	testCases := []struct {
		name     string
		reported model.MachineStatus
		lastSeen *time.Time
		expected model.MachineStatus
	}{
		{"never seen is offline", model.StatusRunning, nil, model.StatusOffline},
		{"fresh heartbeat keeps reported status", model.StatusRunning, seenAt(5 * time.Second), model.StatusRunning},
		{"exactly at threshold is not offline", model.StatusRunning, seenAt(30 * time.Second), model.StatusRunning},
		{"one second past threshold is offline", model.StatusRunning, seenAt(31 * time.Second), model.StatusOffline},
		{"stale idle machine is offline", model.StatusIdle, seenAt(5 * time.Minute), model.StatusOffline},
		{"fresh fault stays fault", model.StatusFault, seenAt(2 * time.Second), model.StatusFault},
		{"reported offline stays offline when fresh", model.StatusOffline, seenAt(1 * time.Second), model.StatusOffline},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := DisplayedStatus(tc.reported, tc.lastSeen, now, DefaultOfflineThreshold)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestSecondsSinceSeen(t *testing.T) {
	now := time.Now()

	assert.Nil(t, SecondsSinceSeen(nil, now))

	seen := now.Add(-40 * time.Second)
	got := SecondsSinceSeen(&seen, now)
	if assert.NotNil(t, got) {
		assert.Equal(t, int64(40), *got)
	}
}
