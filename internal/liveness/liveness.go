// Package liveness derives the displayed status of a machine from its
// reported status and the age of its last heartbeat. Every read path
// (single fetch, list fetch, summary, live stream) goes through the same
// evaluation so that all views agree.
package liveness

import (
	"time"

	"shopfloor-status-backend/internal/model"
)

// DefaultOfflineThreshold is the heartbeat age beyond which a machine is
// displayed as offline regardless of its reported status.
const DefaultOfflineThreshold = 30 * time.Second

// DisplayedStatus returns the status to show for a machine. A machine that
// has never sent a heartbeat is offline. A machine whose last heartbeat is
// older than the threshold is offline. Exactly at the threshold the reported
// status still stands.
func DisplayedStatus(reported model.MachineStatus, lastSeen *time.Time, now time.Time, threshold time.Duration) model.MachineStatus {
	if lastSeen == nil {
		return model.StatusOffline
	}
	if now.Sub(*lastSeen) > threshold {
		return model.StatusOffline
	}
	return reported
}

// SecondsSinceSeen returns the whole seconds elapsed since the last
// heartbeat, or nil if none was ever received.
func SecondsSinceSeen(lastSeen *time.Time, now time.Time) *int64 {
	if lastSeen == nil {
		return nil
	}
	s := int64(now.Sub(*lastSeen).Seconds())
	return &s
}
