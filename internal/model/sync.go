package model

import "time"

// SyncRequest is a reconciliation request from an agent.
type SyncRequest struct {
	APIKey     string
	ClaimedIP  string
	ObservedAt time.Time
}

// SyncOutcome reports the result of a reconciliation.
type SyncOutcome struct {
	Success bool
	Updated bool
	Message string
}
