package domain

import "time"

// ActivityType tags curation-workflow events apart from ordinary dataset
// edit history.
type ActivityType string

const (
	ActivityDatasetSubmitted     ActivityType = "dataset_submitted"
	ActivityCuratorAssigned      ActivityType = "curator_assigned"
	ActivityCuratorRemoved       ActivityType = "curator_removed"
	ActivityChangesRequested     ActivityType = "changes_requested"
	ActivityFinalReviewRequested ActivityType = "final_review_requested"
	ActivityDatasetApproved      ActivityType = "dataset_approved"
	ActivityDatasetRejected      ActivityType = "dataset_rejected"
	ActivityDatasetWithdrawn     ActivityType = "dataset_withdrawn"
)

// CurationActivity is one append-only audit entry. Exactly one is written
// per state transition; entries are never mutated or deleted.
type CurationActivity struct {
	ID        int64        `json:"id"`
	DatasetID string       `json:"dataset_id"`
	Type      ActivityType `json:"activity_type"`
	ActorID   string       `json:"actor_id"`
	Message   string       `json:"message,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// CurationEvent is the realtime-feed payload published on each transition.
type CurationEvent struct {
	DatasetID   string       `json:"dataset_id"`
	DatasetName string       `json:"dataset_name"`
	Type        ActivityType `json:"activity_type"`
	ActorID     string       `json:"actor_id"`
	Timestamp   time.Time    `json:"timestamp"`
}
