package domain

import "time"

type AccessRequestStatus string

const (
	AccessRequested AccessRequestStatus = "requested"
	AccessApproved  AccessRequestStatus = "approved"
	AccessRejected  AccessRequestStatus = "rejected"
)

type AccessObjectType string

const (
	ObjectDataset   AccessObjectType = "dataset"
	ObjectContainer AccessObjectType = "organization"
	ObjectUser      AccessObjectType = "user"
)

// AccessRequest is a user's request for access to a dataset, a container or
// a user account renewal. Created once, its status flips exactly once.
type AccessRequest struct {
	ID         int64               `json:"id"`
	Timestamp  time.Time           `json:"timestamp"`
	UserID     string              `json:"user_id"`
	Message    string              `json:"message"`
	Role       string              `json:"role,omitempty"`
	Status     AccessRequestStatus `json:"status"`
	ObjectType AccessObjectType    `json:"object_type"`
	ObjectID   string              `json:"object_id"`
}
