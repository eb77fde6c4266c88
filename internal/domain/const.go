package domain

const (
	RequesterIdCtxKey       = "ridl-requesterId"
	RequesterSysadminCtxKey = "ridl-requesterSysadmin"
)

// CurationState is the in-workflow state of a deposited dataset. A dataset
// that was approved, rejected or withdrawn has no curation state at all.
type CurationState string

const (
	StateDraft     CurationState = "draft"
	StateSubmitted CurationState = "submitted"
	StateReview    CurationState = "review"
)

func (s CurationState) Valid() bool {
	switch s {
	case StateDraft, StateSubmitted, StateReview:
		return true
	}
	return false
}

// Role is the curation role of a user relative to one deposited dataset,
// resolved highest privilege first.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleCurator        Role = "curator"
	RoleContainerAdmin Role = "container admin"
	RoleDepositor      Role = "depositor"
	RoleUser           Role = "user"
)

// Action is a curation action a user may take on a deposited dataset.
type Action string

const (
	ActionEdit           Action = "edit"
	ActionSubmit         Action = "submit"
	ActionWithdraw       Action = "withdraw"
	ActionAssign         Action = "assign"
	ActionRequestChanges Action = "request_changes"
	ActionRequestReview  Action = "request_review"
	ActionApprove        Action = "approve"
	ActionReject         Action = "reject"
)

// Membership capacities within a container.
type Capacity string

const (
	CapacityAdmin  Capacity = "admin"
	CapacityEditor Capacity = "editor"
	CapacityMember Capacity = "member"
	CapacityNone   Capacity = ""
)
