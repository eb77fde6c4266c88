package ridl

import (
	"time"
)

const (
	// TypeDeposited marks a dataset that is still inside the deposit
	// workflow. TypeDataset is a regular published dataset.
	TypeDeposited = "deposited-dataset"
	TypeDataset   = "dataset"
)

const (
	StateActive  = "active"
	StateDeleted = "deleted"
)

// Dataset is the canonical dataset representation exchanged between the
// repositories, the curation core and the REST surface.
type Dataset struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title"`
	Type  string `json:"type"`

	// State is the lifecycle state (active/deleted), not the curation state.
	State string `json:"state"`

	OwnerOrg     string `json:"owner_org"`
	OwnerOrgDest string `json:"owner_org_dest,omitempty"`

	CurationState string `json:"curation_state,omitempty"`
	CuratorID     string `json:"curator_id,omitempty"`
	CreatorUserID string `json:"creator_user_id"`

	Notes                   string   `json:"notes,omitempty"`
	DataCollector           string   `json:"data_collector,omitempty"`
	DataCollectionTechnique string   `json:"data_collection_technique,omitempty"`
	UnitOfMeasurement       string   `json:"unit_of_measurement,omitempty"`
	Keywords                []string `json:"keywords,omitempty"`
	ExternalAccessLevel     string   `json:"external_access_level,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Deposited reports whether the dataset is still part of the deposit
// workflow.
func (d *Dataset) Deposited() bool {
	return d.Type == TypeDeposited && d.State == StateActive
}

// Clone returns a deep copy. Transitions mutate a copy so a failed
// validation never leaks partial changes into the caller's dataset.
func (d *Dataset) Clone() *Dataset {
	out := *d
	if d.Keywords != nil {
		out.Keywords = append([]string(nil), d.Keywords...)
	}
	return &out
}
