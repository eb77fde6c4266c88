package domain

// Contact is a notification recipient.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CurationStatus is the derived, never persisted view of one dataset for
// one acting user: the resolved role, validation state, and the actions the
// user is currently allowed to take. The REST layer also uses Actions to
// decide which buttons to render.
type CurationStatus struct {
	Role        Role          `json:"role"`
	State       CurationState `json:"state"`
	IsDepositor bool          `json:"is_depositor"`
	IsCurator   bool          `json:"is_curator"`
	Error       FieldErrors   `json:"error,omitempty"`
	Actions     []Action      `json:"actions"`
	Contacts    []Contact     `json:"contacts"`
}

// Allows reports whether the given action is in the resolved action set.
func (s CurationStatus) Allows(action Action) bool {
	for _, a := range s.Actions {
		if a == action {
			return true
		}
	}
	return false
}
