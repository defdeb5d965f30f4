package model

// Presented pseudo-statuses. They exist only in views; the canonical Status
// enumeration never contains them.
const (
	// PresentedAvailable marks an item the viewer could claim.
	PresentedAvailable = "available"
	// PresentedAssigned marks an item whose current stage the viewer holds.
	PresentedAssigned = "assigned"
	// PresentedUnavailable marks an item another actor already holds; the
	// viewer must not learn whose it is.
	PresentedUnavailable = "unavailable"
)

// EffectiveView is what a specific viewer sees of an item: the presented
// status and assignee, derived from canonical state without ever mutating it.
type EffectiveView struct {
	// Status is the presented status: a canonical status verbatim, a
	// pseudo-status, or an operator-supplied custom override.
	Status string `json:"status"`
	// Assignee is the presented assignee, empty when hidden from the viewer.
	Assignee string `json:"assignee,omitempty"`
	// Restricted means display fields (title, series, timestamps) must be
	// elided for this viewer, not merely the status badge.
	Restricted bool `json:"restricted,omitempty"`
	// Marker carries a secondary-status overlay (e.g. title approved).
	Marker string `json:"marker,omitempty"`
}
