package model

import "time"

// Item is one unit of work moving through the pipeline: canonical status,
// the per-stage assignee slots, and an optional presentation overlay. The
// canonical status is the single source of truth; everything role-specific is
// derived at read time and never written back.
type Item struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Title     string    `json:"title"`
	Series    string    `json:"series,omitempty"`
	Status    Status    `json:"status"`
	Assignees Assignees `json:"assignees"`
	Overlay   Overlay   `json:"overlay,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Assignees holds the per-stage slot holders. An empty string means the slot
// is open.
type Assignees struct {
	Optimizer       string `json:"optimizer,omitempty"`
	ContentReviewer string `json:"content_reviewer,omitempty"`
	Uploader        string `json:"uploader,omitempty"`
	MediaReviewer   string `json:"media_reviewer,omitempty"`
}

// ForStage returns the holder of the given stage slot.
func (a Assignees) ForStage(stage Stage) string {
	switch stage {
	case StageOptimize:
		return a.Optimizer
	case StageContentReview:
		return a.ContentReviewer
	case StageUpload:
		return a.Uploader
	case StageMediaReview:
		return a.MediaReviewer
	default:
		return ""
	}
}

// SetForStage sets the holder of the given stage slot.
func (a *Assignees) SetForStage(stage Stage, actorID string) {
	switch stage {
	case StageOptimize:
		a.Optimizer = actorID
	case StageContentReview:
		a.ContentReviewer = actorID
	case StageUpload:
		a.Uploader = actorID
	case StageMediaReview:
		a.MediaReviewer = actorID
	}
}

// OverlayKind discriminates the Overlay variant.
type OverlayKind string

const (
	// OverlayNone means no overlay is set.
	OverlayNone OverlayKind = ""
	// OverlayCustomStatus replaces the presented status outright for every
	// viewer, administrators included.
	OverlayCustomStatus OverlayKind = "custom_status"
	// OverlaySecondaryStatus decorates the view with a marker without
	// touching the presented status.
	OverlaySecondaryStatus OverlayKind = "secondary_status"
)

// Overlay is an operator-applied presentation override on an item. It affects
// how items are shown, never how transitions are gated.
type Overlay struct {
	Kind  OverlayKind `json:"kind,omitempty"`
	Value string      `json:"value,omitempty"`
}

// NoOverlay returns the zero overlay.
func NoOverlay() Overlay {
	return Overlay{}
}

// CustomStatusOverlay returns an overlay that replaces the presented status.
func CustomStatusOverlay(value string) Overlay {
	return Overlay{Kind: OverlayCustomStatus, Value: value}
}

// SecondaryStatusOverlay returns an overlay that adds a marker to the view.
func SecondaryStatusOverlay(value string) Overlay {
	return Overlay{Kind: OverlaySecondaryStatus, Value: value}
}

// Validate checks the overlay's internal consistency.
func (o Overlay) Validate() error {
	var details []FieldError
	switch o.Kind {
	case OverlayNone:
		if o.Value != "" {
			details = append(details, FieldError{Field: "overlay.value", Code: "unexpected", Message: "value set without a kind"})
		}
	case OverlayCustomStatus, OverlaySecondaryStatus:
		if o.Value == "" {
			details = append(details, FieldError{Field: "overlay.value", Code: "required", Message: "overlay value is required"})
		}
	default:
		details = append(details, FieldError{Field: "overlay.kind", Code: "unknown", Message: "unknown overlay kind " + string(o.Kind)})
	}
	if len(details) > 0 {
		return NewValidationError(details)
	}
	return nil
}
