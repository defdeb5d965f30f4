// Package store persists workflow items and their transition events. The
// atomicity contract lives here: ApplyTransition performs the status
// precondition check and the write as one conditional update, so racing
// callers can never both succeed.
package store

import (
	"context"
	"time"

	"github.com/mediaops/callsheet/model"
)

// ItemStore persists items and transition events.
type ItemStore interface {
	// Create persists a new item. Returns BAD_REQUEST if the ID is taken.
	Create(ctx context.Context, item model.Item) error

	// Get retrieves an item by ID. Returns NOT_FOUND if absent.
	Get(ctx context.Context, itemID string) (model.Item, error)

	// List returns items matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]model.Item, error)

	// ApplyTransition atomically moves an item from one status to another
	// and records the transition event in the same storage transaction.
	// The write carries the caller's believed starting status as a
	// precondition; when claiming, the stage slot must be empty or already
	// held by the claiming actor. A failed precondition is classified as
	// NOT_FOUND, STALE_STATE or ALREADY_CLAIMED.
	ApplyTransition(ctx context.Context, update TransitionUpdate) (model.Item, error)

	// Events returns an item's audit trail in occurrence order. Returns
	// NOT_FOUND if the item is absent.
	Events(ctx context.Context, itemID string) ([]model.TransitionEvent, error)

	// Delete removes an item and its events. Returns NOT_FOUND if absent.
	Delete(ctx context.Context, itemID string) error

	// FindStaleClaims returns items not touched since the cutoff whose
	// current status has a held claim slot.
	FindStaleClaims(ctx context.Context, cutoff time.Time) ([]model.Item, error)

	// ReleaseClaim clears the claim slot of an item still in the expected
	// status, moving it to releaseTo. Returns STALE_STATE if the item moved
	// on in the meantime.
	ReleaseClaim(ctx context.Context, itemID string, expected, releaseTo model.Status) error

	// HealthCheck verifies the backing storage is reachable.
	HealthCheck(ctx context.Context) error
}

// ListFilter narrows a listing. Zero values mean no constraint.
type ListFilter struct {
	ProjectID string
	// Statuses restricts results to these canonical statuses. Empty means
	// no status constraint; the caller is responsible for intersecting with
	// the viewer's visibility set before building the filter.
	Statuses []model.Status
	Limit    int
	Offset   int
}

// TransitionUpdate is one atomic transition write.
type TransitionUpdate struct {
	ItemID string
	From   model.Status
	To     model.Status
	// Claim requests the stage slot for the actor. Stage and ActorID must
	// be set when Claim is true. A slot already held by the same actor is
	// re-granted; only a different holder fails the precondition.
	Claim   bool
	Stage   model.Stage
	ActorID string
	// ClearSlots releases every stage slot as part of the write. Set when
	// the transition re-enters the initial status, where the canonical
	// status once again means unclaimed.
	ClearSlots bool
	// Event is recorded in the same transaction as the status write.
	Event model.TransitionEvent
}
