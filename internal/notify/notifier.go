// Package notify delivers transition events to external collaborators. All
// delivery is best-effort: the engine emits after commit and discards
// failures, so no implementation here may influence a transition's outcome.
package notify

import (
	"context"

	"github.com/mediaops/callsheet/model"
)

// Notifier delivers one committed transition event.
type Notifier interface {
	Emit(ctx context.Context, event model.TransitionEvent) error
}

// Nop is a Notifier that discards every event.
type Nop struct{}

// NewNop creates a no-op notifier.
func NewNop() Nop {
	return Nop{}
}

// Emit discards the event.
func (Nop) Emit(context.Context, model.TransitionEvent) error {
	return nil
}
