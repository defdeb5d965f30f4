package model

import "context"

// Actor is the authenticated identity performing a request. It is immutable
// after construction and safe for concurrent reads.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// Validate checks that the actor carries an identity and a known role.
func (a Actor) Validate() error {
	var details []FieldError
	if a.ID == "" {
		details = append(details, FieldError{Field: "actor.id", Code: "required", Message: "actor identifier is required"})
	}
	if _, ok := ParseRole(string(a.Role)); !ok {
		details = append(details, FieldError{Field: "actor.role", Code: "unknown", Message: "unknown role " + string(a.Role)})
	}
	if len(details) > 0 {
		return NewValidationError(details)
	}
	return nil
}

type actorKey struct{}

// WithActor attaches an Actor to the given context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom extracts the Actor from the context. The second return value is
// false if no actor is present.
func ActorFrom(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

// MustActor extracts the Actor from the context, panicking if it is not
// present. Safe to call in handlers that run behind the auth middleware.
func MustActor(ctx context.Context) Actor {
	actor, ok := ActorFrom(ctx)
	if !ok {
		panic("model: Actor not found in context")
	}
	return actor
}
