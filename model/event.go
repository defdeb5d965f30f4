package model

import "time"

// TransitionEvent records one committed status change. Events form the item's
// audit trail and are also what the notifier emits after commit.
type TransitionEvent struct {
	ID          string    `json:"id"`
	ItemID      string    `json:"item_id"`
	From        Status    `json:"from"`
	To          Status    `json:"to"`
	ActorID     string    `json:"actor_id"`
	ActorRole   Role      `json:"actor_role"`
	NewAssignee string    `json:"new_assignee,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
