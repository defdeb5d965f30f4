package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mediaops/callsheet/model"
)

// MemItemStore is a mutex-guarded in-memory ItemStore. It backs tests and
// DSN-less runs and matches the Postgres store's transition semantics,
// including the single-winner guarantee for racing transitions.
type MemItemStore struct {
	mu     sync.RWMutex
	items  map[string]model.Item
	events map[string][]model.TransitionEvent
}

// NewMemItemStore creates a new in-memory item store.
func NewMemItemStore() *MemItemStore {
	return &MemItemStore{
		items:  make(map[string]model.Item),
		events: make(map[string][]model.TransitionEvent),
	}
}

// Create persists a new item.
func (s *MemItemStore) Create(_ context.Context, item model.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[item.ID]; exists {
		return model.NewBadRequestError(
			fmt.Sprintf("item %q already exists", item.ID),
		)
	}
	s.items[item.ID] = item
	return nil
}

// Get retrieves an item by ID.
func (s *MemItemStore) Get(_ context.Context, itemID string) (model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[itemID]
	if !exists {
		return model.Item{}, model.NewNotFoundError(
			fmt.Sprintf("item %q not found", itemID),
		)
	}
	return item, nil
}

// List returns items matching the filter, newest first.
func (s *MemItemStore) List(_ context.Context, filter ListFilter) ([]model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allowed := make(map[model.Status]struct{}, len(filter.Statuses))
	for _, st := range filter.Statuses {
		allowed[st] = struct{}{}
	}

	var result []model.Item
	for _, item := range s.items {
		if filter.ProjectID != "" && item.ProjectID != filter.ProjectID {
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[item.Status]; !ok {
				continue
			}
		}
		result = append(result, item)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []model.Item{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

// ApplyTransition checks the preconditions and writes under one lock hold, so
// two racing callers with the same precondition cannot both succeed.
func (s *MemItemStore) ApplyTransition(_ context.Context, update TransitionUpdate) (model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.items[update.ItemID]
	if !exists {
		return model.Item{}, model.NewNotFoundError(
			fmt.Sprintf("item %q not found", update.ItemID),
		)
	}
	if item.Status != update.From {
		return model.Item{}, model.NewStaleStateError(
			fmt.Sprintf("item %q is %s, not %s", update.ItemID, item.Status, update.From),
		)
	}
	if update.Claim {
		held := item.Assignees.ForStage(update.Stage)
		if held != "" && held != update.ActorID {
			return model.Item{}, model.NewAlreadyClaimedError(
				fmt.Sprintf("item %q is already claimed at the %s stage", update.ItemID, update.Stage),
			)
		}
	}

	item.Status = update.To
	if update.ClearSlots {
		item.Assignees = model.Assignees{}
	}
	if update.Claim {
		item.Assignees.SetForStage(update.Stage, update.ActorID)
	}
	item.UpdatedAt = s.bumpUpdatedAt(item.UpdatedAt)
	s.items[item.ID] = item
	s.events[item.ID] = append(s.events[item.ID], update.Event)
	return item, nil
}

// Events returns the item's audit trail in occurrence order.
func (s *MemItemStore) Events(_ context.Context, itemID string) ([]model.TransitionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.items[itemID]; !exists {
		return nil, model.NewNotFoundError(
			fmt.Sprintf("item %q not found", itemID),
		)
	}

	events := s.events[itemID]
	result := make([]model.TransitionEvent, len(events))
	copy(result, events)
	sort.Slice(result, func(i, j int) bool {
		return result[i].OccurredAt.Before(result[j].OccurredAt)
	})
	return result, nil
}

// Delete removes an item and its events.
func (s *MemItemStore) Delete(_ context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[itemID]; !exists {
		return model.NewNotFoundError(
			fmt.Sprintf("item %q not found", itemID),
		)
	}
	delete(s.items, itemID)
	delete(s.events, itemID)
	return nil
}

// FindStaleClaims returns items untouched since the cutoff whose current
// status has a held claim slot.
func (s *MemItemStore) FindStaleClaims(_ context.Context, cutoff time.Time) ([]model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Item
	for _, item := range s.items {
		if !item.UpdatedAt.Before(cutoff) {
			continue
		}
		result = append(result, item)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.Before(result[j].UpdatedAt)
	})
	return filterHeldClaims(result), nil
}

// ReleaseClaim clears the claim slot of an item still in the expected status.
func (s *MemItemStore) ReleaseClaim(_ context.Context, itemID string, expected, releaseTo model.Status) error {
	stage, ok := expected.ClaimStage()
	if !ok {
		return model.NewBadRequestError(
			fmt.Sprintf("status %s has no claim slot", expected),
		)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.items[itemID]
	if !exists || item.Status != expected {
		return model.NewStaleStateError(
			fmt.Sprintf("item %q is no longer %s", itemID, expected),
		)
	}

	item.Status = releaseTo
	item.Assignees.SetForStage(stage, "")
	item.UpdatedAt = s.bumpUpdatedAt(item.UpdatedAt)
	s.items[item.ID] = item
	return nil
}

// HealthCheck always succeeds for the in-memory store.
func (s *MemItemStore) HealthCheck(_ context.Context) error {
	return nil
}

// Len returns the total number of items. For testing.
func (s *MemItemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// bumpUpdatedAt guarantees updatedAt strictly increases on every committed
// mutation, even within one clock tick.
func (s *MemItemStore) bumpUpdatedAt(previous time.Time) time.Time {
	now := time.Now().UTC()
	if !now.After(previous) {
		now = previous.Add(time.Microsecond)
	}
	return now
}
