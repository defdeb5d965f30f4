// Package engine is the only mutator of workflow items. It gates every
// transition through the ruleset, delegates the atomic write to the store and
// emits best-effort notifications strictly after commit.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mediaops/callsheet/internal/notify"
	"github.com/mediaops/callsheet/internal/observability"
	"github.com/mediaops/callsheet/internal/rules"
	"github.com/mediaops/callsheet/internal/store"
	"github.com/mediaops/callsheet/internal/view"
	"github.com/mediaops/callsheet/model"
)

const defaultNotifyTimeout = 5 * time.Second

// Service coordinates item lifecycle operations.
type Service struct {
	ruleset       *rules.Ruleset
	store         store.ItemStore
	notifier      notify.Notifier
	logger        *zap.Logger
	metrics       *observability.Metrics
	notifyTimeout time.Duration
}

// NewService creates a new engine service. Metrics may be nil.
func NewService(
	ruleset *rules.Ruleset,
	itemStore store.ItemStore,
	notifier notify.Notifier,
	logger *zap.Logger,
	metrics *observability.Metrics,
	notifyTimeout time.Duration,
) *Service {
	if notifier == nil {
		notifier = notify.NewNop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifyTimeout <= 0 {
		notifyTimeout = defaultNotifyTimeout
	}
	return &Service{
		ruleset:       ruleset,
		store:         itemStore,
		notifier:      notifier,
		logger:        logger,
		metrics:       metrics,
		notifyTimeout: notifyTimeout,
	}
}

// Ruleset exposes the compiled ruleset for read-path collaborators.
func (s *Service) Ruleset() *rules.Ruleset {
	return s.ruleset
}

// CreateRequest describes a new item.
type CreateRequest struct {
	ProjectID string
	Title     string
	Series    string
	Overlay   model.Overlay
}

// Create persists a new item in the initial status. Administrators only.
func (s *Service) Create(ctx context.Context, actor model.Actor, req CreateRequest) (model.Item, error) {
	if err := actor.Validate(); err != nil {
		return model.Item{}, err
	}
	if !actor.Role.IsAdmin() {
		return model.Item{}, model.NewForbiddenError("only administrators may create items")
	}

	var details []model.FieldError
	if req.ProjectID == "" {
		details = append(details, model.FieldError{Field: "project_id", Code: "required", Message: "project identifier is required"})
	}
	if req.Title == "" {
		details = append(details, model.FieldError{Field: "title", Code: "required", Message: "title is required"})
	}
	if len(details) > 0 {
		return model.Item{}, model.NewValidationError(details)
	}
	if err := req.Overlay.Validate(); err != nil {
		return model.Item{}, err
	}

	now := time.Now().UTC()
	item := model.Item{
		ID:        uuid.New().String(),
		ProjectID: req.ProjectID,
		Title:     req.Title,
		Series:    req.Series,
		Status:    s.ruleset.InitialStatus(),
		Overlay:   req.Overlay,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, item); err != nil {
		return model.Item{}, err
	}

	if s.metrics != nil {
		s.metrics.ItemsCreatedTotal.Inc()
	}
	observability.RequestLogger(ctx, s.logger).Info("item created",
		zap.String("item_id", item.ID),
		zap.String("project_id", item.ProjectID),
	)
	return item, nil
}

// Transition atomically moves an item from the caller's believed status to
// another, optionally claiming the stage slot. It is the single mutation
// entry point for item status.
func (s *Service) Transition(
	ctx context.Context,
	actor model.Actor,
	itemID string,
	fromExpected, to model.Status,
	claim bool,
) (item model.Item, err error) {
	ctx, span := observability.StartSpan(ctx, "engine.Transition",
		observability.AttrItemID.String(itemID),
		observability.AttrActorID.String(actor.ID),
		observability.AttrActorRole.String(string(actor.Role)),
		observability.AttrFromStatus.String(string(fromExpected)),
		observability.AttrToStatus.String(string(to)),
		observability.AttrClaim.Bool(claim),
	)
	defer func() { observability.EndSpanWithError(span, err) }()
	defer func() { s.recordTransition(actor, fromExpected, to, claim, err) }()

	if err = actor.Validate(); err != nil {
		return model.Item{}, err
	}

	var stage model.Stage
	if claim {
		var ok bool
		stage, ok = fromExpected.ClaimStage()
		if !ok {
			return model.Item{}, model.NewValidationError([]model.FieldError{{
				Field:   "claim",
				Code:    "no_slot",
				Message: fmt.Sprintf("status %s has no claim slot", fromExpected),
			}})
		}
	}

	if !s.ruleset.Allows(actor.Role, fromExpected, to) {
		return model.Item{}, model.NewForbiddenError(
			fmt.Sprintf("role %s may not move an item from %s to %s", actor.Role, fromExpected, to),
		)
	}

	event := model.TransitionEvent{
		ID:         uuid.New().String(),
		ItemID:     itemID,
		From:       fromExpected,
		To:         to,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		OccurredAt: time.Now().UTC(),
	}
	if claim {
		event.NewAssignee = actor.ID
	}

	// Re-entering the initial status resets the pipeline; every stage slot
	// is released so the item reads as unclaimed again.
	clearSlots := to == s.ruleset.InitialStatus() && to != fromExpected

	item, err = s.store.ApplyTransition(ctx, store.TransitionUpdate{
		ItemID:     itemID,
		From:       fromExpected,
		To:         to,
		Claim:      claim,
		Stage:      stage,
		ActorID:    actor.ID,
		ClearSlots: clearSlots,
		Event:      event,
	})
	if err != nil {
		return model.Item{}, err
	}

	observability.RequestLogger(ctx, s.logger).Info("transition committed",
		zap.String("item_id", item.ID),
		zap.String("from", string(fromExpected)),
		zap.String("to", string(to)),
		zap.Bool("claim", claim),
	)

	// Notification is strictly post-commit and must never influence the
	// outcome: detached context, own timeout, warn on failure.
	go s.emit(event)

	return item, nil
}

// Get returns an item and its effective view for the viewer. Statuses outside
// the viewer's visibility set read as absent rather than forbidden, so their
// existence is not leaked.
func (s *Service) Get(ctx context.Context, actor model.Actor, itemID string) (model.Item, model.EffectiveView, error) {
	if err := actor.Validate(); err != nil {
		return model.Item{}, model.EffectiveView{}, err
	}

	item, err := s.store.Get(ctx, itemID)
	if err != nil {
		return model.Item{}, model.EffectiveView{}, err
	}
	if !s.ruleset.Visible(actor.Role, item.Status) {
		return model.Item{}, model.EffectiveView{}, model.NewNotFoundError(
			fmt.Sprintf("item %q not found", itemID),
		)
	}
	return item, view.Resolve(actor.Role, item, actor.ID), nil
}

// ListRequest narrows a listing.
type ListRequest struct {
	ProjectID string
	// Status restricts to one canonical status; it is intersected with the
	// viewer's visibility set.
	Status model.Status
	Limit  int
	Offset int
}

// ListEntry pairs an item with the viewer's effective view of it.
type ListEntry struct {
	Item model.Item
	View model.EffectiveView
}

// List returns the items the viewer may see, each paired with its resolved
// view. The visibility gate runs in the store query, never in presentation.
func (s *Service) List(ctx context.Context, actor model.Actor, req ListRequest) ([]ListEntry, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	visible := s.ruleset.VisibleStatuses(actor.Role)
	statuses := visible
	if req.Status != "" {
		statuses = nil
		for _, st := range visible {
			if st == req.Status {
				statuses = []model.Status{st}
				break
			}
		}
		if statuses == nil {
			// The requested status is outside the viewer's visibility set.
			return []ListEntry{}, nil
		}
	}

	items, err := s.store.List(ctx, store.ListFilter{
		ProjectID: req.ProjectID,
		Statuses:  statuses,
		Limit:     req.Limit,
		Offset:    req.Offset,
	})
	if err != nil {
		return nil, err
	}

	entries := make([]ListEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, ListEntry{
			Item: item,
			View: view.Resolve(actor.Role, item, actor.ID),
		})
	}
	return entries, nil
}

// Delete removes an item and its audit trail. Administrators only; everyone
// else retires items through a normal transition to trashed.
func (s *Service) Delete(ctx context.Context, actor model.Actor, itemID string) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	if !actor.Role.IsAdmin() {
		return model.NewForbiddenError("only administrators may delete items")
	}

	if err := s.store.Delete(ctx, itemID); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.ItemsDeletedTotal.Inc()
	}
	observability.RequestLogger(ctx, s.logger).Info("item deleted", zap.String("item_id", itemID))
	return nil
}

// History returns an item's audit trail. Administrators only: events carry
// per-actor assignment data the resolver hides from peers.
func (s *Service) History(ctx context.Context, actor model.Actor, itemID string) ([]model.TransitionEvent, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if !actor.Role.IsAdmin() {
		return nil, model.NewForbiddenError("only administrators may read item history")
	}
	return s.store.Events(ctx, itemID)
}

// ReleaseStaleClaims clears claim slots untouched longer than maxAge. Items
// sitting in in_progress return to the initial status; review-stage items
// keep their status and merely lose the held slot. Returns the number of
// claims released.
func (s *Service) ReleaseStaleClaims(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	stale, err := s.store.FindStaleClaims(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, item := range stale {
		releaseTo := item.Status
		if item.Status == model.StatusInProgress {
			releaseTo = s.ruleset.InitialStatus()
		}

		if err := s.store.ReleaseClaim(ctx, item.ID, item.Status, releaseTo); err != nil {
			// STALE_STATE just means the item moved on since the scan.
			if model.ErrorCode(err) == model.ErrStaleState {
				continue
			}
			return released, err
		}
		released++
		if s.metrics != nil {
			s.metrics.StaleClaimReleases.Inc()
		}
		s.logger.Warn("released stale claim",
			zap.String("item_id", item.ID),
			zap.String("status", string(item.Status)),
			zap.Time("last_touched", item.UpdatedAt),
		)
	}
	return released, nil
}

// emit delivers one event on a detached context so notifier latency or
// failure can never leak back into the request path.
func (s *Service) emit(event model.TransitionEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
	defer cancel()

	if err := s.notifier.Emit(ctx, event); err != nil {
		if s.metrics != nil {
			s.metrics.RecordNotifierEmit("error")
		}
		s.logger.Warn("transition notification failed",
			zap.String("event_id", event.ID),
			zap.String("item_id", event.ItemID),
			zap.Error(err),
		)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordNotifierEmit("ok")
	}
}

func (s *Service) recordTransition(actor model.Actor, from, to model.Status, claim bool, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = model.ErrorCode(err)
	}
	s.metrics.RecordTransition(string(actor.Role), string(from), string(to), outcome)
	if claim {
		stage, ok := from.ClaimStage()
		if ok {
			s.metrics.RecordClaim(string(actor.Role), string(stage), outcome)
		}
	}
}
