package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/mediaops/callsheet/model"
)

// TestFullPipelineWalk drives one item from creation to completed through
// every stage of the default pipeline, each move made by the role that owns
// that edge.
func TestFullPipelineWalk(t *testing.T) {
	h := NewTestHarness(t)

	optimizer := h.GenerateToken(OptimizerClaims("opt-1"))
	content := h.GenerateToken(ContentReviewerClaims())
	uploader := h.GenerateToken(UploaderClaims("up-1"))
	media := h.GenerateToken(MediaReviewerClaims())
	reviewer := h.GenerateToken(ReviewerClaims())
	admin := h.GenerateToken(AdminClaims())

	item := h.CreateItem(t, "Episode 1")
	if item.Status != "available" {
		t.Fatalf("created status = %q, want available", item.Status)
	}

	// Optimizer claims the item off the pool.
	var claimed ItemView
	h.AssertJSON(t, h.Transition(t, item.ID, "available", "in_progress", true, optimizer), http.StatusOK, &claimed)
	if claimed.Status != "assigned" || claimed.Assignee != "opt-1" {
		t.Fatalf("after claim: status = %q assignee = %q", claimed.Status, claimed.Assignee)
	}

	h.AssertStatus(t, h.Transition(t, item.ID, "in_progress", "optimize_review", false, optimizer), http.StatusOK)

	// Content reviewer claims while approving the optimization.
	h.AssertStatus(t, h.Transition(t, item.ID, "optimize_review", "upload_review", true, content), http.StatusOK)

	// Uploader claims in place, then hands off to media review.
	var inPlace ItemView
	h.AssertJSON(t, h.Transition(t, item.ID, "upload_review", "upload_review", true, uploader), http.StatusOK, &inPlace)
	if inPlace.Status != "assigned" || inPlace.Assignee != "up-1" {
		t.Fatalf("after claim-in-place: status = %q assignee = %q", inPlace.Status, inPlace.Assignee)
	}
	h.AssertStatus(t, h.Transition(t, item.ID, "upload_review", "media_review", false, uploader), http.StatusOK)

	// Media reviewer claims while passing the item forward.
	h.AssertStatus(t, h.Transition(t, item.ID, "media_review", "final_review", true, media), http.StatusOK)

	h.AssertStatus(t, h.Transition(t, item.ID, "final_review", "youtube_ready", false, reviewer), http.StatusOK)
	h.AssertStatus(t, h.Transition(t, item.ID, "youtube_ready", "completed", false, admin), http.StatusOK)

	// completed is terminal even for administrators.
	var errBody ErrorBody
	h.AssertJSON(t, h.Transition(t, item.ID, "completed", "available", false, admin), http.StatusForbidden, &errBody)
	if errBody.Error.Code != model.ErrForbidden {
		t.Errorf("terminal exit code = %q, want FORBIDDEN", errBody.Error.Code)
	}

	// The audit trail records every move in order.
	var history struct {
		Data []model.TransitionEvent `json:"data"`
	}
	h.AssertJSON(t, h.GET("/api/items/"+item.ID+"/history", admin), http.StatusOK, &history)
	if len(history.Data) != 8 {
		t.Fatalf("history length = %d, want 8", len(history.Data))
	}
	if history.Data[0].To != model.StatusInProgress || history.Data[0].NewAssignee != "opt-1" {
		t.Errorf("first event = %+v", history.Data[0])
	}
	if history.Data[7].To != model.StatusCompleted {
		t.Errorf("last event to = %q, want completed", history.Data[7].To)
	}

	// Every committed transition produced a notification. Emits are
	// asynchronous, so only membership is checked, not order.
	events := h.Notifier.WaitForEvents(t, 8, 2*time.Second)
	foundClaim := false
	for _, ev := range events {
		if ev.ActorRole == model.RoleOptimizer && ev.NewAssignee == "opt-1" {
			foundClaim = true
		}
	}
	if !foundClaim {
		t.Error("no notification for the optimizer claim")
	}
}

func TestClaimConflicts(t *testing.T) {
	h := NewTestHarness(t)

	first := h.GenerateToken(OptimizerClaims("opt-1"))
	second := h.GenerateToken(OptimizerClaims("opt-2"))

	item := h.CreateItem(t, "Episode 2")

	h.AssertStatus(t, h.Transition(t, item.ID, "available", "in_progress", true, first), http.StatusOK)

	// The loser's observed status is stale once the winner has moved the item.
	var errBody ErrorBody
	h.AssertJSON(t, h.Transition(t, item.ID, "available", "in_progress", true, second), http.StatusConflict, &errBody)
	if errBody.Error.Code != model.ErrStaleState {
		t.Errorf("code = %q, want STALE_STATE", errBody.Error.Code)
	}
}

func TestClaimInPlaceConflict(t *testing.T) {
	h := NewTestHarness(t)

	optimizer := h.GenerateToken(OptimizerClaims("opt-1"))
	content := h.GenerateToken(ContentReviewerClaims())
	first := h.GenerateToken(UploaderClaims("up-1"))
	second := h.GenerateToken(UploaderClaims("up-2"))

	item := h.CreateItem(t, "Episode 3")
	h.AssertStatus(t, h.Transition(t, item.ID, "available", "in_progress", true, optimizer), http.StatusOK)
	h.AssertStatus(t, h.Transition(t, item.ID, "in_progress", "optimize_review", false, optimizer), http.StatusOK)
	h.AssertStatus(t, h.Transition(t, item.ID, "optimize_review", "upload_review", true, content), http.StatusOK)

	h.AssertStatus(t, h.Transition(t, item.ID, "upload_review", "upload_review", true, first), http.StatusOK)

	// The status still matches, so the loser learns the slot itself is taken.
	var errBody ErrorBody
	h.AssertJSON(t, h.Transition(t, item.ID, "upload_review", "upload_review", true, second), http.StatusConflict, &errBody)
	if errBody.Error.Code != model.ErrAlreadyClaimed {
		t.Errorf("code = %q, want ALREADY_CLAIMED", errBody.Error.Code)
	}
}

func TestClaimAtSlotlessStatusRejected(t *testing.T) {
	h := NewTestHarness(t)

	reviewer := h.GenerateToken(ReviewerClaims())
	item := h.CreateItem(t, "Episode 4")

	// Walk the item to final_review directly through the service.
	walkTo(t, h, item.ID, "final_review")

	var errBody ErrorBody
	h.AssertJSON(t, h.Transition(t, item.ID, "final_review", "youtube_ready", true, reviewer), http.StatusUnprocessableEntity, &errBody)
	if errBody.Error.Code != model.ErrValidationError {
		t.Errorf("code = %q, want VALIDATION_ERROR", errBody.Error.Code)
	}
}

func TestAdminReopenFreesClaimSlot(t *testing.T) {
	h := NewTestHarness(t)

	first := h.GenerateToken(OptimizerClaims("opt-1"))
	second := h.GenerateToken(OptimizerClaims("opt-2"))
	admin := h.GenerateToken(AdminClaims())

	item := h.CreateItem(t, "Episode 6")
	h.AssertStatus(t, h.Transition(t, item.ID, "available", "in_progress", true, first), http.StatusOK)

	// Admin sends the item back to the pool; the claim goes with it.
	h.AssertStatus(t, h.Transition(t, item.ID, "in_progress", "available", false, admin), http.StatusOK)

	// The reopened item reads as available, not as someone else's.
	var reopened ItemView
	h.AssertJSON(t, h.GET("/api/items/"+item.ID, second), http.StatusOK, &reopened)
	if reopened.Status != "available" {
		t.Fatalf("reopened status = %q, want available", reopened.Status)
	}

	var claimed ItemView
	h.AssertJSON(t, h.Transition(t, item.ID, "available", "in_progress", true, second), http.StatusOK, &claimed)
	if claimed.Status != "assigned" || claimed.Assignee != "opt-2" {
		t.Errorf("after re-claim: status = %q assignee = %q", claimed.Status, claimed.Assignee)
	}
}

func TestAdminBypassesRoleTable(t *testing.T) {
	h := NewTestHarness(t)

	admin := h.GenerateToken(AdminClaims())
	item := h.CreateItem(t, "Episode 5")

	// No role owns available -> trashed, but administrators may force it.
	h.AssertStatus(t, h.Transition(t, item.ID, "available", "trashed", false, admin), http.StatusOK)
}

// walkTo advances an item to the target status using the service directly,
// for tests that only care about behavior at the destination.
func walkTo(t *testing.T, h *TestHarness, itemID, target string) {
	t.Helper()

	steps := []struct {
		actor model.Actor
		from  model.Status
		to    model.Status
		claim bool
	}{
		{model.Actor{ID: "walk-opt", Role: model.RoleOptimizer}, model.StatusAvailable, model.StatusInProgress, true},
		{model.Actor{ID: "walk-opt", Role: model.RoleOptimizer}, model.StatusInProgress, model.StatusOptimizeReview, false},
		{model.Actor{ID: "walk-content", Role: model.RoleContentReviewer}, model.StatusOptimizeReview, model.StatusUploadReview, true},
		{model.Actor{ID: "walk-up", Role: model.RoleUploader}, model.StatusUploadReview, model.StatusMediaReview, false},
		{model.Actor{ID: "walk-media", Role: model.RoleMediaReviewer}, model.StatusMediaReview, model.StatusFinalReview, true},
		{model.Actor{ID: "walk-rev", Role: model.RoleReviewer}, model.StatusFinalReview, model.StatusYoutubeReady, false},
	}
	for _, step := range steps {
		if _, err := h.Service.Transition(t.Context(), step.actor, itemID, step.from, step.to, step.claim); err != nil {
			t.Fatalf("walk %s -> %s: %v", step.from, step.to, err)
		}
		if string(step.to) == target {
			return
		}
	}
	t.Fatalf("walkTo: unknown target %q", target)
}
