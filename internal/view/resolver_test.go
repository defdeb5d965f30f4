package view

import (
	"testing"

	"github.com/mediaops/callsheet/model"
)

func item(status model.Status) model.Item {
	return model.Item{
		ID:     "item-1",
		Title:  "Episode 12",
		Series: "Field Notes",
		Status: status,
	}
}

func TestResolveUnassignedClaimable(t *testing.T) {
	it := item(model.StatusUploadReview)

	for _, role := range []model.Role{model.RoleUploader, model.RoleReviewer, model.RoleMediaReviewer} {
		ev := Resolve(role, it, "u3")
		if ev.Status != model.PresentedAvailable {
			t.Errorf("%s: status = %q, want %q", role, ev.Status, model.PresentedAvailable)
		}
		if ev.Assignee != "" || ev.Restricted {
			t.Errorf("%s: unexpected assignee %q / restricted %v", role, ev.Assignee, ev.Restricted)
		}
	}
}

func TestResolveAssignedToMe(t *testing.T) {
	it := item(model.StatusUploadReview)
	it.Assignees.Uploader = "u3"

	ev := Resolve(model.RoleUploader, it, "u3")
	if ev.Status != model.PresentedAssigned {
		t.Errorf("status = %q, want %q", ev.Status, model.PresentedAssigned)
	}
	if ev.Assignee != "u3" {
		t.Errorf("assignee = %q, want u3", ev.Assignee)
	}
	if ev.Restricted {
		t.Error("assigned-to-me must not be restricted")
	}
}

func TestResolveAssignedToOther(t *testing.T) {
	it := item(model.StatusUploadReview)
	it.Assignees.Uploader = "u3"

	ev := Resolve(model.RoleUploader, it, "u4")
	if ev.Status != model.PresentedUnavailable {
		t.Errorf("status = %q, want %q", ev.Status, model.PresentedUnavailable)
	}
	if ev.Assignee != "" {
		t.Errorf("assignee leaked: %q", ev.Assignee)
	}
	if !ev.Restricted {
		t.Error("unavailable view must be restricted")
	}
}

func TestResolveOptimizerInitialStatus(t *testing.T) {
	ev := Resolve(model.RoleOptimizer, item(model.StatusAvailable), "o1")
	if ev.Status != model.PresentedAvailable {
		t.Errorf("status = %q, want %q", ev.Status, model.PresentedAvailable)
	}
}

func TestResolveOptimizerOwnWork(t *testing.T) {
	it := item(model.StatusInProgress)
	it.Assignees.Optimizer = "o1"

	if ev := Resolve(model.RoleOptimizer, it, "o1"); ev.Status != model.PresentedAssigned {
		t.Errorf("own item status = %q, want %q", ev.Status, model.PresentedAssigned)
	}
	if ev := Resolve(model.RoleOptimizer, it, "o2"); ev.Status != model.PresentedUnavailable || !ev.Restricted {
		t.Errorf("peer item = %+v, want restricted unavailable", ev)
	}
}

func TestResolveCanonicalFallback(t *testing.T) {
	it := item(model.StatusOptimizeReview)
	it.Assignees.ContentReviewer = "c1"

	// Reviewer does not compete at optimize_review; canonical status, no
	// peer assignee.
	ev := Resolve(model.RoleReviewer, it, "r1")
	if ev.Status != string(model.StatusOptimizeReview) {
		t.Errorf("status = %q, want canonical optimize_review", ev.Status)
	}
	if ev.Assignee != "" {
		t.Errorf("assignee leaked: %q", ev.Assignee)
	}

	// The holder still sees their own assignment on the fallback path.
	if ev := Resolve(model.RoleUploader, item(model.StatusYoutubeReady), "u1"); ev.Status != string(model.StatusYoutubeReady) {
		t.Errorf("status = %q, want canonical youtube_ready", ev.Status)
	}
}

func TestResolveContentReviewerClaim(t *testing.T) {
	it := item(model.StatusOptimizeReview)

	if ev := Resolve(model.RoleContentReviewer, it, "c1"); ev.Status != model.PresentedAvailable {
		t.Errorf("status = %q, want %q", ev.Status, model.PresentedAvailable)
	}

	it.Assignees.ContentReviewer = "c1"
	if ev := Resolve(model.RoleContentReviewer, it, "c1"); ev.Status != model.PresentedAssigned {
		t.Errorf("status = %q, want %q", ev.Status, model.PresentedAssigned)
	}
}

func TestResolveCustomStatusOverlay(t *testing.T) {
	it := item(model.StatusUploadReview)
	it.Assignees.Uploader = "u3"
	it.Overlay = model.CustomStatusOverlay("on hold")

	for _, role := range []model.Role{model.RoleUploader, model.RoleAdmin} {
		ev := Resolve(role, it, "u4")
		if ev.Status != "on hold" {
			t.Errorf("%s: status = %q, want overlay value", role, ev.Status)
		}
	}

	// The confidentiality rule survives the override.
	if ev := Resolve(model.RoleUploader, it, "u4"); !ev.Restricted {
		t.Error("overlay must not unrestrict another holder's item")
	}
}

func TestResolveSecondaryStatusOverlay(t *testing.T) {
	it := item(model.StatusOptimizeReview)
	it.Overlay = model.SecondaryStatusOverlay("title_approved")

	ev := Resolve(model.RoleContentReviewer, it, "c1")
	if ev.Status != model.PresentedAvailable {
		t.Errorf("status = %q, want %q", ev.Status, model.PresentedAvailable)
	}
	if ev.Marker != "title_approved" {
		t.Errorf("marker = %q, want title_approved", ev.Marker)
	}
}

func TestResolveAdmin(t *testing.T) {
	it := item(model.StatusUploadReview)
	it.Assignees.Uploader = "u3"

	ev := Resolve(model.RoleAdmin, it, "admin-1")
	if ev.Status != string(model.StatusUploadReview) {
		t.Errorf("status = %q, want canonical upload_review", ev.Status)
	}
	if ev.Assignee != "u3" {
		t.Errorf("assignee = %q, want u3", ev.Assignee)
	}
	if ev.Restricted {
		t.Error("admin views are never restricted")
	}
}

func TestResolveIsPure(t *testing.T) {
	it := item(model.StatusUploadReview)
	it.Assignees.Uploader = "u3"
	before := it

	Resolve(model.RoleUploader, it, "u4")
	Resolve(model.RoleAdmin, it, "admin-1")

	if it != before {
		t.Errorf("Resolve mutated the item: %+v", it)
	}
}
