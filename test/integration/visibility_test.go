package integration

import (
	"net/http"
	"testing"
)

// TestUploadReviewViewerTrio checks the three faces one item shows at
// upload_review once an uploader holds the slot: the holder sees assigned,
// rival uploaders see a restricted unavailable card, and the administrator
// sees the canonical status with the real assignee.
func TestUploadReviewViewerTrio(t *testing.T) {
	h := NewTestHarness(t)

	optimizer := h.GenerateToken(OptimizerClaims("opt-1"))
	content := h.GenerateToken(ContentReviewerClaims())
	holder := h.GenerateToken(UploaderClaims("up-1"))
	rival := h.GenerateToken(UploaderClaims("up-2"))
	admin := h.GenerateToken(AdminClaims())

	item := h.CreateItem(t, "Episode 10")
	h.AssertStatus(t, h.Transition(t, item.ID, "available", "in_progress", true, optimizer), http.StatusOK)
	h.AssertStatus(t, h.Transition(t, item.ID, "in_progress", "optimize_review", false, optimizer), http.StatusOK)
	h.AssertStatus(t, h.Transition(t, item.ID, "optimize_review", "upload_review", true, content), http.StatusOK)

	// Before any uploader claims, the pool sees it as available.
	var before ItemView
	h.AssertJSON(t, h.GET("/api/items/"+item.ID, rival), http.StatusOK, &before)
	if before.Status != "available" {
		t.Fatalf("pre-claim uploader view = %q, want available", before.Status)
	}

	h.AssertStatus(t, h.Transition(t, item.ID, "upload_review", "upload_review", true, holder), http.StatusOK)

	var holderView ItemView
	h.AssertJSON(t, h.GET("/api/items/"+item.ID, holder), http.StatusOK, &holderView)
	if holderView.Status != "assigned" || holderView.Assignee != "up-1" {
		t.Errorf("holder view: status = %q assignee = %q", holderView.Status, holderView.Assignee)
	}

	var rivalView ItemView
	h.AssertJSON(t, h.GET("/api/items/"+item.ID, rival), http.StatusOK, &rivalView)
	if rivalView.Status != "unavailable" || !rivalView.Restricted {
		t.Errorf("rival view: status = %q restricted = %v", rivalView.Status, rivalView.Restricted)
	}
	if rivalView.Title != "" || rivalView.Assignee != "" {
		t.Errorf("rival view leaked fields: title = %q assignee = %q", rivalView.Title, rivalView.Assignee)
	}

	var adminView ItemView
	h.AssertJSON(t, h.GET("/api/items/"+item.ID, admin), http.StatusOK, &adminView)
	if adminView.Status != "upload_review" || adminView.Assignee != "up-1" {
		t.Errorf("admin view: status = %q assignee = %q", adminView.Status, adminView.Assignee)
	}
	if adminView.Title != "Episode 10" {
		t.Errorf("admin view title = %q", adminView.Title)
	}
}

// TestVisibilityGate checks that items outside a role's visibility set read
// as missing, not forbidden, so their existence never leaks.
func TestVisibilityGate(t *testing.T) {
	h := NewTestHarness(t)

	content := h.GenerateToken(ContentReviewerClaims())
	item := h.CreateItem(t, "Episode 11")

	// available is outside the content reviewer's visibility set.
	var errBody ErrorBody
	h.AssertJSON(t, h.GET("/api/items/"+item.ID, content), http.StatusNotFound, &errBody)
	if errBody.Error.Code != "NOT_FOUND" {
		t.Errorf("code = %q, want NOT_FOUND", errBody.Error.Code)
	}
}

func TestListScopedByVisibility(t *testing.T) {
	h := NewTestHarness(t)

	optimizer := h.GenerateToken(OptimizerClaims("opt-1"))
	uploader := h.GenerateToken(UploaderClaims("up-1"))

	h.CreateItem(t, "Episode 12")
	h.CreateItem(t, "Episode 13")

	var optList struct {
		Data []ItemView `json:"data"`
	}
	h.AssertJSON(t, h.GET("/api/items", optimizer), http.StatusOK, &optList)
	if len(optList.Data) != 2 {
		t.Errorf("optimizer list length = %d, want 2", len(optList.Data))
	}

	// Uploaders never see the available pool.
	var upList struct {
		Data []ItemView `json:"data"`
	}
	h.AssertJSON(t, h.GET("/api/items", uploader), http.StatusOK, &upList)
	if len(upList.Data) != 0 {
		t.Errorf("uploader list length = %d, want 0", len(upList.Data))
	}
}

func TestCustomStatusOverlayBindsEveryRole(t *testing.T) {
	h := NewTestHarness(t)

	admin := h.GenerateToken(AdminClaims())
	optimizer := h.GenerateToken(OptimizerClaims("opt-1"))

	var item ItemView
	h.AssertJSON(t, h.POST("/api/items", map[string]any{
		"project_id":    "proj-1",
		"title":         "Episode 14",
		"custom_status": "Hold for legal",
	}, admin), http.StatusCreated, &item)
	if item.Status != "Hold for legal" {
		t.Fatalf("admin create view status = %q", item.Status)
	}

	var optView ItemView
	h.AssertJSON(t, h.GET("/api/items/"+item.ID, optimizer), http.StatusOK, &optView)
	if optView.Status != "Hold for legal" {
		t.Errorf("optimizer view status = %q, want the overlay text", optView.Status)
	}
}

func TestSecondaryStatusOverlayIsAMarker(t *testing.T) {
	h := NewTestHarness(t)

	admin := h.GenerateToken(AdminClaims())
	optimizer := h.GenerateToken(OptimizerClaims("opt-1"))

	var item ItemView
	h.AssertJSON(t, h.POST("/api/items", map[string]any{
		"project_id":       "proj-1",
		"title":            "Episode 15",
		"secondary_status": "shorts",
	}, admin), http.StatusCreated, &item)

	var optView ItemView
	h.AssertJSON(t, h.GET("/api/items/"+item.ID, optimizer), http.StatusOK, &optView)
	if optView.Status != "available" {
		t.Errorf("status = %q, want available", optView.Status)
	}
	if optView.Marker != "shorts" {
		t.Errorf("marker = %q, want shorts", optView.Marker)
	}
}
