package openapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func loadSpec(t *testing.T) *Spec {
	t.Helper()
	spec, err := Load(t.Context())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return spec
}

func TestLoad(t *testing.T) {
	spec := loadSpec(t)
	if spec.Title() != "Callsheet API" {
		t.Errorf("Title() = %q", spec.Title())
	}
}

func TestSpec_Operation(t *testing.T) {
	spec := loadSpec(t)

	cases := []struct {
		id     string
		method string
		path   string
	}{
		{"listItems", "GET", "/api/items"},
		{"createItem", "POST", "/api/items"},
		{"getItem", "GET", "/api/items/{itemID}"},
		{"deleteItem", "DELETE", "/api/items/{itemID}"},
		{"transitionItem", "POST", "/api/items/{itemID}/transition"},
		{"getItemHistory", "GET", "/api/items/{itemID}/history"},
	}
	for _, tc := range cases {
		op, ok := spec.Operation(tc.id)
		if !ok {
			t.Errorf("Operation(%q) not found", tc.id)
			continue
		}
		if op.Method != tc.method {
			t.Errorf("Operation(%q).Method = %q, want %q", tc.id, op.Method, tc.method)
		}
		if op.PathTemplate != tc.path {
			t.Errorf("Operation(%q).PathTemplate = %q, want %q", tc.id, op.PathTemplate, tc.path)
		}
	}

	if _, ok := spec.Operation("nonexistent"); ok {
		t.Error("Operation(nonexistent) should not be found")
	}
}

func TestSpec_OperationIDs(t *testing.T) {
	spec := loadSpec(t)
	ids := spec.OperationIDs()
	if len(ids) != 8 {
		t.Errorf("OperationIDs() = %v (len %d), want 8", ids, len(ids))
	}
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Fatalf("OperationIDs() not sorted: %v", ids)
		}
	}
}

func TestHandler(t *testing.T) {
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest("GET", "/openapi.yaml", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Callsheet API") {
		t.Error("document body missing title")
	}
}
