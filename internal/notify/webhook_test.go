package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mediaops/callsheet/model"
)

func TestWebhookEmit(t *testing.T) {
	var received model.TransitionEvent
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("unmarshal body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	event := model.TransitionEvent{
		ID:         "evt-1",
		ItemID:     "item-1",
		From:       model.StatusAvailable,
		To:         model.StatusInProgress,
		ActorID:    "o1",
		ActorRole:  model.RoleOptimizer,
		OccurredAt: time.Now().UTC(),
	}

	if err := NewWebhook(srv.URL, 0).Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if contentType != "application/json" {
		t.Errorf("content type = %q", contentType)
	}
	if received.ID != "evt-1" || received.To != model.StatusInProgress {
		t.Errorf("received = %+v", received)
	}
}

func TestWebhookEmitNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := NewWebhook(srv.URL, 0).Emit(context.Background(), model.TransitionEvent{ID: "evt-1"}); err == nil {
		t.Fatal("Emit should fail on a 502 response")
	}
}

func TestWebhookEmitUnreachable(t *testing.T) {
	if err := NewWebhook("http://127.0.0.1:1/hooks", 100*time.Millisecond).Emit(context.Background(), model.TransitionEvent{ID: "evt-1"}); err == nil {
		t.Fatal("Emit should fail when the endpoint is unreachable")
	}
}
