package transport

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mediaops/callsheet/internal/engine"
	"github.com/mediaops/callsheet/internal/view"
	"github.com/mediaops/callsheet/model"
)

// itemPayload is the wire shape of one item as a specific viewer sees it.
// Restricted views carry only the identifier and the unavailable badge; the
// display fields are elided, not blanked.
type itemPayload struct {
	ID         string     `json:"id"`
	ProjectID  string     `json:"project_id"`
	Title      string     `json:"title,omitempty"`
	Series     string     `json:"series,omitempty"`
	Status     string     `json:"status"`
	Assignee   string     `json:"assignee,omitempty"`
	Marker     string     `json:"marker,omitempty"`
	Restricted bool       `json:"restricted,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

func presentItem(item model.Item, ev model.EffectiveView) itemPayload {
	payload := itemPayload{
		ID:         item.ID,
		ProjectID:  item.ProjectID,
		Status:     ev.Status,
		Assignee:   ev.Assignee,
		Marker:     ev.Marker,
		Restricted: ev.Restricted,
	}
	if ev.Restricted {
		return payload
	}
	payload.Title = item.Title
	payload.Series = item.Series
	created, updated := item.CreatedAt, item.UpdatedAt
	payload.CreatedAt = &created
	payload.UpdatedAt = &updated
	return payload
}

func handleItemsList(svc *engine.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := model.MustActor(r.Context())

		req := engine.ListRequest{
			ProjectID: r.URL.Query().Get("project_id"),
			Limit:     queryInt(r, "limit", 50),
			Offset:    queryInt(r, "offset", 0),
		}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, ok := model.ParseStatus(raw)
			if !ok {
				WriteError(w, r, model.NewValidationError([]model.FieldError{{
					Field: "status", Code: "unknown", Message: "unknown status " + raw,
				}}))
				return
			}
			req.Status = status
		}

		entries, err := svc.List(r.Context(), actor, req)
		if err != nil {
			WriteError(w, r, err)
			return
		}

		items := make([]itemPayload, 0, len(entries))
		for _, entry := range entries {
			items = append(items, presentItem(entry.Item, entry.View))
		}
		WriteJSON(w, http.StatusOK, map[string]any{
			"data":   items,
			"limit":  req.Limit,
			"offset": req.Offset,
		})
	}
}

func handleItemCreate(svc *engine.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := model.MustActor(r.Context())

		var body struct {
			ProjectID       string `json:"project_id"`
			Title           string `json:"title"`
			Series          string `json:"series"`
			CustomStatus    string `json:"custom_status"`
			SecondaryStatus string `json:"secondary_status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteError(w, r, model.NewBadRequestError("invalid JSON body"))
			return
		}

		overlay := model.NoOverlay()
		switch {
		case body.CustomStatus != "":
			overlay = model.CustomStatusOverlay(body.CustomStatus)
		case body.SecondaryStatus != "":
			overlay = model.SecondaryStatusOverlay(body.SecondaryStatus)
		}

		item, err := svc.Create(r.Context(), actor, engine.CreateRequest{
			ProjectID: body.ProjectID,
			Title:     body.Title,
			Series:    body.Series,
			Overlay:   overlay,
		})
		if err != nil {
			WriteError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusCreated, presentItem(item, view.Resolve(actor.Role, item, actor.ID)))
	}
}

func handleItemGet(svc *engine.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := model.MustActor(r.Context())
		itemID := chi.URLParam(r, "itemID")

		item, ev, err := svc.Get(r.Context(), actor, itemID)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, presentItem(item, ev))
	}
}

func handleItemTransition(svc *engine.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := model.MustActor(r.Context())
		itemID := chi.URLParam(r, "itemID")

		var body struct {
			From  string `json:"from"`
			To    string `json:"to"`
			Claim bool   `json:"claim"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteError(w, r, model.NewBadRequestError("invalid JSON body"))
			return
		}

		var details []model.FieldError
		from, ok := model.ParseStatus(body.From)
		if !ok {
			details = append(details, model.FieldError{Field: "from", Code: "unknown", Message: "unknown status " + body.From})
		}
		to, ok := model.ParseStatus(body.To)
		if !ok {
			details = append(details, model.FieldError{Field: "to", Code: "unknown", Message: "unknown status " + body.To})
		}
		if len(details) > 0 {
			WriteError(w, r, model.NewValidationError(details))
			return
		}

		item, err := svc.Transition(r.Context(), actor, itemID, from, to, body.Claim)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, presentItem(item, view.Resolve(actor.Role, item, actor.ID)))
	}
}

func handleItemDelete(svc *engine.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := model.MustActor(r.Context())
		itemID := chi.URLParam(r, "itemID")

		if err := svc.Delete(r.Context(), actor, itemID); err != nil {
			WriteError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleItemHistory(svc *engine.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := model.MustActor(r.Context())
		itemID := chi.URLParam(r, "itemID")

		events, err := svc.History(r.Context(), actor, itemID)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"data": events})
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
