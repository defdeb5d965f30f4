package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediaops/callsheet/model"
)

const itemColumns = `id, project_id, title, series, status,
	       optimizer_id, content_reviewer_id, uploader_id, media_reviewer_id,
	       overlay_kind, overlay_value, created_at, updated_at`

// PgItemStore is a PostgreSQL-backed ItemStore using pgx/v5.
type PgItemStore struct {
	pool *pgxpool.Pool
}

// NewPgItemStore creates a new PostgreSQL item store.
func NewPgItemStore(pool *pgxpool.Pool) *PgItemStore {
	return &PgItemStore{pool: pool}
}

// EnsureSchema creates the items and transition_events tables if absent.
func (s *PgItemStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS items (
			id                  TEXT PRIMARY KEY,
			project_id          TEXT NOT NULL,
			title               TEXT NOT NULL,
			series              TEXT NOT NULL DEFAULT '',
			status              TEXT NOT NULL,
			optimizer_id        TEXT NOT NULL DEFAULT '',
			content_reviewer_id TEXT NOT NULL DEFAULT '',
			uploader_id         TEXT NOT NULL DEFAULT '',
			media_reviewer_id   TEXT NOT NULL DEFAULT '',
			overlay_kind        TEXT NOT NULL DEFAULT '',
			overlay_value       TEXT NOT NULL DEFAULT '',
			created_at          TIMESTAMPTZ NOT NULL,
			updated_at          TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS items_project_status_idx
			ON items (project_id, status);
		CREATE INDEX IF NOT EXISTS items_updated_at_idx
			ON items (updated_at);
		CREATE TABLE IF NOT EXISTS transition_events (
			id           TEXT PRIMARY KEY,
			item_id      TEXT NOT NULL REFERENCES items (id) ON DELETE CASCADE,
			from_status  TEXT NOT NULL,
			to_status    TEXT NOT NULL,
			actor_id     TEXT NOT NULL,
			actor_role   TEXT NOT NULL,
			new_assignee TEXT NOT NULL DEFAULT '',
			occurred_at  TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS transition_events_item_idx
			ON transition_events (item_id, occurred_at);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Create inserts a new item.
func (s *PgItemStore) Create(ctx context.Context, item model.Item) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO items (
			id, project_id, title, series, status,
			optimizer_id, content_reviewer_id, uploader_id, media_reviewer_id,
			overlay_kind, overlay_value, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13
		)`,
		item.ID, item.ProjectID, item.Title, item.Series, item.Status,
		item.Assignees.Optimizer, item.Assignees.ContentReviewer,
		item.Assignees.Uploader, item.Assignees.MediaReviewer,
		item.Overlay.Kind, item.Overlay.Value, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// Get retrieves an item by ID.
func (s *PgItemStore) Get(ctx context.Context, itemID string) (model.Item, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE id = $1`,
		itemID,
	)
	item, err := scanItem(row)
	if err == pgx.ErrNoRows {
		return model.Item{}, model.NewNotFoundError(
			fmt.Sprintf("item %q not found", itemID),
		)
	}
	if err != nil {
		return model.Item{}, fmt.Errorf("query item: %w", err)
	}
	return item, nil
}

// List returns items matching the filter, newest first.
func (s *PgItemStore) List(ctx context.Context, filter ListFilter) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE 1=1`
	var args []any
	argIdx := 1

	if filter.ProjectID != "" {
		query += fmt.Sprintf(" AND project_id = $%d", argIdx)
		args = append(args, filter.ProjectID)
		argIdx++
	}
	if len(filter.Statuses) > 0 {
		query += fmt.Sprintf(" AND status = ANY($%d)", argIdx)
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		args = append(args, statuses)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filter.Limit)
		argIdx++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, filter.Offset)
	}

	return s.queryItems(ctx, query, args...)
}

// ApplyTransition runs the conditional status update, the event insert and
// (on a failed precondition) the classifying re-read in one transaction.
func (s *PgItemStore) ApplyTransition(ctx context.Context, update TransitionUpdate) (model.Item, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Item{}, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback(ctx)

	// updated_at must strictly increase on every committed mutation, even
	// if the wall clock stepped backwards between writes.
	set := "status = $1, updated_at = GREATEST(updated_at + interval '1 microsecond', $2)"
	args := []any{update.To, time.Now().UTC()}
	guard := ""

	claimColumn := ""
	if update.Claim {
		var err error
		claimColumn, err = slotColumn(update.Stage)
		if err != nil {
			return model.Item{}, err
		}
	}
	if update.ClearSlots {
		for _, column := range slotColumns {
			if column == claimColumn {
				continue
			}
			set += fmt.Sprintf(", %s = ''", column)
		}
	}
	if update.Claim {
		args = append(args, update.ActorID)
		set += fmt.Sprintf(", %s = $%d", claimColumn, len(args))
		// A slot held by the claiming actor is re-granted, not refused.
		guard = fmt.Sprintf(" AND (%s = '' OR %s = $%d)", claimColumn, claimColumn, len(args))
	}

	args = append(args, update.ItemID, update.From)
	query := fmt.Sprintf(
		"UPDATE items SET %s WHERE id = $%d AND status = $%d%s RETURNING %s",
		set, len(args)-1, len(args), guard, itemColumns,
	)

	item, err := scanItem(tx.QueryRow(ctx, query, args...))
	if err == pgx.ErrNoRows {
		return model.Item{}, s.classifyFailure(ctx, tx, update)
	}
	if err != nil {
		return model.Item{}, fmt.Errorf("update item: %w", err)
	}

	event := update.Event
	_, err = tx.Exec(ctx, `
		INSERT INTO transition_events (
			id, item_id, from_status, to_status, actor_id, actor_role, new_assignee, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.ID, event.ItemID, event.From, event.To,
		event.ActorID, event.ActorRole, event.NewAssignee, event.OccurredAt,
	)
	if err != nil {
		return model.Item{}, fmt.Errorf("insert transition event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Item{}, fmt.Errorf("commit transition: %w", err)
	}
	return item, nil
}

// classifyFailure re-reads the item inside the transaction purely to decide
// which error the zero-row update means.
func (s *PgItemStore) classifyFailure(ctx context.Context, tx pgx.Tx, update TransitionUpdate) error {
	current, err := scanItem(tx.QueryRow(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE id = $1`,
		update.ItemID,
	))
	if err == pgx.ErrNoRows {
		return model.NewNotFoundError(
			fmt.Sprintf("item %q not found", update.ItemID),
		)
	}
	if err != nil {
		return fmt.Errorf("classify transition failure: %w", err)
	}

	if current.Status != update.From {
		return model.NewStaleStateError(
			fmt.Sprintf("item %q is %s, not %s", update.ItemID, current.Status, update.From),
		)
	}
	held := current.Assignees.ForStage(update.Stage)
	if update.Claim && held != "" && held != update.ActorID {
		return model.NewAlreadyClaimedError(
			fmt.Sprintf("item %q is already claimed at the %s stage", update.ItemID, update.Stage),
		)
	}
	return model.NewStaleStateError(
		fmt.Sprintf("item %q changed concurrently", update.ItemID),
	)
}

// Events returns the item's audit trail in occurrence order.
func (s *PgItemStore) Events(ctx context.Context, itemID string) ([]model.TransitionEvent, error) {
	if _, err := s.Get(ctx, itemID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, item_id, from_status, to_status, actor_id, actor_role, new_assignee, occurred_at
		FROM transition_events
		WHERE item_id = $1
		ORDER BY occurred_at ASC`,
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("query transition events: %w", err)
	}
	defer rows.Close()

	var events []model.TransitionEvent
	for rows.Next() {
		var evt model.TransitionEvent
		if err := rows.Scan(
			&evt.ID, &evt.ItemID, &evt.From, &evt.To,
			&evt.ActorID, &evt.ActorRole, &evt.NewAssignee, &evt.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("scan transition event: %w", err)
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}

// Delete removes an item; its events go with it via the foreign key.
func (s *PgItemStore) Delete(ctx context.Context, itemID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewNotFoundError(
			fmt.Sprintf("item %q not found", itemID),
		)
	}
	return nil
}

// FindStaleClaims returns items untouched since the cutoff whose current
// status has a held claim slot.
func (s *PgItemStore) FindStaleClaims(ctx context.Context, cutoff time.Time) ([]model.Item, error) {
	items, err := s.queryItems(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE updated_at < $1
		ORDER BY updated_at ASC`,
		cutoff,
	)
	if err != nil {
		return nil, err
	}
	return filterHeldClaims(items), nil
}

// ReleaseClaim clears the claim slot of an item still in the expected status.
func (s *PgItemStore) ReleaseClaim(ctx context.Context, itemID string, expected, releaseTo model.Status) error {
	stage, ok := expected.ClaimStage()
	if !ok {
		return model.NewBadRequestError(
			fmt.Sprintf("status %s has no claim slot", expected),
		)
	}
	column, err := slotColumn(stage)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE items
		SET status = $1,
		    updated_at = GREATEST(updated_at + interval '1 microsecond', $2),
		    %s = ''
		WHERE id = $3 AND status = $4`, column),
		releaseTo, time.Now().UTC(), itemID, expected,
	)
	if err != nil {
		return fmt.Errorf("release claim: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewStaleStateError(
			fmt.Sprintf("item %q is no longer %s", itemID, expected),
		)
	}
	return nil
}

// HealthCheck verifies the database is reachable.
func (s *PgItemStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PgItemStore) queryItems(ctx context.Context, query string, args ...any) ([]model.Item, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// slotColumns lists every stage-assignee column, in pipeline order.
var slotColumns = []string{
	"optimizer_id", "content_reviewer_id", "uploader_id", "media_reviewer_id",
}

// slotColumn maps a stage to its assignee column. The switch is closed over
// the Stage enumeration; the result is never taken from user input.
func slotColumn(stage model.Stage) (string, error) {
	switch stage {
	case model.StageOptimize:
		return "optimizer_id", nil
	case model.StageContentReview:
		return "content_reviewer_id", nil
	case model.StageUpload:
		return "uploader_id", nil
	case model.StageMediaReview:
		return "media_reviewer_id", nil
	default:
		return "", fmt.Errorf("unknown stage %q", stage)
	}
}

func scanItem(row pgx.Row) (model.Item, error) {
	var item model.Item
	err := row.Scan(
		&item.ID, &item.ProjectID, &item.Title, &item.Series, &item.Status,
		&item.Assignees.Optimizer, &item.Assignees.ContentReviewer,
		&item.Assignees.Uploader, &item.Assignees.MediaReviewer,
		&item.Overlay.Kind, &item.Overlay.Value, &item.CreatedAt, &item.UpdatedAt,
	)
	return item, err
}

// filterHeldClaims keeps only the items whose current status has a stage slot
// that is actually held.
func filterHeldClaims(items []model.Item) []model.Item {
	var held []model.Item
	for _, item := range items {
		stage, ok := item.Status.ClaimStage()
		if !ok {
			continue
		}
		if item.Assignees.ForStage(stage) == "" {
			continue
		}
		held = append(held, item)
	}
	return held
}
