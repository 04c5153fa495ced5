package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/dispatch/internal/model"
)

// broadcastColumns is the column list used for SELECT statements on the broadcasts table.
const broadcastColumns = `id, workspace_id, name, version, status, segment_id,
	template_id, channel, scheduled_at, status_updated_at, created_at, updated_at`

func queryCreateBroadcast(ctx context.Context, db executor, b *model.Broadcast) error {
	err := db.QueryRowContext(ctx, `
		INSERT INTO broadcasts (
			id, workspace_id, name, version, status, segment_id,
			template_id, channel, scheduled_at, status_updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		b.ID,
		b.WorkspaceID,
		b.Name,
		b.Version,
		string(b.Status),
		nullString(b.SegmentID),
		nullString(b.TemplateID),
		nullString(string(b.Channel)),
		nullTimePtr(b.ScheduledAt),
		nullTimePtr(b.StatusUpdatedAt),
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return mapConstraintError(err)
	}
	return nil
}

func queryListBroadcasts(ctx context.Context, db executor, workspaceID string, ids []string) ([]*model.Broadcast, error) {
	q := `SELECT ` + broadcastColumns + ` FROM broadcasts WHERE workspace_id = $1`
	args := []any{workspaceID}
	if len(ids) > 0 {
		q += ` AND id = ANY($2)`
		args = append(args, pq.Array(ids))
	}
	q += ` ORDER BY created_at DESC`

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list broadcasts: %w", err)
	}
	defer rows.Close()
	return scanBroadcasts(rows)
}

// queryTransitionBroadcast moves a broadcast to status to if its current
// status is one of from. The check and the write are a single statement, so
// concurrent transitions cannot both succeed. It returns sql.ErrNoRows when
// no row matched; callers distinguish "missing" from "wrong status" with a
// follow-up read.
func queryTransitionBroadcast(ctx context.Context, db executor, workspaceID, id string, from []model.BroadcastStatus, to model.BroadcastStatus) (*model.Broadcast, error) {
	fromStrings := make([]string, len(from))
	for i, s := range from {
		fromStrings[i] = string(s)
	}
	row := db.QueryRowContext(ctx, `
		UPDATE broadcasts
		SET status = $4, status_updated_at = NOW(), updated_at = NOW()
		WHERE workspace_id = $1 AND id = $2 AND status = ANY($3)
		RETURNING `+broadcastColumns,
		workspaceID, id, pq.Array(fromStrings), string(to),
	)
	return scanBroadcast(row)
}
