package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/dispatch/internal/model"
)

// eventColumns is the column list used for SELECT statements on the events table.
const eventColumns = `workspace_id, message_id, user_id, anonymous_id, event_type,
	event, properties, context, event_time, processed_at`

// queryInsertEvents writes events, skipping any whose (workspace_id,
// message_id) already exists. It returns the number of new rows.
func queryInsertEvents(ctx context.Context, db executor, events []*model.Event) (int, error) {
	inserted := 0
	for _, e := range events {
		eventType := e.EventType
		if eventType == "" {
			eventType = model.EventTypeTrack
		}
		res, err := db.ExecContext(ctx, `
			INSERT INTO events (
				workspace_id, message_id, user_id, anonymous_id, event_type,
				event, properties, context, event_time, processed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (workspace_id, message_id) DO NOTHING`,
			e.WorkspaceID,
			e.MessageID,
			nullString(e.UserID),
			nullString(e.AnonymousID),
			eventType,
			e.Event,
			jsonbBytes(e.Properties),
			jsonbBytes(e.Context),
			e.Timestamp,
			e.ProcessedAt,
		)
		if err != nil {
			return inserted, fmt.Errorf("insert event %s: %w", e.MessageID, mapConstraintError(err))
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, err
		}
		inserted += int(n)
	}
	return inserted, nil
}

func queryListEvents(ctx context.Context, db executor, filter model.EventFilter) ([]*model.Event, error) {
	var (
		whereClauses []string
		args         []any
		argIdx       int
	)

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	whereClauses = append(whereClauses, "workspace_id = "+nextArg())
	args = append(args, filter.WorkspaceID)

	if filter.UserID != "" {
		whereClauses = append(whereClauses, "user_id = "+nextArg())
		args = append(args, filter.UserID)
	}
	if filter.Event != "" {
		whereClauses = append(whereClauses, "event = "+nextArg())
		args = append(args, filter.Event)
	}

	q := "SELECT " + eventColumns + " FROM events WHERE " + strings.Join(whereClauses, " AND ") +
		" ORDER BY event_time DESC"
	if filter.Limit > 0 {
		q += " LIMIT " + nextArg()
		args = append(args, filter.Limit)
	}

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// queryListMessageEvents returns the message lifecycle events of the given
// journeys. Status events point at the sent message through the message_id
// property; sent and failure events are their own message. An empty
// message_id property counts as missing.
func queryListMessageEvents(ctx context.Context, db executor, workspaceID string, journeyIDs []string) ([]*model.MessageEvent, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT properties->>'journey_id', properties->>'node_id',
			COALESCE(NULLIF(properties->>'message_id', ''), message_id), event, event_time
		FROM events
		WHERE workspace_id = $1
			AND event = ANY($2)
			AND properties->>'journey_id' = ANY($3)
		ORDER BY event_time`,
		workspaceID, pq.Array(model.MessageLifecycleEvents), pq.Array(journeyIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("list message events: %w", err)
	}
	defer rows.Close()

	var out []*model.MessageEvent
	for rows.Next() {
		var (
			me     model.MessageEvent
			nodeID sql.NullString
		)
		if err := rows.Scan(&me.JourneyID, &nodeID, &me.MessageID, &me.Event, &me.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message event: %w", err)
		}
		me.NodeID = nodeID.String
		out = append(out, &me)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func queryRecordNodeProcessed(ctx context.Context, db executor, np *model.NodeProcessed) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO journey_node_processed (
			workspace_id, journey_id, user_id, node_id, node_type,
			journey_started_at, processed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (workspace_id, journey_id, user_id, node_id, journey_started_at) DO NOTHING`,
		np.WorkspaceID,
		np.JourneyID,
		np.UserID,
		np.NodeID,
		string(np.NodeType),
		np.JourneyStartedAt,
		np.ProcessedAt,
	)
	return mapConstraintError(err)
}

func queryCountNodeProcessed(ctx context.Context, db executor, workspaceID string, journeyIDs []string) ([]*model.NodeProcessedCount, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT journey_id, node_id, COUNT(DISTINCT user_id)
		FROM journey_node_processed
		WHERE workspace_id = $1 AND journey_id = ANY($2)
		GROUP BY journey_id, node_id
		ORDER BY journey_id, node_id`,
		workspaceID, pq.Array(journeyIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("count node processed: %w", err)
	}
	defer rows.Close()

	var out []*model.NodeProcessedCount
	for rows.Next() {
		var c model.NodeProcessedCount
		if err := rows.Scan(&c.JourneyID, &c.NodeID, &c.Users); err != nil {
			return nil, fmt.Errorf("scan node processed count: %w", err)
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
