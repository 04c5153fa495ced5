package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/dispatch/internal/model"
	"github.com/alfredjeanlab/dispatch/internal/store"
)

// journeyColumns is the column list used for SELECT statements on the journeys table.
const journeyColumns = `id, workspace_id, name, status, definition, draft,
	can_run_multiple, resource_type, status_updated_at, created_at, updated_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLSTATE codes Postgres reports for constraint failures.
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
)

// mapConstraintError wraps unique violations in store.ErrUniqueViolation.
// A foreign key violation means the referenced workspace does not exist and
// is reported as sql.ErrNoRows. Every other error is returned unchanged.
func mapConstraintError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case uniqueViolationCode:
		return fmt.Errorf("%w: %s", store.ErrUniqueViolation, pqErr.Constraint)
	case foreignKeyViolationCode:
		return fmt.Errorf("%w: %s", sql.ErrNoRows, pqErr.Constraint)
	}
	return err
}

func queryCreateWorkspace(ctx context.Context, db executor, ws *model.Workspace) error {
	err := db.QueryRowContext(ctx, `
		INSERT INTO workspaces (id, name)
		VALUES ($1, $2)
		RETURNING created_at, updated_at`,
		ws.ID, ws.Name,
	).Scan(&ws.CreatedAt, &ws.UpdatedAt)
	if err != nil {
		return mapConstraintError(err)
	}
	return nil
}

func queryGetWorkspace(ctx context.Context, db executor, id string) (*model.Workspace, error) {
	row := db.QueryRowContext(ctx, `SELECT id, name, created_at, updated_at FROM workspaces WHERE id = $1`, id)
	return scanWorkspace(row)
}

func queryListWorkspaces(ctx context.Context, db executor) ([]*model.Workspace, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, created_at, updated_at FROM workspaces ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()
	return scanWorkspaces(rows)
}

func queryGetJourney(ctx context.Context, db executor, id string) (*model.Journey, error) {
	row := db.QueryRowContext(ctx, `SELECT `+journeyColumns+` FROM journeys WHERE id = $1`, id)
	return scanJourney(row)
}

// queryListJourneys returns the workspace's journeys, restricted to ids when
// ids is non-empty.
func queryListJourneys(ctx context.Context, db executor, workspaceID string, ids []string) ([]*model.Journey, error) {
	q := `SELECT ` + journeyColumns + ` FROM journeys WHERE workspace_id = $1`
	args := []any{workspaceID}
	if len(ids) > 0 {
		q += ` AND id = ANY($2)`
		args = append(args, pq.Array(ids))
	}
	q += ` ORDER BY created_at DESC`

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list journeys: %w", err)
	}
	defer rows.Close()
	return scanJourneys(rows)
}

// queryUpsertJourney inserts the journey or updates it in place. The update
// only applies when the existing row belongs to the same workspace; a
// conflict with another workspace's row returns no row and is reported as
// store.ErrUniqueViolation.
func queryUpsertJourney(ctx context.Context, db executor, j *model.Journey) error {
	definition, err := definitionBytes(j.Definition)
	if err != nil {
		return err
	}
	resourceType := j.ResourceType
	if resourceType == "" {
		resourceType = model.ResourceDeclarative
	}

	err = db.QueryRowContext(ctx, `
		INSERT INTO journeys (
			id, workspace_id, name, status, definition, draft,
			can_run_multiple, resource_type, status_updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			definition = EXCLUDED.definition,
			draft = EXCLUDED.draft,
			can_run_multiple = EXCLUDED.can_run_multiple,
			status_updated_at = EXCLUDED.status_updated_at,
			updated_at = NOW()
		WHERE journeys.workspace_id = EXCLUDED.workspace_id
		RETURNING resource_type, created_at, updated_at`,
		j.ID,
		j.WorkspaceID,
		j.Name,
		string(j.Status),
		definition,
		jsonbBytes(j.Draft),
		j.CanRunMultiple,
		resourceType,
		nullTimePtr(j.StatusUpdatedAt),
	).Scan(&j.ResourceType, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: journey id %q belongs to another workspace", store.ErrUniqueViolation, j.ID)
	}
	if err != nil {
		return mapConstraintError(err)
	}
	return nil
}

func queryDeleteJourney(ctx context.Context, db executor, workspaceID, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM journeys WHERE workspace_id = $1 AND id = $2`, workspaceID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func definitionBytes(d *model.JourneyDefinition) ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal journey definition: %w", err)
	}
	return b, nil
}
