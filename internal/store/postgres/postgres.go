// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/dispatch/internal/model"
	"github.com/alfredjeanlab/dispatch/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateWorkspace(ctx context.Context, ws *model.Workspace) error {
	return queryCreateWorkspace(ctx, s.db, ws)
}

func (s *PostgresStore) GetWorkspace(ctx context.Context, id string) (*model.Workspace, error) {
	return queryGetWorkspace(ctx, s.db, id)
}

func (s *PostgresStore) ListWorkspaces(ctx context.Context) ([]*model.Workspace, error) {
	return queryListWorkspaces(ctx, s.db)
}

func (s *PostgresStore) GetJourney(ctx context.Context, id string) (*model.Journey, error) {
	return queryGetJourney(ctx, s.db, id)
}

func (s *PostgresStore) ListJourneys(ctx context.Context, workspaceID string, ids []string) ([]*model.Journey, error) {
	return queryListJourneys(ctx, s.db, workspaceID, ids)
}

func (s *PostgresStore) UpsertJourney(ctx context.Context, j *model.Journey) error {
	return queryUpsertJourney(ctx, s.db, j)
}

func (s *PostgresStore) DeleteJourney(ctx context.Context, workspaceID, id string) error {
	return queryDeleteJourney(ctx, s.db, workspaceID, id)
}

func (s *PostgresStore) CreateBroadcast(ctx context.Context, b *model.Broadcast) error {
	return queryCreateBroadcast(ctx, s.db, b)
}

func (s *PostgresStore) ListBroadcasts(ctx context.Context, workspaceID string, ids []string) ([]*model.Broadcast, error) {
	return queryListBroadcasts(ctx, s.db, workspaceID, ids)
}

func (s *PostgresStore) TransitionBroadcast(ctx context.Context, workspaceID, id string, from []model.BroadcastStatus, to model.BroadcastStatus) (*model.Broadcast, error) {
	return queryTransitionBroadcast(ctx, s.db, workspaceID, id, from, to)
}

func (s *PostgresStore) InsertEvents(ctx context.Context, events []*model.Event) (int, error) {
	return queryInsertEvents(ctx, s.db, events)
}

func (s *PostgresStore) ListEvents(ctx context.Context, filter model.EventFilter) ([]*model.Event, error) {
	return queryListEvents(ctx, s.db, filter)
}

func (s *PostgresStore) ListMessageEvents(ctx context.Context, workspaceID string, journeyIDs []string) ([]*model.MessageEvent, error) {
	return queryListMessageEvents(ctx, s.db, workspaceID, journeyIDs)
}

func (s *PostgresStore) RecordNodeProcessed(ctx context.Context, np *model.NodeProcessed) error {
	return queryRecordNodeProcessed(ctx, s.db, np)
}

func (s *PostgresStore) CountNodeProcessed(ctx context.Context, workspaceID string, journeyIDs []string) ([]*model.NodeProcessedCount, error) {
	return queryCountNodeProcessed(ctx, s.db, workspaceID, journeyIDs)
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) CreateWorkspace(ctx context.Context, ws *model.Workspace) error {
	return queryCreateWorkspace(ctx, s.tx, ws)
}

func (s *txStore) GetWorkspace(ctx context.Context, id string) (*model.Workspace, error) {
	return queryGetWorkspace(ctx, s.tx, id)
}

func (s *txStore) ListWorkspaces(ctx context.Context) ([]*model.Workspace, error) {
	return queryListWorkspaces(ctx, s.tx)
}

func (s *txStore) GetJourney(ctx context.Context, id string) (*model.Journey, error) {
	return queryGetJourney(ctx, s.tx, id)
}

func (s *txStore) ListJourneys(ctx context.Context, workspaceID string, ids []string) ([]*model.Journey, error) {
	return queryListJourneys(ctx, s.tx, workspaceID, ids)
}

func (s *txStore) UpsertJourney(ctx context.Context, j *model.Journey) error {
	return queryUpsertJourney(ctx, s.tx, j)
}

func (s *txStore) DeleteJourney(ctx context.Context, workspaceID, id string) error {
	return queryDeleteJourney(ctx, s.tx, workspaceID, id)
}

func (s *txStore) CreateBroadcast(ctx context.Context, b *model.Broadcast) error {
	return queryCreateBroadcast(ctx, s.tx, b)
}

func (s *txStore) ListBroadcasts(ctx context.Context, workspaceID string, ids []string) ([]*model.Broadcast, error) {
	return queryListBroadcasts(ctx, s.tx, workspaceID, ids)
}

func (s *txStore) TransitionBroadcast(ctx context.Context, workspaceID, id string, from []model.BroadcastStatus, to model.BroadcastStatus) (*model.Broadcast, error) {
	return queryTransitionBroadcast(ctx, s.tx, workspaceID, id, from, to)
}

func (s *txStore) InsertEvents(ctx context.Context, events []*model.Event) (int, error) {
	return queryInsertEvents(ctx, s.tx, events)
}

func (s *txStore) ListEvents(ctx context.Context, filter model.EventFilter) ([]*model.Event, error) {
	return queryListEvents(ctx, s.tx, filter)
}

func (s *txStore) ListMessageEvents(ctx context.Context, workspaceID string, journeyIDs []string) ([]*model.MessageEvent, error) {
	return queryListMessageEvents(ctx, s.tx, workspaceID, journeyIDs)
}

func (s *txStore) RecordNodeProcessed(ctx context.Context, np *model.NodeProcessed) error {
	return queryRecordNodeProcessed(ctx, s.tx, np)
}

func (s *txStore) CountNodeProcessed(ctx context.Context, workspaceID string, journeyIDs []string) ([]*model.NodeProcessedCount, error) {
	return queryCountNodeProcessed(ctx, s.tx, workspaceID, journeyIDs)
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close is a no-op for a transaction store; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
