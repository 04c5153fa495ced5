// Package journeys holds the journey operations that span several store
// calls: validated upserts, node-processing records and statistics.
package journeys

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/alfredjeanlab/dispatch/internal/idgen"
	"github.com/alfredjeanlab/dispatch/internal/model"
	"github.com/alfredjeanlab/dispatch/internal/store"
)

// MaxIDLength bounds caller-supplied journey ids.
const MaxIDLength = 128

// ErrorType classifies an UpsertError.
type ErrorType string

const (
	ErrorID               ErrorType = "IdError"
	ErrorStatusTransition ErrorType = "StatusTransitionError"
	ErrorUniqueConstraint ErrorType = "UniqueConstraintViolation"
	ErrorDefinition       ErrorType = "DefinitionError"
)

// UpsertError is the typed failure of UpsertJourney.
type UpsertError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
}

func (e *UpsertError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func upsertErr(t ErrorType, format string, args ...any) *UpsertError {
	return &UpsertError{Type: t, Message: fmt.Sprintf(format, args...)}
}

// UpsertJourneyParams describes a create-or-update. Zero-valued optional
// fields leave the stored value unchanged.
type UpsertJourneyParams struct {
	WorkspaceID    string                   `json:"workspace_id"`
	ID             string                   `json:"id,omitempty"`
	Name           string                   `json:"name,omitempty"`
	Definition     *model.JourneyDefinition `json:"definition,omitempty"`
	Draft          json.RawMessage          `json:"draft,omitempty"`
	Status         model.JourneyStatus      `json:"status,omitempty"`
	CanRunMultiple *bool                    `json:"can_run_multiple,omitempty"`
}

// StatusChange records a journey moving between statuses.
type StatusChange struct {
	From model.JourneyStatus `json:"from"`
	To   model.JourneyStatus `json:"to"`
}

// UpsertResult is what UpsertJourney wrote.
type UpsertResult struct {
	Journey      *model.Journey
	Created      bool
	StatusChange *StatusChange
	// Resumed is set when a paused journey that allows multiple runs is
	// started again. Users who entered while it was paused need to be
	// re-triggered downstream.
	Resumed bool
}

func validateID(id string) error {
	switch {
	case len(id) > MaxIDLength:
		return upsertErr(ErrorID, "id must be at most %d characters", MaxIDLength)
	case strings.ContainsFunc(id, unicode.IsSpace) || strings.Contains(id, "/"):
		return upsertErr(ErrorID, "id %q must not contain whitespace or slashes", id)
	}
	return nil
}

// UpsertJourney creates or updates a journey inside one transaction.
//
// Failures the caller can fix are returned as *UpsertError. A missing
// workspace is reported as sql.ErrNoRows.
func UpsertJourney(ctx context.Context, s store.Store, p UpsertJourneyParams) (*UpsertResult, error) {
	if p.WorkspaceID == "" {
		return nil, upsertErr(ErrorID, "workspace_id is required")
	}
	if p.ID == "" {
		p.ID = idgen.NewUUID()
	} else if err := validateID(p.ID); err != nil {
		return nil, err
	}
	if p.Status != "" && !p.Status.IsValid() {
		return nil, upsertErr(ErrorStatusTransition, "unknown status %q", p.Status)
	}

	var result *UpsertResult
	err := s.RunInTransaction(ctx, func(tx store.Store) error {
		r, err := upsertInTx(ctx, tx, p)
		result = r
		return err
	})
	if errors.Is(err, store.ErrUniqueViolation) {
		return nil, upsertErr(ErrorUniqueConstraint, "%s", err.Error())
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func upsertInTx(ctx context.Context, tx store.Store, p UpsertJourneyParams) (*UpsertResult, error) {
	existing, err := tx.GetJourney(ctx, p.ID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		existing = nil
	case err != nil:
		return nil, fmt.Errorf("getting journey %s: %w", p.ID, err)
	}
	if existing != nil && existing.WorkspaceID != p.WorkspaceID {
		return nil, upsertErr(ErrorUniqueConstraint, "journey id %q is already in use", p.ID)
	}
	if p.Definition != nil {
		if err := model.ValidateDefinition(p.Definition); err != nil {
			return nil, upsertErr(ErrorDefinition, "%s", err.Error())
		}
	}

	result := &UpsertResult{}
	var j model.Journey
	if existing == nil {
		if _, err := tx.GetWorkspace(ctx, p.WorkspaceID); err != nil {
			return nil, fmt.Errorf("workspace %s: %w", p.WorkspaceID, err)
		}
		if p.Name == "" {
			return nil, &model.ValidationError{Errors: []model.FieldError{{Field: "name", Message: "is required"}}}
		}
		result.Created = true
		j = model.Journey{
			ID:           p.ID,
			WorkspaceID:  p.WorkspaceID,
			Status:       model.JourneyNotStarted,
			ResourceType: model.ResourceDeclarative,
		}
	} else {
		j = *existing
	}

	current := j.Status
	next := current
	if p.Status != "" {
		next = p.Status
	}
	if !current.CanTransitionTo(next) {
		return nil, upsertErr(ErrorStatusTransition, "cannot move journey from %s to %s", current, next)
	}

	if p.Name != "" {
		j.Name = p.Name
	}
	if p.Definition != nil {
		j.Definition = p.Definition
	}
	if p.Draft != nil {
		j.Draft = p.Draft
	}
	if p.CanRunMultiple != nil {
		j.CanRunMultiple = *p.CanRunMultiple
	}
	if next == model.JourneyRunning && j.Definition == nil {
		return nil, upsertErr(ErrorStatusTransition, "journey needs a definition before it can run")
	}

	if next != current || result.Created {
		now := time.Now().UTC()
		j.StatusUpdatedAt = &now
	}
	if next != current {
		result.StatusChange = &StatusChange{From: current, To: next}
		result.Resumed = current == model.JourneyPaused && next == model.JourneyRunning && j.CanRunMultiple
	}
	j.Status = next

	if err := tx.UpsertJourney(ctx, &j); err != nil {
		return nil, err
	}
	result.Journey = &j
	return result, nil
}
