package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/adanyl0v/geo-tasks/internal/models"
)

var (
	// ErrClaimFailed is returned when a conditional state update
	// matched nothing. It deliberately covers both "task does not
	// exist" and "task already left the required state" so a losing
	// claimant learns nothing about the race.
	ErrClaimFailed = errors.New("task not found or already claimed")

	ErrTaskNotFound = errors.New("task not found")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries one entry per missing or invalid draft
// field. Nothing is persisted when it is returned.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	fields := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		fields[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return "invalid task draft: " + strings.Join(fields, "; ")
}

// TaskDraft is the input to Create. Locations are pointers so a
// missing location is distinguishable from coordinate (0, 0).
type TaskDraft struct {
	Name      string
	AuthToken string
	Pickup    *models.Point
	Delivery  *models.Point
}

type TaskRepository interface {
	// Create validates the draft, assigns an id and persists the task
	// with state "created". It returns a *ValidationError listing
	// every missing or invalid field and persists nothing on failure.
	Create(ctx context.Context, draft TaskDraft) (*models.Task, error)

	// FindNear returns tasks in the given state within radiusMeters of
	// the point, ordered by increasing distance. The result is
	// deterministic for a fixed data snapshot.
	FindNear(ctx context.Context, point models.Point, radiusMeters float64, state string) ([]*models.Task, error)

	// Claim atomically sets state to "assigned" and auth_token to the
	// claimant's token for the task matching id AND state "created".
	// When the condition matches nothing (concurrently claimed, or no
	// such id) it returns ErrClaimFailed without retrying or partially
	// applying. Concurrent claims on one task have at most one winner.
	Claim(ctx context.Context, taskID, claimantToken string) (*models.Task, error)

	// Complete is the analogous conditional update requiring state
	// "assigned" and transitioning to "delivered". Failure semantics
	// are identical to Claim.
	Complete(ctx context.Context, taskID string) (*models.Task, error)

	// Get returns the task or ErrTaskNotFound.
	Get(ctx context.Context, taskID string) (*models.Task, error)
}

func validateDraft(draft TaskDraft) *ValidationError {
	var fields []FieldError

	if draft.Name == "" {
		fields = append(fields, FieldError{Field: "name", Message: "required"})
	}
	if draft.AuthToken == "" {
		fields = append(fields, FieldError{Field: "auth_token", Message: "required"})
	}
	fields = append(fields, validateLocation("pickup_location", draft.Pickup)...)
	fields = append(fields, validateLocation("delivery_location", draft.Delivery)...)

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func validateLocation(field string, p *models.Point) []FieldError {
	if p == nil {
		return []FieldError{{Field: field, Message: "required"}}
	}

	var fields []FieldError
	if p.Lat < -90 || p.Lat > 90 {
		fields = append(fields, FieldError{Field: field, Message: "latitude out of range"})
	}
	if p.Lon < -180 || p.Lon > 180 {
		fields = append(fields, FieldError{Field: field, Message: "longitude out of range"})
	}
	return fields
}
