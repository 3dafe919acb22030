package services

import (
	"context"
	"errors"

	"github.com/adanyl0v/geo-tasks/internal/models"
	"github.com/adanyl0v/geo-tasks/internal/repository"
)

var (
	ErrInvalidQuery  = errors.New("query coordinates missing or not parseable")
	ErrInvalidRadius = errors.New("search radius must be a positive number")
)

// DefaultSearchRadiusMeters bounds a nearby search when the driver
// does not pass a radius.
const DefaultSearchRadiusMeters = 10000

type DispatchService interface {
	// CreateTask authorizes the requester as a manager and persists
	// the draft with the requester's token as the task's auth_token.
	CreateTask(ctx context.Context, requesterToken string, draft TaskDraft) (*models.Task, error)

	// SearchNearby authorizes the requester as a driver and returns
	// unclaimed tasks whose pickup location is within the query
	// radius, nearest first.
	//
	// It returns ErrInvalidQuery when lat/lon are missing or not
	// parseable numbers and ErrInvalidRadius when the radius is not a
	// positive number.
	SearchNearby(ctx context.Context, requesterToken string, query SearchQuery) ([]*models.Task, error)

	// ClaimTask authorizes the requester as a driver and attempts the
	// atomic claim, binding the task to the driver's token. A lost
	// race and an unknown id are indistinguishable: both surface
	// repository.ErrClaimFailed.
	ClaimTask(ctx context.Context, requesterToken, taskID string) (*models.Task, error)

	// CompleteTask authorizes the requester as a driver and marks an
	// assigned task delivered. Failure semantics match ClaimTask.
	CompleteTask(ctx context.Context, requesterToken, taskID string) (*models.Task, error)

	// GetTask returns the task to any requester with an identifiable
	// role.
	GetTask(ctx context.Context, requesterToken, taskID string) (*models.Task, error)
}

// TaskDraft mirrors the repository draft minus the auth token, which
// the service fills in from the authorized requester.
type TaskDraft struct {
	Name     string
	Pickup   *models.Point
	Delivery *models.Point
}

// SearchQuery carries raw query values; the service owns parsing so
// the transport layer stays a thin mapping.
type SearchQuery struct {
	Lat    string
	Lon    string
	Radius string
}

func (d TaskDraft) withToken(token string) repository.TaskDraft {
	return repository.TaskDraft{
		Name:      d.Name,
		AuthToken: token,
		Pickup:    d.Pickup,
		Delivery:  d.Delivery,
	}
}
