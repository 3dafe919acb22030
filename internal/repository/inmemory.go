package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adanyl0v/geo-tasks/internal/models"
)

// inMemoryTaskRepository keeps tasks in a map. Unlike Postgres it has
// no store-level conditional update, so the mutex stands in for that
// atomicity: every conditional transition runs under the lock and is
// validated with models.Transition.
type inMemoryTaskRepository struct {
	mu    sync.Mutex
	tasks map[string]*models.Task
}

func NewInMemoryTaskRepository() TaskRepository {
	return &inMemoryTaskRepository{
		tasks: make(map[string]*models.Task),
	}
}

func (r *inMemoryTaskRepository) Create(_ context.Context, draft TaskDraft) (*models.Task, error) {
	if validationErr := validateDraft(draft); validationErr != nil {
		return nil, validationErr
	}

	taskUUID, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	task := &models.Task{
		ID:        taskUUID.String(),
		Name:      draft.Name,
		AuthToken: draft.AuthToken,
		Pickup:    *draft.Pickup,
		Delivery:  *draft.Delivery,
		State:     models.StateCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID] = task

	return cloneTask(task), nil
}

func (r *inMemoryTaskRepository) FindNear(
	_ context.Context,
	point models.Point,
	radiusMeters float64,
	state string,
) ([]*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	type candidate struct {
		task     *models.Task
		distance float64
	}

	var candidates []candidate
	for _, task := range r.tasks {
		if task.State != state {
			continue
		}
		distance := point.DistanceMeters(task.Pickup)
		if distance > radiusMeters {
			continue
		}
		candidates = append(candidates, candidate{task: task, distance: distance})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].task.ID < candidates[j].task.ID
	})

	tasks := make([]*models.Task, len(candidates))
	for i, c := range candidates {
		tasks[i] = cloneTask(c.task)
	}
	return tasks, nil
}

func (r *inMemoryTaskRepository) Claim(_ context.Context, taskID, claimantToken string) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[taskID]
	if !ok {
		return nil, ErrClaimFailed
	}

	next, err := models.Transition(task.State, models.StateAssigned)
	if err != nil {
		return nil, ErrClaimFailed
	}

	task.State = next
	task.AuthToken = claimantToken
	task.UpdatedAt = time.Now()

	return cloneTask(task), nil
}

func (r *inMemoryTaskRepository) Complete(_ context.Context, taskID string) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[taskID]
	if !ok {
		return nil, ErrClaimFailed
	}

	next, err := models.Transition(task.State, models.StateDelivered)
	if err != nil {
		return nil, ErrClaimFailed
	}

	task.State = next
	task.UpdatedAt = time.Now()

	return cloneTask(task), nil
}

func (r *inMemoryTaskRepository) Get(_ context.Context, taskID string) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[taskID]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return cloneTask(task), nil
}

// cloneTask keeps callers from mutating stored tasks behind the lock.
func cloneTask(task *models.Task) *models.Task {
	clone := *task
	return &clone
}
