package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/geo-tasks/internal/models"
)

// postgresTaskRepository relies on Postgres applying a single-row
// UPDATE atomically: the conditional updates in Claim and Complete are
// the compare-and-swap that keeps the claim race single-winner, with
// no application-level locking.
type postgresTaskRepository struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
}

func NewPostgresTaskRepository(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
) TaskRepository {
	return &postgresTaskRepository{
		logger: logger,
		pgPool: pgPool,
	}
}

func (r *postgresTaskRepository) Create(ctx context.Context, draft TaskDraft) (*models.Task, error) {
	if validationErr := validateDraft(draft); validationErr != nil {
		r.logger.Warn().
			Err(validationErr).
			Msg("rejected task draft")
		return nil, validationErr
	}

	taskUUID, err := uuid.NewV7()
	if err != nil {
		r.logger.Error().
			Err(err).
			Msg("failed to generate task uuid")
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

	const insertTaskQuery = `
INSERT INTO tasks (id,
                   name,
                   auth_token,
                   pickup_lat,
                   pickup_lon,
                   delivery_lat,
                   delivery_lon,
                   state,
                   created_at,
                   updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`
	_, err = r.pgPool.Exec(
		ctx,
		insertTaskQuery,
		task.ID,
		task.Name,
		task.AuthToken,
		task.Pickup.Lat,
		task.Pickup.Lon,
		task.Delivery.Lat,
		task.Delivery.Lon,
		task.State,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation {
			// The schema constraints backstop validateDraft.
			r.logger.Warn().
				Str("constraint", pgErr.ConstraintName).
				Msg("task draft violates a schema constraint")
			return nil, &ValidationError{Fields: []FieldError{
				{Field: pgErr.ConstraintName, Message: "constraint violation"},
			}}
		}

		r.logger.Error().
			Err(err).
			Msg("failed to insert task")
		return nil, err
	}
	r.logger.Debug().
		Str("task_id", task.ID).
		Msg("inserted task")

	r.logger.Info().
		Str("task_id", task.ID).
		Msg("created task")
	return task, nil
}

func (r *postgresTaskRepository) FindNear(
	ctx context.Context,
	point models.Point,
	radiusMeters float64,
	state string,
) ([]*models.Task, error) {
	// Haversine distance computed in SQL; the id tie-break keeps the
	// order deterministic for tasks at the same distance.
	const selectTasksNearQuery = `
SELECT id,
       name,
       auth_token,
       pickup_lat,
       pickup_lon,
       delivery_lat,
       delivery_lon,
       state,
       created_at,
       updated_at
FROM (SELECT *,
             2 * 6371000 * asin(sqrt(
                 pow(sin(radians(pickup_lat - $1) / 2), 2) +
                 cos(radians($1)) * cos(radians(pickup_lat)) *
                 pow(sin(radians(pickup_lon - $2) / 2), 2)
             )) AS distance_meters
      FROM tasks) nearby
WHERE state = $3 AND
      distance_meters <= $4
ORDER BY distance_meters, id
`
	rows, err := r.pgPool.Query(
		ctx,
		selectTasksNearQuery,
		point.Lat,
		point.Lon,
		state,
		radiusMeters,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Msg("failed to select nearby tasks")
		return nil, err
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task := &models.Task{}
		err = rows.Scan(
			&task.ID,
			&task.Name,
			&task.AuthToken,
			&task.Pickup.Lat,
			&task.Pickup.Lon,
			&task.Delivery.Lat,
			&task.Delivery.Lon,
			&task.State,
			&task.CreatedAt,
			&task.UpdatedAt,
		)
		if err != nil {
			r.logger.Error().
				Err(err).
				Msg("failed to scan task")
			return nil, err
		}
		tasks = append(tasks, task)
	}

	err = rows.Err()
	if err != nil {
		r.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}
	r.logger.Debug().
		Int("count", len(tasks)).
		Float64("radius_meters", radiusMeters).
		Msg("selected nearby tasks")

	return tasks, nil
}

func (r *postgresTaskRepository) Claim(ctx context.Context, taskID, claimantToken string) (*models.Task, error) {
	const claimTaskQuery = `
UPDATE tasks
SET state = $1,
    auth_token = $2,
    updated_at = $3
WHERE id = $4 AND state = $5
RETURNING name, pickup_lat, pickup_lon, delivery_lat, delivery_lon, created_at
`
	task := &models.Task{
		ID:        taskID,
		AuthToken: claimantToken,
		State:     models.StateAssigned,
		UpdatedAt: time.Now(),
	}
	err := r.pgPool.QueryRow(
		ctx,
		claimTaskQuery,
		task.State,
		task.AuthToken,
		task.UpdatedAt,
		task.ID,
		models.StateCreated,
	).Scan(
		&task.Name,
		&task.Pickup.Lat,
		&task.Pickup.Lon,
		&task.Delivery.Lat,
		&task.Delivery.Lon,
		&task.CreatedAt,
	)
	if err != nil {
		if isNoMatchingRow(err) {
			r.logger.Info().
				Str("task_id", taskID).
				Msg("claim lost: task missing or already claimed")
			return nil, ErrClaimFailed
		}

		r.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to claim task")
		return nil, err
	}

	r.logger.Info().
		Str("task_id", task.ID).
		Msg("claimed task")
	return task, nil
}

func (r *postgresTaskRepository) Complete(ctx context.Context, taskID string) (*models.Task, error) {
	const completeTaskQuery = `
UPDATE tasks
SET state = $1,
    updated_at = $2
WHERE id = $3 AND state = $4
RETURNING name, auth_token, pickup_lat, pickup_lon, delivery_lat, delivery_lon, created_at
`
	task := &models.Task{
		ID:        taskID,
		State:     models.StateDelivered,
		UpdatedAt: time.Now(),
	}
	err := r.pgPool.QueryRow(
		ctx,
		completeTaskQuery,
		task.State,
		task.UpdatedAt,
		task.ID,
		models.StateAssigned,
	).Scan(
		&task.Name,
		&task.AuthToken,
		&task.Pickup.Lat,
		&task.Pickup.Lon,
		&task.Delivery.Lat,
		&task.Delivery.Lon,
		&task.CreatedAt,
	)
	if err != nil {
		if isNoMatchingRow(err) {
			r.logger.Info().
				Str("task_id", taskID).
				Msg("complete failed: task missing or not assigned")
			return nil, ErrClaimFailed
		}

		r.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to complete task")
		return nil, err
	}

	r.logger.Info().
		Str("task_id", task.ID).
		Msg("completed task")
	return task, nil
}

func (r *postgresTaskRepository) Get(ctx context.Context, taskID string) (*models.Task, error) {
	const selectTaskByIDQuery = `
SELECT name,
       auth_token,
       pickup_lat,
       pickup_lon,
       delivery_lat,
       delivery_lon,
       state,
       created_at,
       updated_at
FROM tasks
WHERE id = $1
`
	task := &models.Task{ID: taskID}
	err := r.pgPool.QueryRow(
		ctx,
		selectTaskByIDQuery,
		task.ID,
	).Scan(
		&task.Name,
		&task.AuthToken,
		&task.Pickup.Lat,
		&task.Pickup.Lon,
		&task.Delivery.Lat,
		&task.Delivery.Lon,
		&task.State,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if isNoMatchingRow(err) {
			r.logger.Info().
				Str("task_id", taskID).
				Msg("task not found")
			return nil, ErrTaskNotFound
		}

		r.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to select task by id")
		return nil, err
	}

	return task, nil
}

// isNoMatchingRow treats a malformed task id the same as an unknown
// one: the id column is a uuid, so Postgres rejects non-uuid text
// before matching anything.
func isNoMatchingRow(err error) bool {
	if errors.Is(err, pgx.ErrNoRows) {
		return true
	}

	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.InvalidTextRepresentation
}
