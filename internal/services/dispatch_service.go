package services

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/geo-tasks/internal/auth"
	"github.com/adanyl0v/geo-tasks/internal/models"
	"github.com/adanyl0v/geo-tasks/internal/repository"
)

type dispatchServiceImpl struct {
	logger              zerolog.Logger
	authorizer          auth.Authorizer
	tasks               repository.TaskRepository
	defaultRadiusMeters float64
}

func NewDispatchService(
	logger zerolog.Logger,
	authorizer auth.Authorizer,
	tasks repository.TaskRepository,
	defaultRadiusMeters float64,
) DispatchService {
	if defaultRadiusMeters <= 0 {
		defaultRadiusMeters = DefaultSearchRadiusMeters
	}
	return &dispatchServiceImpl{
		logger:              logger,
		authorizer:          authorizer,
		tasks:               tasks,
		defaultRadiusMeters: defaultRadiusMeters,
	}
}

func (s *dispatchServiceImpl) CreateTask(ctx context.Context, requesterToken string, draft TaskDraft) (*models.Task, error) {
	token, err := s.authorizer.Authorize(requesterToken, auth.RoleManager)
	if err != nil {
		return nil, err
	}

	task, err := s.tasks.Create(ctx, draft.withToken(token))
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("task_id", task.ID).
		Msg("dispatched new task")
	return task, nil
}

func (s *dispatchServiceImpl) SearchNearby(ctx context.Context, requesterToken string, query SearchQuery) ([]*models.Task, error) {
	_, err := s.authorizer.Authorize(requesterToken, auth.RoleDriver)
	if err != nil {
		return nil, err
	}

	point, radius, err := s.parseSearchQuery(query)
	if err != nil {
		return nil, err
	}

	// Only unclaimed tasks are discoverable by drivers.
	tasks, err := s.tasks.FindNear(ctx, point, radius, models.StateCreated)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Int("count", len(tasks)).
		Float64("lat", point.Lat).
		Float64("lon", point.Lon).
		Float64("radius_meters", radius).
		Msg("searched nearby tasks")
	return tasks, nil
}

func (s *dispatchServiceImpl) ClaimTask(ctx context.Context, requesterToken, taskID string) (*models.Task, error) {
	token, err := s.authorizer.Authorize(requesterToken, auth.RoleDriver)
	if err != nil {
		return nil, err
	}

	task, err := s.tasks.Claim(ctx, taskID, token)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("task_id", task.ID).
		Msg("assigned task to driver")
	return task, nil
}

func (s *dispatchServiceImpl) CompleteTask(ctx context.Context, requesterToken, taskID string) (*models.Task, error) {
	_, err := s.authorizer.Authorize(requesterToken, auth.RoleDriver)
	if err != nil {
		return nil, err
	}

	task, err := s.tasks.Complete(ctx, taskID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("task_id", task.ID).
		Msg("marked task delivered")
	return task, nil
}

func (s *dispatchServiceImpl) GetTask(ctx context.Context, requesterToken, taskID string) (*models.Task, error) {
	_, err := s.authorizer.Identify(requesterToken)
	if err != nil {
		return nil, err
	}

	return s.tasks.Get(ctx, taskID)
}

func (s *dispatchServiceImpl) parseSearchQuery(query SearchQuery) (models.Point, float64, error) {
	lat, err := strconv.ParseFloat(query.Lat, 64)
	if err != nil {
		s.logger.Warn().
			Str("lat", query.Lat).
			Msg("unparseable query latitude")
		return models.Point{}, 0, ErrInvalidQuery
	}

	lon, err := strconv.ParseFloat(query.Lon, 64)
	if err != nil {
		s.logger.Warn().
			Str("lon", query.Lon).
			Msg("unparseable query longitude")
		return models.Point{}, 0, ErrInvalidQuery
	}

	radius := s.defaultRadiusMeters
	if query.Radius != "" {
		radius, err = strconv.ParseFloat(query.Radius, 64)
		if err != nil || radius <= 0 {
			s.logger.Warn().
				Str("radius", query.Radius).
				Msg("invalid query radius")
			return models.Point{}, 0, ErrInvalidRadius
		}
	}

	return models.Point{Lat: lat, Lon: lon}, radius, nil
}
