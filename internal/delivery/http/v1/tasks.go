package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/geo-tasks/internal/models"
	"github.com/adanyl0v/geo-tasks/internal/services"
)

type locationPayload struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type taskResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	AuthToken string          `json:"auth_token"`
	Pickup    locationPayload `json:"pickup_location"`
	Delivery  locationPayload `json:"delivery_location"`
	State     string          `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func newTaskResponse(task *models.Task) taskResponse {
	return taskResponse{
		ID:        task.ID,
		Name:      task.Name,
		AuthToken: task.AuthToken,
		Pickup:    locationPayload{Lat: task.Pickup.Lat, Lon: task.Pickup.Lon},
		Delivery:  locationPayload{Lat: task.Delivery.Lat, Lon: task.Delivery.Lon},
		State:     task.State,
		CreatedAt: task.CreatedAt,
		UpdatedAt: task.UpdatedAt,
	}
}

type createTaskRequest struct {
	Name     string           `json:"name"`
	Pickup   *locationPayload `json:"pickup_location"`
	Delivery *locationPayload `json:"delivery_location"`
}

// Field presence is validated by the repository so a draft missing
// several fields reports all of them, not just the first.
func (r createTaskRequest) toDraft() services.TaskDraft {
	draft := services.TaskDraft{Name: r.Name}
	if r.Pickup != nil {
		draft.Pickup = &models.Point{Lat: r.Pickup.Lat, Lon: r.Pickup.Lon}
	}
	if r.Delivery != nil {
		draft.Delivery = &models.Point{Lat: r.Delivery.Lat, Lon: r.Delivery.Lon}
	}
	return draft
}

func (h *handlerImpl) HandleCreateTask(c *gin.Context) {
	var req createTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Warn().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	task, err := h.dispatch.CreateTask(c, requesterToken(c), req.toDraft())
	if err != nil {
		h.abortDispatchError(c, err)
		return
	}

	h.logger.Info().
		Str("task_id", task.ID).
		Msg("created task")
	c.JSON(http.StatusCreated, gin.H{"id": task.ID})
}

func (h *handlerImpl) HandleSearchTasks(c *gin.Context) {
	query := services.SearchQuery{
		Lat:    c.Query("lat"),
		Lon:    c.Query("lon"),
		Radius: c.Query("radius"),
	}

	tasks, err := h.dispatch.SearchNearby(c, requesterToken(c), query)
	if err != nil {
		h.abortDispatchError(c, err)
		return
	}

	response := make([]taskResponse, len(tasks))
	for i, task := range tasks {
		response[i] = newTaskResponse(task)
	}

	h.logger.Info().
		Int("count", len(response)).
		Msg("searched tasks")
	c.JSON(http.StatusOK, response)
}

func (h *handlerImpl) HandleGetTask(c *gin.Context) {
	task, err := h.dispatch.GetTask(c, requesterToken(c), c.Param("id"))
	if err != nil {
		h.abortDispatchError(c, err)
		return
	}

	c.JSON(http.StatusOK, newTaskResponse(task))
}

func (h *handlerImpl) HandleClaimTask(c *gin.Context) {
	task, err := h.dispatch.ClaimTask(c, requesterToken(c), c.Param("id"))
	if err != nil {
		h.abortDispatchError(c, err)
		return
	}

	h.logger.Info().
		Str("task_id", task.ID).
		Msg("claimed task")
	c.Status(http.StatusNoContent)
}

func (h *handlerImpl) HandleCompleteTask(c *gin.Context) {
	task, err := h.dispatch.CompleteTask(c, requesterToken(c), c.Param("id"))
	if err != nil {
		h.abortDispatchError(c, err)
		return
	}

	h.logger.Info().
		Str("task_id", task.ID).
		Msg("completed task")
	c.Status(http.StatusNoContent)
}
