package v1

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/geo-tasks/internal/auth"
	"github.com/adanyl0v/geo-tasks/internal/repository"
	"github.com/adanyl0v/geo-tasks/internal/services"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	logger := zerolog.Nop()
	dispatchService := services.NewDispatchService(
		logger,
		auth.NewTokenPrefixAuthorizer(logger),
		repository.NewInMemoryTaskRepository(),
		services.DefaultSearchRadiusMeters,
	)
	handler := New(logger, dispatchService)

	router := gin.New()
	taskRouter := router.Group("/api/v1/tasks", handler.HandleAuthenticationMiddleware)
	taskRouter.POST("", handler.HandleCreateTask)
	taskRouter.GET("", handler.HandleSearchTasks)
	taskRouter.GET("/:id", handler.HandleGetTask)
	taskRouter.POST("/:id/claim", handler.HandleClaimTask)
	taskRouter.POST("/:id/complete", handler.HandleCompleteTask)
	return router
}

func doRequest(t *testing.T, router *gin.Engine, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authentication", token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createTask(t *testing.T, router *gin.Engine) string {
	t.Helper()

	const body = `{
		"name": "box A",
		"pickup_location": {"lat": 40.82, "lon": -73.93},
		"delivery_location": {"lat": 40.75, "lon": -73.98}
	}`
	w := doRequest(t, router, http.MethodPost, "/api/v1/tasks", "M123", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var response struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.ID == "" {
		t.Fatalf("expected an id in the response, got %s", w.Body.String())
	}
	return response.ID
}

func TestMiddleware_MissingCredentialHeader(t *testing.T) {
	router := newTestRouter()

	w := doRequest(t, router, http.MethodGet, "/api/v1/tasks?lat=40&lon=-73", "", "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "missing credential header") {
		t.Fatalf("expected the missing credential message, got %s", w.Body.String())
	}
}

func TestCreateTask_RoleMismatch(t *testing.T) {
	router := newTestRouter()

	const body = `{
		"name": "box A",
		"pickup_location": {"lat": 40.82, "lon": -73.93},
		"delivery_location": {"lat": 40.75, "lon": -73.98}
	}`
	w := doRequest(t, router, http.MethodPost, "/api/v1/tasks", "D9", body)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "role mismatch") {
		t.Fatalf("expected the role mismatch message, got %s", w.Body.String())
	}
}

func TestCreateTask_FieldErrors(t *testing.T) {
	router := newTestRouter()

	w := doRequest(t, router, http.MethodPost, "/api/v1/tasks", "M123", `{"name": ""}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var response struct {
		Fields []repository.FieldError `json:"fields"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Fields) != 3 {
		t.Fatalf("expected 3 field errors, got %s", w.Body.String())
	}
}

func TestSearchTasks_PreconditionFailed(t *testing.T) {
	router := newTestRouter()

	w := doRequest(t, router, http.MethodGet, "/api/v1/tasks?lon=-73", "D9", "")
	if w.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected 412 for a missing lat, got %d", w.Code)
	}

	w = doRequest(t, router, http.MethodGet, "/api/v1/tasks?lat=40&lon=-73&radius=-1", "D9", "")
	if w.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected 412 for a negative radius, got %d", w.Code)
	}
}

func TestDispatchFlow(t *testing.T) {
	router := newTestRouter()
	taskID := createTask(t, router)

	// The driver discovers the task nearby.
	w := doRequest(t, router, http.MethodGet, "/api/v1/tasks?lat=40.823&lon=-73.934&radius=5000", "D9", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var found []taskResponse
	if err := json.Unmarshal(w.Body.Bytes(), &found); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(found) != 1 || found[0].ID != taskID {
		t.Fatalf("expected the created task in results, got %s", w.Body.String())
	}

	w = doRequest(t, router, http.MethodPost, "/api/v1/tasks/"+taskID+"/claim", "D9", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}

	// The losing driver sees a plain 404.
	w = doRequest(t, router, http.MethodPost, "/api/v1/tasks/"+taskID+"/claim", "D7", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	w = doRequest(t, router, http.MethodGet, "/api/v1/tasks/"+taskID, "M123", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var task taskResponse
	if err := json.Unmarshal(w.Body.Bytes(), &task); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if task.State != "assigned" || task.AuthToken != "D9" {
		t.Fatalf("unexpected task after claim: %s", w.Body.String())
	}

	w = doRequest(t, router, http.MethodPost, "/api/v1/tasks/"+taskID+"/complete", "D9", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}

	// Delivery is one-way.
	w = doRequest(t, router, http.MethodPost, "/api/v1/tasks/"+taskID+"/complete", "D9", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on a second complete, got %d", w.Code)
	}
}

func TestClaimTask_UnknownIDLooksClaimed(t *testing.T) {
	router := newTestRouter()

	w := doRequest(t, router, http.MethodPost, "/api/v1/tasks/never-existed/claim", "D9", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestCreateTask_InvalidBody(t *testing.T) {
	router := newTestRouter()

	w := doRequest(t, router, http.MethodPost, "/api/v1/tasks", "M123", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
