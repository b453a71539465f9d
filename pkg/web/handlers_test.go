package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukex/taskdesk/pkg/models"
	"github.com/dukex/taskdesk/pkg/persistence/file"
	"github.com/dukex/taskdesk/pkg/services"
	"github.com/dukex/taskdesk/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	app       *fiber.App
	workflows *services.Workflow
	tasks     *services.Task
	forms     *services.Forms
}

func setupTestApp(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	persistence := file.NewPersistence(t.TempDir())
	workflowService := services.NewWorkflow(persistence, logger)
	directory := services.NewDirectory(persistence)
	taskService := services.NewTask(persistence, workflowService, directory, nil, logger)
	forms := services.NewForms(workflowService, taskService, directory, logger)
	t.Cleanup(forms.CloseAll)

	for _, id := range []string{"1", "2", "3"} {
		_, err := directory.Create(t.Context(), &models.UserRef{ID: id, Username: "user" + id})
		require.NoError(t, err)
	}

	handlers := web.NewAPIHandlers(workflowService, directory, taskService, forms,
		validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()
	handlers.Register(app)

	return &testServer{app: app, workflows: workflowService, tasks: taskService, forms: forms}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		encoded, err := json.Marshal(b)
		require.NoError(t, err)

		reader = bytes.NewBuffer(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, respBody
}

func (s *testServer) createWorkflow(t *testing.T) *models.Workflow {
	t.Helper()

	workflow, err := s.workflows.Create(t.Context(), &models.Workflow{
		Name: "Tax filing",
		Steps: []*models.WorkflowStep{
			{ID: "prepare", Order: 1, Name: "Prepare"},
			{ID: "sign", Order: 2, Name: "Sign", DefaultAssignee: strPtr("3")},
		},
	})
	require.NoError(t, err)

	return workflow
}

const (
	timeout = 2 * time.Second
	tick    = 10 * time.Millisecond
)

func strPtr(s string) *string {
	return &s
}

func decodeProblem(t *testing.T, body []byte) map[string]any {
	t.Helper()

	var problem map[string]any
	require.NoError(t, json.Unmarshal(body, &problem))

	return problem
}

func TestAPIHandlers_CreateWorkflow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
		validateResult func(t *testing.T, body []byte)
	}{
		{
			name: "successful creation",
			requestBody: map[string]any{
				"name": "Onboarding",
				"steps": []map[string]any{
					{"id": "b", "order": 2, "name": "Sign", "default_assignee": 2},
					{"id": "a", "order": 1, "name": "Collect"},
				},
			},
			expectedStatus: http.StatusCreated,
			validateResult: func(t *testing.T, body []byte) {
				t.Helper()

				var workflow models.Workflow
				require.NoError(t, json.Unmarshal(body, &workflow))
				assert.NotEmpty(t, workflow.ID)
				require.Len(t, workflow.Steps, 2)
				assert.Equal(t, "a", workflow.Steps[0].ID)
				assert.Equal(t, "2", workflow.Steps[1].DefaultAssigneeID())
			},
		},
		{
			name:           "short name",
			requestBody:    map[string]any{"name": "ab"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "duplicate step order",
			requestBody: map[string]any{
				"name": "Onboarding",
				"steps": []map[string]any{
					{"order": 1, "name": "One"},
					{"order": 1, "name": "Two"},
				},
			},
			expectedStatus: http.StatusBadRequest,
			validateResult: func(t *testing.T, body []byte) {
				t.Helper()

				problem := decodeProblem(t, body)
				assert.Equal(t, "validation_error", problem["type"])
				assert.Contains(t, problem["detail"], "share order 1")
			},
		},
		{
			name:           "step order zero",
			requestBody:    map[string]any{"name": "Onboarding", "steps": []map[string]any{{"order": 0, "name": "x"}}},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid json",
			requestBody:    "{invalid",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := setupTestApp(t)

			resp, body := server.do(t, http.MethodPost, "/workflows", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode, string(body))

			if tt.validateResult != nil {
				tt.validateResult(t, body)
			}
		})
	}
}

func TestAPIHandlers_WorkflowLifecycle(t *testing.T) {
	server := setupTestApp(t)
	workflow := server.createWorkflow(t)

	resp, body := server.do(t, http.MethodGet, "/workflows/"+workflow.ID+"/steps", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var steps []*models.WorkflowStep
	require.NoError(t, json.Unmarshal(body, &steps))
	require.Len(t, steps, 2)
	assert.Equal(t, "prepare", steps[0].ID)

	resp, body = server.do(t, http.MethodPut, "/workflows/"+workflow.ID, map[string]any{
		"name":  "Tax filing 2026",
		"steps": []map[string]any{{"id": "file", "order": 1, "name": "File"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = server.do(t, http.MethodGet, "/workflows", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Workflows  []*models.Workflow `json:"workflows"`
		TotalCount int                `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, 1, list.TotalCount)
	assert.Equal(t, "Tax filing 2026", list.Workflows[0].Name)

	resp, _ = server.do(t, http.MethodDelete, "/workflows/"+workflow.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = server.do(t, http.MethodGet, "/workflows/"+workflow.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "workflow_not_found", decodeProblem(t, body)["type"])
}

func TestAPIHandlers_Users(t *testing.T) {
	server := setupTestApp(t)

	resp, body := server.do(t, http.MethodPost, "/users", map[string]any{
		"id":       42,
		"username": "jdoe",
		"email":    "jdoe@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, _ = server.do(t, http.MethodPost, "/users", map[string]any{"username": "x", "email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = server.do(t, http.MethodPost, "/users", map[string]any{"id": 42, "username": "again"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = server.do(t, http.MethodGet, "/users", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var users []models.UserRef
	require.NoError(t, json.Unmarshal(body, &users))
	assert.Len(t, users, 4)
}

func TestAPIHandlers_Tasks(t *testing.T) {
	server := setupTestApp(t)
	workflow := server.createWorkflow(t)

	resp, body := server.do(t, http.MethodPost, "/tasks", map[string]any{
		"title":                     "Prepare return",
		"workflow_id":               workflow.ID,
		"collaborators":             []any{1, "2"},
		"workflow_step_assignments": map[string]any{"prepare": 1},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var task models.Task
	require.NoError(t, json.Unmarshal(body, &task))
	assert.Equal(t, []string{"1", "2"}, task.CollaboratorIDs())
	assert.Equal(t, models.StepAssignmentMap{"prepare": "1", "sign": "3"}, task.WorkflowStepAssignments)

	resp, body = server.do(t, http.MethodGet, "/tasks?assignee_id=3", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list web.TaskListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, int64(1), list.TotalCount)
	assert.Equal(t, 20, list.Limit)

	resp, body = server.do(t, http.MethodPut, "/tasks/"+task.ID, map[string]any{
		"title":       "Prepare return",
		"assigned_to": 1,
		"collaborators": []any{
			1,
		},
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(body))

	problem := decodeProblem(t, body)
	assert.Equal(t, "assignment_invalid", problem["type"])
	assert.Equal(t, []any{"The primary assignee cannot also be a collaborator."}, problem["errors"])

	resp, _ = server.do(t, http.MethodGet, "/tasks/"+task.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = server.do(t, http.MethodDelete, "/tasks/"+task.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = server.do(t, http.MethodGet, "/tasks/"+task.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "task_not_found", decodeProblem(t, body)["type"])
}

func TestAPIHandlers_TaskRequestErrors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{name: "missing title", method: http.MethodPost, path: "/tasks", body: map[string]any{"assigned_to": "1"}, status: http.StatusBadRequest},
		{name: "wrong collaborators type", method: http.MethodPost, path: "/tasks", body: map[string]any{"title": "t", "collaborators": "1"}, status: http.StatusBadRequest},
		{name: "nobody assigned", method: http.MethodPost, path: "/tasks", body: map[string]any{"title": "t"}, status: http.StatusUnprocessableEntity},
		{name: "unknown user", method: http.MethodPost, path: "/tasks", body: map[string]any{"title": "t", "assigned_to": 99}, status: http.StatusBadRequest},
		{name: "bad sort field", method: http.MethodGet, path: "/tasks?sort_by=priority", status: http.StatusBadRequest},
		{name: "bad limit", method: http.MethodGet, path: "/tasks?limit=ten", status: http.StatusBadRequest},
		{name: "update missing task", method: http.MethodPut, path: "/tasks/missing", body: map[string]any{"title": "t", "assigned_to": "1"}, status: http.StatusNotFound},
	}

	server := setupTestApp(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := server.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
		})
	}
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	server := setupTestApp(t)

	resp, body := server.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]any
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "healthy", health["status"])
	assert.InDelta(t, 0, health["open_forms"], 0)
}
