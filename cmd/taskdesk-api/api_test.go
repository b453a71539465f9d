package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/taskdesk/pkg/cmd"
	"github.com/dukex/taskdesk/pkg/events"
	"github.com/dukex/taskdesk/pkg/persistence/file"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	eventBus, err := cmd.NewEventBus("gochannel", "", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = eventBus.Close() })

	api, err := NewAPI(testLogger(), file.NewPersistence(t.TempDir()), eventBus, nil, Config{})
	require.NoError(t, err)
	t.Cleanup(api.forms.CloseAll)

	return api.App()
}

func get(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func TestAPI_RootEndpoint(t *testing.T) {
	app := setupTestApp(t)

	status, body := get(t, app, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "taskdesk API", body)
}

func TestAPI_HealthEndpoints(t *testing.T) {
	app := setupTestApp(t)

	for _, path := range []string{"/livez", "/readyz", "/health"} {
		t.Run(path, func(t *testing.T) {
			status, _ := get(t, app, path)
			assert.Equal(t, http.StatusOK, status)
		})
	}
}

func TestAPI_RoutesAreRegistered(t *testing.T) {
	app := setupTestApp(t)

	for _, path := range []string{"/workflows", "/users", "/tasks"} {
		status, _ := get(t, app, path)
		assert.Equal(t, http.StatusOK, status, path)
	}

	status, _ := get(t, app, "/forms/unknown")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestNewAPI_InvalidSweepSchedule(t *testing.T) {
	_, err := NewAPI(testLogger(), file.NewPersistence(t.TempDir()), nil, nil, Config{SweepSchedule: "often"})
	require.Error(t, err)
}

func TestAssignmentNotifier(t *testing.T) {
	notifier := NewAssignmentNotifier(testLogger())

	event := events.NewTaskAssigned("task-1", "Audit", []string{"u1", "u2"})
	require.NoError(t, notifier.TaskAssigned(t.Context(), event))

	err := notifier.TaskAssigned(t.Context(), events.NewTaskAssigned("task-1", "Audit", nil))
	require.ErrorIs(t, err, events.ErrMissingAssignee)

	err = notifier.TaskAssigned(t.Context(), events.NewTaskDeleted("task-1"))
	require.Error(t, err)

	require.NoError(t, notifier.TaskDeleted(t.Context(), events.NewTaskDeleted("task-1")))
}
