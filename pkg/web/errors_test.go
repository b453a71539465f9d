package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/taskdesk/pkg/assignment"
	"github.com/dukex/taskdesk/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		status      int
		problemType string
		errors      []any
	}{
		{
			name: "assignment failures list every message",
			err: fmt.Errorf("submit: %w", &services.AssignmentError{Result: assignment.Result{Errors: []string{
				"At least one user must be assigned to the task.",
				"2 workflow steps have no assigned user.",
			}}}),
			status:      http.StatusUnprocessableEntity,
			problemType: "assignment_invalid",
			errors: []any{
				"At least one user must be assigned to the task.",
				"2 workflow steps have no assigned user.",
			},
		},
		{
			name:        "form not found",
			err:         services.ErrFormNotFound,
			status:      http.StatusNotFound,
			problemType: "form_not_found",
		},
		{
			name:        "unexpected error",
			err:         io.ErrUnexpectedEOF,
			status:      http.StatusInternalServerError,
			problemType: "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/failing", func(c fiber.Ctx) error {
				return handleServiceError(c, tt.err)
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/failing", nil))
			require.NoError(t, err)

			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.status, resp.StatusCode)

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			var problem map[string]any
			require.NoError(t, json.Unmarshal(body, &problem))

			assert.Equal(t, tt.problemType, problem["type"])
			assert.Equal(t, float64(tt.status), problem["status"])
			assert.Equal(t, "/failing", problem["instance"])

			if tt.errors != nil {
				assert.Equal(t, tt.errors, problem["errors"])
				assert.Equal(t, services.ErrAssignmentInvalid.Error(), problem["detail"])
			}
		})
	}
}
