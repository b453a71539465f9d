package services

import (
	"io"
	"log/slog"
	"testing"

	"github.com/dukex/taskdesk/pkg/models"
	"github.com/dukex/taskdesk/pkg/persistence"
	"github.com/dukex/taskdesk/pkg/persistence/file"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string {
	return &s
}

type fixture struct {
	persistence persistence.Persistence
	workflows   *Workflow
	directory   *Directory
	tasks       *Task
}

// newFixture wires the services over a file store seeded with the users
// alice, bob and carol.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	workflows := NewWorkflow(p, testLogger())
	directory := NewDirectory(p)

	for _, username := range []string{"alice", "bob", "carol"} {
		_, err := directory.Create(t.Context(), &models.UserRef{ID: username, Username: username})
		require.NoError(t, err)
	}

	return &fixture{
		persistence: p,
		workflows:   workflows,
		directory:   directory,
		tasks:       NewTask(p, workflows, directory, nil, testLogger()),
	}
}

// reviewWorkflow stores a two step workflow; the second step defaults to carol.
func (f *fixture) reviewWorkflow(t *testing.T) *models.Workflow {
	t.Helper()

	workflow, err := f.workflows.Create(t.Context(), &models.Workflow{
		Name: "Review",
		Steps: []*models.WorkflowStep{
			{ID: "approve", Order: 2, Name: "Approve", DefaultAssignee: strPtr("carol")},
			{ID: "draft", Order: 1, Name: "Draft"},
		},
	})
	require.NoError(t, err)

	return workflow
}
