// Package file provides file-based persistence for workflows, tasks and users.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dukex/taskdesk/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
// Every entity is one JSON document under root/<collection>/<id>.json.
type Persistence struct {
	root         string
	workflowRepo *WorkflowRepository
	taskRepo     *TaskRepository
	userRepo     *UserRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) persistence.Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:         cleanRoot,
		workflowRepo: NewWorkflowRepository(cleanRoot),
		taskRepo:     NewTaskRepository(cleanRoot),
		userRepo:     NewUserRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// WorkflowRepository returns the workflow repository implementation for file persistence.
func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

// TaskRepository returns the task repository implementation for file persistence.
func (fp *Persistence) TaskRepository() persistence.TaskRepository {
	return fp.taskRepo
}

// UserRepository returns the user repository implementation for file persistence.
func (fp *Persistence) UserRepository() persistence.UserRepository {
	return fp.userRepo
}

// collection is a directory of JSON documents keyed by id.
type collection struct {
	mu  sync.RWMutex
	dir string
}

func newCollection(root, name string) *collection {
	return &collection{dir: path.Join(root, name)}
}

func (c *collection) filePath(id string) string {
	return filepath.Clean(path.Join(c.dir, filepath.Base(id)+".json"))
}

// read decodes the document id into target. It reports false when the document does not exist.
func (c *collection) read(id string, target any) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	body, err := os.ReadFile(c.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read %s: %w", id, err)
	}

	err = json.Unmarshal(body, target)
	if err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", id, err)
	}

	return true, nil
}

func (c *collection) write(id string, document any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := os.MkdirAll(c.dir, 0750)
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", c.dir, err)
	}

	data, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", id, err)
	}

	return os.WriteFile(c.filePath(id), data, 0600)
}

// remove deletes the document id. It reports false when the document did not exist.
func (c *collection) remove(id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := os.Remove(c.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to delete %s: %w", id, err)
	}

	return true, nil
}

// ids lists the stored document ids.
func (c *collection) ids() ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	jsonFiles, err := fs.Glob(os.DirFS(c.dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c.dir, err)
	}

	ids := make([]string, 0, len(jsonFiles))
	for _, file := range jsonFiles {
		ids = append(ids, strings.TrimSuffix(file, ".json"))
	}

	return ids, nil
}

// all loads every document of the collection.
func all[T any](c *collection) ([]*T, error) {
	ids, err := c.ids()
	if err != nil {
		return nil, err
	}

	items := make([]*T, 0, len(ids))

	for _, id := range ids {
		item := new(T)

		found, err := c.read(id, item)
		if err != nil {
			return nil, err
		}

		if found {
			items = append(items, item)
		}
	}

	return items, nil
}
