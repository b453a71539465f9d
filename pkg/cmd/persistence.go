// Package cmd wires infrastructure chosen by configuration for the taskdesk binaries.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/taskdesk/pkg/persistence"
	"github.com/dukex/taskdesk/pkg/persistence/file"
	"github.com/dukex/taskdesk/pkg/persistence/postgresql"
)

// NewPersistence picks the storage backend from the URL scheme: postgres:// and
// postgresql:// select PostgreSQL, anything else is a file:// root directory.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgresql persistence: %w", err)
		}

		return p, nil
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	switch scheme {
	case "postgres", "postgresql":
		return "postgresql"
	default:
		return "file"
	}
}
