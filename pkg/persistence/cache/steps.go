// Package cache provides a Redis-backed read-through cache for workflow step lookups.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/taskdesk/pkg/assignment"
	"github.com/dukex/taskdesk/pkg/models"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	keyPrefix  = "taskdesk:workflow-steps:"
	DefaultTTL = 5 * time.Minute
)

// StepCache serves workflow steps from Redis and falls back to the wrapped
// lookup on a miss. Concurrent misses for the same workflow share one fetch.
// A nil client disables Redis and keeps only the request coalescing.
type StepCache struct {
	next   assignment.StepLookup
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewStepCache wraps next. A ttl of zero uses DefaultTTL.
func NewStepCache(next assignment.StepLookup, client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *StepCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &StepCache{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Key returns the Redis key holding the steps of workflowID.
func Key(workflowID string) string {
	return keyPrefix + workflowID
}

// WorkflowSteps implements assignment.StepLookup.
func (c *StepCache) WorkflowSteps(ctx context.Context, workflowID string) ([]*models.WorkflowStep, error) {
	if steps, ok := c.get(ctx, workflowID); ok {
		return steps, nil
	}

	result := c.group.DoChan(workflowID, func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)

		steps, err := c.next.WorkflowSteps(fetchCtx, workflowID)
		if err != nil {
			return nil, err
		}

		c.set(fetchCtx, workflowID, steps)

		return steps, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return nil, res.Err
		}

		steps, _ := res.Val.([]*models.WorkflowStep)

		return steps, nil
	}
}

// Invalidate drops the cached steps of workflowID.
func (c *StepCache) Invalidate(ctx context.Context, workflowID string) error {
	c.group.Forget(workflowID)

	if c.client == nil {
		return nil
	}

	err := c.client.Del(ctx, Key(workflowID)).Err()
	if err != nil {
		return fmt.Errorf("failed to invalidate steps of workflow %s: %w", workflowID, err)
	}

	return nil
}

func (c *StepCache) get(ctx context.Context, workflowID string) ([]*models.WorkflowStep, bool) {
	if c.client == nil {
		return nil, false
	}

	body, err := c.client.Get(ctx, Key(workflowID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "Step cache read failed", "workflow_id", workflowID, "error", err)
		}

		return nil, false
	}

	var steps []*models.WorkflowStep

	err = json.Unmarshal(body, &steps)
	if err != nil {
		c.logger.WarnContext(ctx, "Discarding malformed step cache entry", "workflow_id", workflowID, "error", err)

		return nil, false
	}

	return steps, true
}

func (c *StepCache) set(ctx context.Context, workflowID string, steps []*models.WorkflowStep) {
	if c.client == nil {
		return
	}

	body, err := json.Marshal(steps)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to encode steps for cache", "workflow_id", workflowID, "error", err)

		return
	}

	err = c.client.Set(ctx, Key(workflowID), body, c.ttl).Err()
	if err != nil {
		c.logger.WarnContext(ctx, "Step cache write failed", "workflow_id", workflowID, "error", err)
	}
}
