package assignment

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/dukex/taskdesk/pkg/models"
	"github.com/dukex/taskdesk/pkg/otelhelper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// StepLookup fetches the steps of a workflow in execution order (ascending
// Order). The resolver does not re-sort what it receives.
type StepLookup interface {
	WorkflowSteps(ctx context.Context, workflowID string) ([]*models.WorkflowStep, error)
}

// StepLookupFunc adapts a function to StepLookup.
type StepLookupFunc func(ctx context.Context, workflowID string) ([]*models.WorkflowStep, error)

// WorkflowSteps calls f.
func (f StepLookupFunc) WorkflowSteps(ctx context.Context, workflowID string) ([]*models.WorkflowStep, error) {
	return f(ctx, workflowID)
}

// ResolverStatus is the state of a WorkflowStepResolver.
type ResolverStatus string

const (
	ResolverIdle    ResolverStatus = "idle"
	ResolverLoading ResolverStatus = "loading"
	ResolverReady   ResolverStatus = "ready"
	ResolverEmpty   ResolverStatus = "empty"
	ResolverError   ResolverStatus = "error"
)

// Resolution is a snapshot of the resolver.
type Resolution struct {
	Token       uint64                   `json:"token"`
	WorkflowID  string                   `json:"workflow_id,omitempty"`
	Status      ResolverStatus           `json:"status"`
	Steps       []*models.WorkflowStep   `json:"steps"`
	Assignments models.StepAssignmentMap `json:"-"`
	Err         error                    `json:"-"`
	Retryable   bool                     `json:"retryable"`
}

// Error returns the fetch error message, or "".
func (r Resolution) Error() string {
	if r.Err == nil {
		return ""
	}

	return r.Err.Error()
}

// ResolveFunc receives the outcome of a fetch that was still current when it
// completed.
type ResolveFunc func(Resolution)

// Resolver translates a workflow selection into an ordered step list and
// an initial step assignment map. Each selection takes a new request token;
// a fetch whose token is no longer current is discarded when it completes.
type Resolver struct {
	lookup    StepLookup
	logger    *slog.Logger
	onResolve ResolveFunc

	mu      sync.Mutex
	current Resolution
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewResolver returns an idle resolver. onResolve may be nil.
func NewResolver(lookup StepLookup, logger *slog.Logger, onResolve ResolveFunc) *Resolver {
	return &Resolver{
		lookup:    lookup,
		logger:    logger,
		onResolve: onResolve,
		current:   Resolution{Status: ResolverIdle},
	}
}

// Select starts resolving workflowID, merging existing assignments into the
// initial map. An empty workflowID returns the resolver to idle. It returns
// the request token of the selection.
func (r *Resolver) Select(ctx context.Context, workflowID string, existing models.StepAssignmentMap) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}

	token := r.current.Token + 1

	if workflowID == "" {
		r.current = Resolution{Token: token, Status: ResolverIdle}

		return token
	}

	r.current = Resolution{Token: token, WorkflowID: workflowID, Status: ResolverLoading}

	fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel
	existing = existing.Clone()

	r.wg.Add(1)

	go func() {
		defer r.wg.Done()
		defer cancel()

		r.fetch(fetchCtx, token, workflowID, existing)
	}()

	return token
}

func (r *Resolver) fetch(ctx context.Context, token uint64, workflowID string, existing models.StepAssignmentMap) {
	ctx, span := otelhelper.StartSpan(ctx, otel.Tracer("taskdesk/assignment"), "resolver.fetch",
		attribute.String(otelhelper.WorkflowIDKey, workflowID),
		attribute.Int64(otelhelper.RequestTokenKey, int64(token)),
	)
	defer span.End()

	steps, err := r.lookup.WorkflowSteps(ctx, workflowID)
	if err != nil {
		otelhelper.SetError(span, err)
	}

	if res, ok := r.Complete(token, steps, err, existing); ok && r.onResolve != nil {
		r.onResolve(res)
	}
}

// Complete applies the outcome of the fetch identified by token. It reports
// false, leaving the resolver untouched, when token is no longer current.
func (r *Resolver) Complete(
	token uint64,
	steps []*models.WorkflowStep,
	err error,
	existing models.StepAssignmentMap,
) (Resolution, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token != r.current.Token || r.current.Status != ResolverLoading {
		r.logger.Debug("Discarding stale workflow step result",
			"workflow_id", r.current.WorkflowID, "token", token, "current_token", r.current.Token)

		return Resolution{}, false
	}

	res := Resolution{Token: token, WorkflowID: r.current.WorkflowID}

	switch {
	case err != nil:
		res.Status = ResolverError
		res.Err = err
		res.Retryable = !errors.Is(err, context.Canceled)
		r.logger.Warn("Failed to resolve workflow steps", "workflow_id", res.WorkflowID, "error", err)
	case len(steps) == 0:
		res.Status = ResolverEmpty
		res.Steps = []*models.WorkflowStep{}
		res.Assignments = models.StepAssignmentMap{}
	default:
		res.Status = ResolverReady
		res.Steps = steps
		res.Assignments = InitialAssignments(steps, existing)
	}

	r.current = res
	r.cancel = nil

	return res, true
}

// Current returns the current resolution.
func (r *Resolver) Current() Resolution {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := r.current
	res.Assignments = res.Assignments.Clone()

	return res
}

// IsCurrent reports whether token identifies the latest selection.
func (r *Resolver) IsCurrent(token uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.current.Token == token
}

// Close returns the resolver to idle, cancels any in-flight fetch and waits
// for it to return. The cancelled fetch's result is discarded.
func (r *Resolver) Close() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}

	r.current = Resolution{Token: r.current.Token + 1, Status: ResolverIdle}
	r.mu.Unlock()

	r.wg.Wait()
}

// Wait blocks until every started fetch has returned.
func (r *Resolver) Wait() {
	r.wg.Wait()
}

// InitialAssignments computes the starting assignee of each step: an existing
// non-empty assignment wins over the step's default assignee; otherwise the
// step is unassigned.
func InitialAssignments(steps []*models.WorkflowStep, existing models.StepAssignmentMap) models.StepAssignmentMap {
	assignments := make(models.StepAssignmentMap, len(steps))

	for _, step := range steps {
		if userID := existing[step.ID]; userID != "" {
			assignments[step.ID] = userID

			continue
		}

		assignments[step.ID] = step.DefaultAssigneeID()
	}

	return assignments
}
