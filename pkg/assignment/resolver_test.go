package assignment

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/taskdesk/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialAssignments_ExistingOutranksDefault(t *testing.T) {
	steps := []*models.WorkflowStep{step("s1", 1, "U1")}

	assignments := InitialAssignments(steps, models.StepAssignmentMap{"s1": "U2"})

	assert.Equal(t, "U2", assignments["s1"])
}

func TestInitialAssignments_Precedence(t *testing.T) {
	steps := []*models.WorkflowStep{
		step("s1", 1, "uA"),
		step("s2", 2, ""),
		step("s3", 3, "uC"),
		step("s4", 4, ""),
	}

	assignments := InitialAssignments(steps, models.StepAssignmentMap{
		"s3":    "uX",
		"s4":    "",
		"other": "uY",
	})

	assert.Equal(t, models.StepAssignmentMap{
		"s1": "uA",
		"s2": "",
		"s3": "uX",
		"s4": "",
	}, assignments)
}

func TestResolver_InitialState(t *testing.T) {
	r := NewResolver(stubLookup{}, slog.Default(), nil)

	res := r.Current()
	assert.Equal(t, ResolverIdle, res.Status)
	assert.Zero(t, res.Token)
}

func TestResolver_SelectReady(t *testing.T) {
	lookup := stubLookup{steps: map[string][]*models.WorkflowStep{
		"wf": {step("s1", 1, "uA"), step("s2", 2, "")},
	}}

	var resolved []Resolution

	r := NewResolver(lookup, slog.Default(), func(res Resolution) {
		resolved = append(resolved, res)
	})

	token := r.Select(t.Context(), "wf", models.StepAssignmentMap{"s2": "uB"})
	r.Wait()

	res := r.Current()
	assert.Equal(t, token, res.Token)
	assert.Equal(t, ResolverReady, res.Status)
	assert.Equal(t, "wf", res.WorkflowID)
	assert.Len(t, res.Steps, 2)
	assert.Equal(t, models.StepAssignmentMap{"s1": "uA", "s2": "uB"}, res.Assignments)

	require.Len(t, resolved, 1)
	assert.Equal(t, token, resolved[0].Token)
}

func TestResolver_SelectEmpty(t *testing.T) {
	r := NewResolver(stubLookup{}, slog.Default(), nil)

	r.Select(t.Context(), "wf-empty", nil)
	r.Wait()

	res := r.Current()
	assert.Equal(t, ResolverEmpty, res.Status)
	assert.Empty(t, res.Steps)
	assert.Empty(t, res.Assignments)
}

func TestResolver_SelectError_IsRetryable(t *testing.T) {
	errLookup := errors.New("backend unavailable")
	lookup := stubLookup{
		steps: map[string][]*models.WorkflowStep{"wf": {step("s1", 1, "")}},
		errs:  map[string]error{"wf": errLookup},
	}

	r := NewResolver(lookup, slog.Default(), nil)

	r.Select(t.Context(), "wf", nil)
	r.Wait()

	res := r.Current()
	assert.Equal(t, ResolverError, res.Status)
	assert.True(t, res.Retryable)
	require.ErrorIs(t, res.Err, errLookup)
	assert.Equal(t, "backend unavailable", res.Error())

	// Retry is an explicit re-selection.
	delete(lookup.errs, "wf")
	r.Select(t.Context(), "wf", nil)
	r.Wait()

	assert.Equal(t, ResolverReady, r.Current().Status)
}

func TestResolver_SelectNoneReturnsToIdle(t *testing.T) {
	lookup := stubLookup{steps: map[string][]*models.WorkflowStep{"wf": {step("s1", 1, "")}}}
	r := NewResolver(lookup, slog.Default(), nil)

	r.Select(t.Context(), "wf", nil)
	r.Wait()
	require.Equal(t, ResolverReady, r.Current().Status)

	r.Select(t.Context(), "", nil)

	res := r.Current()
	assert.Equal(t, ResolverIdle, res.Status)
	assert.Empty(t, res.WorkflowID)
	assert.Empty(t, res.Steps)
}

func TestResolver_Complete_DiscardsStaleToken(t *testing.T) {
	lookup := newGatedLookup(map[string][]*models.WorkflowStep{
		"A": {step("a1", 1, "")},
		"B": {step("b1", 1, ""), step("b2", 2, "")},
	})
	resolved := make(chan Resolution, 2)

	r := NewResolver(lookup, slog.Default(), func(res Resolution) {
		resolved <- res
	})

	tokenA := r.Select(t.Context(), "A", nil)
	<-lookup.started
	tokenB := r.Select(t.Context(), "B", nil)
	<-lookup.started

	require.Greater(t, tokenB, tokenA)
	assert.True(t, r.IsCurrent(tokenB))
	assert.False(t, r.IsCurrent(tokenA))

	_, applied := r.Complete(tokenA, []*models.WorkflowStep{step("a1", 1, "")}, nil, nil)
	assert.False(t, applied)
	assert.Equal(t, ResolverLoading, r.Current().Status)

	lookup.release("B")
	require.Eventually(t, func() bool {
		return r.Current().Status == ResolverReady
	}, time.Second, 5*time.Millisecond)

	lookup.release("A")
	r.Wait()

	res := r.Current()
	assert.Equal(t, ResolverReady, res.Status)
	assert.Equal(t, tokenB, res.Token)
	assert.Equal(t, "B", res.WorkflowID)
	assert.Len(t, res.Steps, 2)

	close(resolved)

	tokens := make([]uint64, 0, 1)
	for res := range resolved {
		tokens = append(tokens, res.Token)
	}

	assert.Equal(t, []uint64{tokenB}, tokens)
}

func TestResolver_Close_DiscardsInFlightResult(t *testing.T) {
	lookup := newGatedLookup(map[string][]*models.WorkflowStep{"A": {step("a1", 1, "")}})
	lookup.honorCancel = true
	called := false

	r := NewResolver(lookup, slog.Default(), func(Resolution) {
		called = true
	})

	r.Select(t.Context(), "A", nil)
	<-lookup.started
	r.Close()

	assert.Equal(t, ResolverIdle, r.Current().Status)
	assert.False(t, called)
}
