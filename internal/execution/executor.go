package execution

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mrz1836/gamesmith/internal/constants"
	"github.com/mrz1836/gamesmith/internal/domain"
	gserrors "github.com/mrz1836/gamesmith/internal/errors"
)

// StepExecutor executes a single step type.
//
// Execute implementations must:
//   - Check ctx before touching storage
//   - Return an error for a failed step; the plan aborts on the first failure
type StepExecutor interface {
	// Execute runs the step of plan. The plan's task id scopes every artifact path.
	Execute(ctx context.Context, plan *domain.WorkPlan, step *domain.WorkPlanStep) error

	// Type returns the StepType this executor handles.
	Type() constants.StepType
}

// ExecutorRegistry maps step types to their executors.
// It is safe for concurrent read access after initialization.
type ExecutorRegistry struct {
	mu        sync.RWMutex
	executors map[constants.StepType]StepExecutor
}

// NewExecutorRegistry creates a new empty executor registry.
func NewExecutorRegistry() *ExecutorRegistry {
	return &ExecutorRegistry{
		executors: make(map[constants.StepType]StepExecutor),
	}
}

// Register adds an executor to the registry.
// If an executor for the same type already exists, it will be replaced.
func (r *ExecutorRegistry) Register(e StepExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[e.Type()] = e
}

// Get retrieves the executor for a step type.
// Returns ErrExecutorNotFound if no executor is registered for the type.
func (r *ExecutorRegistry) Get(stepType constants.StepType) (StepExecutor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.executors[stepType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", gserrors.ErrExecutorNotFound, stepType)
	}
	return e, nil
}

// Has checks if an executor is registered for the given step type.
func (r *ExecutorRegistry) Has(stepType constants.StepType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.executors[stepType]
	return ok
}

// Types returns all registered step types, sorted.
func (r *ExecutorRegistry) Types() []constants.StepType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]constants.StepType, 0, len(r.executors))
	for t := range r.executors {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
