// Package registry owns the task controllers of a running server: one
// controller per task id, created on first use.
package registry

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mrz1836/gamesmith/internal/agent"
	"github.com/mrz1836/gamesmith/internal/domain"
)

// Factory builds the controller for a project seen for the first time.
type Factory func(project *domain.Project) *agent.Controller

// Registry maps task ids to controllers.
type Registry struct {
	mu          sync.Mutex
	controllers map[string]*agent.Controller
	factory     Factory
	logger      zerolog.Logger
}

// New creates an empty registry.
func New(factory Factory, logger zerolog.Logger) *Registry {
	return &Registry{
		controllers: make(map[string]*agent.Controller),
		factory:     factory,
		logger:      logger.With().Str("component", "registry").Logger(),
	}
}

// GetOrCreate returns the controller for project.ID, creating it on first use.
// An existing controller gets the fresh project context for its next run.
func (r *Registry) GetOrCreate(project *domain.Project) *agent.Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.controllers[project.ID]; ok {
		c.SetProject(project)
		return c
	}
	c := r.factory(project)
	r.controllers[project.ID] = c
	r.logger.Debug().Str("task_id", project.ID).Msg("controller created")
	return c
}

// Get returns the controller for taskID if one exists.
func (r *Registry) Get(taskID string) (*agent.Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.controllers[taskID]
	return c, ok
}

// Remove stops and forgets the controller for taskID.
func (r *Registry) Remove(taskID string) bool {
	r.mu.Lock()
	c, ok := r.controllers[taskID]
	delete(r.controllers, taskID)
	r.mu.Unlock()

	if ok {
		c.Stop()
	}
	return ok
}

// IDs returns the registered task ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.controllers))
	for id := range r.controllers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of controllers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}

// Shutdown stops every controller and waits for their run goroutines.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	all := make([]*agent.Controller, 0, len(r.controllers))
	for _, c := range r.controllers {
		all = append(all, c)
	}
	r.mu.Unlock()

	for _, c := range all {
		c.Stop()
	}
	for _, c := range all {
		c.Wait()
	}
	r.logger.Info().Int("controllers", len(all)).Msg("registry shut down")
}
