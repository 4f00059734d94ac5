// Package project persists projects, the external units of work the agent
// operates on.
//
// Three drivers are provided: an in-memory map, a directory of JSON files
// guarded by file locks, and a SQLite database. The agent never talks to a
// Store directly; it mirrors run outcomes through an Updater.
//
// Import rules:
//   - CAN import: internal/domain, internal/constants, internal/errors, internal/flock
//   - MUST NOT import: internal/agent, internal/api, internal/cli
package project

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/gamesmith/internal/constants"
	"github.com/mrz1836/gamesmith/internal/domain"
	gserrors "github.com/mrz1836/gamesmith/internal/errors"
)

// LockTimeout is the maximum duration to wait for a project file lock.
const LockTimeout = 5 * time.Second

// Driver names accepted by Open.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Store defines the interface for project persistence operations.
type Store interface {
	// Create stores a new project. Returns ErrProjectExists if the id is taken.
	Create(ctx context.Context, p *domain.Project) error

	// Get retrieves a project by id.
	// Returns ErrProjectNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Project, error)

	// Put creates or replaces a project and stamps UpdatedAt.
	Put(ctx context.Context, p *domain.Project) error

	// List returns all projects, newest first.
	List(ctx context.Context) ([]*domain.Project, error)

	// Delete removes a project.
	// Returns ErrProjectNotFound if it doesn't exist.
	Delete(ctx context.Context, id string) error

	// Close releases any resources held by the store.
	Close() error
}

// Open creates the store for driver. path is the project directory for the
// file driver and the database file for sqlite; memory ignores it.
func Open(driver, path string, logger zerolog.Logger) (Store, error) {
	switch driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverFile:
		return NewFileStore(path, logger)
	case DriverSQLite:
		return OpenSQLite(path, logger)
	default:
		return nil, fmt.Errorf("%w: %q", gserrors.ErrUnknownStoreDriver, driver)
	}
}

// validateID rejects ids that are empty or could escape a directory.
func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("project id %w", gserrors.ErrEmptyValue)
	}
	if id == "." || strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("project id %q: %w", id, gserrors.ErrPathTraversal)
	}
	return nil
}

// checkProject validates p before it is written.
func checkProject(p *domain.Project) error {
	if p == nil {
		return fmt.Errorf("project %w", gserrors.ErrEmptyValue)
	}
	return validateID(p.ID)
}

// stamp fills the timestamps of p for a write at now.
func stamp(p *domain.Project, now time.Time) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
}

// sortNewest orders projects by creation time, newest first, ids breaking ties.
func sortNewest(projects []*domain.Project) {
	sort.Slice(projects, func(i, j int) bool {
		if !projects[i].CreatedAt.Equal(projects[j].CreatedAt) {
			return projects[i].CreatedAt.After(projects[j].CreatedAt)
		}
		return projects[i].ID < projects[j].ID
	})
}

// Updater applies agent status mirrors to a Store. It serializes the
// read-modify-write so concurrent mirrors of one project do not interleave.
type Updater struct {
	mu    sync.Mutex
	store Store
}

// NewUpdater creates an Updater backed by store.
func NewUpdater(store Store) *Updater {
	return &Updater{store: store}
}

// UpdateProject copies the run status, stage and progress onto the stored project.
func (u *Updater) UpdateProject(ctx context.Context, projectID string, update domain.ProjectUpdate) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	p, err := u.store.Get(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to update project '%s': %w", projectID, err)
	}
	p.Status = update.Status
	p.CurrentStage = update.CurrentStage
	p.ProgressPercent = update.ProgressPercent
	if update.Status == constants.ProjectStatusCompleted {
		p.ProgressPercent = constants.ProgressComplete
	}
	return u.store.Put(ctx, p)
}
