package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/gamesmith/internal/constants"
	"github.com/mrz1836/gamesmith/internal/domain"
	gserrors "github.com/mrz1836/gamesmith/internal/errors"
	"github.com/mrz1836/gamesmith/internal/flock"
)

// Directory and file permission constants.
const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// lockFileName is the per-project lock file.
const lockFileName = "project.lock"

// FileStore implements Store with one directory per project:
//
//	<root>/<id>/project.json
//	<root>/<id>/project.lock
//
// Writes go through a temp file and a rename, under an exclusive file lock.
type FileStore struct {
	root   string
	logger zerolog.Logger
}

// NewFileStore creates a FileStore rooted at root, creating the directory.
func NewFileStore(root string, logger zerolog.Logger) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("project store root %w", gserrors.ErrEmptyValue)
	}
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create project store directory: %w", err)
	}
	return &FileStore{
		root:   root,
		logger: logger.With().Str("component", "project_store").Str("driver", DriverFile).Logger(),
	}, nil
}

// Create implements Store.
func (s *FileStore) Create(ctx context.Context, p *domain.Project) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkProject(p); err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	dir := s.projectDir(p.ID)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("failed to create project '%s': %w", p.ID, gserrors.ErrProjectExists)
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}

	lock, err := flock.Acquire(ctx, s.lockPath(p.ID), LockTimeout)
	if err != nil {
		_ = os.RemoveAll(dir)
		return fmt.Errorf("failed to create project '%s': %w", p.ID, err)
	}
	defer func() { _ = flock.Release(lock) }()

	stamp(p, time.Now().UTC())
	if err := s.write(p); err != nil {
		_ = os.RemoveAll(dir)
		return fmt.Errorf("failed to create project '%s': %w", p.ID, err)
	}
	return nil
}

// Get implements Store.
func (s *FileStore) Get(ctx context.Context, id string) (*domain.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if _, err := os.Stat(s.projectDir(id)); os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to get project '%s': %w", id, gserrors.ErrProjectNotFound)
	}

	lock, err := flock.Acquire(ctx, s.lockPath(id), LockTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to get project '%s': %w", id, err)
	}
	defer func() { _ = flock.Release(lock) }()

	return s.read(id)
}

// Put implements Store.
func (s *FileStore) Put(ctx context.Context, p *domain.Project) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkProject(p); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	if err := os.MkdirAll(s.projectDir(p.ID), dirPerm); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}

	lock, err := flock.Acquire(ctx, s.lockPath(p.ID), LockTimeout)
	if err != nil {
		return fmt.Errorf("failed to save project '%s': %w", p.ID, err)
	}
	defer func() { _ = flock.Release(lock) }()

	if p.CreatedAt.IsZero() {
		if old, err := s.read(p.ID); err == nil {
			p.CreatedAt = old.CreatedAt
		}
	}
	stamp(p, time.Now().UTC())
	if err := s.write(p); err != nil {
		return fmt.Errorf("failed to save project '%s': %w", p.ID, err)
	}
	return nil
}

// List implements Store. Directories without a readable project file are skipped.
func (s *FileStore) List(ctx context.Context) ([]*domain.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*domain.Project{}, nil
		}
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	projects := make([]*domain.Project, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := s.Get(ctx, entry.Name())
		if err != nil {
			s.logger.Warn().Err(err).Str("project_id", entry.Name()).Msg("skipping unreadable project")
			continue
		}
		projects = append(projects, p)
	}

	sortNewest(projects)
	return projects, nil
}

// Delete implements Store.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	dir := s.projectDir(id)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("failed to delete project '%s': %w", id, gserrors.ErrProjectNotFound)
	}

	lock, err := flock.Acquire(ctx, s.lockPath(id), LockTimeout)
	if err != nil {
		return fmt.Errorf("failed to delete project '%s': %w", id, err)
	}
	// The lock file lives inside the directory being removed.
	_ = flock.Release(lock)

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete project '%s': %w", id, err)
	}
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) projectDir(id string) string {
	return filepath.Join(s.root, id)
}

func (s *FileStore) projectPath(id string) string {
	return filepath.Join(s.root, id, constants.ProjectFileName)
}

func (s *FileStore) lockPath(id string) string {
	return filepath.Join(s.root, id, lockFileName)
}

// read loads a project file. The caller holds the lock.
func (s *FileStore) read(id string) (*domain.Project, error) {
	data, err := os.ReadFile(s.projectPath(id)) //#nosec G304 -- id is validated and the path is built from the store root
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to get project '%s': %w", id, gserrors.ErrProjectNotFound)
		}
		return nil, fmt.Errorf("failed to read project '%s': %w", id, err)
	}

	var p domain.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse project '%s': corrupted project file: %w", id, err)
	}
	return &p, nil
}

// write saves a project file atomically. The caller holds the lock.
func (s *FileStore) write(p *domain.Project) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal project: %w", err)
	}
	return atomicWrite(s.projectPath(p.ID), data)
}

// atomicWrite writes data to a temp file next to path and renames it into place.
func atomicWrite(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, filePerm); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
