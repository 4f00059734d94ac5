package project

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mrz1836/gamesmith/internal/domain"
	gserrors "github.com/mrz1836/gamesmith/internal/errors"
)

// MemoryStore keeps projects in a map. Values are cloned on the way in and out.
type MemoryStore struct {
	mu       sync.RWMutex
	projects map[string]*domain.Project
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{projects: make(map[string]*domain.Project)}
}

// Create implements Store.
func (s *MemoryStore) Create(ctx context.Context, p *domain.Project) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkProject(p); err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; ok {
		return fmt.Errorf("failed to create project '%s': %w", p.ID, gserrors.ErrProjectExists)
	}
	stamp(p, time.Now().UTC())
	s.projects[p.ID] = p.Clone()
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("failed to get project '%s': %w", id, gserrors.ErrProjectNotFound)
	}
	return p.Clone(), nil
}

// Put implements Store.
func (s *MemoryStore) Put(ctx context.Context, p *domain.Project) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkProject(p); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.projects[p.ID]; ok && p.CreatedAt.IsZero() {
		p.CreatedAt = old.CreatedAt
	}
	stamp(p, time.Now().UTC())
	s.projects[p.ID] = p.Clone()
	return nil
}

// List implements Store.
func (s *MemoryStore) List(ctx context.Context) ([]*domain.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]*domain.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p.Clone())
	}
	s.mu.RUnlock()

	sortNewest(out)
	return out, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return fmt.Errorf("failed to delete project '%s': %w", id, gserrors.ErrProjectNotFound)
	}
	delete(s.projects, id)
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
