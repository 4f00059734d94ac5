// Package artifact stores generated task files beneath a fixed root directory.
//
// Every path is resolved relative to the root and rejected with
// ErrPathTraversal when it would land outside it, including through a
// symlinked directory. Rejected calls never touch the filesystem.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mrz1836/gamesmith/internal/ctxutil"
	gserrors "github.com/mrz1836/gamesmith/internal/errors"
)

// Directory and file permission constants.
const (
	dirPerm  = 0o750
	filePerm = 0o644
)

// Store is the artifact storage contract used by the execution and generation stages.
type Store interface {
	// Write creates or replaces the file at path, creating parent directories.
	Write(ctx context.Context, path string, content []byte) error

	// Read returns the file content. Returns ErrArtifactNotFound if missing.
	Read(ctx context.Context, path string) ([]byte, error)

	// Exists reports whether a file or directory exists at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Delete removes the file at path. Returns ErrArtifactNotFound if missing.
	Delete(ctx context.Context, path string) error

	// Mkdir creates the directory at path and any parents.
	Mkdir(ctx context.Context, path string) error

	// List returns the slash-separated paths of all files under dir, sorted.
	List(ctx context.Context, dir string) ([]string, error)
}

// FSStore implements Store on the local filesystem.
type FSStore struct {
	root   string
	logger zerolog.Logger
}

// NewFSStore creates the root directory if needed and returns a store rooted there.
func NewFSStore(root string, logger zerolog.Logger) (*FSStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("artifact root %w", gserrors.ErrEmptyValue)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve artifact root: %w", err)
	}
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create artifact root: %w", err)
	}
	// Resolve symlinks on the root itself so containment checks compare real paths.
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}
	return &FSStore{
		root:   abs,
		logger: logger.With().Str("component", "artifact_store").Logger(),
	}, nil
}

// Root returns the absolute root directory.
func (s *FSStore) Root() string {
	return s.root
}

// Write creates or replaces a file atomically.
func (s *FSStore) Write(ctx context.Context, path string, content []byte) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	abs, rel, err := s.resolve(path)
	if err != nil {
		return err
	}
	if info, statErr := os.Stat(abs); statErr == nil && info.IsDir() {
		return fmt.Errorf("failed to write %s: %w", rel, gserrors.ErrArtifactIsDir)
	}
	if err := os.MkdirAll(filepath.Dir(abs), dirPerm); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}
	if err := atomicWrite(abs, content); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	s.logger.Debug().Str("path", rel).Int("bytes", len(content)).Msg("artifact written")
	return nil
}

// Read returns the content of a file.
func (s *FSStore) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	abs, rel, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", gserrors.ErrArtifactNotFound, rel)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", rel, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("failed to read %s: %w", rel, gserrors.ErrArtifactIsDir)
	}
	data, err := os.ReadFile(abs) //#nosec G304 -- path is contained in the artifact root
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	return data, nil
}

// Exists reports whether anything exists at path.
func (s *FSStore) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return false, err
	}
	abs, rel, err := s.resolve(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", rel, err)
	}
	return true, nil
}

// Delete removes a single file.
func (s *FSStore) Delete(ctx context.Context, path string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	abs, rel, err := s.resolve(path)
	if err != nil {
		return err
	}
	info, err := os.Lstat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", gserrors.ErrArtifactNotFound, rel)
		}
		return fmt.Errorf("failed to stat %s: %w", rel, err)
	}
	if info.IsDir() {
		return fmt.Errorf("failed to delete %s: %w", rel, gserrors.ErrArtifactIsDir)
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("failed to delete %s: %w", rel, err)
	}
	s.logger.Debug().Str("path", rel).Msg("artifact deleted")
	return nil
}

// Mkdir creates a directory and its parents.
func (s *FSStore) Mkdir(ctx context.Context, path string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	abs, rel, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", rel, err)
	}
	return nil
}

// List walks dir and returns every regular file path relative to the root.
// A missing dir yields an empty list.
func (s *FSStore) List(ctx context.Context, dir string) ([]string, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	abs, rel, err := s.resolve(dir)
	if err != nil {
		return nil, err
	}

	var out []string
	walkErr := filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() || strings.HasSuffix(p, ".tmp") {
			return nil
		}
		r, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(r))
		return nil
	})
	if walkErr != nil {
		if errors.Is(walkErr, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", rel, walkErr)
	}
	sort.Strings(out)
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// resolve maps a caller path to an absolute path inside the root.
// Absolute inputs, ".." escapes and symlinked escapes are rejected.
func (s *FSStore) resolve(path string) (abs, rel string, err error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(path), "\\", "/")
	if normalized == "" {
		return "", "", fmt.Errorf("artifact path %w", gserrors.ErrEmptyValue)
	}
	if strings.HasPrefix(normalized, "/") || filepath.IsAbs(path) || filepath.VolumeName(path) != "" {
		return "", "", fmt.Errorf("%w: %q is absolute", gserrors.ErrPathTraversal, path)
	}

	candidate := filepath.Clean(filepath.Join(s.root, filepath.FromSlash(normalized)))
	r, err := filepath.Rel(s.root, candidate)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", "", fmt.Errorf("%w: %q escapes artifact root", gserrors.ErrPathTraversal, path)
	}

	if err := s.checkSymlinks(candidate); err != nil {
		return "", "", fmt.Errorf("%w: %q", gserrors.ErrPathTraversal, path)
	}
	return candidate, filepath.ToSlash(r), nil
}

// checkSymlinks resolves the deepest existing ancestor of p and confirms it
// still lives under the root.
func (s *FSStore) checkSymlinks(p string) error {
	existing := p
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return nil
		}
		existing = parent
	}
	real, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return err
	}
	r, err := filepath.Rel(s.root, real)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return gserrors.ErrPathTraversal
	}
	return nil
}

// atomicWrite writes data to a file atomically using write-then-rename.
func atomicWrite(path string, data []byte) error {
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm) //#nosec G304 -- path is contained in the artifact root
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

var _ Store = (*FSStore)(nil)
