package generator

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/gamesmith/internal/constants"
	"github.com/mrz1836/gamesmith/internal/domain"
	gserrors "github.com/mrz1836/gamesmith/internal/errors"
)

// defaultEntryPoint is used when a manifest omits entry_point.
const defaultEntryPoint = "index.html"

//go:embed templates
var embeddedTemplates embed.FS

// LoadFS loads every template directory directly under root in fsys.
// A template directory holds a manifest.yaml plus its static files.
// Directories without a manifest are skipped. Results are sorted by id.
func LoadFS(fsys fs.FS, root string) ([]*domain.Template, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", gserrors.ErrTemplateLoadFailed, err)
	}

	var loaded []*domain.Template
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := path.Join(root, entry.Name())
		tmpl, err := loadTemplate(fsys, dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, tmpl)
	}

	sort.Slice(loaded, func(i, j int) bool {
		return loaded[i].Manifest.ID < loaded[j].Manifest.ID
	})
	return loaded, nil
}

// LoadDir loads templates from a directory on disk.
func LoadDir(dir string) ([]*domain.Template, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("templates dir %w", gserrors.ErrEmptyValue)
	}
	return LoadFS(os.DirFS(dir), ".")
}

// DefaultTemplates returns the templates embedded in the binary.
func DefaultTemplates() ([]*domain.Template, error) {
	return LoadFS(embeddedTemplates, "templates")
}

// NewDefaultRegistry returns a registry holding the embedded templates,
// overridden by any templates found in extraDir when it is set.
func NewDefaultRegistry(extraDir string) (*Registry, error) {
	r := NewRegistry()

	defaults, err := DefaultTemplates()
	if err != nil {
		return nil, err
	}
	for _, t := range defaults {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}

	if strings.TrimSpace(extraDir) == "" {
		return r, nil
	}
	custom, err := LoadDir(extraDir)
	if err != nil {
		return nil, gserrors.Wrapf(err, "failed to load templates from %s", extraDir)
	}
	for _, t := range custom {
		if err := r.RegisterOrReplace(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// loadTemplate reads dir/manifest.yaml and every regular file beside it.
// It returns an error wrapping fs.ErrNotExist when the manifest is missing.
func loadTemplate(fsys fs.FS, dir string) (*domain.Template, error) {
	data, err := fs.ReadFile(fsys, path.Join(dir, constants.TemplateManifestName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", gserrors.ErrTemplateLoadFailed, err)
	}

	var manifest domain.TemplateManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", gserrors.ErrTemplateInvalid, dir, err)
	}
	if err := validateManifest(&manifest); err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", gserrors.ErrTemplateLoadFailed, err)
	}
	files := make(map[string]string, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || entry.Name() == constants.TemplateManifestName {
			continue
		}
		content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", gserrors.ErrTemplateLoadFailed, err)
		}
		files[entry.Name()] = string(content)
	}

	return &domain.Template{Manifest: manifest, Files: files}, nil
}

// validateManifest checks required fields and fills defaults.
func validateManifest(m *domain.TemplateManifest) error {
	m.ID = strings.TrimSpace(m.ID)
	if m.ID == "" {
		return fmt.Errorf("%w: id is required", gserrors.ErrTemplateInvalid)
	}
	if strings.TrimSpace(m.Name) == "" {
		m.Name = m.ID
	}
	if m.EntryPoint == "" {
		m.EntryPoint = defaultEntryPoint
	}
	if strings.Contains(m.EntryPoint, "/") || strings.Contains(m.EntryPoint, "\\") || m.EntryPoint == ".." {
		return fmt.Errorf("%w: entry_point %q must be a file name", gserrors.ErrTemplateInvalid, m.EntryPoint)
	}
	return nil
}
