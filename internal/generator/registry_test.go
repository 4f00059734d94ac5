package generator

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/gamesmith/internal/domain"
	gserrors "github.com/mrz1836/gamesmith/internal/errors"
)

func tmpl(id string, files map[string]string) *domain.Template {
	return &domain.Template{
		Manifest: domain.TemplateManifest{ID: id, Name: id, EntryPoint: "index.html"},
		Files:    files,
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(tmpl("quiz-basic", map[string]string{"index.html": "<html></html>"})))

	got, err := r.Get("quiz-basic")
	require.NoError(t, err)
	assert.Equal(t, "quiz-basic", got.Manifest.ID)

	// Returned templates are clones.
	got.Files["index.html"] = "mutated"
	again, err := r.Get("quiz-basic")
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", again.Files["index.html"])
}

func TestRegistry_Errors(t *testing.T) {
	r := NewRegistry()

	require.ErrorIs(t, r.Register(nil), gserrors.ErrTemplateNil)
	require.ErrorIs(t, r.Register(tmpl("  ", nil)), gserrors.ErrTemplateInvalid)

	require.NoError(t, r.Register(tmpl("a", nil)))
	require.ErrorIs(t, r.Register(tmpl("a", nil)), gserrors.ErrTemplateDuplicate)

	_, err := r.Get("missing")
	require.ErrorIs(t, err, gserrors.ErrTemplateNotFound)
}

func TestRegistry_RegisterOrReplace(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(tmpl("a", map[string]string{"style.css": "old"})))
	require.NoError(t, r.RegisterOrReplace(tmpl("a", map[string]string{"style.css": "new"})))

	got, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Files["style.css"])
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_ListSortedByID(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"sorting-basic", "matching-basic", "quiz-basic"} {
		require.NoError(t, r.Register(tmpl(id, nil)))
	}

	var ids []string
	for _, m := range r.Manifests() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"matching-basic", "quiz-basic", "sorting-basic"}, ids)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = r.RegisterOrReplace(tmpl("t", map[string]string{"n": string(rune('a' + i))}))
		}()
		go func() {
			defer wg.Done()
			_ = r.List()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, r.Len())
}

func TestDefaultTemplates(t *testing.T) {
	templates, err := DefaultTemplates()
	require.NoError(t, err)
	require.Len(t, templates, 3)

	for _, tm := range templates {
		assert.NotEmpty(t, tm.Manifest.Name)
		assert.Equal(t, "index.html", tm.Manifest.EntryPoint)
		for _, name := range []string{"index.html", "style.css", "script.js"} {
			assert.Contains(t, tm.Files, name, "%s missing %s", tm.Manifest.ID, name)
		}
		assert.NotContains(t, tm.Files, "manifest.yaml")
	}
	assert.Equal(t, "matching-basic", templates[0].Manifest.ID)
	assert.Contains(t, templates[1].Files["script.js"], "quiz_config.json")
}

func TestLoadFS(t *testing.T) {
	t.Run("skips directories without manifest", func(t *testing.T) {
		fsys := fstest.MapFS{
			"a/manifest.yaml": {Data: []byte("id: memory-cards\nname: Memory\n")},
			"a/index.html":    {Data: []byte("<html></html>")},
			"b/readme.md":     {Data: []byte("not a template")},
		}
		list, err := LoadFS(fsys, ".")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "memory-cards", list[0].Manifest.ID)
		assert.Equal(t, defaultEntryPoint, list[0].Manifest.EntryPoint)
		assert.Equal(t, "<html></html>", list[0].Files["index.html"])
	})

	t.Run("missing id", func(t *testing.T) {
		fsys := fstest.MapFS{"a/manifest.yaml": {Data: []byte("name: nameless\n")}}
		_, err := LoadFS(fsys, ".")
		require.ErrorIs(t, err, gserrors.ErrTemplateInvalid)
	})

	t.Run("bad yaml", func(t *testing.T) {
		fsys := fstest.MapFS{"a/manifest.yaml": {Data: []byte("id: [unclosed\n")}}
		_, err := LoadFS(fsys, ".")
		require.ErrorIs(t, err, gserrors.ErrTemplateInvalid)
	})

	t.Run("entry point must be a file name", func(t *testing.T) {
		fsys := fstest.MapFS{"a/manifest.yaml": {Data: []byte("id: x\nentry_point: ../index.html\n")}}
		_, err := LoadFS(fsys, ".")
		require.ErrorIs(t, err, gserrors.ErrTemplateInvalid)
	})

	t.Run("missing root", func(t *testing.T) {
		_, err := LoadFS(fstest.MapFS{}, "nope")
		require.ErrorIs(t, err, gserrors.ErrTemplateLoadFailed)
	})
}

func TestNewDefaultRegistry_OverridesFromDir(t *testing.T) {
	dir := t.TempDir()
	custom := filepath.Join(dir, "quiz-basic")
	require.NoError(t, os.MkdirAll(custom, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(custom, "manifest.yaml"),
		[]byte("id: quiz-basic\nname: Custom Quiz\n"), 0o600))

	extra := filepath.Join(dir, "puzzle-slide")
	require.NoError(t, os.MkdirAll(extra, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(extra, "manifest.yaml"),
		[]byte("id: puzzle-slide\nname: Slide Puzzle\n"), 0o600))

	r, err := NewDefaultRegistry(dir)
	require.NoError(t, err)
	assert.Equal(t, 4, r.Len())

	got, err := r.Get("quiz-basic")
	require.NoError(t, err)
	assert.Equal(t, "Custom Quiz", got.Manifest.Name)
}

func TestNewDefaultRegistry_MissingDir(t *testing.T) {
	_, err := NewDefaultRegistry(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, gserrors.ErrTemplateLoadFailed)
}
