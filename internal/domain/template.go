package domain

import "slices"

// TemplateManifest describes a pre-built game template on disk.
type TemplateManifest struct {
	ID              string   `json:"id" yaml:"id"`
	Name            string   `json:"name" yaml:"name"`
	Description     string   `json:"description" yaml:"description"`
	Version         string   `json:"version" yaml:"version"`
	PreviewImageURL string   `json:"preview_image_url,omitempty" yaml:"preview_image_url,omitempty"`
	EntryPoint      string   `json:"entry_point" yaml:"entry_point"`
	Tags            []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Author          string   `json:"author,omitempty" yaml:"author,omitempty"`
}

// Template is a loaded template: its manifest plus static file contents keyed by file name.
// A file missing on disk is absent from Files.
type Template struct {
	Manifest TemplateManifest  `json:"manifest"`
	Files    map[string]string `json:"-"`
}

// Clone creates a deep copy of the template.
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	c := &Template{Manifest: t.Manifest}
	c.Manifest.Tags = slices.Clone(t.Manifest.Tags)
	if t.Files != nil {
		c.Files = make(map[string]string, len(t.Files))
		for k, v := range t.Files {
			c.Files[k] = v
		}
	}
	return c
}
