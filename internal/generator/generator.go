package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"mime"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/gamesmith/internal/artifact"
	"github.com/mrz1836/gamesmith/internal/clock"
	"github.com/mrz1836/gamesmith/internal/constants"
	"github.com/mrz1836/gamesmith/internal/ctxutil"
	"github.com/mrz1836/gamesmith/internal/domain"
	gserrors "github.com/mrz1836/gamesmith/internal/errors"
	"github.com/mrz1836/gamesmith/internal/events"
)

// Static file names every template is expected to provide.
const (
	styleFile  = "style.css"
	scriptFile = "script.js"
)

// previewFile receives the preview image placeholder.
const previewFile = "preview_image.txt"

// defaultWriteConcurrency bounds parallel artifact writes per deliverable.
const defaultWriteConcurrency = 4

//nolint:gochecknoglobals // compiled once
var titleRe = regexp.MustCompile(`(?is)<title>.*?</title>`)

// Stage is the generation stage of the agent pipeline.
type Stage struct {
	registry     *Registry
	store        artifact.Store
	emit         *events.Emitter
	clock        clock.Clock
	logger       zerolog.Logger
	strict       bool
	previewImage bool
	concurrency  int
}

// Option configures a Stage.
type Option func(*Stage)

// WithStrict makes SelectTemplate fail with ErrNoTemplateForKind instead of falling back.
func WithStrict(strict bool) Option {
	return func(s *Stage) {
		s.strict = strict
	}
}

// WithPreviewImage writes a preview image placeholder for every deliverable.
func WithPreviewImage(enabled bool) Option {
	return func(s *Stage) {
		s.previewImage = enabled
	}
}

// WithClock sets the clock used for deliverable ids and timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *Stage) {
		s.clock = c
	}
}

// WithConcurrency bounds the number of parallel artifact writes.
func WithConcurrency(n int) Option {
	return func(s *Stage) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// New creates a generation stage.
func New(registry *Registry, store artifact.Store, pub events.Publisher, logger zerolog.Logger, opts ...Option) *Stage {
	s := &Stage{
		registry:    registry,
		store:       store,
		clock:       clock.RealClock{},
		logger:      logger.With().Str("component", "generator").Logger(),
		concurrency: defaultWriteConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.emit = events.NewEmitter(pub, s.clock, "Generator")
	return s
}

// Registry returns the template registry backing the stage.
func (s *Stage) Registry() *Registry {
	return s.registry
}

// SelectTemplate returns the first template, in id order, whose id starts with kind.
// Without a match it falls back to the first template, or returns
// ErrNoTemplateForKind in strict mode. It returns nil when no templates exist.
func (s *Stage) SelectTemplate(kind constants.GameKind) (*domain.Template, error) {
	if s.registry == nil {
		return nil, nil //nolint:nilnil // no registry means no template
	}
	list := s.registry.List()
	prefix := strings.ToLower(string(kind))
	for _, t := range list {
		if prefix != "" && strings.HasPrefix(strings.ToLower(t.Manifest.ID), prefix) {
			return t, nil
		}
	}
	if s.strict {
		return nil, fmt.Errorf("%w: %s", gserrors.ErrNoTemplateForKind, kind)
	}
	if len(list) == 0 {
		return nil, nil //nolint:nilnil // an empty registry selects nothing
	}
	s.logger.Warn().
		Str("game_kind", string(kind)).
		Str("template_id", list[0].Manifest.ID).
		Msg("no template matches game kind, using fallback")
	return list[0], nil
}

// pendingFile is a deliverable file queued for writing.
type pendingFile struct {
	name    string
	content string
}

// Generate builds a deliverable for project from the selected template and
// writes it under {taskId}/{deliverableId}/. Writes are best-effort per file:
// a failed write is logged and left out of the result.
// It returns nil without error when no template could be selected.
func (s *Stage) Generate(ctx context.Context, project *domain.Project, kind constants.GameKind, req Requirements, cust Customizations) (*domain.GeneratedDeliverable, error) {
	if project == nil || strings.TrimSpace(project.ID) == "" {
		return nil, fmt.Errorf("project id %w", gserrors.ErrEmptyValue)
	}
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	taskID := project.ID
	log := s.logger.With().Str("task_id", taskID).Str("game_kind", string(kind)).Logger()

	tmpl, err := s.SelectTemplate(kind)
	if err != nil {
		s.emit.Log(taskID, constants.LogError, err.Error(), nil)
		return nil, err
	}
	if tmpl == nil {
		log.Warn().Msg("no templates available, skipping generation")
		s.emit.Log(taskID, constants.LogWarning, "No templates available; skipping game generation.", nil)
		return nil, nil //nolint:nilnil // generation is optional
	}
	if tmpl.Manifest.EntryPoint == "" {
		tmpl.Manifest.EntryPoint = defaultEntryPoint
	}

	now := s.clock.Now().UTC()
	deliverableID := fmt.Sprintf("game-%d", now.UnixMilli())
	base := taskID + "/" + deliverableID
	title := gameTitle(req, kind)

	s.emit.Thinking(taskID, fmt.Sprintf("Generating %s game %q from template %s.", kind, title, tmpl.Manifest.ID))

	files, err := s.buildFiles(taskID, tmpl, kind, title, req, cust)
	if err != nil {
		return nil, err
	}

	artifacts := s.writeFiles(ctx, log, taskID, base, files, now)
	if err := ctxutil.Canceled(ctx); err != nil {
		s.discard(ctx, log, artifacts)
		return nil, err
	}
	for _, a := range artifacts {
		s.emit.Publish(taskID, domain.EventArtifactCreated, a)
	}

	entry := "/" + base + "/" + tmpl.Manifest.EntryPoint
	deliverable := &domain.GeneratedDeliverable{
		TaskID:            taskID,
		DeliverableID:     deliverableID,
		BaseTemplateID:    tmpl.Manifest.ID,
		Artifacts:         artifacts,
		PreviewEntryPoint: entry,
	}

	s.emit.Publish(taskID, domain.EventPreviewUpdated, domain.PreviewUpdatedPayload{URL: entry})
	s.emit.Publish(taskID, domain.EventDeliverableProduced, domain.GameListItem{
		ID:              deliverableID,
		Name:            title,
		Description:     req.Description,
		EntryPoint:      entry,
		GameKind:        kind,
		PreviewImageURL: tmpl.Manifest.PreviewImageURL,
		IsGenerated:     true,
		GeneratedAt:     now,
	})
	s.emit.Log(taskID, constants.LogSuccess,
		fmt.Sprintf("Generated %d files for %s.", len(artifacts), deliverableID), nil)

	log.Info().
		Str("deliverable_id", deliverableID).
		Str("template_id", tmpl.Manifest.ID).
		Int("artifacts", len(artifacts)).
		Msg("deliverable generated")

	return deliverable, nil
}

// buildFiles assembles the deliverable file set in write order.
func (s *Stage) buildFiles(taskID string, tmpl *domain.Template, kind constants.GameKind, title string, req Requirements, cust Customizations) ([]pendingFile, error) {
	entry := tmpl.Manifest.EntryPoint
	htmlContent, ok := tmpl.Files[entry]
	if !ok {
		s.warnMissing(taskID, tmpl.Manifest.ID, entry)
		htmlContent = fmt.Sprintf("<!-- Error: Could not load template HTML for %s -->", tmpl.Manifest.ID)
	}
	htmlContent = titleRe.ReplaceAllLiteralString(htmlContent, "<title>"+html.EscapeString(title)+"</title>")

	css, ok := tmpl.Files[styleFile]
	if !ok {
		s.warnMissing(taskID, tmpl.Manifest.ID, styleFile)
		css = fmt.Sprintf("/* Fallback CSS for %s */", tmpl.Manifest.ID)
	}
	js, ok := tmpl.Files[scriptFile]
	if !ok {
		s.warnMissing(taskID, tmpl.Manifest.ID, scriptFile)
		js = fmt.Sprintf("// Fallback JS for %s", tmpl.Manifest.ID)
	}

	config, err := json.MarshalIndent(gameConfig(kind, title, req), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode game config: %w", err)
	}

	files := []pendingFile{
		{name: entry, content: htmlContent},
		{name: styleFile, content: css},
		{name: scriptFile, content: js},
		{name: ConfigFileName(kind), content: string(config)},
	}

	// Extra template assets are copied unchanged.
	extra := make([]string, 0, len(tmpl.Files))
	for name := range tmpl.Files {
		if name != entry && name != styleFile && name != scriptFile {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		files = append(files, pendingFile{name: name, content: tmpl.Files[name]})
	}

	if cust.PreviewImage || s.previewImage {
		files = append(files, pendingFile{
			name:    previewFile,
			content: "Placeholder for preview image: " + tmpl.Manifest.PreviewImageURL,
		})
	}
	return files, nil
}

func (s *Stage) warnMissing(taskID, templateID, name string) {
	s.logger.Warn().
		Str("task_id", taskID).
		Str("template_id", templateID).
		Str("file", name).
		Msg("template file missing, using placeholder")
	s.emit.Log(taskID, constants.LogWarning,
		fmt.Sprintf("Template %s has no %s; using placeholder content.", templateID, name), nil)
}

// writeFiles writes files concurrently and returns the written artifacts in
// input order. Nothing is published; the caller announces the artifacts once
// the whole deliverable is in place.
func (s *Stage) writeFiles(ctx context.Context, log zerolog.Logger, taskID, base string, files []pendingFile, now time.Time) []domain.Artifact {
	written := make([]*domain.Artifact, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, f := range files {
		g.Go(func() error {
			p := base + "/" + f.name
			if err := s.store.Write(gctx, p, []byte(f.content)); err != nil {
				log.Warn().Err(err).Str("path", p).Msg("failed to write deliverable file")
				s.emit.Log(taskID, constants.LogWarning, fmt.Sprintf("Failed to write %s: %v", p, err), nil)
				return nil
			}
			a := domain.Artifact{
				ID:        artifact.ID(taskID, p),
				TaskID:    taskID,
				Name:      f.name,
				Path:      p,
				Kind:      KindForFile(f.name),
				Content:   f.content,
				Size:      len(f.content),
				MimeType:  MimeType(f.name),
				CreatedAt: now,
				UpdatedAt: now,
			}
			written[i] = &a
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.Artifact, 0, len(files))
	for _, a := range written {
		if a != nil {
			out = append(out, *a)
		}
	}
	return out
}

// discard removes the files of an interrupted deliverable so a partial
// game is never picked up as the latest one.
func (s *Stage) discard(ctx context.Context, log zerolog.Logger, artifacts []domain.Artifact) {
	ctx = context.WithoutCancel(ctx)
	for _, a := range artifacts {
		if err := s.store.Delete(ctx, a.Path); err != nil {
			log.Warn().Err(err).Str("path", a.Path).Msg("failed to remove interrupted deliverable file")
		}
	}
	log.Info().Int("artifacts", len(artifacts)).Msg("generation interrupted, partial deliverable removed")
}

// ConfigFileName returns the JSON config file name for a game kind.
func ConfigFileName(kind constants.GameKind) string {
	return string(kind) + "_config.json"
}

// KindForFile classifies a deliverable file by extension.
func KindForFile(name string) constants.ArtifactKind {
	switch strings.ToLower(path.Ext(name)) {
	case ".html", ".htm", ".js":
		return constants.ArtifactSource
	case ".css":
		return constants.ArtifactStyle
	case ".json", ".yaml", ".yml":
		return constants.ArtifactConfig
	case ".md", ".txt":
		if name == previewFile {
			return constants.ArtifactAsset
		}
		return constants.ArtifactDocument
	default:
		return constants.ArtifactAsset
	}
}

// MimeType returns the content type for a file name, defaulting to text/plain.
func MimeType(name string) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return "text/plain; charset=utf-8"
}
