package execution

import (
	"context"
	"path"

	"github.com/mrz1836/gamesmith/internal/artifact"
	"github.com/mrz1836/gamesmith/internal/constants"
	"github.com/mrz1836/gamesmith/internal/domain"
	gserrors "github.com/mrz1836/gamesmith/internal/errors"
	"github.com/mrz1836/gamesmith/internal/generator"
)

// CreateFile writes content at p and returns the new artifact.
// It publishes an action and artifact_created, or a failure action on error.
func (s *Stage) CreateFile(ctx context.Context, taskID, p, content string, kind constants.ArtifactKind) (domain.Artifact, error) {
	if err := s.store.Write(ctx, p, []byte(content)); err != nil {
		s.fail(taskID, constants.ActionCreateFile, "Failed to create file", p, err)
		return domain.Artifact{}, gserrors.Wrapf(err, "failed to create %s", p)
	}

	now := s.clock.Now().UTC()
	a := domain.Artifact{
		ID:        artifact.ID(taskID, p),
		TaskID:    taskID,
		Name:      path.Base(p),
		Path:      p,
		Kind:      kind,
		Content:   content,
		Size:      len(content),
		MimeType:  generator.MimeType(p),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.emit.Action(taskID, constants.ActionCreateFile, "Created file", p, map[string]any{"size": a.Size})
	s.emit.Publish(taskID, domain.EventArtifactCreated, a)
	s.logger.Debug().Str("task_id", taskID).Str("path", p).Msg("file created")
	return a, nil
}

// ModifyFile replaces the content of an existing file at p.
// It fails with ErrArtifactNotFound when the file does not exist.
func (s *Stage) ModifyFile(ctx context.Context, taskID, p, content string) (domain.Artifact, error) {
	exists, err := s.store.Exists(ctx, p)
	if err == nil && !exists {
		err = gserrors.ErrArtifactNotFound
	}
	if err == nil {
		err = s.store.Write(ctx, p, []byte(content))
	}
	if err != nil {
		s.fail(taskID, constants.ActionModifyFile, "Failed to modify file", p, err)
		return domain.Artifact{}, gserrors.Wrapf(err, "failed to modify %s", p)
	}

	now := s.clock.Now().UTC()
	a := domain.Artifact{
		ID:        artifact.ID(taskID, p),
		TaskID:    taskID,
		Name:      path.Base(p),
		Path:      p,
		Kind:      generator.KindForFile(p),
		Content:   content,
		Size:      len(content),
		MimeType:  generator.MimeType(p),
		UpdatedAt: now,
	}
	s.emit.Action(taskID, constants.ActionModifyFile, "Modified file", p, map[string]any{"size": a.Size})
	s.emit.Publish(taskID, domain.EventArtifactUpdated, domain.ArtifactUpdatedPayload{
		ArtifactID: a.ID,
		Path:       p,
		Changes:    map[string]any{"size": a.Size},
	})
	s.logger.Debug().Str("task_id", taskID).Str("path", p).Msg("file modified")
	return a, nil
}

// DeleteFile removes the file at p.
// It fails with ErrArtifactNotFound when the file does not exist.
func (s *Stage) DeleteFile(ctx context.Context, taskID, p string) (bool, error) {
	if err := s.store.Delete(ctx, p); err != nil {
		s.fail(taskID, constants.ActionDeleteFile, "Failed to delete file", p, err)
		return false, gserrors.Wrapf(err, "failed to delete %s", p)
	}

	s.emit.Action(taskID, constants.ActionDeleteFile, "Deleted file", p, nil)
	s.emit.Publish(taskID, domain.EventArtifactDeleted, domain.ArtifactDeletedPayload{ArtifactID: artifact.ID(taskID, p), Path: p})
	s.logger.Debug().Str("task_id", taskID).Str("path", p).Msg("file deleted")
	return true, nil
}

// fail publishes the failure action and error log of a file operation.
func (s *Stage) fail(taskID string, kind constants.ActionKind, description, target string, err error) {
	s.emit.Action(taskID, kind, description, target, map[string]any{"error": err.Error()})
	s.emit.Log(taskID, constants.LogError, description+" "+target+": "+gserrors.UserMessage(err), nil)
}
