package project

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/mrz1836/gamesmith/internal/constants"
	"github.com/mrz1836/gamesmith/internal/domain"
	gserrors "github.com/mrz1836/gamesmith/internal/errors"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	game_kind TEXT NOT NULL DEFAULT '',
	owner_id TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	current_stage TEXT NOT NULL DEFAULT '',
	progress_percent INTEGER NOT NULL DEFAULT 0,
	tags TEXT NOT NULL DEFAULT '[]',
	version TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_projects_created ON projects(created_at);
`

const projectColumns = `id, name, description, game_kind, owner_id, status, current_stage,
	progress_percent, tags, version, created_at, updated_at`

// SQLiteStore implements Store on a SQLite database in WAL mode.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func OpenSQLite(path string, logger zerolog.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path %w", gserrors.ErrEmptyValue)
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger.With().Str("component", "project_store").Str("driver", DriverSQLite).Logger(),
	}
	s.logger.Debug().Str("path", path).Msg("project database opened")
	return s, nil
}

// Create implements Store.
func (s *SQLiteStore) Create(ctx context.Context, p *domain.Project) error {
	if err := checkProject(p); err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	stamp(p, time.Now().UTC())

	args, err := projectArgs(p)
	if err != nil {
		return fmt.Errorf("failed to create project '%s': %w", p.ID, err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`, args...)
	if err != nil {
		return fmt.Errorf("failed to create project '%s': %w", p.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to create project '%s': %w", p.ID, gserrors.ErrProjectExists)
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*domain.Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get project '%s': %w", id, gserrors.ErrProjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project '%s': %w", id, err)
	}
	return p, nil
}

// Put implements Store. An existing row keeps its created_at.
func (s *SQLiteStore) Put(ctx context.Context, p *domain.Project) error {
	if err := checkProject(p); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	stamp(p, time.Now().UTC())

	args, err := projectArgs(p)
	if err != nil {
		return fmt.Errorf("failed to save project '%s': %w", p.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			game_kind = excluded.game_kind,
			owner_id = excluded.owner_id,
			status = excluded.status,
			current_stage = excluded.current_stage,
			progress_percent = excluded.progress_percent,
			tags = excluded.tags,
			version = excluded.version,
			updated_at = excluded.updated_at`, args...)
	if err != nil {
		return fmt.Errorf("failed to save project '%s': %w", p.ID, err)
	}
	return nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context) ([]*domain.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	projects := []*domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to list projects: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project '%s': %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to delete project '%s': %w", id, gserrors.ErrProjectNotFound)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func projectArgs(p *domain.Project) ([]any, error) {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	rawTags, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}
	return []any{
		p.ID, p.Name, p.Description, string(p.GameKind), p.OwnerID, string(p.Status), string(p.CurrentStage),
		p.ProgressPercent, string(rawTags), p.Version, p.CreatedAt.UnixMilli(), p.UpdatedAt.UnixMilli(),
	}, nil
}

func scanProject(row rowScanner) (*domain.Project, error) {
	var (
		p                    domain.Project
		kind, status, stage  string
		rawTags              string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &kind, &p.OwnerID, &status, &stage,
		&p.ProgressPercent, &rawTags, &p.Version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.GameKind = constants.GameKind(kind)
	p.Status = constants.ProjectStatus(status)
	p.CurrentStage = constants.DevelopmentStage(stage)
	if err := json.Unmarshal([]byte(rawTags), &p.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags of '%s': %w", p.ID, err)
	}
	if len(p.Tags) == 0 {
		p.Tags = nil
	}
	p.CreatedAt = time.UnixMilli(createdAt).UTC()
	p.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &p, nil
}
