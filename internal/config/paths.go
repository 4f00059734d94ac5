package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mrz1836/gamesmith/internal/constants"
	"github.com/mrz1836/gamesmith/internal/errors"
)

// sqliteFileName is the default database file for the sqlite store driver.
const sqliteFileName = "gamesmith.db"

// GlobalConfigDir returns the path to the global gamesmith directory.
// GAMESMITH_HOME wins when set; otherwise this is ~/.gamesmith.
//
// Returns an error if the home directory cannot be determined.
func GlobalConfigDir() (string, error) {
	if dir := os.Getenv(constants.HomeEnvVar); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, constants.AppHome), nil
}

// GlobalConfigPath returns the full path to the global configuration file.
func GlobalConfigPath() (string, error) {
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", fmt.Errorf("get global config path: %w", err)
	}
	return filepath.Join(dir, constants.GlobalConfigName), nil
}

// ProjectConfigPath returns the relative path to the project configuration file.
// This is always .gamesmith/config.yaml relative to the working directory.
func ProjectConfigPath() string {
	return filepath.Join(constants.ProjectConfigDir, constants.GlobalConfigName)
}

// ArtifactRoot returns the configured artifact root or ~/.gamesmith/artifacts.
func (c *Config) ArtifactRoot() (string, error) {
	if c.Artifacts.Root != "" {
		return c.Artifacts.Root, nil
	}
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.ArtifactsDir), nil
}

// StorePath returns the configured store path or the driver default under ~/.gamesmith.
// The memory driver has no path.
func (c *Config) StorePath() (string, error) {
	if c.Store.Path != "" || c.Store.Driver == StoreMemory {
		return c.Store.Path, nil
	}
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", err
	}
	if c.Store.Driver == StoreSQLite {
		return filepath.Join(dir, sqliteFileName), nil
	}
	return filepath.Join(dir, constants.ProjectsDir), nil
}
