package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the sdx home directory.
	DefaultDirName = ".sdx"

	// DataDirName is the subdirectory for persisted pipeline data.
	DataDirName = "data"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the sdx home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.sdx).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// DataPath returns the path to the data directory.
func (d *Dir) DataPath() string {
	return filepath.Join(d.path, DataDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, p := range []string{d.DataPath(), d.ArtifactsDir(), d.PostgresDataPath()} {
		if err := os.MkdirAll(p, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", p, err)
		}
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// ArtifactsDir returns the directory holding raw artifact payloads.
// Payloads are written once at upload time and never modified.
func (d *Dir) ArtifactsDir() string {
	return filepath.Join(d.DataPath(), "artifacts")
}

// ArtifactPath returns the payload path for a specific artifact id.
func (d *Dir) ArtifactPath(artifactID string) string {
	return filepath.Join(d.ArtifactsDir(), artifactID)
}

// WriteArtifact persists an artifact payload. Fails if a payload already
// exists for the id: artifacts are write-once.
func (d *Dir) WriteArtifact(artifactID string, payload []byte) error {
	path := d.ArtifactPath(artifactID)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("artifact payload already exists: %s", artifactID)
	}
	if err := os.MkdirAll(d.ArtifactsDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create artifacts directory: %w", err)
	}
	return os.WriteFile(path, payload, 0o644)
}

// ReadArtifact loads an artifact payload by id.
func (d *Dir) ReadArtifact(artifactID string) ([]byte, error) {
	data, err := os.ReadFile(d.ArtifactPath(artifactID))
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact payload %s: %w", artifactID, err)
	}
	return data, nil
}

// PostgresDataPath returns the host path for Postgres data persistence.
func (d *Dir) PostgresDataPath() string {
	return filepath.Join(d.path, "postgres")
}
