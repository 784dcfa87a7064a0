package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/pluqqy/editbridge/pkg/models"
)

const (
	ProjectDir     = ".editbridge"
	SettingsFile   = "settings.yaml"
	ResourcesDir   = "resources"
	SessionsDir    = "sessions"
	TranscriptsDir = "transcripts"
)

// SettingsPath is where the project's settings file lives
func SettingsPath() string {
	return filepath.Join(ProjectDir, SettingsFile)
}

// InitProjectStructure creates the project directory and a default settings file
func InitProjectStructure() error {
	dirs := []string{
		ProjectDir,
		filepath.Join(ProjectDir, ResourcesDir),
		filepath.Join(ProjectDir, SessionsDir),
		filepath.Join(ProjectDir, TranscriptsDir),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if _, err := os.Stat(SettingsPath()); err == nil {
		return nil
	}

	settings := models.DefaultSettings()
	settings.Resources.WorkRoot = filepath.Join(ProjectDir, SessionsDir)
	settings.Resources.SourceDir = filepath.Join(ProjectDir, ResourcesDir)
	return WriteSettings(SettingsPath(), settings)
}

// ReadSettings loads settings from path, returning defaults when the file is missing.
// Keys absent from the file keep their default values.
func ReadSettings(path string) (*models.Settings, error) {
	settings := models.DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings YAML %s: %w", path, err)
	}

	switch settings.Bridge.BulkMode {
	case models.BulkSubmitted, models.BulkSequenced:
	case "":
		settings.Bridge.BulkMode = models.BulkSubmitted
	default:
		return nil, fmt.Errorf("invalid bulk_mode %q in %s", settings.Bridge.BulkMode, path)
	}
	if settings.Bridge.RootDivID == "" {
		settings.Bridge.RootDivID = models.RootDivID
	}

	return settings, nil
}

// WriteSettings writes settings to path atomically
func WriteSettings(path string, settings *models.Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings to YAML: %w", err)
	}

	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to save settings: %w", err)
	}

	return nil
}
