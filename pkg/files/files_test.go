package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pluqqy/editbridge/pkg/models"
)

func TestInitProjectStructure(t *testing.T) {
	tempDir := t.TempDir()
	oldWd, _ := os.Getwd()
	defer os.Chdir(oldWd)
	os.Chdir(tempDir)

	err := InitProjectStructure()
	if err != nil {
		t.Fatalf("InitProjectStructure failed: %v", err)
	}

	expectedDirs := []string{
		ProjectDir,
		filepath.Join(ProjectDir, ResourcesDir),
		filepath.Join(ProjectDir, SessionsDir),
		filepath.Join(ProjectDir, TranscriptsDir),
	}

	for _, dir := range expectedDirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			t.Errorf("Expected directory %s does not exist", dir)
		}
	}

	settings, err := ReadSettings(SettingsPath())
	if err != nil {
		t.Fatalf("ReadSettings failed: %v", err)
	}
	if settings.Resources.SourceDir != filepath.Join(ProjectDir, ResourcesDir) {
		t.Errorf("Expected source dir under the project, got %q", settings.Resources.SourceDir)
	}

	// A second run keeps edited settings
	settings.Document.Placeholder = "kept"
	if err := WriteSettings(SettingsPath(), settings); err != nil {
		t.Fatalf("WriteSettings failed: %v", err)
	}
	if err := InitProjectStructure(); err != nil {
		t.Fatalf("InitProjectStructure failed: %v", err)
	}
	settings, err = ReadSettings(SettingsPath())
	if err != nil {
		t.Fatalf("ReadSettings failed: %v", err)
	}
	if settings.Document.Placeholder != "kept" {
		t.Errorf("Expected existing settings to survive, got placeholder %q", settings.Document.Placeholder)
	}
}

func TestReadWriteSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", SettingsFile)

	settings := models.DefaultSettings()
	settings.Bridge.BulkMode = models.BulkSequenced
	settings.Bridge.CommandTimeout = 2 * time.Second
	settings.Document.InitialHTML = "<p>hello</p>"
	settings.Resources.UserScript = "user.js"

	if err := WriteSettings(path, settings); err != nil {
		t.Fatalf("WriteSettings failed: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("Expected temporary file to be renamed away")
	}

	got, err := ReadSettings(path)
	if err != nil {
		t.Fatalf("ReadSettings failed: %v", err)
	}
	if got.Bridge.BulkMode != models.BulkSequenced {
		t.Errorf("Expected bulk mode %q, got %q", models.BulkSequenced, got.Bridge.BulkMode)
	}
	if got.Bridge.CommandTimeout != 2*time.Second {
		t.Errorf("Expected timeout 2s, got %v", got.Bridge.CommandTimeout)
	}
	if got.Document.InitialHTML != "<p>hello</p>" {
		t.Errorf("Expected initial html to round trip, got %q", got.Document.InitialHTML)
	}
	if got.Resources.UserScript != "user.js" {
		t.Errorf("Expected user script to round trip, got %q", got.Resources.UserScript)
	}
}

func TestReadSettingsDefaults(t *testing.T) {
	dir := t.TempDir()

	settings, err := ReadSettings(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("Missing file should give defaults, got %v", err)
	}
	if settings.Bridge.RootDivID != models.RootDivID {
		t.Errorf("Expected root div %q, got %q", models.RootDivID, settings.Bridge.RootDivID)
	}

	partial := filepath.Join(dir, "partial.yaml")
	os.WriteFile(partial, []byte("document:\n  placeholder: Write here\n"), 0644)
	settings, err = ReadSettings(partial)
	if err != nil {
		t.Fatalf("ReadSettings failed: %v", err)
	}
	if settings.Document.Placeholder != "Write here" {
		t.Errorf("Expected placeholder from file, got %q", settings.Document.Placeholder)
	}
	if settings.Bridge.BulkMode != models.BulkSubmitted {
		t.Errorf("Expected default bulk mode, got %q", settings.Bridge.BulkMode)
	}
	if !settings.Document.Attributes.Has(models.ContentEditable) {
		t.Errorf("Expected default attributes to survive a partial file")
	}
}

func TestErrorHandling(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{name: "invalid yaml", content: "bridge: [unclosed"},
		{name: "unknown bulk mode", content: "bridge:\n  bulk_mode: parallel\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			os.WriteFile(path, []byte(tt.content), 0644)
			if _, err := ReadSettings(path); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}

	if _, err := ReadSettings(dir); err == nil {
		t.Errorf("Expected error reading a directory")
	}
}
