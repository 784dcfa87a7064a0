package models

import "time"

// Bulk load modes
const (
	BulkSubmitted = "submitted"
	BulkSequenced = "sequenced"
)

// Settings represents the bridge configuration
type Settings struct {
	Bridge    BridgeSettings   `yaml:"bridge"`
	Document  DocumentSettings `yaml:"document"`
	Resources ResourceSettings `yaml:"resources"`
	Logging   LoggingSettings  `yaml:"logging"`
}

// BridgeSettings controls how commands and events cross the channel
type BridgeSettings struct {
	RootDivID      string        `yaml:"root_div_id"`
	BulkMode       string        `yaml:"bulk_mode"` // "submitted" or "sequenced"
	CommandTimeout time.Duration `yaml:"command_timeout"`
}

// DocumentSettings controls the initial document
type DocumentSettings struct {
	Attributes  EditableAttributes `yaml:"attributes"`
	Placeholder string             `yaml:"placeholder,omitempty"`
	InitialHTML string             `yaml:"initial_html,omitempty"`
}

// ResourceSettings controls the per-session working area
type ResourceSettings struct {
	WorkRoot   string `yaml:"work_root,omitempty"`
	SourceDir  string `yaml:"source_dir,omitempty"`
	UserScript string `yaml:"user_script,omitempty"`
	UserCSS    string `yaml:"user_css,omitempty"`
}

// LoggingSettings controls the zap logger built by the CLI
type LoggingSettings struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DefaultSettings returns the default configuration
func DefaultSettings() *Settings {
	return &Settings{
		Bridge: BridgeSettings{
			RootDivID: RootDivID,
			BulkMode:  BulkSubmitted,
		},
		Document: DocumentSettings{
			Attributes: StandardAttributes,
		},
		Logging: LoggingSettings{
			Level: "warn",
		},
	}
}
