package cli

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pluqqy/editbridge/pkg/files"
	"github.com/pluqqy/editbridge/pkg/models"
)

// CommandContext carries the settings and logger a command runs with
type CommandContext struct {
	ConfigPath string
	Settings   *models.Settings
	Logger     *zap.Logger
}

// NewCommandContext reads the settings at configPath and builds the logger.
// An empty path means the project settings file.
func NewCommandContext(configPath string) (*CommandContext, error) {
	if configPath == "" {
		configPath = files.SettingsPath()
	}

	settings, err := files.ReadSettings(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := NewLogger(settings.Logging)
	if err != nil {
		return nil, err
	}

	return &CommandContext{
		ConfigPath: configPath,
		Settings:   settings,
		Logger:     logger,
	}, nil
}

// Close flushes the logger
func (c *CommandContext) Close() {
	_ = c.Logger.Sync()
}

// NewLogger builds the CLI logger. --verbose switches to a development
// logger at debug level; otherwise logs go to stderr at the configured
// level.
func NewLogger(cfg models.LoggingSettings) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}

	level := zapcore.WarnLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid logging level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	return zcfg.Build()
}

// ValidateFilePath validates that a file path exists and is a file
func ValidateFilePath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("path does not exist: %s", path)
		}
		return fmt.Errorf("error accessing path: %w", err)
	}

	if info.IsDir() {
		return fmt.Errorf("path is a directory, expected file: %s", path)
	}

	return nil
}
