// Package config provides configuration management for the fcache CLI.
// It handles loading, validating and saving application settings. The package
// supports YAML configuration files and provides sensible defaults while
// allowing customization through the configuration file.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/glorpus-work/fcache/pkg/cache"
	"github.com/glorpus-work/fcache/pkg/errors"
	"github.com/glorpus-work/fcache/pkg/fsutil"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Settings Settings `yaml:"settings"`
}

// Settings represents general application settings.
type Settings struct {
	// Cache settings
	CacheDir  string `yaml:"cache_dir,omitempty"`
	ActualDir string `yaml:"actual_dir,omitempty"` // physical storage override

	// ShardDepth is a pointer so that an explicit 0 (sharding disabled) can
	// be told apart from an absent value.
	ShardDepth *int `yaml:"shard_depth,omitempty"`

	// Permission settings, octal strings like "0755". Empty means unset.
	DirMode  string `yaml:"dir_mode,omitempty"`
	FileMode string `yaml:"file_mode,omitempty"`

	// Output settings
	LogLevel string `yaml:"log_level"` // panic, fatal, error, warn, info, debug, trace
}

// YAMLIndent is the number of spaces to use for YAML indentation.
const YAMLIndent = 2

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	cacheDir, err := fsutil.GetCacheDir()
	if err != nil {
		// Fallback to a local directory if the user cache dir is unknown
		cacheDir = ".fcache"
	}

	depth := cache.DefaultShardDepth
	return &Config{
		Settings: Settings{
			CacheDir:   cacheDir,
			ShardDepth: &depth,
			LogLevel:   "info",
		},
	}
}

// EffectiveShardDepth returns the configured shard depth, falling back to the
// cache default.
func (c *Config) EffectiveShardDepth() int {
	if c.Settings.ShardDepth == nil {
		return cache.DefaultShardDepth
	}
	return *c.Settings.ShardDepth
}

// GetDefaultConfigPath returns the default location of the config file.
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "fcache", "config.yaml"), nil
}

// LoadConfig loads configuration from a file. A missing file yields the
// default configuration, not an error.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrConfigValidation, err.Error())
	}

	return &config, nil
}

// SaveConfig saves configuration to a file.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	if err := os.MkdirAll(filepath.Dir(absPath), fsutil.DirModeDefault); err != nil {
		return errors.Wrap(errors.ErrConfigDirectory, err.Error())
	}

	// Write to a temporary file first and rename it into place.
	tempPath := absPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeDefault)
	if err != nil {
		return errors.Wrap(errors.ErrConfigFileCreate, err.Error())
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)

	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}

	_ = encoder.Close()
	_ = file.Close()

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigFileRename, err.Error())
	}

	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	if c.Settings.ShardDepth != nil && *c.Settings.ShardDepth < 0 {
		return fmt.Errorf("shard_depth cannot be negative")
	}
	if _, err := c.DirFileMode(); err != nil {
		return err
	}
	if _, err := c.EntryFileMode(); err != nil {
		return err
	}
	return nil
}

// DirFileMode parses the configured directory mode. Zero means unset.
func (c *Config) DirFileMode() (os.FileMode, error) {
	return parseMode("dir_mode", c.Settings.DirMode)
}

// EntryFileMode parses the configured entry file mode. Zero means unset.
func (c *Config) EntryFileMode() (os.FileMode, error) {
	return parseMode("file_mode", c.Settings.FileMode)
}

func parseMode(name, value string) (os.FileMode, error) {
	if value == "" {
		return 0, nil
	}
	mode, err := strconv.ParseUint(value, 8, 32)
	if err != nil || mode > fsutil.FileModeMask {
		return 0, fmt.Errorf("%s must be an octal permission value like \"0755\", got %q", name, value)
	}
	return os.FileMode(mode), nil
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Settings.CacheDir == "" {
		c.Settings.CacheDir = defaults.Settings.CacheDir
	}
	if c.Settings.ShardDepth == nil {
		c.Settings.ShardDepth = defaults.Settings.ShardDepth
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
}
