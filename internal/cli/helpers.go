package cli

import (
	"fmt"
	"time"

	"github.com/glorpus-work/fcache/pkg/cache"
	"github.com/glorpus-work/fcache/pkg/config"
	"github.com/glorpus-work/fcache/pkg/logger"
	"github.com/spf13/cobra"
)

// These variables will be set by the main package.
var (
	ConfigPath *string
	Verbose    *bool
	NoColor    *bool
)

// loadConfig loads the configuration, honoring the global CLI flags.
func loadConfig() (*config.Config, error) {
	configPath := ""
	if ConfigPath != nil {
		configPath = *ConfigPath
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
	} else {
		defaultPath, pathErr := config.GetDefaultConfigPath()
		if pathErr != nil {
			return nil, fmt.Errorf("failed to get default config path: %w", pathErr)
		}
		cfg, err = config.LoadConfig(defaultPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if Verbose != nil && *Verbose {
		cfg.Settings.LogLevel = "debug"
	}

	noColor := NoColor != nil && *NoColor
	logger.InitLogger(cfg.Settings.LogLevel, noColor)

	return cfg, nil
}

// newStore builds the cache store described by the configuration.
func newStore(cfg *config.Config) (*cache.Manager, error) {
	dirMode, err := cfg.DirFileMode()
	if err != nil {
		return nil, err
	}
	fileMode, err := cfg.EntryFileMode()
	if err != nil {
		return nil, err
	}

	opts := []cache.Option{
		cache.WithShardDepth(cfg.EffectiveShardDepth()),
	}
	if cfg.Settings.ActualDir != "" {
		opts = append(opts, cache.WithActualDirectory(cfg.Settings.ActualDir))
	}
	if dirMode != 0 {
		opts = append(opts, cache.WithDirMode(dirMode))
	}
	if fileMode != 0 {
		opts = append(opts, cache.WithFileMode(fileMode))
	}

	store, err := cache.NewManager(cfg.Settings.CacheDir, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache store: %w", err)
	}
	return store, nil
}

// conditionFlags holds the freshness flags shared by the read commands.
type conditionFlags struct {
	maxAge      time.Duration
	youngerThan []string
	minSize     int64
}

// register adds the freshness flags to a command.
func (f *conditionFlags) register(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&f.maxAge, "max-age", 0, "Reject entries older than this duration")
	cmd.Flags().StringSliceVar(&f.youngerThan, "younger-than", nil, "Reject entries not newer than these paths")
	cmd.Flags().Int64Var(&f.minSize, "min-size", 0, "Reject entries smaller than this many bytes")
}

// conditions converts the provided flags into a cache condition set.
func (f *conditionFlags) conditions() cache.Conditions {
	conds := cache.Conditions{}
	if f.maxAge > 0 {
		conds[cache.CondMaxAge] = f.maxAge
	}
	if len(f.youngerThan) > 0 {
		conds[cache.CondYoungerThan] = f.youngerThan
	}
	if f.minSize > 0 {
		conds[cache.CondMinSize] = f.minSize
	}
	return conds
}
