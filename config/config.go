// Package config loads the engine settings from an optional configuration
// file and AWKFRAME_ prefixed environment variables.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

const EnvPrefix = "AWKFRAME"

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	// rows per batch produced by the executor
	BatchSize int `mapstructure:"batch_size"`

	// number of operator inputs executed concurrently
	TargetPartitions int `mapstructure:"target_partitions"`

	// records sampled to infer a CSV schema
	SchemaInferMaxRecords int `mapstructure:"schema_infer_max_records"`

	// entries kept by the scan program and schema caches
	CacheSize int `mapstructure:"cache_size"`

	Color bool      `mapstructure:"color"`
	Log   LogConfig `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("batch_size", 8192)
	v.SetDefault("target_partitions", runtime.NumCPU())
	v.SetDefault("schema_infer_max_records", 1000)
	v.SetDefault("cache_size", 128)
	v.SetDefault("color", true)
	v.SetDefault("log.level", "INFO")
	v.SetDefault("log.format", "text")
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		BatchSize:             8192,
		TargetPartitions:      runtime.NumCPU(),
		SchemaInferMaxRecords: 1000,
		CacheSize:             128,
		Color:                 true,
		Log: LogConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}

// Load reads the configuration file at path, when path is not empty, then
// applies the environment, ie AWKFRAME_BATCH_SIZE or AWKFRAME_LOG_LEVEL
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: cannot read %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (self *Config) Validate() error {
	if self.BatchSize <= 0 {
		return fmt.Errorf("config: batch_size must be positive, got %d", self.BatchSize)
	}
	if self.TargetPartitions <= 0 {
		return fmt.Errorf("config: target_partitions must be positive, got %d", self.TargetPartitions)
	}
	if self.SchemaInferMaxRecords <= 0 {
		return fmt.Errorf("config: schema_infer_max_records must be positive, got %d", self.SchemaInferMaxRecords)
	}
	if self.CacheSize <= 0 {
		return fmt.Errorf("config: cache_size must be positive, got %d", self.CacheSize)
	}
	switch strings.ToLower(self.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log.format %q", self.Log.Format)
	}
	return nil
}
