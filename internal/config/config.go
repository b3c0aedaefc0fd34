// Package config loads imagery-cli settings from config.yaml and IMAGERY_*
// environment variables.
package config

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Export  ExportConfig  `yaml:"export" mapstructure:"export"`
	Dataset DatasetConfig `yaml:"dataset" mapstructure:"dataset"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ExportConfig configures the tile-export endpoint and the images requested
// from it.
type ExportConfig struct {
	Endpoint    string  `yaml:"endpoint" mapstructure:"endpoint"`
	Size        int     `yaml:"size" mapstructure:"size"`
	AreaMeters  float64 `yaml:"area_meters" mapstructure:"area_meters"`
	Format      string  `yaml:"format" mapstructure:"format"`
	SpatialRef  int     `yaml:"spatial_ref" mapstructure:"spatial_ref"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// Timeout returns the per-attempt request timeout.
func (c ExportConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// DatasetConfig locates the record files and output directories for each
// partition.
type DatasetConfig struct {
	Train         PartitionConfig `yaml:"train" mapstructure:"train"`
	Test          PartitionConfig `yaml:"test" mapstructure:"test"`
	IDColumn      string          `yaml:"id_column" mapstructure:"id_column"`
	LatColumn     string          `yaml:"lat_column" mapstructure:"lat_column"`
	LonColumn     string          `yaml:"lon_column" mapstructure:"lon_column"`
	Sheet         string          `yaml:"sheet" mapstructure:"sheet"`
	Delimiter     string          `yaml:"delimiter" mapstructure:"delimiter"`
	ProgressEvery int             `yaml:"progress_every" mapstructure:"progress_every"`
}

// DelimiterRune returns the CSV field separator, ',' when unset.
func (c DatasetConfig) DelimiterRune() rune {
	if c.Delimiter == "" {
		return ','
	}
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r
}

// PartitionConfig pairs a record file with its image directory.
type PartitionConfig struct {
	Records  string `yaml:"records" mapstructure:"records"`
	ImageDir string `yaml:"image_dir" mapstructure:"image_dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("IMAGERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("export.endpoint", "https://services.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/export")
	v.SetDefault("export.size", 256)
	v.SetDefault("export.area_meters", 200)
	v.SetDefault("export.format", "png")
	v.SetDefault("export.spatial_ref", 4326)
	v.SetDefault("export.timeout_secs", 20)
	v.SetDefault("export.max_retries", 3)
	v.SetDefault("export.user_agent", "imagery-cli/1.0")
	v.SetDefault("export.rate_per_sec", 0)
	v.SetDefault("dataset.train.records", "data/train.csv")
	v.SetDefault("dataset.train.image_dir", "images/train")
	v.SetDefault("dataset.test.records", "data/test.csv")
	v.SetDefault("dataset.test.image_dir", "images/test")
	v.SetDefault("dataset.id_column", "")
	v.SetDefault("dataset.lat_column", "lat")
	v.SetDefault("dataset.lon_column", "long")
	v.SetDefault("dataset.sheet", "")
	v.SetDefault("dataset.delimiter", ",")
	v.SetDefault("dataset.progress_every", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings that would make every fetch fail.
func (c *Config) Validate() error {
	if c.Export.Endpoint == "" {
		return eris.New("config: export.endpoint is required")
	}
	if c.Export.Size <= 0 {
		return eris.Errorf("config: export.size must be positive, got %d", c.Export.Size)
	}
	if c.Export.AreaMeters <= 0 {
		return eris.Errorf("config: export.area_meters must be positive, got %v", c.Export.AreaMeters)
	}
	if c.Export.MaxRetries <= 0 {
		return eris.Errorf("config: export.max_retries must be positive, got %d", c.Export.MaxRetries)
	}
	if c.Export.TimeoutSecs <= 0 {
		return eris.Errorf("config: export.timeout_secs must be positive, got %d", c.Export.TimeoutSecs)
	}
	if d := c.Dataset.Delimiter; d != "" {
		if utf8.RuneCountInString(d) != 1 || strings.ContainsAny(d, "\"\r\n") {
			return eris.Errorf("config: dataset.delimiter must be a single character other than a quote or newline, got %q", d)
		}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
