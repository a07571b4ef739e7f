package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/mdedge/database"
	"github.com/sagarc03/mdedge/markdown"
	mdhttp "github.com/sagarc03/mdedge/http"
	"github.com/sagarc03/mdedge/rewrite"
	"github.com/sagarc03/mdedge/s3store"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for mdedge.
type Config struct {
	Server   ServerConfig      `mapstructure:"server" yaml:"server"`
	Service  ServiceConfig     `mapstructure:"service" yaml:"service"`
	Rewrite  rewrite.Config    `mapstructure:"rewrite" yaml:"rewrite"`
	Pipeline PipelineConfig    `mapstructure:"pipeline" yaml:"pipeline"`
	Database database.Config   `mapstructure:"database" yaml:"database"`
	Storage  StorageConfig     `mapstructure:"storage" yaml:"storage"`
	CORS     mdhttp.CORSConfig `mapstructure:"cors" yaml:"cors"`
	Log      LogConfig         `mapstructure:"log" yaml:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port          int    `mapstructure:"port" yaml:"port" validate:"required,min=1,max=65535"`
	Mode          string `mapstructure:"mode" yaml:"mode" validate:"required,oneof=store static spa"`
	MaxUploadSize int64  `mapstructure:"max_upload_size" yaml:"max_upload_size" validate:"min=0"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	CleanupTimeout int `mapstructure:"cleanup_timeout" yaml:"cleanup_timeout" validate:"min=1"` // seconds
}

// PipelineConfig sizes the conversion workers.
type PipelineConfig struct {
	Workers     int              `mapstructure:"workers" yaml:"workers" validate:"min=1"`
	QueueSize   int              `mapstructure:"queue_size" yaml:"queue_size" validate:"min=1"`
	Concurrency int              `mapstructure:"concurrency" yaml:"concurrency" validate:"min=1"`
	Timeout     time.Duration    `mapstructure:"timeout" yaml:"timeout" validate:"min=0"`
	// MaxAttempts and RetryDelay govern redelivery of failed uploads in serve.
	MaxAttempts int              `mapstructure:"max_attempts" yaml:"max_attempts" validate:"min=1"`
	RetryDelay  time.Duration    `mapstructure:"retry_delay" yaml:"retry_delay" validate:"min=0"`
	Markdown    markdown.Options `mapstructure:"markdown" yaml:"markdown"`
}

// StorageConfig selects where objects live. The filesystem backend is the
// local origin; the s3 backend is used by the worker and convert commands.
type StorageConfig struct {
	Backend string         `mapstructure:"backend" yaml:"backend" validate:"required,oneof=filesystem s3"`
	Path    string         `mapstructure:"path" yaml:"path" validate:"required_if=Backend filesystem"`
	Bucket  string         `mapstructure:"bucket" yaml:"bucket" validate:"required"`
	S3      s3store.Config `mapstructure:"s3" yaml:"s3"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`
}

// Timeout returns the cleanup timeout as a duration.
func (c ServiceConfig) Timeout() time.Duration {
	return time.Duration(c.CleanupTimeout) * time.Second
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"db-type":      "database.type",
	"db-dsn":       "database.dsn",
	"storage-path": "storage.path",
	"bucket":       "storage.bucket",
	"port":         "server.port",
	"mode":         "server.mode",
	"workers":      "pipeline.workers",
	"log-level":    "log.level",
	"log-format":   "log.format",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance. Every key
// that should be reachable through the environment needs a default.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5708)
	v.SetDefault("server.mode", "store")
	v.SetDefault("server.max_upload_size", 0) // 0 means no limit

	v.SetDefault("service.cleanup_timeout", 30)

	def := rewrite.Default()
	v.SetDefault("rewrite.extensions", def.Extensions)
	v.SetDefault("rewrite.default_document", def.DefaultDocument)
	v.SetDefault("rewrite.target_extension", def.TargetExtension)

	v.SetDefault("pipeline.workers", 1)
	v.SetDefault("pipeline.queue_size", 64)
	v.SetDefault("pipeline.concurrency", 1)
	v.SetDefault("pipeline.timeout", "30s")
	v.SetDefault("pipeline.max_attempts", 3)
	v.SetDefault("pipeline.retry_delay", "1s")
	v.SetDefault("pipeline.markdown.domain", "")
	v.SetDefault("pipeline.markdown.bullet_list_marker", "-")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "mdedge.db")
	v.SetDefault("database.tables.meta_data", "mdedge_metadata")

	v.SetDefault("storage.backend", "filesystem")
	v.SetDefault("storage.path", "./data")
	v.SetDefault("storage.bucket", "site")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key_id", "")
	v.SetDefault("storage.s3.secret_access_key", "")
	v.SetDefault("storage.s3.use_path_style", false)

	v.SetDefault("cors.enabled", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	v.SetEnvPrefix("MDEDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		bindFlags(v, flags)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// Struct tags cannot express the suffix rules between extensions.
	if err := cfg.Rewrite.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if err := cfg.Database.Tables.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
