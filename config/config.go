package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	pypindexhttp "github.com/pypindex/pypindex/http"
	"github.com/pypindex/pypindex/s3"
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

// Config is the root configuration struct for pypindex.
type Config struct {
	Server  ServerConfig            `mapstructure:"server"`
	Index   IndexConfig             `mapstructure:"index"`
	Storage StorageConfig           `mapstructure:"storage"`
	Sign    SignConfig              `mapstructure:"sign"`
	CORS    pypindexhttp.CORSConfig `mapstructure:"cors"`
	Log     LogConfig               `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`

	// BasePath is where the simple index is mounted, e.g. "/simple".
	BasePath string `mapstructure:"base_path"`

	// PublicURL is the externally reachable base URL, used when the
	// filesystem backend signs its own download links. Empty falls back
	// to http://localhost:{port}.
	PublicURL string `mapstructure:"public_url"`

	ReadTimeout     int `mapstructure:"read_timeout" validate:"min=1"`     // seconds
	WriteTimeout    int `mapstructure:"write_timeout" validate:"min=1"`    // seconds
	ShutdownTimeout int `mapstructure:"shutdown_timeout" validate:"min=1"` // seconds
}

// IndexConfig holds index page configuration.
type IndexConfig struct {
	// RootKey is the object key of the cached root index page.
	RootKey string `mapstructure:"root_key" validate:"required"`

	// PresignTTL is the lifetime of presigned download URLs in seconds.
	PresignTTL int `mapstructure:"presign_ttl" validate:"min=1,max=604800"`
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	Backend string    `mapstructure:"backend" validate:"required,oneof=s3 filesystem"`
	Path    string    `mapstructure:"path"`
	S3      s3.Config `mapstructure:"s3"`
}

// SignConfig holds the self-signing key pair used by the filesystem backend
// for its presigned download URLs.
type SignConfig struct {
	Region    string `mapstructure:"region" validate:"required"`
	Service   string `mapstructure:"service" validate:"required"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"port":         "server.port",
	"base-path":    "server.base_path",
	"public-url":   "server.public_url",
	"backend":      "storage.backend",
	"storage-path": "storage.path",
	"bucket":       "storage.s3.bucket",
	"endpoint":     "storage.s3.endpoint",
	"root-key":     "index.root_key",
	"presign-ttl":  "index.presign_ttl",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
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

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_path", "/simple")
	v.SetDefault("server.public_url", "")
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 60)
	v.SetDefault("server.shutdown_timeout", 10)

	v.SetDefault("index.root_key", "index.html")
	v.SetDefault("index.presign_ttl", 900)

	v.SetDefault("storage.backend", "filesystem")
	v.SetDefault("storage.path", "./data")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.use_ssl", true)

	v.SetDefault("sign.region", "us-east-1")
	v.SetDefault("sign.service", "s3")

	v.SetDefault("log.level", "info")
}

// validateBackend checks the cross-field requirements the struct tags cannot
// express: each backend needs its own settings present.
func validateBackend(cfg *Config) error {
	switch cfg.Storage.Backend {
	case "filesystem":
		// The sign key pair is checked at serve time, not here: commands
		// that never presign (reindex, configure) run without it.
		if cfg.Storage.Path == "" {
			return errors.New("storage.path is required for the filesystem backend")
		}
	case "s3":
		if cfg.Storage.S3.Endpoint == "" {
			return errors.New("storage.s3.endpoint is required for the s3 backend")
		}
		if cfg.Storage.S3.Bucket == "" {
			return errors.New("storage.s3.bucket is required for the s3 backend")
		}
	}
	return nil
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
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

	// 3. Bind environment variables
	v.SetEnvPrefix("PYPINDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if err := validateBackend(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
