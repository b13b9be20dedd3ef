// Package config loads parqview settings from defaults, an optional YAML
// file, PARQVIEW_* environment variables and command line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vegasq/parqview/archive"
	"github.com/vegasq/parqview/query"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "PARQVIEW"

// Config is the complete service configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Query   QueryConfig   `mapstructure:"query"`
	Preview PreviewConfig `mapstructure:"preview"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

// UploadConfig configures where uploads are archived.
type UploadConfig struct {
	Dir            string   `mapstructure:"dir"`
	Extension      string   `mapstructure:"extension"`
	Archive        string   `mapstructure:"archive"`
	RestoreOnStart bool     `mapstructure:"restore_on_start"`
	S3             S3Config `mapstructure:"s3"`
}

// S3Config configures the s3 archive backend.
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	Prefix          string `mapstructure:"prefix"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
}

// QueryConfig configures SQL execution.
type QueryConfig struct {
	Engine  string `mapstructure:"engine"`
	MaxRows int    `mapstructure:"max_rows"`
}

// PreviewConfig configures the preview endpoint.
type PreviewConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Encoding    string `mapstructure:"encoding"`
	Development bool   `mapstructure:"development"`
}

// MetricsConfig toggles the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

var defaults = map[string]interface{}{
	"server.addr":                 ":8000",
	"server.max_upload_bytes":     int64(512 << 20),
	"server.read_timeout":         "60s",
	"server.write_timeout":        "120s",
	"upload.dir":                  "_uploads",
	"upload.extension":            ".parquet",
	"upload.archive":              archive.BackendLocal,
	"upload.restore_on_start":     true,
	"upload.s3.bucket":            "",
	"upload.s3.region":            "",
	"upload.s3.endpoint":          "",
	"upload.s3.prefix":            "",
	"upload.s3.force_path_style":  false,
	"upload.s3.access_key_id":     "",
	"upload.s3.secret_access_key": "",
	"upload.s3.session_token":     "",
	"query.engine":                query.EngineSQLite,
	"query.max_rows":              0,
	"preview.default_limit":       50,
	"log.level":                   "info",
	"log.encoding":                "json",
	"log.development":             false,
	"metrics.enabled":             true,
}

// flagKeys maps command line flag names to configuration keys.
var flagKeys = map[string]string{
	"addr":         "server.addr",
	"max-upload":   "server.max_upload_bytes",
	"upload-dir":   "upload.dir",
	"archive":      "upload.archive",
	"engine":       "query.engine",
	"max-rows":     "query.max_rows",
	"log-level":    "log.level",
	"log-encoding": "log.encoding",
	"dev":          "log.development",
	"metrics":      "metrics.enabled",
}

// Default returns the configuration with every key at its default,
// ignoring the environment.
func Default() *Config {
	var cfg Config
	if err := newViper().Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return &cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

// Load reads the configuration. path may be empty; flags may be nil. Only
// flags that were set on the command line override other sources.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := newViper()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		if f.Name == "no-restore" {
			var skip bool
			if skip, err = flags.GetBool(f.Name); err == nil && skip {
				v.Set("upload.restore_on_start", false)
			}
			return
		}
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		err = v.BindPFlag(key, f)
	})
	return err
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	var errs []error

	if _, err := query.NewEngine(c.Query.Engine); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Upload.Archive) {
	case archive.BackendLocal, archive.BackendS3, archive.BackendMemory, archive.BackendNone:
	default:
		errs = append(errs, fmt.Errorf("unknown archive backend %q", c.Upload.Archive))
	}
	if strings.EqualFold(c.Upload.Archive, archive.BackendS3) && c.Upload.S3.Bucket == "" {
		errs = append(errs, errors.New("upload.s3.bucket is required for the s3 archive"))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("server.max_upload_bytes must be positive"))
	}
	if c.Preview.DefaultLimit < 0 {
		errs = append(errs, errors.New("preview.default_limit must not be negative"))
	}
	if c.Query.MaxRows < 0 {
		errs = append(errs, errors.New("query.max_rows must not be negative"))
	}

	return errors.Join(errs...)
}

// ArchiveConfig converts the upload settings for archive.New.
func (c *Config) ArchiveConfig() archive.Config {
	return archive.Config{
		Backend:   c.Upload.Archive,
		Dir:       c.Upload.Dir,
		Extension: c.Upload.Extension,
		S3: archive.S3Config{
			Bucket:          c.Upload.S3.Bucket,
			Region:          c.Upload.S3.Region,
			Endpoint:        c.Upload.S3.Endpoint,
			Prefix:          c.Upload.S3.Prefix,
			ForcePathStyle:  c.Upload.S3.ForcePathStyle,
			AccessKeyID:     c.Upload.S3.AccessKeyID,
			SecretAccessKey: c.Upload.S3.SecretAccessKey,
			SessionToken:    c.Upload.S3.SessionToken,
		},
	}
}
