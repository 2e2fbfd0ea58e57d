// Package config loads scaffold settings from the environment, an optional
// .env file and an optional YAML file. Environment variables use the
// PLUGINSCAFFOLD_ prefix and always win over file values.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"slices"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is the full scaffold configuration.
type Config struct {
	Plugin  Plugin  `yaml:"plugin"`
	Log     Log     `yaml:"log"`
	Options Options `yaml:"options"`
	Assets  Assets  `yaml:"assets"`
	Server  Server  `yaml:"server"`
}

// Plugin identifies the plugin being served.
type Plugin struct {
	Name        string `yaml:"name" env:"PLUGINSCAFFOLD_PLUGIN_NAME" env-default:"plugin-scaffolding" env-description:"plugin slug used for activation hooks"`
	Namespace   string `yaml:"namespace" env:"PLUGINSCAFFOLD_NAMESPACE" env-default:"pluginscaffolding" env-description:"prefix for options and transients"`
	TextDomain  string `yaml:"text_domain" env:"PLUGINSCAFFOLD_TEXT_DOMAIN" env-default:"plugin_scaffolding"`
	Version     string `yaml:"version" env:"PLUGINSCAFFOLD_VERSION" env-default:"1.0.0"`
	Dir         string `yaml:"dir" env:"PLUGINSCAFFOLD_PLUGIN_DIR" env-default:"." env-description:"plugin root holding definitions, languages and assets"`
	URL         string `yaml:"url" env:"PLUGINSCAFFOLD_PLUGIN_URL" env-default:"/assets/" env-description:"base URL plugin assets are served from"`
	Environment string `yaml:"environment" env:"PLUGINSCAFFOLD_ENV" env-default:"production" env-description:"production|staging|development|local"`
	Debug       bool   `yaml:"debug" env:"PLUGINSCAFFOLD_DEBUG" env-default:"false"`
}

// Log controls logger construction.
type Log struct {
	Level     string `yaml:"level" env:"PLUGINSCAFFOLD_LOG_LEVEL" env-default:"info" env-description:"debug|info|warn|error"`
	Format    string `yaml:"format" env:"PLUGINSCAFFOLD_LOG_FORMAT" env-default:"text" env-description:"text|json"`
	Verbosity int    `yaml:"verbosity" env:"PLUGINSCAFFOLD_LOG_VERBOSITY" env-default:"0" env-description:"highest logr V level printed"`
}

// Options selects the options/transients backend.
type Options struct {
	Driver      string `yaml:"driver" env:"PLUGINSCAFFOLD_OPTIONS_DRIVER" env-default:"memory" env-description:"memory|sqlite|postgres"`
	SQLitePath  string `yaml:"sqlite_path" env:"PLUGINSCAFFOLD_SQLITE_PATH" env-default:"pluginscaffold.db"`
	PostgresDSN string `yaml:"postgres_dsn" env:"PLUGINSCAFFOLD_POSTGRES_DSN"`
}

// Assets selects the asset store backend.
type Assets struct {
	Driver        string `yaml:"driver" env:"PLUGINSCAFFOLD_ASSETS_DRIVER" env-default:"fs" env-description:"fs|s3|memory"`
	Root          string `yaml:"root" env:"PLUGINSCAFFOLD_ASSETS_ROOT" env-default:"./assets"`
	BaseURL       string `yaml:"base_url" env:"PLUGINSCAFFOLD_ASSETS_BASE_URL" env-default:"/assets"`
	S3Bucket      string `yaml:"s3_bucket" env:"PLUGINSCAFFOLD_ASSETS_S3_BUCKET"`
	S3Region      string `yaml:"s3_region" env:"PLUGINSCAFFOLD_ASSETS_S3_REGION" env-default:"us-east-1"`
	S3Endpoint    string `yaml:"s3_endpoint" env:"PLUGINSCAFFOLD_ASSETS_S3_ENDPOINT"`
	S3Prefix      string `yaml:"s3_prefix" env:"PLUGINSCAFFOLD_ASSETS_S3_PREFIX"`
	S3PublicURL   string `yaml:"s3_public_url" env:"PLUGINSCAFFOLD_ASSETS_S3_PUBLIC_URL"`
	S3PathStyle   bool   `yaml:"s3_path_style" env:"PLUGINSCAFFOLD_ASSETS_S3_PATH_STYLE" env-default:"false"`
	S3AccessKeyID string `yaml:"-" env:"AWS_ACCESS_KEY_ID"`
	S3SecretKey   string `yaml:"-" env:"AWS_SECRET_ACCESS_KEY"`
}

// Server configures `scaffold serve`.
type Server struct {
	Addr  string `yaml:"addr" env:"PLUGINSCAFFOLD_ADDR" env-default:":8080"`
	Watch bool   `yaml:"watch" env:"PLUGINSCAFFOLD_WATCH" env-default:"false" env-description:"reload definitions when they change"`
}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Load reads dotenv (when non-empty and present), then path (when non-empty)
// and finally the environment.
func Load(path, dotenv string) (Config, error) {
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", dotenv, err)
		}
	}
	var cfg Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks driver and format selections.
func (c Config) Validate() error {
	var errs []error
	if !slices.Contains([]string{"text", "json"}, c.Log.Format) {
		errs = append(errs, fmt.Errorf("%w: log format %q", ErrInvalid, c.Log.Format))
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Log.Level) {
		errs = append(errs, fmt.Errorf("%w: log level %q", ErrInvalid, c.Log.Level))
	}
	if !slices.Contains([]string{"memory", "sqlite", "postgres"}, c.Options.Driver) {
		errs = append(errs, fmt.Errorf("%w: options driver %q", ErrInvalid, c.Options.Driver))
	}
	if !slices.Contains([]string{"fs", "s3", "memory"}, c.Assets.Driver) {
		errs = append(errs, fmt.Errorf("%w: assets driver %q", ErrInvalid, c.Assets.Driver))
	}
	if c.Assets.Driver == "s3" && c.Assets.S3Bucket == "" {
		errs = append(errs, fmt.Errorf("%w: PLUGINSCAFFOLD_ASSETS_S3_BUCKET required for s3 driver", ErrInvalid))
	}
	if strings.TrimSpace(c.Plugin.Name) == "" {
		errs = append(errs, fmt.Errorf("%w: plugin name empty", ErrInvalid))
	}
	return errors.Join(errs...)
}

// IsDev reports whether the environment is a development one.
func (p Plugin) IsDev() bool {
	return p.Debug || slices.Contains([]string{"staging", "development", "local"}, strings.ToLower(p.Environment))
}

// Usage writes the environment variable reference to w.
func Usage(w io.Writer) {
	var cfg Config
	header := "Environment variables:"
	cleanenv.FUsage(w, &cfg, &header)()
}
