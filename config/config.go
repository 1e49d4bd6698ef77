// Package config loads process settings from .env, XLC_* environment
// variables and an optional YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/javajack/xlconsolidate/schema"
	"github.com/javajack/xlconsolidate/store"
	"github.com/javajack/xlconsolidate/validate"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "XLC"

// Config holds process settings. Environment variables take precedence over
// the YAML file, which takes precedence over Default.
type Config struct {
	Mode       string  `yaml:"mode" envconfig:"MODE" validate:"required"`
	DBPath     string  `yaml:"db_path" envconfig:"DB_PATH" validate:"required"`
	SchemaFile string  `yaml:"schema_file" envconfig:"SCHEMA_FILE"`
	Template   string  `yaml:"template" envconfig:"TEMPLATE"`
	Backup     bool    `yaml:"backup" envconfig:"BACKUP"`
	Tolerance  float64 `yaml:"tolerance" envconfig:"TOLERANCE" validate:"gte=0"`
	LogLevel   string  `yaml:"log_level" envconfig:"LOG_LEVEL" validate:"oneof=debug info warn error"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Mode:      string(schema.Schools),
		DBPath:    store.DefaultPath,
		Backup:    true,
		Tolerance: validate.DefaultTolerance,
		LogLevel:  "info",
	}
}

// Load reads envFiles (".env" when none is given; missing files are
// ignored), then the YAML file at path when path is not empty, then the
// environment, and validates the result. Mode aliases are resolved to their
// canonical name.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate checks field constraints and canonicalizes Mode.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	m, err := schema.ParseMode(c.Mode)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	c.Mode = string(m)
	return nil
}

// Registry builds the schema registry, merging SchemaFile when set.
func (c *Config) Registry(log *zap.Logger) (*schema.Registry, error) {
	opts := []schema.Option{schema.WithLogger(log)}
	if c.SchemaFile != "" {
		data, err := os.ReadFile(c.SchemaFile)
		if err != nil {
			return nil, &schema.ConfigurationError{Schema: c.SchemaFile, Err: err}
		}
		opts = append(opts, schema.WithOverrides(data))
	}
	return schema.NewRegistry(opts...)
}

// Logger builds a production logger at LogLevel, or a development logger at
// debug level when verbose is set.
func (c *Config) Logger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopmentConfig().Build()
	}
	lvl, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	return zc.Build()
}
